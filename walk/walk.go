// Copyright 2020-2024 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package walk provides depth-first traversal of descriptor protos with
// fully-qualified names. Traversal imposes an explicit nesting depth bound
// instead of relying on host stack limits.
package walk

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protogen/names"
	"github.com/bufbuild/protogen/report"
)

// MaxNestingDepth is the maximum message nesting depth traversals accept.
// Descriptor trees nested deeper are rejected as inconsistent.
const MaxNestingDepth = 100

// DescriptorProtos invokes fn for each message, enum, service, and method
// in the file, depth-first in declaration order, with the element's
// fully-qualified name. Traversal stops at the first error.
func DescriptorProtos(file *descriptorpb.FileDescriptorProto, fn func(names.FullyQualified, proto.Message) error) error {
	w := walker{file: file.GetName(), fn: fn}
	for _, msg := range file.GetMessageType() {
		if err := w.message(file.GetPackage(), msg, 1); err != nil {
			return err
		}
	}
	for _, enum := range file.GetEnumType() {
		if err := w.enum(file.GetPackage(), enum); err != nil {
			return err
		}
	}
	for _, svc := range file.GetService() {
		fqn := names.Join(file.GetPackage(), nil, svc.GetName())
		if err := fn(fqn, svc); err != nil {
			return err
		}
		for _, mtd := range svc.GetMethod() {
			if err := fn(names.FullyQualified(string(fqn)+"."+mtd.GetName()), mtd); err != nil {
				return err
			}
		}
	}
	return nil
}

// MessageProtos is like DescriptorProtos but visits message types only.
func MessageProtos(file *descriptorpb.FileDescriptorProto, fn func(names.FullyQualified, *descriptorpb.DescriptorProto) error) error {
	return DescriptorProtos(file, func(fqn names.FullyQualified, m proto.Message) error {
		if msg, ok := m.(*descriptorpb.DescriptorProto); ok {
			return fn(fqn, msg)
		}
		return nil
	})
}

type walker struct {
	file string
	fn   func(names.FullyQualified, proto.Message) error
}

func (w *walker) message(prefix string, msg *descriptorpb.DescriptorProto, depth int) error {
	if depth > MaxNestingDepth {
		return report.Inconsistencyf(w.file, prefix+"."+msg.GetName(),
			"message nesting exceeds the maximum depth of %d", MaxNestingDepth)
	}
	fqn := names.Join(prefix, nil, msg.GetName())
	if err := w.fn(fqn, msg); err != nil {
		return err
	}
	inner := string(fqn)[1:] // drop the leading dot so names.Join re-adds it
	for _, nested := range msg.GetNestedType() {
		if err := w.message(inner, nested, depth+1); err != nil {
			return err
		}
	}
	for _, enum := range msg.GetEnumType() {
		if err := w.enum(inner, enum); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) enum(prefix string, enum *descriptorpb.EnumDescriptorProto) error {
	return w.fn(names.Join(prefix, nil, enum.GetName()), enum)
}
