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

package protogen

import (
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protogen/internal/msggraph"
	"github.com/bufbuild/protogen/names"
)

// session is the whole-program state of one generation run: the validated
// configuration, the extern registry, and the message graph over all input
// files. It is built once, then shared read-only by the per-file
// generation goroutines.
type session struct {
	cfg     *Config
	externs *names.ExternPaths
	graph   *msggraph.Graph

	// goPackage is the package clause shared by every output of the run.
	goPackage string
	// qualified marks runs spanning more than one schema package, where
	// flattened identifiers must keep their package segments to stay
	// unique inside the shared output package.
	qualified bool
}

func newSession(cfg *Config, files []*descriptorpb.FileDescriptorProto) (*session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	externs, err := names.NewExternPaths(cfg.externPaths)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, externs: externs}
	s.goPackage, s.qualified = runPackageName(cfg, files)
	// The graph must cover every input file: references cross files, and
	// extern skips are applied only after it is built.
	graph, err := msggraph.Build(files, s.forceBoxed)
	if err != nil {
		return nil, err
	}
	s.graph = graph
	return s, nil
}

// runPackageName picks the shared package clause for a run's outputs.
// Every file lands in one Go package so flattened identifiers resolve
// across files: a run confined to a single schema package borrows that
// package's name; anything else falls back to a neutral name and
// package-qualified identifiers.
func runPackageName(cfg *Config, files []*descriptorpb.FileDescriptorProto) (string, bool) {
	packages := make(map[string]struct{}, 1)
	for _, fd := range files {
		packages[fd.GetPackage()] = struct{}{}
	}
	qualified := len(packages) > 1

	name := cfg.goPackage
	if name == "" {
		name = "schemapb"
		if !qualified && len(files) > 0 {
			if module := names.ModuleFromPackage(files[0].GetPackage()); !module.IsEmpty() {
				name = strings.Join(module.Parts(), "_")
			}
		}
	}
	return name, qualified
}

// forceBoxed reports whether configuration forces the field behind a
// pointer.
func (s *session) forceBoxed(container names.FullyQualified, fieldName string) bool {
	_, ok := s.cfg.boxed.GetFirstField(string(container), fieldName)
	return ok
}

// boxed decides field indirection: a configured override, or a singular
// message field whose type can reach back to its container through the
// graph. Overrides for oneof members match the oneof-qualified path
// <message>.<oneof> first, then the bare message path.
func (s *session) boxed(container names.FullyQualified, oneof string, field *descriptorpb.FieldDescriptorProto) bool {
	if oneof != "" {
		if _, ok := s.cfg.boxed.GetFirstField(string(container)+"."+oneof, field.GetName()); ok {
			return true
		}
	}
	if s.forceBoxed(container, field.GetName()) {
		return true
	}
	if field.GetType() != descriptorpb.FieldDescriptorProto_TYPE_MESSAGE &&
		field.GetType() != descriptorpb.FieldDescriptorProto_TYPE_GROUP {
		return false
	}
	if field.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED {
		return false
	}
	return s.graph.Nested(names.FullyQualified(field.GetTypeName()), container)
}
