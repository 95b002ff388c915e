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

// Package msggraph builds a reachability graph over every message in a
// descriptor set. An edge runs from a container message to the type of each
// of its singular message fields, except fields the caller already forces
// behind a pointer. The graph answers whether embedding one message inside
// another closes a value-type cycle, which would make the generated struct
// infinitely sized; such fields must be emitted as pointers.
//
// The graph also doubles as the type registry for a generation run: it
// records every declared message and enum so the generator can verify that
// referenced type names resolve.
package msggraph

import (
	"github.com/tidwall/btree"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protogen/names"
	"github.com/bufbuild/protogen/walk"
)

// BoxedFunc reports whether the named field of the container message is
// forced behind a pointer by configuration. Edges for such fields are left
// out of the graph, so a cycle passing only through them is not reported.
type BoxedFunc func(container names.FullyQualified, fieldName string) bool

// Graph is immutable after Build and safe for concurrent readers.
type Graph struct {
	nodes    btree.Map[string, *node]
	messages btree.Map[string, *descriptorpb.DescriptorProto]
	enums    btree.Set[string]
}

type node struct {
	edges []string
}

// Build constructs the graph from all files of a compilation at once;
// message references cross file boundaries, so partial graphs give wrong
// answers. boxed may be nil.
func Build(files []*descriptorpb.FileDescriptorProto, boxed BoxedFunc) (*Graph, error) {
	g := &Graph{}
	for _, file := range files {
		err := walk.DescriptorProtos(file, func(fqn names.FullyQualified, element proto.Message) error {
			switch desc := element.(type) {
			case *descriptorpb.DescriptorProto:
				g.addMessage(fqn, desc, boxed)
			case *descriptorpb.EnumDescriptorProto:
				g.enums.Insert(string(fqn))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) addMessage(fqn names.FullyQualified, msg *descriptorpb.DescriptorProto, boxed BoxedFunc) {
	n := g.getOrInsertNode(string(fqn))
	for _, field := range msg.GetField() {
		if field.GetType() != descriptorpb.FieldDescriptorProto_TYPE_MESSAGE ||
			field.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED {
			continue
		}
		if boxed != nil && boxed(fqn, field.GetName()) {
			continue
		}
		g.getOrInsertNode(field.GetTypeName())
		n.edges = append(n.edges, field.GetTypeName())
	}
	g.messages.Set(string(fqn), msg)
}

func (g *Graph) getOrInsertNode(name string) *node {
	if n, ok := g.nodes.Get(name); ok {
		return n
	}
	n := &node{}
	g.nodes.Set(name, n)
	return n
}

// Nested reports whether inner is reachable from outer through singular,
// non-boxed message fields. A node trivially reaches itself, so
// Nested(x, x) is true for any known x; callers query it as
// Nested(fieldType, container) to decide whether embedding the field by
// value closes a cycle. Unknown names report false.
func (g *Graph) Nested(outer, inner names.FullyQualified) bool {
	if _, ok := g.nodes.Get(string(outer)); !ok {
		return false
	}
	if _, ok := g.nodes.Get(string(inner)); !ok {
		return false
	}
	if outer == inner {
		return true
	}
	visited := map[string]bool{string(outer): true}
	return g.reachable(string(outer), string(inner), visited)
}

func (g *Graph) reachable(from, to string, visited map[string]bool) bool {
	n, ok := g.nodes.Get(from)
	if !ok {
		return false
	}
	for _, next := range n.edges {
		if next == to {
			return true
		}
		if visited[next] {
			continue
		}
		visited[next] = true
		if g.reachable(next, to, visited) {
			return true
		}
	}
	return false
}

// Message returns the descriptor registered under the fully-qualified name.
func (g *Graph) Message(fqn names.FullyQualified) (*descriptorpb.DescriptorProto, bool) {
	return g.messages.Get(string(fqn))
}

// KnownType reports whether the name is a declared message or enum.
func (g *Graph) KnownType(fqn names.FullyQualified) bool {
	if _, ok := g.messages.Get(string(fqn)); ok {
		return true
	}
	return g.enums.Contains(string(fqn))
}

// Comparable reports whether the struct generated for the message supports
// comparison with ==. Repeated and map fields become slices and maps, bytes
// fields become byte slices, and recursive message fields become pointers;
// any of these makes the struct incomparable. Unknown messages report
// false.
func (g *Graph) Comparable(fqn names.FullyQualified) bool {
	return g.comparableMessage(string(fqn), make(map[string]bool))
}

func (g *Graph) comparableMessage(name string, visiting map[string]bool) bool {
	msg, ok := g.messages.Get(name)
	if !ok {
		return false
	}
	if visiting[name] {
		// A cycle that survived edge filtering is possible only through a
		// force-boxed field, which is a pointer.
		return false
	}
	visiting[name] = true
	defer delete(visiting, name)
	for _, field := range msg.GetField() {
		if !g.comparableField(name, field, visiting) {
			return false
		}
	}
	return true
}

func (g *Graph) comparableField(container string, field *descriptorpb.FieldDescriptorProto, visiting map[string]bool) bool {
	if field.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED {
		return false
	}
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		if g.Nested(names.FullyQualified(field.GetTypeName()), names.FullyQualified(container)) {
			return false
		}
		return g.comparableMessage(field.GetTypeName(), visiting)
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return false
	default:
		return true
	}
}
