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

// Package protogen generates Go source from compiled Protobuf file
// descriptors. It consumes fully-linked FileDescriptorProto sets, so it
// pairs with any front end that produces them; it performs no parsing of
// its own.
//
// Generation runs in phases, each with its own package holding the
// intermediate model:
//  1. Walk every descriptor and build the message dependency graph, which
//     decides which fields must be boxed behind pointers to keep struct
//     sizes finite. See internal/msggraph.
//  2. Resolve each file's edition or syntax into concrete feature values
//     governing presence and packed encoding. See features.
//  3. Resolve type references against configured extern mappings and the
//     set of locally declared types. See names.
//  4. Lower each file into a declarative tree of messages, enums, fields,
//     and services carrying tags, kinds, presence, and packing.
//     See decl.
//  5. Render the tree as Go source. See printer.
//
// Files are generated in parallel across available CPU cores, but outputs
// are deterministic: the same inputs and configuration always produce
// byte-identical results, in input order.
//
// # Configuration
//
// A Config maps schema paths to behavior. Path patterns are matched
// against fully-qualified names, most specific first, so a setting can
// target a single field, a message, a package subtree, or everything.
// Config values can also be loaded from YAML with ParseConfig.
//
// The simplest use generates every input file with defaults:
//
//	gen := &protogen.Generator{}
//	outputs, err := gen.Generate(ctx, fileDescriptors...)
package protogen
