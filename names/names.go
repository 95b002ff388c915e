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

// Package names provides fully-qualified Protobuf name handling, target
// identifier case conversion, and resolution of qualified names to target
// type paths, either through a caller-supplied extern registry or as a
// path relative to the current generation scope.
package names

import "strings"

// FullyQualified is a dot-delimited Protobuf path with a leading dot,
// uniquely identifying a schema entity from the root package, e.g.
// ".foo.bar.Baz".
type FullyQualified string

// Join builds a fully-qualified name from a package, the names of the
// enclosing message types, and the element name.
func Join(pkg string, typePath []string, name string) FullyQualified {
	var sb strings.Builder
	if pkg != "" {
		sb.WriteByte('.')
		sb.WriteString(pkg)
	}
	for _, t := range typePath {
		sb.WriteByte('.')
		sb.WriteString(t)
	}
	sb.WriteByte('.')
	sb.WriteString(name)
	return FullyQualified(sb.String())
}

// Valid reports whether the name is fully qualified: it begins with a dot
// and contains no empty segments.
func (f FullyQualified) Valid() bool {
	s := string(f)
	if len(s) < 2 || s[0] != '.' {
		return false
	}
	for _, seg := range strings.Split(s[1:], ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// Segments returns the path segments without the leading empty segment
// produced by the leading dot.
func (f FullyQualified) Segments() []string {
	s := strings.TrimPrefix(string(f), ".")
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// Name returns the final segment, the bare element name.
func (f FullyQualified) Name() string {
	s := string(f)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Scope identifies the point in the output currently being generated: the
// file's package plus the stack of enclosing message names. Local type
// references are computed relative to it.
type Scope struct {
	Package  string
	TypePath []string
}

func (s Scope) segments() []string {
	segs := make([]string, 0, 4+len(s.TypePath))
	for _, seg := range strings.Split(s.Package, ".") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return append(segs, s.TypePath...)
}

// TypePath is a resolved reference to a target-language type. Exactly one
// of two shapes applies: an extern reference (ExternPath non-empty) whose
// prefix is the caller-registered replacement path, or a local reference
// described relative to the scope it was resolved in, with Ascend counting
// how many scope levels to leave before descending through Segments.
//
// How an extern prefix, ascent markers, and segments render is a printer
// concern; for garbage-collected targets the distinction between boxed and
// plain local references is one as well.
type TypePath struct {
	// ExternPath is the registered replacement path. Empty for local
	// references.
	ExternPath string
	// Ascend is the number of scope levels between the current scope and
	// the common ancestor of scope and target. Always zero for extern
	// references.
	Ascend int
	// Segments are the intermediate path segments below the common
	// ancestor (or below the extern prefix), converted to the target path
	// convention.
	Segments []string
	// Name is the final type segment in the target type convention. Empty
	// when an extern registration consumed the entire qualified name.
	Name string
}

// IsExtern reports whether the reference resolved through the extern
// registry rather than locally.
func (p TypePath) IsExtern() bool {
	return p.ExternPath != ""
}

// ResolveIdent resolves a fully-qualified name against the extern registry
// first, falling back to a path relative to the given scope. The registry
// may be nil. Resolution itself cannot fail: a name that refers to nothing
// signals an upstream descriptor-consistency defect that callers detect
// against their type registries.
func ResolveIdent(scope Scope, externs *ExternPaths, ident FullyQualified) TypePath {
	if p, ok := externs.Resolve(ident); ok {
		return p
	}

	local := scope.segments()
	identSegs := ident.Segments()
	typeName := identSegs[len(identSegs)-1]
	identPath := identSegs[:len(identSegs)-1]

	// Discard the longest common leading run.
	common := 0
	for common < len(local) && common < len(identPath) && local[common] == identPath[common] {
		common++
	}

	segments := make([]string, 0, len(identPath)-common)
	for _, seg := range identPath[common:] {
		segments = append(segments, ToSnake(seg))
	}
	return TypePath{
		Ascend:   len(local) - common,
		Segments: segments,
		Name:     ToUpperCamel(typeName),
	}
}
