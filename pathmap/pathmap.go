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

// Package pathmap provides an ordered pattern-matching table keyed by
// dot-delimited Protobuf paths. A pattern is matched against a path using
// prefix and suffix semantics: a pattern with a leading dot (".foo.bar")
// matches paths it is a prefix of, a pattern without one ("bar.baz")
// matches paths it is a suffix of, and the single pattern "." matches
// every path.
//
// Every per-path configuration axis of the generator (attributes, bytes
// representation, map container kind, boxing, comment suppression, type
// name domains) is one PathMap instance. The table is append-only during
// configuration and read-only during generation.
package pathmap

import "strings"

type entry[T any] struct {
	pattern string
	value   T
}

// PathMap maps dot-delimited path patterns to values of type T. The zero
// value is an empty map, ready for use.
//
// PathMap supports two query modes. Get returns every matching value in
// insertion order, for configuration that accumulates (documentation,
// attributes). GetFirst returns the single best match in specificity
// order, for configuration that chooses exactly one value (a type
// representation).
type PathMap[T any] struct {
	entries []entry[T]
}

// Insert appends a (pattern, value) pair. Patterns registered for the
// same path do not replace one another; Get yields all of them and
// GetFirst yields the earliest inserted.
func (m *PathMap[T]) Insert(pattern string, value T) {
	m.entries = append(m.entries, entry[T]{pattern: pattern, value: value})
}

// Len returns the number of stored (pattern, value) pairs.
func (m *PathMap[T]) Len() int {
	return len(m.entries)
}

// Get returns all values whose pattern matches the given fully-qualified
// path, in insertion order of the underlying store regardless of match
// specificity.
func (m *PathMap[T]) Get(path string) []T {
	return m.lookupAll(candidates(path))
}

// GetField is the Get variant for a field: it matches patterns against
// both the containing message path and the path extended with the field
// name.
func (m *PathMap[T]) GetField(path, field string) []T {
	return m.lookupAll(fieldCandidates(path, field))
}

// GetFirst returns the stored value with the most specific matching
// pattern: the exact path first, then suffixes from longest to shortest,
// then prefixes from longest to shortest, then the global pattern ".".
// Among entries with the same pattern, the earliest inserted wins.
func (m *PathMap[T]) GetFirst(path string) (T, bool) {
	return m.lookupFirst(candidates(path))
}

// GetFirstField is the GetFirst variant for a field, using the same
// candidate expansion as GetField.
func (m *PathMap[T]) GetFirstField(path, field string) (T, bool) {
	return m.lookupFirst(fieldCandidates(path, field))
}

func (m *PathMap[T]) lookupAll(cands []string) []T {
	if len(m.entries) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		set[c] = struct{}{}
	}
	var values []T
	for _, e := range m.entries {
		if _, ok := set[e.pattern]; ok {
			values = append(values, e.value)
		}
	}
	return values
}

func (m *PathMap[T]) lookupFirst(cands []string) (T, bool) {
	for _, c := range cands {
		for _, e := range m.entries {
			if e.pattern == c {
				return e.value, true
			}
		}
	}
	var zero T
	return zero, false
}

// candidates expands a path into the patterns that can match it, in
// specificity order. The trailing "." entry means the global pattern is
// always a valid fallback.
func candidates(path string) []string {
	cands := make([]string, 0, 2*strings.Count(path, ".")+2)
	cands = append(cands, path)
	cands = append(cands, suffixes(path)...)
	cands = append(cands, prefixes(path)...)
	return append(cands, ".")
}

// fieldCandidates expands a (message path, field name) pair the same way,
// trying the field-qualified path before falling back to suffixes of the
// bare message path.
func fieldCandidates(path, field string) []string {
	full := path + "." + field
	cands := make([]string, 0, 3*strings.Count(full, ".")+2)
	cands = append(cands, full)
	cands = append(cands, suffixes(full)...)
	cands = append(cands, suffixes(path)...)
	cands = append(cands, prefixes(full)...)
	return append(cands, ".")
}

// suffixes returns the proper suffixes of a dot-delimited path in
// decreasing length order: suffixes(".a.b.c") is ["a.b.c", "b.c", "c"].
// A path with no separator below itself has none.
func suffixes(path string) []string {
	var out []string
	for {
		i := strings.IndexByte(path, '.')
		if i < 0 {
			return out
		}
		path = path[i+1:]
		if path == "" {
			return out
		}
		out = append(out, path)
	}
}

// prefixes returns the proper prefixes of a dot-delimited path in
// decreasing length order: prefixes(".a.b.c") is [".a.b", ".a"].
func prefixes(path string) []string {
	var out []string
	for {
		i := strings.LastIndexByte(path, '.')
		if i < 0 {
			return out
		}
		path = path[:i]
		if path == "" {
			return out
		}
		out = append(out, path)
	}
}
