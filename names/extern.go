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

package names

import (
	"strings"

	"github.com/bufbuild/protogen/report"
)

// ExternPath maps a fully-qualified Protobuf name (or name prefix) to a
// pre-existing target-language path, bypassing local generation for
// everything under it.
type ExternPath struct {
	ProtoPath  string
	TargetPath string
}

// ExternPaths is the registry of extern path mappings. It is built once
// per compilation run and read-only afterwards.
type ExternPaths struct {
	paths map[FullyQualified]string
}

// NewExternPaths validates and indexes the given mappings. Each proto path
// must be fully qualified; registering the same proto path twice is a
// configuration conflict.
func NewExternPaths(entries []ExternPath) (*ExternPaths, error) {
	e := &ExternPaths{paths: make(map[FullyQualified]string, len(entries))}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.ProtoPath, ".") {
			return nil, report.Conflictf(entry.ProtoPath,
				"extern Protobuf paths must be fully qualified (begin with a leading '.')")
		}
		fq := FullyQualified(entry.ProtoPath)
		if !fq.Valid() {
			return nil, report.Conflictf(entry.ProtoPath, "invalid fully-qualified Protobuf path")
		}
		if _, ok := e.paths[fq]; ok {
			return nil, report.Conflictf(entry.ProtoPath, "duplicate extern Protobuf path")
		}
		e.paths[fq] = entry.TargetPath
	}
	return e, nil
}

// Resolve maps a fully-qualified name to an extern type path. It tries an
// exact registry match first, then walks dot-delimited prefixes of the
// name from longest to shortest; the first registered prefix supplies the
// replacement path, which is spliced with the unmatched trailing segments
// in target naming convention and the case-converted type name. A nil
// registry never resolves anything.
func (e *ExternPaths) Resolve(ident FullyQualified) (TypePath, bool) {
	if e == nil || len(e.paths) == 0 {
		return TypePath{}, false
	}

	if target, ok := e.paths[ident]; ok {
		return TypePath{ExternPath: target}, true
	}

	s := string(ident)
	for idx := strings.LastIndexByte(s, '.'); idx > 0; idx = strings.LastIndexByte(s[:idx], '.') {
		target, ok := e.paths[FullyQualified(s[:idx])]
		if !ok {
			continue
		}
		trailing := strings.Split(s[idx+1:], ".")
		segments := make([]string, 0, len(trailing)-1)
		for _, seg := range trailing[:len(trailing)-1] {
			segments = append(segments, ToSnake(seg))
		}
		return TypePath{
			ExternPath: target,
			Segments:   segments,
			Name:       ToUpperCamel(trailing[len(trailing)-1]),
		}, true
	}
	return TypePath{}, false
}
