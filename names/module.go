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

import "strings"

// Module is the output-path identity of a Protobuf package: its segments
// in target naming convention, used to derive the generated file name.
type Module struct {
	components []string
}

// ModuleFromPackage builds a Module from a Protobuf package name. Segments
// are converted to snake case.
func ModuleFromPackage(pkg string) Module {
	var components []string
	for _, seg := range strings.Split(pkg, ".") {
		if seg != "" {
			components = append(components, ToSnake(seg))
		}
	}
	return Module{components: components}
}

// Parts returns the module path segments.
func (m Module) Parts() []string {
	return m.components
}

// IsEmpty reports whether the module has no components, i.e. the file had
// no package declaration.
func (m Module) IsEmpty() bool {
	return len(m.components) == 0
}

// FileName derives the generated file name. If the module is empty,
// defaultName provides the root of the name.
func (m Module) FileName(defaultName string) string {
	root := defaultName
	if !m.IsEmpty() {
		root = strings.Join(m.components, ".")
	}
	return root + ".pb.go"
}

func (m Module) String() string {
	return strings.Join(m.components, ".")
}
