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
	"fmt"
	"io"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/bufbuild/protogen/decl"
	"github.com/bufbuild/protogen/names"
	"github.com/bufbuild/protogen/pathmap"
	"github.com/bufbuild/protogen/report"
)

// ServiceGenerator produces target source for one resolved service
// declaration. The generator core resolves names and comments but leaves
// service rendering to the caller; the returned source is appended to the
// file's generated content.
type ServiceGenerator interface {
	GenerateService(service *decl.Service) ([]byte, error)
}

// Config collects every per-path override and global option of a
// generation run. The zero value generates with defaults; the builder
// methods return the receiver for chaining. A Config is append-only during
// setup and must not be modified once generation has started.
//
// Path-keyed options use the pattern syntax of package pathmap: a leading
// dot matches by prefix, no leading dot matches by suffix, and "." matches
// everything.
type Config struct {
	externPaths []names.ExternPath

	boxed             pathmap.PathMap[struct{}]
	bytesKinds        pathmap.PathMap[decl.BytesKind]
	mapKinds          pathmap.PathMap[decl.MapKind]
	disabledComments  pathmap.PathMap[struct{}]
	messageAttributes pathmap.PathMap[string]
	enumAttributes    pathmap.PathMap[string]
	fieldAttributes   pathmap.PathMap[string]
	typeNameDomains   pathmap.PathMap[string]

	enableTypeNames        bool
	keepEnumPrefixes       bool
	defaultPackageFilename string
	goPackage              string
	filePatterns           []string
	imports                []string
	serviceGenerator       ServiceGenerator
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{}
}

// ExternPath maps a fully-qualified schema name or name prefix to a
// pre-existing target type path. Types under the mapping are not generated;
// references to them use the registered path.
func (c *Config) ExternPath(protoPath, targetPath string) *Config {
	c.externPaths = append(c.externPaths, names.ExternPath{
		ProtoPath:  protoPath,
		TargetPath: targetPath,
	})
	return c
}

// Boxed forces fields matching the pattern behind a pointer, breaking any
// value cycle that runs through them.
func (c *Config) Boxed(pattern string) *Config {
	c.boxed.Insert(pattern, struct{}{})
	return c
}

// BytesKind selects the representation of bytes fields matching the
// pattern.
func (c *Config) BytesKind(pattern string, kind decl.BytesKind) *Config {
	c.bytesKinds.Insert(pattern, kind)
	return c
}

// MapKind selects the associative container for map fields matching the
// pattern.
func (c *Config) MapKind(pattern string, kind decl.MapKind) *Config {
	c.mapKinds.Insert(pattern, kind)
	return c
}

// DisableComments suppresses documentation comments on declarations
// matching the pattern.
func (c *Config) DisableComments(pattern string) *Config {
	c.disabledComments.Insert(pattern, struct{}{})
	return c
}

// MessageAttribute appends a raw source line above generated messages
// matching the pattern.
func (c *Config) MessageAttribute(pattern, attribute string) *Config {
	c.messageAttributes.Insert(pattern, attribute)
	return c
}

// EnumAttribute appends a raw source line above generated enums matching
// the pattern.
func (c *Config) EnumAttribute(pattern, attribute string) *Config {
	c.enumAttributes.Insert(pattern, attribute)
	return c
}

// FieldAttribute appends a raw source line above generated fields matching
// the pattern.
func (c *Config) FieldAttribute(pattern, attribute string) *Config {
	c.fieldAttributes.Insert(pattern, attribute)
	return c
}

// EnableTypeNames emits type-name and type-URL accessors on generated
// messages and enums.
func (c *Config) EnableTypeNames() *Config {
	c.enableTypeNames = true
	return c
}

// TypeNameDomain sets the type-URL domain for types matching the pattern.
// Types with no matching domain use "type.googleapis.com".
func (c *Config) TypeNameDomain(pattern, domain string) *Config {
	c.typeNameDomains.Insert(pattern, domain)
	return c
}

// KeepEnumPrefixes disables stripping the enum type name from enum value
// constants.
func (c *Config) KeepEnumPrefixes() *Config {
	c.keepEnumPrefixes = true
	return c
}

// DefaultPackageFilename sets the output file name root for files without
// a package declaration. The default is "default".
func (c *Config) DefaultPackageFilename(name string) *Config {
	c.defaultPackageFilename = name
	return c
}

// GoPackage sets the package clause of all generated files. When unset, a
// run confined to one schema package borrows that package's name with dots
// flattened to underscores; runs spanning packages (or with no package)
// use "schemapb".
func (c *Config) GoPackage(name string) *Config {
	c.goPackage = name
	return c
}

// FilePatterns restricts output to input files whose name matches at least
// one doublestar glob. All input files still feed the message graph;
// patterns only select which files produce output.
func (c *Config) FilePatterns(patterns ...string) *Config {
	c.filePatterns = append(c.filePatterns, patterns...)
	return c
}

// Import adds an import spec to every generated file that references an
// extern type, e.g. `timestamppb "google.golang.org/protobuf/types/known/timestamppb"`.
func (c *Config) Import(specs ...string) *Config {
	c.imports = append(c.imports, specs...)
	return c
}

// ServiceGenerator installs the service generator. Without one, services
// are skipped.
func (c *Config) ServiceGenerator(sg ServiceGenerator) *Config {
	c.serviceGenerator = sg
	return c
}

func (c *Config) validate() error {
	for _, pattern := range c.filePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return report.Conflictf(pattern, "invalid file pattern")
		}
	}
	return nil
}

// configFile is the YAML form of a Config. List order is preserved, so the
// insertion-order semantics of additive options match the builder API.
type configFile struct {
	ExternPaths []struct {
		Proto  string `yaml:"proto"`
		Target string `yaml:"target"`
	} `yaml:"extern_paths"`
	Boxed []string `yaml:"boxed"`
	Bytes []struct {
		Path string `yaml:"path"`
		Kind string `yaml:"kind"`
	} `yaml:"bytes"`
	Maps []struct {
		Path string `yaml:"path"`
		Kind string `yaml:"kind"`
	} `yaml:"maps"`
	DisableComments   []string        `yaml:"disable_comments"`
	MessageAttributes []pathAttribute `yaml:"message_attributes"`
	EnumAttributes    []pathAttribute `yaml:"enum_attributes"`
	FieldAttributes   []pathAttribute `yaml:"field_attributes"`
	TypeNameDomains   []struct {
		Path   string `yaml:"path"`
		Domain string `yaml:"domain"`
	} `yaml:"type_name_domains"`
	EnableTypeNames        bool     `yaml:"enable_type_names"`
	KeepEnumPrefixes       bool     `yaml:"keep_enum_prefixes"`
	DefaultPackageFilename string   `yaml:"default_package_filename"`
	GoPackage              string   `yaml:"go_package"`
	FilePatterns           []string `yaml:"file_patterns"`
	Imports                []string `yaml:"imports"`
}

type pathAttribute struct {
	Path      string `yaml:"path"`
	Attribute string `yaml:"attribute"`
}

// ParseConfig reads a YAML configuration. Additive options apply in
// document order.
func ParseConfig(r io.Reader) (*Config, error) {
	var cf configFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	c := NewConfig()
	for _, e := range cf.ExternPaths {
		c.ExternPath(e.Proto, e.Target)
	}
	for _, p := range cf.Boxed {
		c.Boxed(p)
	}
	for _, e := range cf.Bytes {
		switch kind := decl.BytesKind(e.Kind); kind {
		case decl.BytesSlice, decl.BytesString:
			c.BytesKind(e.Path, kind)
		default:
			return nil, report.Conflictf(e.Path, "unknown bytes kind %q", e.Kind)
		}
	}
	for _, e := range cf.Maps {
		switch kind := decl.MapKind(e.Kind); kind {
		case decl.MapHash, decl.MapOrdered:
			c.MapKind(e.Path, kind)
		default:
			return nil, report.Conflictf(e.Path, "unknown map kind %q", e.Kind)
		}
	}
	for _, p := range cf.DisableComments {
		c.DisableComments(p)
	}
	for _, a := range cf.MessageAttributes {
		c.MessageAttribute(a.Path, a.Attribute)
	}
	for _, a := range cf.EnumAttributes {
		c.EnumAttribute(a.Path, a.Attribute)
	}
	for _, a := range cf.FieldAttributes {
		c.FieldAttribute(a.Path, a.Attribute)
	}
	for _, e := range cf.TypeNameDomains {
		c.TypeNameDomain(e.Path, e.Domain)
	}
	if cf.EnableTypeNames {
		c.EnableTypeNames()
	}
	if cf.KeepEnumPrefixes {
		c.KeepEnumPrefixes()
	}
	if cf.DefaultPackageFilename != "" {
		c.DefaultPackageFilename(cf.DefaultPackageFilename)
	}
	if cf.GoPackage != "" {
		c.GoPackage(cf.GoPackage)
	}
	c.FilePatterns(cf.FilePatterns...)
	c.Import(cf.Imports...)
	return c, nil
}
