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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protogen/decl"
	"github.com/bufbuild/protogen/report"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()
	const doc = `
extern_paths:
  - proto: .google.protobuf.Timestamp
    target: timestamppb.Timestamp
boxed:
  - .foo.Bar.baz
bytes:
  - path: .foo.Bar.data
    kind: string
maps:
  - path: .foo.Bar.counts
    kind: ordered
disable_comments:
  - .foo.Internal
message_attributes:
  - path: .foo.Bar
    attribute: "//go:generate stub"
field_attributes:
  - path: .foo.Bar.baz
    attribute: "// note"
type_name_domains:
  - path: .foo
    domain: example.com
enable_type_names: true
keep_enum_prefixes: true
default_package_filename: misc
go_package: foopb
file_patterns:
  - "**/*.proto"
imports:
  - 'timestamppb "google.golang.org/protobuf/types/known/timestamppb"'
`
	cfg, err := ParseConfig(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, cfg.externPaths, 1)
	assert.Equal(t, ".google.protobuf.Timestamp", cfg.externPaths[0].ProtoPath)

	_, ok := cfg.boxed.GetFirstField(".foo.Bar", "baz")
	assert.True(t, ok)

	kind, ok := cfg.bytesKinds.GetFirstField(".foo.Bar", "data")
	require.True(t, ok)
	assert.Equal(t, decl.BytesString, kind)

	mk, ok := cfg.mapKinds.GetFirstField(".foo.Bar", "counts")
	require.True(t, ok)
	assert.Equal(t, decl.MapOrdered, mk)

	_, ok = cfg.disabledComments.GetFirst(".foo.Internal")
	assert.True(t, ok)

	assert.Equal(t, []string{"//go:generate stub"}, cfg.messageAttributes.Get(".foo.Bar"))
	assert.Equal(t, []string{"// note"}, cfg.fieldAttributes.GetField(".foo.Bar", "baz"))

	domain, ok := cfg.typeNameDomains.GetFirst(".foo.Bar")
	require.True(t, ok)
	assert.Equal(t, "example.com", domain)

	assert.True(t, cfg.enableTypeNames)
	assert.True(t, cfg.keepEnumPrefixes)
	assert.Equal(t, "misc", cfg.defaultPackageFilename)
	assert.Equal(t, "foopb", cfg.goPackage)
	assert.Equal(t, []string{"**/*.proto"}, cfg.filePatterns)
	require.Len(t, cfg.imports, 1)
}

func TestParseConfigEmpty(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.boxed.Len())
	assert.False(t, cfg.enableTypeNames)
}

func TestParseConfigUnknownField(t *testing.T) {
	t.Parallel()
	_, err := ParseConfig(strings.NewReader("no_such_option: true\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "parsing config")
}

func TestParseConfigBadKinds(t *testing.T) {
	t.Parallel()
	_, err := ParseConfig(strings.NewReader("bytes:\n  - path: .a\n    kind: rope\n"))
	require.ErrorIs(t, err, report.ErrConfigurationConflict)

	_, err = ParseConfig(strings.NewReader("maps:\n  - path: .a\n    kind: trie\n"))
	require.ErrorIs(t, err, report.ErrConfigurationConflict)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, NewConfig().FilePatterns("**/*.proto").validate())
	err := NewConfig().FilePatterns("[").validate()
	require.ErrorIs(t, err, report.ErrConfigurationConflict)
}

func TestRunPackageName(t *testing.T) {
	t.Parallel()
	single := []*descriptorpb.FileDescriptorProto{protoFile("a.proto", "foo.bar")}
	name, qualified := runPackageName(NewConfig(), single)
	assert.Equal(t, "foo_bar", name)
	assert.False(t, qualified)

	mixed := []*descriptorpb.FileDescriptorProto{
		protoFile("a.proto", "alpha"),
		protoFile("b.proto", "beta"),
	}
	name, qualified = runPackageName(NewConfig(), mixed)
	assert.Equal(t, "schemapb", name)
	assert.True(t, qualified)

	// An explicit package clause still leaves names qualified.
	name, qualified = runPackageName(NewConfig().GoPackage("custom"), mixed)
	assert.Equal(t, "custom", name)
	assert.True(t, qualified)

	noPkg := []*descriptorpb.FileDescriptorProto{protoFile("a.proto", "")}
	name, qualified = runPackageName(NewConfig(), noPkg)
	assert.Equal(t, "schemapb", name)
	assert.False(t, qualified)
}
