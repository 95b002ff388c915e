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
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protogen/decl"
	"github.com/bufbuild/protogen/report"
)

func protoFile(name, pkg string, msgs ...*descriptorpb.DescriptorProto) *descriptorpb.FileDescriptorProto {
	fd := &descriptorpb.FileDescriptorProto{
		Name:        proto.String(name),
		Syntax:      proto.String("proto3"),
		MessageType: msgs,
	}
	if pkg != "" {
		fd.Package = proto.String(pkg)
	}
	return fd
}

func protoMessage(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

func messageField(name string, tag int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(tag),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(typeName),
	}
}

func scalarField(name string, tag int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(tag),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func generateOne(t *testing.T, cfg *Config, files ...*descriptorpb.FileDescriptorProto) *GeneratedFile {
	t.Helper()
	gen := &Generator{Config: cfg}
	outputs, err := gen.Generate(context.Background(), files...)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	return outputs[0]
}

func TestGenerateCycleBoxing(t *testing.T) {
	t.Parallel()
	file := protoFile("cycle.proto", "cycle",
		protoMessage("A", messageField("b", 1, ".cycle.B")),
		protoMessage("B", messageField("a", 1, ".cycle.A")),
		protoMessage("Leaf", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
		protoMessage("Holder", messageField("leaf", 1, ".cycle.Leaf")),
	)
	out := generateOne(t, nil, file)
	assert.Equal(t, "cycle.pb.go", out.Name)

	content := string(out.Content)
	// Both edges of the two-cycle get boxed; the acyclic edge does not.
	assert.Contains(t, content, "B *B `protogen:\"message,tag=1,opt,boxed\"`")
	assert.Contains(t, content, "A *A `protogen:\"message,tag=1,opt,boxed\"`")
	assert.Contains(t, content, "Leaf *Leaf `protogen:\"message,tag=1,opt\"`")
}

func TestGenerateForcedBoxing(t *testing.T) {
	t.Parallel()
	file := protoFile("force.proto", "force",
		protoMessage("Holder", messageField("leaf", 1, ".force.Leaf")),
		protoMessage("Leaf", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
	)
	cfg := NewConfig().Boxed(".force.Holder.leaf")
	out := generateOne(t, cfg, file)
	assert.Contains(t, string(out.Content), "Leaf *Leaf `protogen:\"message,tag=1,opt,boxed\"`")
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()
	makeFiles := func() []*descriptorpb.FileDescriptorProto {
		return []*descriptorpb.FileDescriptorProto{
			protoFile("a.proto", "alpha",
				protoMessage("A",
					scalarField("data", 1, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					messageField("b", 2, ".beta.B"),
				),
			),
			protoFile("b.proto", "beta",
				protoMessage("B",
					scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				),
			),
		}
	}

	// Two equivalent configurations whose non-overlapping entries are
	// inserted in opposite order.
	cfg1 := NewConfig().
		BytesKind(".alpha.A.data", decl.BytesString).
		FieldAttribute(".beta.B.name", "// note")
	cfg2 := NewConfig().
		FieldAttribute(".beta.B.name", "// note").
		BytesKind(".alpha.A.data", decl.BytesString)

	gen1 := &Generator{Config: cfg1}
	first, err := gen1.Generate(context.Background(), makeFiles()...)
	require.NoError(t, err)
	second, err := gen1.Generate(context.Background(), makeFiles()...)
	require.NoError(t, err)
	gen2 := &Generator{Config: cfg2, MaxParallelism: 1}
	third, err := gen2.Generate(context.Background(), makeFiles()...)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Empty(t, cmp.Diff(first, second))
	assert.Empty(t, cmp.Diff(first, third))
}

func TestGenerateMultiPackage(t *testing.T) {
	t.Parallel()
	a := protoFile("a.proto", "alpha",
		protoMessage("A", messageField("b", 1, ".beta.B")),
	)
	b := protoFile("b.proto", "beta",
		protoMessage("B", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
	)
	gen := &Generator{}
	outputs, err := gen.Generate(context.Background(), a, b)
	require.NoError(t, err)
	require.Len(t, outputs, 2)

	// Every output of a run shares one package clause, and declarations
	// carry their package segments so cross-package references resolve.
	alpha, beta := string(outputs[0].Content), string(outputs[1].Content)
	assert.Contains(t, alpha, "package schemapb\n")
	assert.Contains(t, beta, "package schemapb\n")
	assert.Contains(t, alpha, "type Alpha_A struct {")
	assert.Contains(t, alpha, "B *Beta_B `protogen:\"message,tag=1,opt\"`")
	assert.Contains(t, beta, "type Beta_B struct {")
}

func TestGenerateDuplicateTags(t *testing.T) {
	t.Parallel()
	file := protoFile("dup.proto", "dup",
		protoMessage("M",
			scalarField("x", 3, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			scalarField("y", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
		),
	)
	gen := &Generator{}
	_, err := gen.Generate(context.Background(), file)
	require.ErrorIs(t, err, report.ErrSchemaInconsistency)
	assert.ErrorContains(t, err, "wire tag 3")
}

func TestGenerateMalformedMapEntry(t *testing.T) {
	t.Parallel()
	entry := &descriptorpb.DescriptorProto{
		Name: proto.String("TagsEntry"),
		Options: &descriptorpb.MessageOptions{
			MapEntry: proto.Bool(true),
		},
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
		},
	}
	parent := protoMessage("M", &descriptorpb.FieldDescriptorProto{
		Name:     proto.String("tags"),
		Number:   proto.Int32(1),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(".maps.M.TagsEntry"),
	})
	parent.NestedType = append(parent.NestedType, entry)

	gen := &Generator{}
	_, err := gen.Generate(context.Background(), protoFile("maps.proto", "maps", parent))
	require.ErrorIs(t, err, report.ErrSchemaInconsistency)
	assert.ErrorContains(t, err, "map entry")
}

func TestGenerateMapField(t *testing.T) {
	t.Parallel()
	entry := &descriptorpb.DescriptorProto{
		Name: proto.String("CountsEntry"),
		Options: &descriptorpb.MessageOptions{
			MapEntry: proto.Bool(true),
		},
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			scalarField("value", 2, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
		},
	}
	parent := protoMessage("M", &descriptorpb.FieldDescriptorProto{
		Name:     proto.String("counts"),
		Number:   proto.Int32(5),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(".maps.M.CountsEntry"),
	})
	parent.NestedType = append(parent.NestedType, entry)
	file := protoFile("maps.proto", "maps", parent)

	out := generateOne(t, nil, file)
	content := string(out.Content)
	assert.Contains(t, content, "Counts map[string]uint64 `protogen:\"map,tag=5,key=string,value=uint64\"`")
	// The synthetic entry type is not generated.
	assert.NotContains(t, content, "CountsEntry")

	ordered := generateOne(t, NewConfig().MapKind(".maps.M.counts", decl.MapOrdered), file)
	assert.Contains(t, string(ordered.Content), "Counts *btree.Map[string, uint64]")
}

func TestGenerateEmptyOneof(t *testing.T) {
	t.Parallel()
	parent := protoMessage("M", scalarField("x", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32))
	parent.OneofDecl = []*descriptorpb.OneofDescriptorProto{
		{Name: proto.String("choice")},
	}
	gen := &Generator{}
	_, err := gen.Generate(context.Background(), protoFile("oneof.proto", "oo", parent))
	require.ErrorIs(t, err, report.ErrSchemaInconsistency)
	assert.ErrorContains(t, err, "oneof")
}

func TestGenerateSyntheticOneof(t *testing.T) {
	t.Parallel()
	field := scalarField("maybe", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)
	field.OneofIndex = proto.Int32(0)
	field.Proto3Optional = proto.Bool(true)
	parent := protoMessage("M", field)
	parent.OneofDecl = []*descriptorpb.OneofDescriptorProto{
		{Name: proto.String("_maybe")},
	}

	out := generateOne(t, nil, protoFile("opt.proto", "opt", parent))
	content := string(out.Content)
	// Proto3-optional fields are ordinary pointer fields, not oneofs.
	assert.Contains(t, content, "Maybe *int32 `protogen:\"int32,tag=1,opt\"`")
	assert.NotContains(t, content, "isM_")
}

func TestGenerateOneof(t *testing.T) {
	t.Parallel()
	name := scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)
	name.OneofIndex = proto.Int32(0)
	id := scalarField("id", 2, descriptorpb.FieldDescriptorProto_TYPE_UINT32)
	id.OneofIndex = proto.Int32(0)
	parent := protoMessage("M", name, id)
	parent.OneofDecl = []*descriptorpb.OneofDescriptorProto{
		{Name: proto.String("key")},
	}

	out := generateOne(t, nil, protoFile("oneof.proto", "oo", parent))
	content := string(out.Content)
	assert.Contains(t, content, "Key isM_Key")
	assert.Contains(t, content, "type isM_Key interface {")
	assert.Contains(t, content, "type M_Name struct {")
	assert.Contains(t, content, "type M_Id struct {")
}

func TestGenerateOneofBoxedPattern(t *testing.T) {
	t.Parallel()
	payload := scalarField("payload", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	payload.TypeName = proto.String(".oo.Payload")
	payload.OneofIndex = proto.Int32(0)
	parent := protoMessage("M", payload)
	parent.OneofDecl = []*descriptorpb.OneofDescriptorProto{
		{Name: proto.String("choice")},
	}
	file := protoFile("oneof.proto", "oo",
		parent,
		protoMessage("Payload", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
	)

	plain := generateOne(t, nil, file)
	assert.Contains(t, string(plain.Content), "Payload Payload `protogen:\"message,tag=1,oneof=choice\"`")

	// A pattern naming the oneof level applies to its members.
	boxed := generateOne(t, NewConfig().Boxed(".oo.M.choice.payload"), file)
	assert.Contains(t, string(boxed.Content), "Payload *Payload `protogen:\"message,tag=1,oneof=choice,boxed\"`")
}

func TestGenerateExtern(t *testing.T) {
	t.Parallel()
	file := protoFile("event.proto", "events",
		protoMessage("Event", messageField("at", 1, ".google.protobuf.Timestamp")),
	)
	// The well-known file participates in the run and is skipped entirely.
	wkt := protoFile("google/protobuf/timestamp.proto", "google.protobuf",
		protoMessage("Timestamp",
			scalarField("seconds", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
			scalarField("nanos", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
		),
	)
	cfg := NewConfig().
		ExternPath(".google.protobuf.Timestamp", "timestamppb.Timestamp").
		Import(`timestamppb "google.golang.org/protobuf/types/known/timestamppb"`).
		FilePatterns("event.proto")

	out := generateOne(t, cfg, file, wkt)
	content := string(out.Content)
	assert.Contains(t, content, "At *timestamppb.Timestamp")
	assert.Contains(t, content, `timestamppb "google.golang.org/protobuf/types/known/timestamppb"`)

	// A file with no extern references carries no extra imports.
	plain := generateOne(t, NewConfig().
		ExternPath(".google.protobuf.Timestamp", "timestamppb.Timestamp").
		Import(`timestamppb "google.golang.org/protobuf/types/known/timestamppb"`).
		FilePatterns("plain.proto"),
		protoFile("plain.proto", "plain",
			protoMessage("P", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
		),
	)
	assert.NotContains(t, string(plain.Content), "timestamppb")
}

func TestGenerateFilePatterns(t *testing.T) {
	t.Parallel()
	a := protoFile("pkg/a.proto", "alpha",
		protoMessage("A", messageField("b", 1, ".beta.B")),
	)
	b := protoFile("pkg/b.proto", "beta",
		protoMessage("B", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
	)

	gen := &Generator{Config: NewConfig().FilePatterns("**/a.proto")}
	outputs, err := gen.Generate(context.Background(), a, b)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	// Cross-file references still resolve against excluded inputs.
	assert.Equal(t, "alpha.pb.go", outputs[0].Name)
}

func TestGenerateInvalidFilePattern(t *testing.T) {
	t.Parallel()
	gen := &Generator{Config: NewConfig().FilePatterns("[")}
	_, err := gen.Generate(context.Background(), protoFile("x.proto", "x"))
	require.ErrorIs(t, err, report.ErrConfigurationConflict)
}

func TestGenerateUnresolvable(t *testing.T) {
	t.Parallel()
	file := protoFile("bad.proto", "bad",
		protoMessage("M", messageField("ghost", 1, ".nope.Missing")),
	)
	gen := &Generator{}
	_, err := gen.Generate(context.Background(), file)
	require.ErrorIs(t, err, report.ErrUnresolvableType)
	assert.ErrorContains(t, err, ".nope.Missing")
}

func TestGenerateNoPackage(t *testing.T) {
	t.Parallel()
	file := protoFile("loose.proto", "",
		protoMessage("Loose", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
	)
	out := generateOne(t, nil, file)
	assert.Equal(t, "default.pb.go", out.Name)
	assert.Contains(t, string(out.Content), "package schemapb")

	named := generateOne(t, NewConfig().DefaultPackageFilename("misc").GoPackage("miscpb"), file)
	assert.Equal(t, "misc.pb.go", named.Name)
	assert.Contains(t, string(named.Content), "package miscpb")
}

func TestGenerateTypeNames(t *testing.T) {
	t.Parallel()
	file := protoFile("a.proto", "alpha",
		protoMessage("A", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
	)
	out := generateOne(t, NewConfig().EnableTypeNames().TypeNameDomain(".alpha", "example.com"), file)
	content := string(out.Content)
	assert.Contains(t, content, `func (*A) TypeName() string { return "alpha.A" }`)
	assert.Contains(t, content, `func (*A) TypeURL() string { return "example.com/alpha.A" }`)

	plain := generateOne(t, NewConfig().EnableTypeNames(), file)
	assert.Contains(t, string(plain.Content), `"type.googleapis.com/alpha.A"`)

	off := generateOne(t, nil, file)
	assert.NotContains(t, string(off.Content), "TypeURL")
}

func TestGenerateEnum(t *testing.T) {
	t.Parallel()
	file := protoFile("color.proto", "paint")
	file.EnumType = []*descriptorpb.EnumDescriptorProto{{
		Name: proto.String("Color"),
		Value: []*descriptorpb.EnumValueDescriptorProto{
			{Name: proto.String("COLOR_UNSPECIFIED"), Number: proto.Int32(0)},
			{Name: proto.String("COLOR_RED"), Number: proto.Int32(1)},
			{Name: proto.String("CRIMSON"), Number: proto.Int32(1)},
		},
	}}

	out := generateOne(t, nil, file)
	content := string(out.Content)
	assert.Contains(t, content, "Color_Unspecified Color = 0")
	assert.Contains(t, content, "Color_Red Color = 1")
	// Aliases collapse to the first declared name.
	assert.NotContains(t, content, "Crimson")

	kept := generateOne(t, NewConfig().KeepEnumPrefixes(), file)
	assert.Contains(t, string(kept.Content), "Color_ColorRed Color = 1")
}

type commentServiceGen struct{}

func (commentServiceGen) GenerateService(svc *decl.Service) ([]byte, error) {
	out := fmt.Sprintf("// service %s with %d methods\n", svc.GoName, len(svc.Methods))
	return []byte(out), nil
}

func TestGenerateService(t *testing.T) {
	t.Parallel()
	file := protoFile("greet.proto", "greet",
		protoMessage("HelloRequest", scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
		protoMessage("HelloReply", scalarField("message", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
	)
	file.Service = []*descriptorpb.ServiceDescriptorProto{{
		Name: proto.String("Greeter"),
		Method: []*descriptorpb.MethodDescriptorProto{{
			Name:       proto.String("SayHello"),
			InputType:  proto.String(".greet.HelloRequest"),
			OutputType: proto.String(".greet.HelloReply"),
		}},
	}}

	// Without a service generator, services are skipped.
	out := generateOne(t, nil, file)
	assert.NotContains(t, string(out.Content), "Greeter")

	withSvc := generateOne(t, NewConfig().ServiceGenerator(commentServiceGen{}), file)
	assert.Contains(t, string(withSvc.Content), "// service Greeter with 1 methods")
}

func TestGenerateServiceResolvedWithoutGenerator(t *testing.T) {
	t.Parallel()
	file := protoFile("greet.proto", "greet",
		protoMessage("HelloRequest", scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
	)
	file.Service = []*descriptorpb.ServiceDescriptorProto{{
		Name: proto.String("Greeter"),
		Method: []*descriptorpb.MethodDescriptorProto{{
			Name:       proto.String("SayHello"),
			InputType:  proto.String(".greet.HelloRequest"),
			OutputType: proto.String(".greet.Missing"),
		}},
	}}

	// Method types are resolved into the declaration tree even when no
	// service generator is installed.
	gen := &Generator{}
	_, err := gen.Generate(context.Background(), file)
	require.ErrorIs(t, err, report.ErrUnresolvableType)
	assert.ErrorContains(t, err, ".greet.Missing")
}

func TestGenerateNestedFlattening(t *testing.T) {
	t.Parallel()
	inner := protoMessage("Inner", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32))
	outer := protoMessage("Outer", messageField("inner", 1, ".deep.Outer.Inner"))
	outer.NestedType = append(outer.NestedType, inner)

	out := generateOne(t, nil, protoFile("deep.proto", "deep", outer))
	content := string(out.Content)
	assert.Contains(t, content, "type Outer struct {")
	assert.Contains(t, content, "type Outer_Inner struct {")
	assert.Contains(t, content, "Inner *Outer_Inner")
}

func TestGenerateAttributes(t *testing.T) {
	t.Parallel()
	file := protoFile("attr.proto", "attr",
		protoMessage("M", scalarField("n", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
	)
	cfg := NewConfig().
		MessageAttribute(".attr.M", "//go:generate stub").
		FieldAttribute(".attr.M.n", "// field note")
	out := generateOne(t, cfg, file)
	content := string(out.Content)
	assert.Contains(t, content, "//go:generate stub")
	assert.Contains(t, content, "// field note")
}
