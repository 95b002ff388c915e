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

// Package decl defines the declarative intermediate form the generator
// produces for each input file. Every field node carries its wire tag,
// kind, resolved type reference, presence policy, and packing policy, so a
// downstream wire codec can encode and decode purely by interpreting these
// declarations. Rendering the tree as source text is a separate concern,
// handled by the printer package.
package decl

import "github.com/bufbuild/protogen/names"

// Kind identifies a field's wire kind. Scalar kinds name the Protobuf
// scalar type; message, enum, and group fields carry a type reference.
type Kind string

const (
	KindDouble   Kind = "double"
	KindFloat    Kind = "float"
	KindInt32    Kind = "int32"
	KindInt64    Kind = "int64"
	KindUint32   Kind = "uint32"
	KindUint64   Kind = "uint64"
	KindSint32   Kind = "sint32"
	KindSint64   Kind = "sint64"
	KindFixed32  Kind = "fixed32"
	KindFixed64  Kind = "fixed64"
	KindSfixed32 Kind = "sfixed32"
	KindSfixed64 Kind = "sfixed64"
	KindBool     Kind = "bool"
	KindString   Kind = "string"
	KindBytes    Kind = "bytes"
	KindMessage  Kind = "message"
	KindEnum     Kind = "enum"
	KindGroup    Kind = "group"
)

// Presence is a field's resolved presence policy.
type Presence int

const (
	// PresenceImplicit fields do not distinguish unset from the zero value.
	PresenceImplicit Presence = iota
	// PresenceExplicit fields track unset separately.
	PresenceExplicit
	// PresenceRequired fields must be set on the wire.
	PresenceRequired
)

func (p Presence) String() string {
	switch p {
	case PresenceImplicit:
		return "implicit"
	case PresenceExplicit:
		return "explicit"
	case PresenceRequired:
		return "required"
	default:
		return "unknown"
	}
}

// BytesKind selects the native representation of a bytes field.
type BytesKind string

const (
	// BytesSlice renders bytes fields as byte slices.
	BytesSlice BytesKind = "bytes"
	// BytesString renders bytes fields as immutable strings.
	BytesString BytesKind = "string"
)

// MapKind selects the associative container backing a map field.
type MapKind string

const (
	// MapHash renders map fields as built-in maps.
	MapHash MapKind = "map"
	// MapOrdered renders map fields as ordered B-tree maps, giving
	// deterministic iteration order.
	MapOrdered MapKind = "ordered"
)

// Comments is the documentation attached to a declaration, split the way
// source locations record it.
type Comments struct {
	LeadingDetached []string
	Leading         string
	Trailing        string
}

// File is the root of the declaration tree for one input file.
type File struct {
	// Name is the output file name, derived from the package.
	Name string
	// Source is the input schema file name.
	Source string
	// Package is the schema package, without a leading dot.
	Package string
	// GoPackage is the package clause for the generated file. Every file
	// of a run shares one package so flattened identifiers resolve across
	// files.
	GoPackage string
	// QualifiedNames marks runs spanning more than one schema package:
	// flattened identifiers keep their package segments, so names from
	// different packages cannot collide inside the shared output package.
	QualifiedNames bool
	// Imports are extra import specs the file's extern references rely on.
	Imports []string

	Messages []*Message
	Enums    []*Enum
	// Services are resolved into the tree but rendered only through a
	// caller-supplied service generator; the printer skips them.
	Services []*Service
}

// Message is one generated record type. Nested declarations have already
// been flattened into stand-alone types by name; Messages and Enums here
// retain the nesting only to preserve declaration order.
type Message struct {
	// Name is the simple declared name.
	Name string
	// GoName is the flattened target identifier, e.g. Outer_Inner.
	GoName string
	// FullName is the fully-qualified schema name.
	FullName names.FullyQualified
	// TypeURL is the type-name metadata URL; empty unless type names are
	// enabled.
	TypeURL string
	// Comparable reports whether the generated struct supports ==.
	Comparable bool

	Fields []*Field
	Oneofs []*Oneof

	Messages []*Message
	Enums    []*Enum

	Comments   Comments
	Attributes []string
}

// Field is one ordinary or map field. The tag, kind, type reference,
// presence, and packing together are the authoritative codec contract.
type Field struct {
	// Name is the schema field name.
	Name string
	// GoName is the target struct field name.
	GoName string
	// Tag is the wire tag, unique within the containing message.
	Tag int32
	// Kind is the wire kind.
	Kind Kind
	// TypeName is the fully-qualified schema type for message, enum, and
	// group kinds.
	TypeName names.FullyQualified
	// Type is the resolved target type reference for message, enum, and
	// group kinds.
	Type names.TypePath

	// Presence is the resolved presence policy.
	Presence Presence
	// Repeated marks list fields.
	Repeated bool
	// Optional marks fields rendered behind explicit presence tracking.
	Optional bool
	// Boxed marks fields stored behind a pointer to break a value cycle.
	Boxed bool
	// Packed marks repeated fields using packed wire encoding.
	Packed bool
	// Deprecated carries the schema deprecation flag.
	Deprecated bool

	// Bytes selects the representation of bytes fields; zero means
	// BytesSlice.
	Bytes BytesKind
	// Map is set for map fields; Kind is KindMessage and Type is unset.
	Map *Map
	// Default is the schema default literal. Bytes defaults have been
	// unescaped from their C-escaped source form.
	Default string

	Comments   Comments
	Attributes []string
}

// Map records the key and value types of an associative-container field,
// recovered from the map-entry synthetic nested type.
type Map struct {
	// Container selects the backing container; zero means MapHash.
	Container MapKind

	KeyKind Kind

	ValueKind     Kind
	ValueTypeName names.FullyQualified
	ValueType     names.TypePath
	ValueBoxed    bool
}

// Oneof is a tagged union: one variant may be set at a time. The
// containing message holds a single optional field of the union's
// interface type.
type Oneof struct {
	// Name is the schema oneof name.
	Name string
	// GoName is the struct field name on the containing message.
	GoName string
	// InterfaceName is the union interface type name,
	// e.g. isOuter_Choice.
	InterfaceName string

	Variants []*Field

	Comments Comments
}

// Enum is one generated enumeration. Aliased numbers have been collapsed
// to the first declared name; Values holds only the survivors.
type Enum struct {
	Name     string
	GoName   string
	FullName names.FullyQualified
	TypeURL  string

	Values []*EnumValue

	Comments   Comments
	Attributes []string
}

// EnumValue is one enum constant.
type EnumValue struct {
	// Name is the schema value name.
	Name string
	// GoName is the constant name, prefix-stripped when configured.
	GoName string
	Number int32

	Deprecated bool
	Comments   Comments
}

// Service is one service declaration, handed to a caller-supplied service
// generator rather than printed directly.
type Service struct {
	Name     string
	GoName   string
	FullName names.FullyQualified
	Package  string

	Methods []*Method

	Comments Comments
}

// Method is one service method with resolved request and response types.
type Method struct {
	Name   string
	GoName string

	InputName  names.FullyQualified
	Input      names.TypePath
	OutputName names.FullyQualified
	Output     names.TypePath

	ClientStreaming bool
	ServerStreaming bool

	Comments Comments
}
