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

// Package features resolves edition- and syntax-dependent encoding policy
// for descriptor files and fields: field presence, enum openness, repeated
// field encoding, UTF-8 validation, message encoding, and JSON format,
// plus the default symbol visibility introduced by edition 2024.
//
// Resolution is layered: a baseline keyed by the file's edition (falling
// back to its legacy syntax marker), the file's explicit feature
// overrides, then per-field overrides and field-local forcing rules.
package features

import (
	"fmt"

	"google.golang.org/protobuf/types/descriptorpb"
)

// SymbolVisibility is the default-visibility feature axis. Editions before
// 2024 have no default; the zero value means unset.
type SymbolVisibility int32

const (
	SymbolVisibilityUnset SymbolVisibility = iota
	SymbolVisibilityExportTopLevel
	SymbolVisibilityExportAll
	SymbolVisibilityLocalAll
)

// Values is one resolved feature value per axis. A Values is complete: no
// axis is ever the "unknown" sentinel after FromFile succeeds.
type Values struct {
	FieldPresence         descriptorpb.FeatureSet_FieldPresence
	EnumType              descriptorpb.FeatureSet_EnumType
	RepeatedFieldEncoding descriptorpb.FeatureSet_RepeatedFieldEncoding
	Utf8Validation        descriptorpb.FeatureSet_Utf8Validation
	MessageEncoding       descriptorpb.FeatureSet_MessageEncoding
	JsonFormat            descriptorpb.FeatureSet_JsonFormat
	SymbolVisibility      SymbolVisibility
}

func proto2Defaults() Values {
	return Values{
		FieldPresence:         descriptorpb.FeatureSet_EXPLICIT,
		EnumType:              descriptorpb.FeatureSet_CLOSED,
		RepeatedFieldEncoding: descriptorpb.FeatureSet_EXPANDED,
		Utf8Validation:        descriptorpb.FeatureSet_NONE,
		MessageEncoding:       descriptorpb.FeatureSet_LENGTH_PREFIXED,
		JsonFormat:            descriptorpb.FeatureSet_LEGACY_BEST_EFFORT,
	}
}

func proto3Defaults() Values {
	return Values{
		FieldPresence:         descriptorpb.FeatureSet_IMPLICIT,
		EnumType:              descriptorpb.FeatureSet_OPEN,
		RepeatedFieldEncoding: descriptorpb.FeatureSet_PACKED,
		Utf8Validation:        descriptorpb.FeatureSet_VERIFY,
		MessageEncoding:       descriptorpb.FeatureSet_LENGTH_PREFIXED,
		JsonFormat:            descriptorpb.FeatureSet_ALLOW,
	}
}

func edition2023Defaults() Values {
	return Values{
		FieldPresence:         descriptorpb.FeatureSet_EXPLICIT,
		EnumType:              descriptorpb.FeatureSet_OPEN,
		RepeatedFieldEncoding: descriptorpb.FeatureSet_PACKED,
		Utf8Validation:        descriptorpb.FeatureSet_VERIFY,
		MessageEncoding:       descriptorpb.FeatureSet_LENGTH_PREFIXED,
		JsonFormat:            descriptorpb.FeatureSet_ALLOW,
	}
}

func edition2024Defaults() Values {
	v := edition2023Defaults()
	v.SymbolVisibility = SymbolVisibilityExportTopLevel
	return v
}

// SupportedEditions is the exhaustive set of editions the generator can
// handle. Files declaring a future edition are rejected rather than
// generated with possibly wrong defaults.
var SupportedEditions = map[descriptorpb.Edition]func() Values{
	descriptorpb.Edition_EDITION_LEGACY: proto2Defaults,
	descriptorpb.Edition_EDITION_PROTO2: proto2Defaults,
	descriptorpb.Edition_EDITION_PROTO3: proto3Defaults,
	descriptorpb.Edition_EDITION_2023:   edition2023Defaults,
	descriptorpb.Edition_EDITION_2024:   edition2024Defaults,
}

// FromFile computes the resolved feature values for a file: the baseline
// for its edition, or for its syntax marker when no edition is declared,
// with the file's explicit feature overrides applied on top.
func FromFile(file *descriptorpb.FileDescriptorProto) (Values, error) {
	var values Values
	if edition := file.GetEdition(); edition != descriptorpb.Edition_EDITION_UNKNOWN {
		baseline, ok := SupportedEditions[edition]
		if !ok {
			return Values{}, fmt.Errorf("unsupported edition %v", edition)
		}
		values = baseline()
	} else {
		switch syntax := file.GetSyntax(); syntax {
		case "", "proto2":
			values = proto2Defaults()
		case "proto3":
			values = proto3Defaults()
		default:
			return Values{}, fmt.Errorf("unknown syntax %q", syntax)
		}
	}
	return values.Apply(file.GetOptions().GetFeatures()), nil
}

// Apply overlays explicit feature overrides on the receiver, axis by axis,
// skipping any axis whose override is the unspecified sentinel. A nil
// feature set applies nothing.
func (v Values) Apply(features *descriptorpb.FeatureSet) Values {
	if features == nil {
		return v
	}
	if p := features.GetFieldPresence(); p != descriptorpb.FeatureSet_FIELD_PRESENCE_UNKNOWN {
		v.FieldPresence = p
	}
	if e := features.GetEnumType(); e != descriptorpb.FeatureSet_ENUM_TYPE_UNKNOWN {
		v.EnumType = e
	}
	if r := features.GetRepeatedFieldEncoding(); r != descriptorpb.FeatureSet_REPEATED_FIELD_ENCODING_UNKNOWN {
		v.RepeatedFieldEncoding = r
	}
	if u := features.GetUtf8Validation(); u != descriptorpb.FeatureSet_UTF8_VALIDATION_UNKNOWN {
		v.Utf8Validation = u
	}
	if m := features.GetMessageEncoding(); m != descriptorpb.FeatureSet_MESSAGE_ENCODING_UNKNOWN {
		v.MessageEncoding = m
	}
	if j := features.GetJsonFormat(); j != descriptorpb.FeatureSet_JSON_FORMAT_UNKNOWN {
		v.JsonFormat = j
	}
	return v
}

// FieldValues is the per-field narrowing of a file's feature values: the
// two axes that vary per field after the field-local forcing rules.
type FieldValues struct {
	Presence         descriptorpb.FeatureSet_FieldPresence
	RepeatedEncoding descriptorpb.FeatureSet_RepeatedFieldEncoding
}

// ResolveField narrows the (already merged) parent feature values for one
// field. The field's own feature overrides are applied first, then the
// forcing rules: a required label forces legacy-required presence; oneof
// membership or the proto3-optional marker forces explicit presence. An
// explicit packed option always wins in either direction; absent one, a
// packed value that was inherited purely from defaults is downgraded to
// expanded when the field carries an options message with no explicit
// repeated-encoding feature, preserving wire compatibility for fields
// authored before packing existed in their lineage.
func ResolveField(field *descriptorpb.FieldDescriptorProto, parent Values, inOneof bool) FieldValues {
	values := parent
	if opts := field.GetOptions(); opts != nil {
		values = values.Apply(opts.GetFeatures())
	}

	presence := values.FieldPresence
	switch {
	case field.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		presence = descriptorpb.FeatureSet_LEGACY_REQUIRED
	case inOneof || field.GetProto3Optional():
		presence = descriptorpb.FeatureSet_EXPLICIT
	}

	encoding := values.RepeatedFieldEncoding
	if opts := field.GetOptions(); opts != nil {
		switch {
		case opts.Packed != nil:
			if opts.GetPacked() {
				encoding = descriptorpb.FeatureSet_PACKED
			} else {
				encoding = descriptorpb.FeatureSet_EXPANDED
			}
		case encoding == descriptorpb.FeatureSet_PACKED &&
			opts.GetFeatures().GetRepeatedFieldEncoding() == descriptorpb.FeatureSet_REPEATED_FIELD_ENCODING_UNKNOWN:
			encoding = descriptorpb.FeatureSet_EXPANDED
		}
	}

	return FieldValues{Presence: presence, RepeatedEncoding: encoding}
}

// IsRequired reports whether the field uses legacy required presence.
func (fv FieldValues) IsRequired(field *descriptorpb.FieldDescriptorProto) bool {
	return field.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REQUIRED ||
		fv.Presence == descriptorpb.FeatureSet_LEGACY_REQUIRED
}

// IsOptional reports whether the field tracks presence, i.e. distinguishes
// unset from the default value. Message and group fields always track
// presence unless required: structural identity already implies
// optionality regardless of the presence axis.
func (fv FieldValues) IsOptional(field *descriptorpb.FieldDescriptorProto) bool {
	if field.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED {
		return false
	}
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		return field.GetLabel() != descriptorpb.FieldDescriptorProto_LABEL_REQUIRED
	default:
		if fv.IsRequired(field) {
			return false
		}
		return fv.Presence == descriptorpb.FeatureSet_EXPLICIT
	}
}

// IsPacked reports whether the field uses packed repeated encoding. Only
// repeated fields of packable scalar kinds can be packed.
func (fv FieldValues) IsPacked(field *descriptorpb.FieldDescriptorProto) bool {
	if field.GetLabel() != descriptorpb.FieldDescriptorProto_LABEL_REPEATED || !CanPack(field.GetType()) {
		return false
	}
	return fv.RepeatedEncoding == descriptorpb.FeatureSet_PACKED
}

// CanPack reports whether a repeated field of the given kind may use
// packed encoding. Length-delimited kinds cannot.
func CanPack(t descriptorpb.FieldDescriptorProto_Type) bool {
	switch t {
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
		descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
		descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_BOOL,
		descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return true
	default:
		return false
	}
}
