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
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protogen/decl"
	"github.com/bufbuild/protogen/features"
	"github.com/bufbuild/protogen/names"
	"github.com/bufbuild/protogen/printer"
	"github.com/bufbuild/protogen/report"
)

// Structural path field numbers of descriptor.proto, used to key source
// locations.
const (
	fileMessagesPath = 4
	fileEnumsPath    = 5
	fileServicesPath = 6

	messageFieldsPath  = 2
	messageNestedPath  = 3
	messageEnumsPath   = 4
	messageOneofsPath  = 8
	enumValuesPath     = 2
	serviceMethodsPath = 2
)

// fileGen holds the per-file walk state: the resolved file features, the
// sorted source-location index, and the structural path stack. It is
// discarded when the file is done; everything shared lives in the session.
type fileGen struct {
	sess  *session
	fd    *descriptorpb.FileDescriptorProto
	feats features.Values
	locs  locations
	pkg   string
	// namePrefix holds the package segments prepended to every flattened
	// identifier when the run spans multiple schema packages.
	namePrefix []string

	path       []int32
	usedExtern bool
}

func (s *session) generateFile(fd *descriptorpb.FileDescriptorProto) (*GeneratedFile, error) {
	feats, err := features.FromFile(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fd.GetName(), err)
	}
	g := &fileGen{
		sess:  s,
		fd:    fd,
		feats: feats,
		locs:  newLocations(fd.GetSourceCodeInfo()),
		pkg:   fd.GetPackage(),
	}
	if s.qualified && g.pkg != "" {
		g.namePrefix = strings.Split(g.pkg, ".")
	}

	module := names.ModuleFromPackage(g.pkg)
	out := &decl.File{
		Name:           module.FileName(s.cfg.outputRoot()),
		Source:         fd.GetName(),
		Package:        g.pkg,
		GoPackage:      s.goPackage,
		QualifiedNames: s.qualified,
	}

	for i, msg := range fd.GetMessageType() {
		g.push(fileMessagesPath, int32(i))
		m, err := g.message(nil, msg)
		g.pop()
		if err != nil {
			return nil, err
		}
		if m != nil {
			out.Messages = append(out.Messages, m)
		}
	}
	for i, enum := range fd.GetEnumType() {
		g.push(fileEnumsPath, int32(i))
		e, err := g.enum(nil, enum)
		g.pop()
		if err != nil {
			return nil, err
		}
		if e != nil {
			out.Enums = append(out.Enums, e)
		}
	}

	for i, svc := range fd.GetService() {
		g.push(fileServicesPath, int32(i))
		sd, err := g.service(svc)
		g.pop()
		if err != nil {
			return nil, err
		}
		out.Services = append(out.Services, sd)
	}
	var serviceChunks [][]byte
	if sg := s.cfg.serviceGenerator; sg != nil {
		for _, sd := range out.Services {
			chunk, err := sg.GenerateService(sd)
			if err != nil {
				return nil, err
			}
			serviceChunks = append(serviceChunks, chunk)
		}
	}

	if g.usedExtern {
		out.Imports = s.cfg.imports
	}
	content, err := printer.Print(out)
	if err != nil {
		return nil, err
	}
	for _, chunk := range serviceChunks {
		content = append(content, '\n')
		content = append(content, chunk...)
	}
	return &GeneratedFile{Name: out.Name, Content: content}, nil
}

func (g *fileGen) push(elems ...int32) {
	g.path = append(g.path, elems...)
}

func (g *fileGen) pop() {
	g.path = g.path[:len(g.path)-2]
}

func (g *fileGen) message(typePath []string, msg *descriptorpb.DescriptorProto) (*decl.Message, error) {
	fqn := names.Join(g.pkg, typePath, msg.GetName())
	// Externally mapped types are not generated; the graph already covered
	// them.
	if _, ok := g.sess.externs.Resolve(fqn); ok {
		return nil, nil
	}

	goName := g.flatName(typePath, msg.GetName())
	scope := names.Scope{Package: g.pkg, TypePath: typePath}

	// Partition nested types into ordinary nested messages and map-entry
	// synthetics, keyed by qualified name for field resolution. Indexes are
	// kept so comment paths stay correct.
	type indexedMessage struct {
		idx  int
		desc *descriptorpb.DescriptorProto
	}
	var nested []indexedMessage
	mapEntries := make(map[names.FullyQualified]*descriptorpb.DescriptorProto)
	for i, nt := range msg.GetNestedType() {
		if !nt.GetOptions().GetMapEntry() {
			nested = append(nested, indexedMessage{idx: i, desc: nt})
			continue
		}
		entryFqn := names.Join(g.pkg, append(append([]string(nil), typePath...), msg.GetName()), nt.GetName())
		if err := validateMapEntry(g.fd.GetName(), entryFqn, nt); err != nil {
			return nil, err
		}
		mapEntries[entryFqn] = nt
	}

	// Partition fields into ordinary fields and oneof members. Fields with
	// the proto3-optional marker belong to a synthetic oneof and are
	// ordinary optional fields.
	type indexedField struct {
		idx int
		fd  *descriptorpb.FieldDescriptorProto
	}
	var ordinary []indexedField
	members := make(map[int32][]indexedField)
	synthetic := make(map[int32]bool)
	seenTags := make(map[int32]string)
	for i, field := range msg.GetField() {
		if prev, dup := seenTags[field.GetNumber()]; dup {
			return nil, report.Inconsistencyf(g.fd.GetName(), string(fqn),
				"fields %q and %q share wire tag %d", prev, field.GetName(), field.GetNumber())
		}
		seenTags[field.GetNumber()] = field.GetName()

		switch {
		case field.GetProto3Optional():
			if field.OneofIndex != nil {
				synthetic[field.GetOneofIndex()] = true
			}
			ordinary = append(ordinary, indexedField{idx: i, fd: field})
		case field.OneofIndex != nil:
			oi := field.GetOneofIndex()
			members[oi] = append(members[oi], indexedField{idx: i, fd: field})
		default:
			ordinary = append(ordinary, indexedField{idx: i, fd: field})
		}
	}

	out := &decl.Message{
		Name:       msg.GetName(),
		GoName:     goName,
		FullName:   fqn,
		TypeURL:    g.typeURL(fqn),
		Comparable: g.sess.graph.Comparable(fqn),
		Comments:   g.typeComments(fqn),
		Attributes: g.sess.cfg.messageAttributes.Get(string(fqn)),
	}

	for _, f := range ordinary {
		g.push(messageFieldsPath, int32(f.idx))
		df, err := g.field(scope, fqn, f.fd, mapEntries, "")
		g.pop()
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, df)
	}

	for oi, od := range msg.GetOneofDecl() {
		fields := members[int32(oi)]
		if len(fields) == 0 {
			if synthetic[int32(oi)] {
				continue
			}
			return nil, report.Inconsistencyf(g.fd.GetName(), string(fqn)+"."+od.GetName(),
				"oneof declares no member fields")
		}
		g.push(messageOneofsPath, int32(oi))
		comments := g.fieldComments(fqn, od.GetName())
		g.pop()

		ooGoName := names.ToUpperCamel(od.GetName())
		oo := &decl.Oneof{
			Name:          od.GetName(),
			GoName:        ooGoName,
			InterfaceName: "is" + goName + "_" + ooGoName,
			Comments:      comments,
		}
		for _, f := range fields {
			g.push(messageFieldsPath, int32(f.idx))
			vf, err := g.field(scope, fqn, f.fd, mapEntries, od.GetName())
			g.pop()
			if err != nil {
				return nil, err
			}
			oo.Variants = append(oo.Variants, vf)
		}
		out.Oneofs = append(out.Oneofs, oo)
	}

	childPath := append(append([]string(nil), typePath...), msg.GetName())
	for _, nt := range nested {
		g.push(messageNestedPath, int32(nt.idx))
		m, err := g.message(childPath, nt.desc)
		g.pop()
		if err != nil {
			return nil, err
		}
		if m != nil {
			out.Messages = append(out.Messages, m)
		}
	}
	for i, en := range msg.GetEnumType() {
		g.push(messageEnumsPath, int32(i))
		e, err := g.enum(childPath, en)
		g.pop()
		if err != nil {
			return nil, err
		}
		if e != nil {
			out.Enums = append(out.Enums, e)
		}
	}
	return out, nil
}

func validateMapEntry(file string, fqn names.FullyQualified, entry *descriptorpb.DescriptorProto) error {
	fields := entry.GetField()
	if len(fields) != 2 || fields[0].GetName() != "key" || fields[1].GetName() != "value" {
		return report.Inconsistencyf(file, string(fqn),
			"map entry must have exactly two fields named key and value")
	}
	return nil
}

// field lowers one field descriptor. oneof is the containing oneof's name,
// empty for ordinary fields.
func (g *fileGen) field(
	scope names.Scope,
	container names.FullyQualified,
	fd *descriptorpb.FieldDescriptorProto,
	mapEntries map[names.FullyQualified]*descriptorpb.DescriptorProto,
	oneof string,
) (*decl.Field, error) {
	symbol := string(container) + "." + fd.GetName()
	inOneof := oneof != ""
	fv := features.ResolveField(fd, g.feats, inOneof)

	f := &decl.Field{
		Name:       fd.GetName(),
		GoName:     names.ToUpperCamel(fd.GetName()),
		Tag:        fd.GetNumber(),
		Kind:       kindOf(fd.GetType()),
		Repeated:   fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED,
		Optional:   !inOneof && fv.IsOptional(fd),
		Presence:   presenceOf(fv, fd),
		Packed:     fv.IsPacked(fd),
		Deprecated: fd.GetOptions().GetDeprecated(),
		Comments:   g.fieldComments(container, fd.GetName()),
		Attributes: g.sess.cfg.fieldAttributes.GetField(string(container), fd.GetName()),
	}

	switch f.Kind {
	case decl.KindMessage, decl.KindGroup, decl.KindEnum:
		tn := names.FullyQualified(fd.GetTypeName())
		if entry, ok := mapEntries[tn]; ok {
			m, err := g.mapField(scope, container, fd, entry)
			if err != nil {
				return nil, err
			}
			f.Map = m
			f.Repeated = false
			f.Optional = false
			f.Packed = false
			f.Presence = decl.PresenceImplicit
			return f, nil
		}
		f.TypeName = tn
		ref, err := g.resolveTypeRef(scope, tn, symbol)
		if err != nil {
			return nil, err
		}
		f.Type = ref
		if f.Kind != decl.KindEnum {
			f.Boxed = g.sess.boxed(container, oneof, fd)
		}
	case decl.KindBytes:
		if kind, ok := g.sess.cfg.bytesKinds.GetFirstField(string(container), fd.GetName()); ok {
			f.Bytes = kind
		}
	}

	if dv := fd.GetDefaultValue(); dv != "" {
		if f.Kind == decl.KindBytes {
			b, err := names.UnescapeCEscapeString(dv)
			if err != nil {
				return nil, report.Inconsistencyf(g.fd.GetName(), symbol,
					"invalid bytes default %q: %v", dv, err)
			}
			q := strconv.Quote(string(b))
			f.Default = q[1 : len(q)-1]
		} else {
			f.Default = dv
		}
	}
	return f, nil
}

func (g *fileGen) mapField(
	scope names.Scope,
	container names.FullyQualified,
	fd *descriptorpb.FieldDescriptorProto,
	entry *descriptorpb.DescriptorProto,
) (*decl.Map, error) {
	symbol := string(container) + "." + fd.GetName()
	key, value := entry.GetField()[0], entry.GetField()[1]

	m := &decl.Map{
		KeyKind:   kindOf(key.GetType()),
		ValueKind: kindOf(value.GetType()),
	}
	if !validMapKey(m.KeyKind) {
		return nil, report.Inconsistencyf(g.fd.GetName(), symbol,
			"map key kind %s is not allowed", m.KeyKind)
	}
	if kind, ok := g.sess.cfg.mapKinds.GetFirstField(string(container), fd.GetName()); ok {
		m.Container = kind
	}

	switch m.ValueKind {
	case decl.KindMessage, decl.KindEnum:
		tn := names.FullyQualified(value.GetTypeName())
		m.ValueTypeName = tn
		ref, err := g.resolveTypeRef(scope, tn, symbol)
		if err != nil {
			return nil, err
		}
		m.ValueType = ref
		if m.ValueKind == decl.KindMessage {
			m.ValueBoxed = g.sess.forceBoxed(container, fd.GetName())
		}
	case decl.KindGroup:
		return nil, report.Inconsistencyf(g.fd.GetName(), symbol, "map value cannot be a group")
	}
	return m, nil
}

func validMapKey(kind decl.Kind) bool {
	switch kind {
	case decl.KindInt32, decl.KindInt64, decl.KindUint32, decl.KindUint64,
		decl.KindSint32, decl.KindSint64, decl.KindFixed32, decl.KindFixed64,
		decl.KindSfixed32, decl.KindSfixed64, decl.KindBool, decl.KindString:
		return true
	default:
		return false
	}
}

func (g *fileGen) enum(typePath []string, en *descriptorpb.EnumDescriptorProto) (*decl.Enum, error) {
	fqn := names.Join(g.pkg, typePath, en.GetName())
	if _, ok := g.sess.externs.Resolve(fqn); ok {
		return nil, nil
	}

	goName := g.flatName(typePath, en.GetName())
	out := &decl.Enum{
		Name:       en.GetName(),
		GoName:     goName,
		FullName:   fqn,
		TypeURL:    g.typeURL(fqn),
		Comments:   g.typeComments(fqn),
		Attributes: g.sess.cfg.enumAttributes.Get(string(fqn)),
	}

	prefix := names.ToUpperCamel(en.GetName())
	seen := make(map[int32]bool)
	for i, v := range en.GetValue() {
		// Aliased numbers collapse to the first declared name.
		if seen[v.GetNumber()] {
			continue
		}
		seen[v.GetNumber()] = true

		g.push(enumValuesPath, int32(i))
		comments := g.fieldComments(fqn, v.GetName())
		g.pop()

		variant := names.ToUpperCamel(v.GetName())
		if !g.sess.cfg.keepEnumPrefixes {
			variant = names.StripEnumPrefix(prefix, variant)
		}
		out.Values = append(out.Values, &decl.EnumValue{
			Name:       v.GetName(),
			GoName:     goName + "_" + variant,
			Number:     v.GetNumber(),
			Deprecated: v.GetOptions().GetDeprecated(),
			Comments:   comments,
		})
	}
	return out, nil
}

func (g *fileGen) service(svc *descriptorpb.ServiceDescriptorProto) (*decl.Service, error) {
	fqn := names.Join(g.pkg, nil, svc.GetName())
	out := &decl.Service{
		Name:     svc.GetName(),
		GoName:   names.ToUpperCamel(svc.GetName()),
		FullName: fqn,
		Package:  g.pkg,
		Comments: g.typeComments(fqn),
	}

	scope := names.Scope{Package: g.pkg}
	for i, m := range svc.GetMethod() {
		symbol := string(fqn) + "." + m.GetName()
		g.push(serviceMethodsPath, int32(i))
		comments := g.fieldComments(fqn, m.GetName())
		g.pop()

		input, err := g.resolveTypeRef(scope, names.FullyQualified(m.GetInputType()), symbol)
		if err != nil {
			return nil, err
		}
		output, err := g.resolveTypeRef(scope, names.FullyQualified(m.GetOutputType()), symbol)
		if err != nil {
			return nil, err
		}
		out.Methods = append(out.Methods, &decl.Method{
			Name:            m.GetName(),
			GoName:          names.ToUpperCamel(m.GetName()),
			InputName:       names.FullyQualified(m.GetInputType()),
			Input:           input,
			OutputName:      names.FullyQualified(m.GetOutputType()),
			Output:          output,
			ClientStreaming: m.GetClientStreaming(),
			ServerStreaming: m.GetServerStreaming(),
			Comments:        comments,
		})
	}
	return out, nil
}

// resolveTypeRef maps a referenced type name to a target type path, extern
// first, and verifies that local references name a type declared somewhere
// in the compilation.
func (g *fileGen) resolveTypeRef(scope names.Scope, tn names.FullyQualified, symbol string) (names.TypePath, error) {
	if ref, ok := g.sess.externs.Resolve(tn); ok {
		g.usedExtern = true
		return ref, nil
	}
	if !g.sess.graph.KnownType(tn) {
		return names.TypePath{}, report.Unresolvablef(g.fd.GetName(), symbol,
			"referenced type %s is not defined in this compilation", tn)
	}
	return names.ResolveIdent(scope, g.sess.externs, tn), nil
}

func (g *fileGen) typeURL(fqn names.FullyQualified) string {
	if !g.sess.cfg.enableTypeNames {
		return ""
	}
	domain, ok := g.sess.cfg.typeNameDomains.GetFirst(string(fqn))
	if !ok || domain == "" {
		domain = "type.googleapis.com"
	}
	return domain + "/" + strings.TrimPrefix(string(fqn), ".")
}

func (g *fileGen) typeComments(fqn names.FullyQualified) decl.Comments {
	if _, off := g.sess.cfg.disabledComments.GetFirst(string(fqn)); off {
		return decl.Comments{}
	}
	return g.locs.comments(g.path)
}

func (g *fileGen) fieldComments(container names.FullyQualified, field string) decl.Comments {
	if _, off := g.sess.cfg.disabledComments.GetFirstField(string(container), field); off {
		return decl.Comments{}
	}
	return g.locs.comments(g.path)
}

func (g *fileGen) flatName(typePath []string, name string) string {
	parts := make([]string, 0, len(g.namePrefix)+len(typePath)+1)
	for _, seg := range g.namePrefix {
		parts = append(parts, names.ToUpperCamel(seg))
	}
	for _, seg := range typePath {
		parts = append(parts, names.ToUpperCamel(seg))
	}
	parts = append(parts, names.ToUpperCamel(name))
	return strings.Join(parts, "_")
}

func presenceOf(fv features.FieldValues, fd *descriptorpb.FieldDescriptorProto) decl.Presence {
	switch {
	case fv.IsRequired(fd):
		return decl.PresenceRequired
	case fv.IsOptional(fd):
		return decl.PresenceExplicit
	default:
		return decl.PresenceImplicit
	}
}

func (c *Config) outputRoot() string {
	if c.defaultPackageFilename != "" {
		return c.defaultPackageFilename
	}
	return "default"
}

func kindOf(t descriptorpb.FieldDescriptorProto_Type) decl.Kind {
	switch t {
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return decl.KindDouble
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return decl.KindFloat
	case descriptorpb.FieldDescriptorProto_TYPE_INT32:
		return decl.KindInt32
	case descriptorpb.FieldDescriptorProto_TYPE_INT64:
		return decl.KindInt64
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32:
		return decl.KindUint32
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64:
		return decl.KindUint64
	case descriptorpb.FieldDescriptorProto_TYPE_SINT32:
		return decl.KindSint32
	case descriptorpb.FieldDescriptorProto_TYPE_SINT64:
		return decl.KindSint64
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		return decl.KindFixed32
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return decl.KindFixed64
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		return decl.KindSfixed32
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return decl.KindSfixed64
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return decl.KindBool
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return decl.KindString
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return decl.KindBytes
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		return decl.KindMessage
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return decl.KindEnum
	case descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		return decl.KindGroup
	default:
		return decl.Kind("")
	}
}
