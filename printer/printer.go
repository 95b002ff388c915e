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

// Package printer renders a declaration tree as Go source text. All
// resolution decisions were made upstream; this package only formats.
//
// All generated declarations of a run share one Go package, so nested and
// cross-package types render as flattened identifiers, e.g. Outer_Inner.
package printer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bufbuild/protogen/decl"
	"github.com/bufbuild/protogen/names"
)

// Print renders the file as Go source.
func Print(file *decl.File) ([]byte, error) {
	p := &printer{
		pkgSegs:   packageSegments(file.Package),
		qualified: file.QualifiedNames,
	}
	if err := p.file(file); err != nil {
		return nil, err
	}
	return p.bytes(file), nil
}

type printer struct {
	buf          bytes.Buffer
	pkgSegs      []string
	qualified    bool
	needsBtree   bool
	needsStrconv bool
}

func packageSegments(pkg string) []string {
	if pkg == "" {
		return nil
	}
	return strings.Split(pkg, ".")
}

// bytes assembles the header, package clause, and imports ahead of the
// accumulated declarations. Imports depend on what the body used, so the
// body renders first.
func (p *printer) bytes(file *decl.File) []byte {
	var out bytes.Buffer
	out.WriteString("// Code generated by protogen. DO NOT EDIT.\n")
	fmt.Fprintf(&out, "// source: %s\n\n", file.Source)
	fmt.Fprintf(&out, "package %s\n", file.GoPackage)

	imports := append([]string(nil), file.Imports...)
	if p.needsStrconv {
		imports = append(imports, `"strconv"`)
	}
	if p.needsBtree {
		imports = append(imports, `"github.com/tidwall/btree"`)
	}
	if len(imports) > 0 {
		out.WriteString("\nimport (\n")
		for _, imp := range imports {
			fmt.Fprintf(&out, "\t%s\n", imp)
		}
		out.WriteString(")\n")
	}

	out.Write(p.buf.Bytes())
	return out.Bytes()
}

func (p *printer) file(file *decl.File) error {
	for _, msg := range file.Messages {
		if err := p.message(msg, nil); err != nil {
			return err
		}
	}
	for _, enum := range file.Enums {
		p.enum(enum)
	}
	return nil
}

func (p *printer) message(msg *decl.Message, stack []string) error {
	p.buf.WriteString("\n")
	p.comments(msg.Comments, "")
	for _, attr := range msg.Attributes {
		fmt.Fprintf(&p.buf, "%s\n", attr)
	}
	fmt.Fprintf(&p.buf, "type %s struct {\n", msg.GoName)

	// Field type references were resolved against the enclosing scope, not
	// the message's own; nested declarations resolve one level deeper.
	scope := append(stack, msg.Name)
	for _, field := range msg.Fields {
		if err := p.field(field, stack); err != nil {
			return err
		}
	}
	for _, oo := range msg.Oneofs {
		p.comments(oo.Comments, "\t")
		fmt.Fprintf(&p.buf, "\t%s %s `protogen:\"oneof=%s\"`\n", oo.GoName, oo.InterfaceName, oo.Name)
	}
	p.buf.WriteString("}\n")

	if msg.TypeURL != "" {
		fullName := strings.TrimPrefix(string(msg.FullName), ".")
		fmt.Fprintf(&p.buf, "\nfunc (*%s) TypeName() string { return %q }\n", msg.GoName, fullName)
		fmt.Fprintf(&p.buf, "\nfunc (*%s) TypeURL() string { return %q }\n", msg.GoName, msg.TypeURL)
	}

	for _, oo := range msg.Oneofs {
		if err := p.oneof(msg, oo, stack); err != nil {
			return err
		}
	}
	for _, nested := range msg.Messages {
		if err := p.message(nested, scope); err != nil {
			return err
		}
	}
	for _, enum := range msg.Enums {
		p.enum(enum)
	}
	return nil
}

func (p *printer) field(field *decl.Field, scope []string) error {
	p.comments(field.Comments, "\t")
	if field.Deprecated {
		p.buf.WriteString("\t// Deprecated: Do not use.\n")
	}
	for _, attr := range field.Attributes {
		fmt.Fprintf(&p.buf, "\t%s\n", attr)
	}
	typ, err := p.fieldType(field, scope)
	if err != nil {
		return err
	}
	fmt.Fprintf(&p.buf, "\t%s %s `protogen:%q`", field.GoName, typ, fieldTag(field))
	if field.Comments.Trailing != "" {
		fmt.Fprintf(&p.buf, " // %s", strings.TrimSpace(field.Comments.Trailing))
	}
	p.buf.WriteString("\n")
	return nil
}

func (p *printer) oneof(msg *decl.Message, oo *decl.Oneof, scope []string) error {
	fmt.Fprintf(&p.buf, "\ntype %s interface {\n\t%s()\n}\n", oo.InterfaceName, oo.InterfaceName)
	for _, v := range oo.Variants {
		typ, err := p.variantType(v, scope)
		if err != nil {
			return err
		}
		wrapper := msg.GoName + "_" + v.GoName
		p.buf.WriteString("\n")
		p.comments(v.Comments, "")
		fmt.Fprintf(&p.buf, "type %s struct {\n", wrapper)
		fmt.Fprintf(&p.buf, "\t%s %s `protogen:%q`\n", v.GoName, typ, variantTag(v, oo.Name))
		p.buf.WriteString("}\n")
		fmt.Fprintf(&p.buf, "\nfunc (*%s) %s() {}\n", wrapper, oo.InterfaceName)
	}
	return nil
}

func (p *printer) enum(enum *decl.Enum) {
	p.buf.WriteString("\n")
	p.comments(enum.Comments, "")
	for _, attr := range enum.Attributes {
		fmt.Fprintf(&p.buf, "%s\n", attr)
	}
	fmt.Fprintf(&p.buf, "type %s int32\n", enum.GoName)

	if len(enum.Values) > 0 {
		p.buf.WriteString("\nconst (\n")
		for _, v := range enum.Values {
			p.comments(v.Comments, "\t")
			if v.Deprecated {
				p.buf.WriteString("\t// Deprecated: Do not use.\n")
			}
			fmt.Fprintf(&p.buf, "\t%s %s = %d\n", v.GoName, enum.GoName, v.Number)
		}
		p.buf.WriteString(")\n")
	}

	fmt.Fprintf(&p.buf, "\nvar %s_name = map[int32]string{\n", enum.GoName)
	for _, v := range enum.Values {
		fmt.Fprintf(&p.buf, "\t%d: %q,\n", v.Number, v.Name)
	}
	p.buf.WriteString("}\n")

	fmt.Fprintf(&p.buf, "\nfunc (x %s) String() string {\n", enum.GoName)
	fmt.Fprintf(&p.buf, "\tif name, ok := %s_name[int32(x)]; ok {\n\t\treturn name\n\t}\n", enum.GoName)
	p.buf.WriteString("\treturn strconv.FormatInt(int64(x), 10)\n}\n")
	p.needsStrconv = true

	if enum.TypeURL != "" {
		fullName := strings.TrimPrefix(string(enum.FullName), ".")
		fmt.Fprintf(&p.buf, "\nfunc (%s) TypeName() string { return %q }\n", enum.GoName, fullName)
		fmt.Fprintf(&p.buf, "\nfunc (%s) TypeURL() string { return %q }\n", enum.GoName, enum.TypeURL)
	}
}

func (p *printer) fieldType(field *decl.Field, scope []string) (string, error) {
	if field.Map != nil {
		return p.mapType(field.Map, scope)
	}
	base, err := p.baseType(field, scope)
	if err != nil {
		return "", err
	}
	switch {
	case field.Repeated:
		return "[]" + base, nil
	case field.Kind == decl.KindMessage || field.Kind == decl.KindGroup:
		if field.Boxed || field.Optional {
			return "*" + base, nil
		}
		return base, nil
	case field.Optional && !nilable(field):
		return "*" + base, nil
	default:
		return base, nil
	}
}

// variantType is the payload type inside an oneof wrapper struct. Presence
// is carried by the union itself, so only cycle breaking forces a pointer.
func (p *printer) variantType(field *decl.Field, scope []string) (string, error) {
	base, err := p.baseType(field, scope)
	if err != nil {
		return "", err
	}
	if field.Boxed {
		return "*" + base, nil
	}
	return base, nil
}

// nilable reports whether the base type already distinguishes unset.
func nilable(field *decl.Field) bool {
	return field.Kind == decl.KindBytes && field.Bytes != decl.BytesString
}

func (p *printer) baseType(field *decl.Field, scope []string) (string, error) {
	switch field.Kind {
	case decl.KindMessage, decl.KindEnum, decl.KindGroup:
		return p.typeName(field.Type, scope), nil
	case decl.KindBytes:
		if field.Bytes == decl.BytesString {
			return "string", nil
		}
		return "[]byte", nil
	default:
		if t, ok := scalarTypes[field.Kind]; ok {
			return t, nil
		}
		return "", fmt.Errorf("printer: unknown field kind %q", field.Kind)
	}
}

func (p *printer) mapType(m *decl.Map, scope []string) (string, error) {
	key, ok := scalarTypes[m.KeyKind]
	if !ok {
		return "", fmt.Errorf("printer: unsupported map key kind %q", m.KeyKind)
	}
	var value string
	switch m.ValueKind {
	case decl.KindMessage, decl.KindEnum:
		value = p.typeName(m.ValueType, scope)
		if m.ValueKind == decl.KindMessage && m.ValueBoxed {
			value = "*" + value
		}
	case decl.KindBytes:
		value = "[]byte"
	default:
		v, ok := scalarTypes[m.ValueKind]
		if !ok {
			return "", fmt.Errorf("printer: unsupported map value kind %q", m.ValueKind)
		}
		value = v
	}
	if m.Container == decl.MapOrdered {
		p.needsBtree = true
		return fmt.Sprintf("*btree.Map[%s, %s]", key, value), nil
	}
	return fmt.Sprintf("map[%s]%s", key, value), nil
}

var scalarTypes = map[decl.Kind]string{
	decl.KindDouble:   "float64",
	decl.KindFloat:    "float32",
	decl.KindInt32:    "int32",
	decl.KindInt64:    "int64",
	decl.KindUint32:   "uint32",
	decl.KindUint64:   "uint64",
	decl.KindSint32:   "int32",
	decl.KindSint64:   "int64",
	decl.KindFixed32:  "uint32",
	decl.KindFixed64:  "uint64",
	decl.KindSfixed32: "int32",
	decl.KindSfixed64: "int64",
	decl.KindBool:     "bool",
	decl.KindString:   "string",
}

// typeName renders a resolved type reference as a Go identifier.
//
// Local references were resolved relative to the scope that produced them;
// the printer tracks the same scope while walking the tree, so it can
// reconstruct the absolute path, drop the file's own package prefix, and
// flatten the rest with underscores. Ascending past the package keeps the
// foreign package segments in the flattened name, so identifiers stay
// unique inside the shared output package.
func (p *printer) typeName(ref names.TypePath, stack []string) string {
	if ref.IsExtern() {
		parts := make([]string, 0, len(ref.Segments)+1)
		for _, seg := range ref.Segments {
			parts = append(parts, names.ToUpperCamel(seg))
		}
		if ref.Name != "" {
			parts = append(parts, ref.Name)
		}
		if len(parts) == 0 {
			return ref.ExternPath
		}
		return ref.ExternPath + "." + strings.Join(parts, "_")
	}

	scope := make([]string, 0, len(p.pkgSegs)+len(stack))
	scope = append(scope, p.pkgSegs...)
	scope = append(scope, stack...)

	keep := len(scope) - ref.Ascend
	if keep < 0 {
		keep = 0
	}
	abs := make([]string, 0, keep+len(ref.Segments)+1)
	abs = append(abs, scope[:keep]...)
	abs = append(abs, ref.Segments...)

	// Same-package references drop the package prefix, unless the run
	// spans packages and declarations carry theirs.
	if !p.qualified {
		n := 0
		for n < len(p.pkgSegs) && n < len(abs) && abs[n] == p.pkgSegs[n] {
			n++
		}
		if n == len(p.pkgSegs) {
			abs = abs[n:]
		}
	}

	parts := make([]string, 0, len(abs)+1)
	for _, seg := range abs {
		parts = append(parts, names.ToUpperCamel(seg))
	}
	parts = append(parts, ref.Name)
	return strings.Join(parts, "_")
}

func (p *printer) comments(c decl.Comments, indent string) {
	for _, block := range c.LeadingDetached {
		p.commentBlock(block, indent)
		p.buf.WriteString("\n")
	}
	if c.Leading != "" {
		p.commentBlock(c.Leading, indent)
	}
}

func (p *printer) commentBlock(text string, indent string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			fmt.Fprintf(&p.buf, "%s//\n", indent)
			continue
		}
		if !strings.HasPrefix(line, " ") {
			line = " " + line
		}
		fmt.Fprintf(&p.buf, "%s//%s\n", indent, line)
	}
}

func fieldTag(field *decl.Field) string {
	parts := []string{string(field.Kind), "tag=" + strconv.FormatInt(int64(field.Tag), 10)}
	if field.Map != nil {
		parts = []string{"map", "tag=" + strconv.FormatInt(int64(field.Tag), 10),
			"key=" + string(field.Map.KeyKind), "value=" + string(field.Map.ValueKind)}
		if field.Map.Container == decl.MapOrdered {
			parts = append(parts, "ordered")
		}
		return strings.Join(parts, ",")
	}
	switch {
	case field.Repeated:
		parts = append(parts, "rep")
	case field.Presence == decl.PresenceRequired:
		parts = append(parts, "req")
	case field.Optional:
		parts = append(parts, "opt")
	}
	if field.Packed {
		parts = append(parts, "packed")
	}
	if field.Boxed {
		parts = append(parts, "boxed")
	}
	if field.Bytes == decl.BytesString {
		parts = append(parts, "bytes=string")
	}
	if field.Default != "" {
		parts = append(parts, "def="+field.Default)
	}
	return strings.Join(parts, ",")
}

func variantTag(field *decl.Field, oneofName string) string {
	parts := []string{string(field.Kind), "tag=" + strconv.FormatInt(int64(field.Tag), 10), "oneof=" + oneofName}
	if field.Boxed {
		parts = append(parts, "boxed")
	}
	return strings.Join(parts, ",")
}
