// Package render turns resolved entries into C source: a struct holding one
// field per object and an objd_t table pointing into it.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/primitive"
)

// Options names the generated C symbols.
type Options struct {
	StructName string
	VarName    string
	TableName  string
	TestGuard  string
}

func DefaultOptions() Options {
	return Options{
		StructName: "SDO",
		VarName:    "sdo",
		TableName:  "source_SDOs",
		TestGuard:  "ESI_TO_CPP_TEST",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.StructName == "" {
		o.StructName = def.StructName
	}
	if o.VarName == "" {
		o.VarName = def.VarName
	}
	if o.TableName == "" {
		o.TableName = def.TableName
	}
	if o.TestGuard == "" {
		o.TestGuard = def.TestGuard
	}
	return o
}

// Group is every entry sharing one index, in first-appearance order.
type Group struct {
	Index   uint16
	Entries []objd.Entry
}

// Flat reports whether the group renders as a plain field rather than a
// nested struct.
func (g Group) Flat() bool {
	return len(g.Entries) == 1 && g.Entries[0].Subindex == 0
}

func GroupByIndex(entries []objd.Entry) []Group {
	pos := make(map[uint16]int)
	var groups []Group
	for _, e := range entries {
		i, ok := pos[e.Index]
		if !ok {
			i = len(groups)
			pos[e.Index] = i
			groups = append(groups, Group{Index: e.Index})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// Field is the C declaration of one entry.
type Field struct {
	Entry  objd.Entry
	CType  string
	Name   string
	Length int
}

// Decl is the declarator, e.g. "Vendor_ID" or "Name[12]".
func (f Field) Decl() string {
	if f.Length > 1 {
		return f.Name + "[" + strconv.Itoa(f.Length) + "]"
	}
	return f.Name
}

// layoutGroup is a Group with its C field names assigned.
type layoutGroup struct {
	Index  string
	Flat   bool
	Name   string
	Fields []Field
}

// layout assigns C names. Composite members without a sub-name, or whose
// sub-name repeats within the object, are named after their subindex so
// every member is addressable. Objects whose names only collide after
// sanitising get their index appended.
func layout(entries []objd.Entry) ([]layoutGroup, error) {
	var out []layoutGroup
	top := make(map[string]bool)
	for _, g := range GroupByIndex(entries) {
		lg := layoutGroup{
			Index: objd.FormatIndex(g.Index),
			Flat:  g.Flat(),
			Name:  Identifier(g.Entries[0].Name),
		}
		if top[lg.Name] {
			lg.Name += "_" + lg.Index
		}
		top[lg.Name] = true
		used := make(map[string]bool)
		for _, e := range g.Entries {
			ctype, n, err := CType(e.Type)
			if err != nil {
				return nil, fmt.Errorf("index 0x%s subindex %d: %w", lg.Index, e.Subindex, err)
			}
			name := lg.Name
			if !lg.Flat {
				name = Identifier(e.SubName)
				if e.SubName == "" || used[name] {
					name = fmt.Sprintf("Subindex_%d", e.Subindex)
				}
				used[name] = true
			}
			lg.Fields = append(lg.Fields, Field{Entry: e, CType: ctype, Name: name, Length: n})
		}
		out = append(out, lg)
	}
	return out, nil
}

// Identifier sanitises name and makes sure it is a valid C identifier.
// Bytes that Sanitize leaves outside [A-Za-z0-9_] become underscores.
func Identifier(name string) string {
	s := []byte(objd.Sanitize(name))
	for i, c := range s {
		if !isIdentByte(c) {
			s[i] = '_'
		}
	}
	if len(s) == 0 {
		return "_"
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "_" + string(s)
	}
	return string(s)
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

var cScalars = map[primitive.Kind]string{
	primitive.Bool:    "bool",
	primitive.Int8:    "int8_t",
	primitive.Int16:   "int16_t",
	primitive.Int32:   "int32_t",
	primitive.Uint8:   "uint8_t",
	primitive.Uint16:  "uint16_t",
	primitive.Uint32:  "uint32_t",
	primitive.Float32: "float",
}

// CType maps t to a C element type and an element count. Strings become
// char arrays of their declared length.
func CType(t primitive.Type) (string, int, error) {
	if t.Kind == primitive.FixedString {
		return "char", t.Count, nil
	}
	ctype, ok := cScalars[t.Kind]
	if !ok {
		return "", 0, fmt.Errorf("no C type for %s", t)
	}
	return ctype, t.Count, nil
}

var ectTypes = map[primitive.Kind]string{
	primitive.Bool:        "ECT_BOOLEAN",
	primitive.Int8:        "ECT_INTEGER8",
	primitive.Int16:       "ECT_INTEGER16",
	primitive.Int32:       "ECT_INTEGER32",
	primitive.Uint8:       "ECT_UNSIGNED8",
	primitive.Uint16:      "ECT_UNSIGNED16",
	primitive.Uint32:      "ECT_UNSIGNED32",
	primitive.Float32:     "ECT_REAL32",
	primitive.FixedString: "ECT_VISIBLE_STRING",
}

// ECTType is the EtherCAT data type code of an entry. Arrays report their
// element type.
func ECTType(t primitive.Type) (string, error) {
	code, ok := ectTypes[t.Kind]
	if !ok {
		return "", fmt.Errorf("no EtherCAT data type for %s", t)
	}
	return code, nil
}

// ATypeName is the objd access constant for a.
func ATypeName(a objd.Access) string {
	return "ATYPE_" + strings.ToUpper(a.String())
}
