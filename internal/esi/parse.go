package esi

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
)

// ParseFile reads and parses the ESI document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ESI file: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse reads an ESI document. Declarations are returned in document order.
func Parse(r io.Reader) (*Document, error) {
	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("parsing XML: document has no root element")
	}

	doc := &Document{}

	if root.FindElement(".//DataTypes") != nil {
		doc.HasDataTypes = true
	}
	for _, el := range root.FindElements(".//DataType") {
		dt, ok, err := parseDataType(el)
		if err != nil {
			return nil, err
		}
		if ok {
			doc.DataTypes = append(doc.DataTypes, dt)
		}
	}

	for _, el := range root.FindElements(".//Object") {
		obj, err := parseObject(el)
		if err != nil {
			return nil, err
		}
		doc.Objects = append(doc.Objects, obj)
	}

	return doc, nil
}

func parseDataType(el *etree.Element) (DataType, bool, error) {
	name := childText(el, "Name")
	if name == "" {
		return DataType{}, false, nil
	}

	dt := DataType{
		Name:         name,
		BaseType:     childText(el, "BaseType"),
		ElementCount: 1,
	}

	if raw := childText(el, "BitSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return DataType{}, false, diag.ErrMalformedType(name, fmt.Sprintf("BitSize %q is not an integer", raw))
		}
		dt.BitSize = n
	}

	if raw := childText(el, "ArrayInfo/Elements"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return DataType{}, false, diag.ErrMalformedType(name, fmt.Sprintf("ArrayInfo/Elements %q is not a positive integer", raw))
		}
		dt.ElementCount = n
	}

	for _, sub := range el.SelectElements("SubItem") {
		access := childText(sub, "Flags/Access")
		if access == "" {
			access = DefaultAccess
		}
		dt.SubItems = append(dt.SubItems, SubItem{
			Type:   childText(sub, "Type"),
			Access: access,
		})
	}

	return dt, true, nil
}

func parseObject(el *etree.Element) (Object, error) {
	obj := Object{
		Name:   childText(el, "Name"),
		Type:   childText(el, "Type"),
		Access: childText(el, "Flags/Access"),
	}
	if obj.Name == "" {
		obj.Name = DefaultObjectName
	}
	if obj.Access == "" {
		obj.Access = DefaultAccess
	}

	rawIndex := childText(el, "Index")
	index, err := ParseIndex(rawIndex)
	if err != nil {
		return Object{}, diag.Locate(err, obj.Name, "")
	}
	obj.Index = index

	if raw := childText(el, "BitSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Object{}, diag.Locate(
				diag.ErrMalformedType(obj.Type, fmt.Sprintf("BitSize %q is not an integer", raw)),
				obj.Name, fmt.Sprintf("%04X", index))
		}
		obj.BitSize = n
		obj.HasBitSize = true
	}

	for _, sub := range el.FindElements("Info/SubItem") {
		name := childText(sub, "Info/DisplayName")
		if name == "" {
			name = childText(sub, "Name")
		}
		obj.SubItemNames = append(obj.SubItemNames, name)
	}

	return obj, nil
}

// ParseIndex parses an ESI object index of the form "#xHHHH".
func ParseIndex(raw string) (uint16, error) {
	s := trimmed(raw)
	if s == "" {
		return 0, diag.ErrMalformedAddress(raw, "missing <Index>")
	}
	if !strings.HasPrefix(s, "#x") && !strings.HasPrefix(s, "#X") {
		return 0, diag.ErrMalformedAddress(raw, "expected #x prefix")
	}
	n, err := strconv.ParseUint(s[2:], 16, 16)
	if err != nil {
		return 0, diag.ErrMalformedAddress(raw, "not a 16-bit hexadecimal value")
	}
	return uint16(n), nil
}

func childText(el *etree.Element, path string) string {
	child := el.FindElement(path)
	if child == nil {
		return ""
	}
	return trimmed(child.Text())
}
