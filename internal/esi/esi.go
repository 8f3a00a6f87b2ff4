// Package esi holds the parts of an EtherCAT Slave Information document that
// object dictionary resolution needs, and reads them from ESI XML.
package esi

import "strings"

// Document is the parsed input. HasDataTypes is false when the document has
// no <DataTypes> section at all, which is distinct from an empty one.
type Document struct {
	HasDataTypes bool
	DataTypes    []DataType
	Objects      []Object
}

// DataType is one <DataType> declaration.
type DataType struct {
	Name         string
	BaseType     string
	BitSize      int
	ElementCount int
	SubItems     []SubItem
}

// SubItem is a type-level sub-item: a type reference and its access.
type SubItem struct {
	Type   string
	Access string
}

// Object is one <Object> of the object dictionary.
type Object struct {
	Index        uint16
	Name         string
	Type         string
	BitSize      int
	HasBitSize   bool
	Access       string
	SubItemNames []string
}

const (
	DefaultObjectName = "Unnamed"
	DefaultAccess     = "UNKNOWN"
)

// Elements returns the array element count of dt, never less than one.
func (dt DataType) Elements() int {
	if dt.ElementCount < 1 {
		return 1
	}
	return dt.ElementCount
}

// IsArray reports whether dt declares more than one element.
func (dt DataType) IsArray() bool {
	return dt.Elements() > 1
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
