// Package catalog indexes the data type declarations of an ESI document by
// name.
package catalog

import (
	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/esi"
)

// Catalog is read-only after New returns and safe for concurrent use.
type Catalog struct {
	types map[string]esi.DataType
}

// New builds the catalog for doc. A later declaration with the same name
// replaces an earlier one.
func New(doc *esi.Document) (*Catalog, error) {
	if doc == nil || !doc.HasDataTypes {
		return nil, diag.ErrMissingDataTypes()
	}
	c := &Catalog{types: make(map[string]esi.DataType, len(doc.DataTypes))}
	for _, dt := range doc.DataTypes {
		c.types[dt.Name] = dt
	}
	return c, nil
}

// Lookup returns the declaration named name.
func (c *Catalog) Lookup(name string) (esi.DataType, error) {
	dt, ok := c.types[name]
	if !ok {
		return esi.DataType{}, diag.ErrUnknownType(name)
	}
	return dt, nil
}

// Len is the number of distinct type names.
func (c *Catalog) Len() int {
	return len(c.types)
}
