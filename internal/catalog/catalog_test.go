package catalog

import (
	"testing"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/esi"
)

func TestLookup(t *testing.T) {
	doc := &esi.Document{
		HasDataTypes: true,
		DataTypes: []esi.DataType{
			{Name: "UDINT", BitSize: 32},
			{Name: "DT1018", BitSize: 144, SubItems: []esi.SubItem{{Type: "USINT"}}},
		},
	}
	c, err := New(doc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 types, got %d", c.Len())
	}

	dt, err := c.Lookup("DT1018")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if dt.BitSize != 144 || len(dt.SubItems) != 1 {
		t.Fatalf("unexpected DT1018: %+v", dt)
	}

	_, err = c.Lookup("DT9999")
	if !diag.IsKind(err, diag.UnknownType) {
		t.Fatalf("Lookup(DT9999) error = %v, want UnknownType", err)
	}
}

func TestNewWithoutDataTypes(t *testing.T) {
	_, err := New(&esi.Document{})
	if !diag.IsKind(err, diag.MissingDataTypes) {
		t.Fatalf("New error = %v, want MissingDataTypes", err)
	}
	if _, err := New(nil); !diag.IsKind(err, diag.MissingDataTypes) {
		t.Fatalf("New(nil) error = %v, want MissingDataTypes", err)
	}
}

func TestEmptyDataTypesSection(t *testing.T) {
	c, err := New(&esi.Document{HasDataTypes: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Lookup("UDINT"); !diag.IsKind(err, diag.UnknownType) {
		t.Fatalf("Lookup error = %v, want UnknownType", err)
	}
}

func TestLastDeclarationWins(t *testing.T) {
	c, err := New(&esi.Document{
		HasDataTypes: true,
		DataTypes: []esi.DataType{
			{Name: "DT2000", BitSize: 8},
			{Name: "DT2000", BitSize: 16},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dt, err := c.Lookup("DT2000")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if dt.BitSize != 16 {
		t.Fatalf("expected last declaration, got BitSize %d", dt.BitSize)
	}
}
