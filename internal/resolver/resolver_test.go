package resolver

import (
	"fmt"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/esi"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/primitive"
)

func baseTypes() []esi.DataType {
	return []esi.DataType{
		{Name: "BOOL", BitSize: 1},
		{Name: "USINT", BitSize: 8},
		{Name: "BYTE", BitSize: 8},
		{Name: "UINT", BitSize: 16},
		{Name: "UDINT", BitSize: 32},
		{Name: "STRING(8)", BitSize: 64},
	}
}

func document(extra []esi.DataType, objects ...esi.Object) *esi.Document {
	return &esi.Document{
		HasDataTypes: true,
		DataTypes:    append(baseTypes(), extra...),
		Objects:      objects,
	}
}

func TestIdentityObject(t *testing.T) {
	doc := document(
		[]esi.DataType{{
			Name:    "DT1018",
			BitSize: 64,
			SubItems: []esi.SubItem{
				{Type: "UDINT", Access: "ro"},
				{Type: "UDINT", Access: "ro"},
			},
		}},
		esi.Object{
			Index:        0x1018,
			Name:         "Identity",
			Type:         "DT1018",
			Access:       esi.DefaultAccess,
			SubItemNames: []string{"Vendor ID", "Product Code"},
		},
	)

	res, err := Resolve(doc, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}

	udint := primitive.Type{Form: primitive.Scalar, Kind: primitive.Uint32, Count: 1}
	want := []objd.Entry{
		{Name: "Identity", SubName: "Vendor_ID", Index: 0x1018, Subindex: 0, Designator: "UDINT", Type: udint, BitLength: 32, Access: objd.ReadOnly},
		{Name: "Identity", SubName: "Product_Code", Index: 0x1018, Subindex: 1, Designator: "UDINT", Type: udint, BitLength: 32, Access: objd.ReadOnly},
	}
	if len(res.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(res.Entries), res.Entries)
	}
	for i := range want {
		if res.Entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, res.Entries[i], want[i])
		}
	}
}

func TestLeafObject(t *testing.T) {
	doc := document(nil,
		esi.Object{Index: 0x1000, Name: "Device type", Type: "UDINT", BitSize: 32, HasBitSize: true, Access: "ro"},
		esi.Object{Index: 0x1008, Name: "Device name", Type: "STRING(8)", Access: "RO"},
	)

	res, err := Resolve(doc, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}

	dev := res.Entries[0]
	if dev.Subindex != 0 || dev.SubName != "" || dev.BitLength != 32 || dev.Access != objd.ReadOnly {
		t.Fatalf("unexpected leaf entry: %+v", dev)
	}

	name := res.Entries[1]
	if name.Designator != "STRING(8)" || name.Type.Form != primitive.String || name.Type.Count != 8 {
		t.Fatalf("unexpected string entry: %+v", name)
	}
	if name.BitLength != 64 {
		t.Fatalf("expected bit length from the type declaration, got %d", name.BitLength)
	}
}

func TestArrayExpansion(t *testing.T) {
	doc := document(
		[]esi.DataType{
			{Name: "DT1C12ARR", BaseType: "UINT", ElementCount: 4},
			{
				Name: "DT1C12",
				SubItems: []esi.SubItem{
					{Type: "USINT", Access: "ro"},
					{Type: "DT1C12ARR", Access: "rw"},
				},
			},
		},
		esi.Object{
			Index:        0x1C12,
			Name:         "RxPDO assign",
			Type:         "DT1C12",
			SubItemNames: []string{"SubIndex 000", "SubIndex 001", "SubIndex 002", "SubIndex 003", "SubIndex 004"},
		},
	)

	res, err := Resolve(doc, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Entries) != 5 {
		t.Fatalf("expected 1 + 4 entries, got %d", len(res.Entries))
	}
	for i, e := range res.Entries {
		if int(e.Subindex) != i {
			t.Fatalf("entry %d has subindex %d", i, e.Subindex)
		}
		if i == 0 {
			continue
		}
		if e.Designator != "UINT" || e.BitLength != 16 || e.Access != objd.ReadWrite {
			t.Fatalf("unexpected array element %d: %+v", i, e)
		}
		if e.SubName != fmt.Sprintf("SubIndex_%03d", i) {
			t.Fatalf("unexpected sub-name %q", e.SubName)
		}
	}
}

func TestEntryCountFormula(t *testing.T) {
	doc := document(
		[]esi.DataType{
			{Name: "ARR3", BaseType: "BYTE", ElementCount: 3},
			{Name: "ARR2", BaseType: "BOOL", ElementCount: 2},
			{Name: "DT2000", SubItems: []esi.SubItem{{Type: "ARR3"}, {Type: "UINT"}, {Type: "ARR2"}}},
			{Name: "DT2001", SubItems: []esi.SubItem{{Type: "USINT"}}},
		},
		esi.Object{Index: 0x2000, Name: "A", Type: "DT2000"},
		esi.Object{Index: 0x2001, Name: "B", Type: "DT2001"},
		esi.Object{Index: 0x2002, Name: "C", Type: "UDINT"},
	)

	res, err := Resolve(doc, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	counts := map[uint16]int{}
	next := map[uint16]int{}
	for _, e := range res.Entries {
		counts[e.Index]++
		if int(e.Subindex) != next[e.Index] {
			t.Fatalf("index %04X: subindex %d out of order", e.Index, e.Subindex)
		}
		next[e.Index]++
	}
	want := map[uint16]int{0x2000: 3 + 1 + 2, 0x2001: 1, 0x2002: 1}
	for index, n := range want {
		if counts[index] != n {
			t.Fatalf("index %04X: got %d entries, want %d", index, counts[index], n)
		}
	}
}

func TestNameShortfallWarns(t *testing.T) {
	doc := document(
		[]esi.DataType{{Name: "DT3000", SubItems: []esi.SubItem{{Type: "USINT"}, {Type: "USINT"}, {Type: "USINT"}}}},
		esi.Object{Index: 0x3000, Name: "Short", Type: "DT3000", SubItemNames: []string{"First"}},
	)

	res, err := Resolve(doc, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].SubName != "First" || res.Entries[1].SubName != "" || res.Entries[2].SubName != "" {
		t.Fatalf("unexpected sub-names: %+v", res.Entries)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != diag.NameShortfall || res.Warnings[0].Index != "3000" {
		t.Fatalf("expected one NameShortfall warning, got %v", res.Warnings)
	}
}

func TestAliasChain(t *testing.T) {
	doc := document(
		[]esi.DataType{
			{Name: "DT_ALIAS", BaseType: "UINT", BitSize: 16},
			{Name: "DT_ALIAS2", BaseType: "DT_ALIAS", BitSize: 16},
			{Name: "DT_BYTES", BaseType: "DT_ALIAS2", ElementCount: 3},
		},
		esi.Object{Index: 0x4000, Name: "Aliased", Type: "DT_ALIAS2"},
		esi.Object{Index: 0x4001, Name: "Words", Type: "DT_BYTES"},
	)

	res, err := Resolve(doc, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Entries[0].Designator != "UINT" {
		t.Fatalf("expected alias to resolve to UINT, got %q", res.Entries[0].Designator)
	}
	if got := res.Entries[1].Designator; got != "ARRAY [0..2] OF UINT" {
		t.Fatalf("unexpected array designator %q", got)
	}
	if got := res.Entries[1].Type; got.Form != primitive.Array || got.Count != 3 || got.Kind != primitive.Uint16 {
		t.Fatalf("unexpected array type %v", got)
	}
}

func TestFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  *esi.Document
		kind diag.Kind
	}{
		{
			name: "missing data types",
			doc:  &esi.Document{Objects: []esi.Object{{Index: 0x1000, Name: "X", Type: "UDINT"}}},
			kind: diag.MissingDataTypes,
		},
		{
			name: "unknown object type",
			doc:  document(nil, esi.Object{Index: 0x1000, Name: "X", Type: "DT9999"}),
			kind: diag.UnknownType,
		},
		{
			name: "unknown sub-item type",
			doc: document(
				[]esi.DataType{{Name: "DT1", SubItems: []esi.SubItem{{Type: "NOPE"}}}},
				esi.Object{Index: 0x1001, Name: "X", Type: "DT1"},
			),
			kind: diag.UnknownType,
		},
		{
			name: "unknown array base",
			doc: document(
				[]esi.DataType{
					{Name: "ARR", BaseType: "MISSING", ElementCount: 2},
					{Name: "DT1", SubItems: []esi.SubItem{{Type: "ARR"}}},
				},
				esi.Object{Index: 0x1002, Name: "X", Type: "DT1"},
			),
			kind: diag.UnknownType,
		},
		{
			name: "type without primitive",
			doc: document(
				[]esi.DataType{{Name: "OPAQUE", BitSize: 8}},
				esi.Object{Index: 0x1003, Name: "X", Type: "OPAQUE"},
			),
			kind: diag.UnknownType,
		},
		{
			name: "malformed string",
			doc: document(
				[]esi.DataType{{Name: "STRING(x)"}},
				esi.Object{Index: 0x1004, Name: "X", Type: "STRING(x)"},
			),
			kind: diag.MalformedType,
		},
		{
			name: "cycle",
			doc: document(
				[]esi.DataType{
					{Name: "LOOP_A", BaseType: "LOOP_B"},
					{Name: "LOOP_B", BaseType: "LOOP_A"},
				},
				esi.Object{Index: 0x1005, Name: "X", Type: "LOOP_A"},
			),
			kind: diag.TypeCycle,
		},
	}

	for _, tt := range tests {
		res, err := Resolve(tt.doc, Options{})
		if err == nil {
			t.Fatalf("%s: expected error, got %d entries", tt.name, len(res.Entries))
		}
		if !diag.IsKind(err, tt.kind) {
			t.Fatalf("%s: error = %v, want kind %s", tt.name, err, tt.kind)
		}
		if res != nil {
			t.Fatalf("%s: expected no partial result", tt.name)
		}
	}
}

func TestErrorCarriesLocation(t *testing.T) {
	doc := document(nil,
		esi.Object{Index: 0x1000, Name: "Fine", Type: "UDINT"},
		esi.Object{Index: 0x6041, Name: "Statusword", Type: "DT_GONE"},
	)
	_, err := Resolve(doc, Options{})
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, want := range []string{`"Statusword"`, "0x6041", `"DT_GONE"`} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not mention %s", msg, want)
		}
	}
}

func TestSubindexOverflow(t *testing.T) {
	doc := document(
		[]esi.DataType{
			{Name: "BIG", BaseType: "USINT", ElementCount: 256},
			{Name: "DT5000", SubItems: []esi.SubItem{{Type: "USINT"}, {Type: "BIG"}}},
		},
		esi.Object{Index: 0x5000, Name: "Big", Type: "DT5000"},
	)
	_, err := Resolve(doc, Options{})
	if !diag.IsKind(err, diag.MalformedType) {
		t.Fatalf("error = %v, want MalformedType", err)
	}
}
