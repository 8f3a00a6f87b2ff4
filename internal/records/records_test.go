package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/primitive"
)

func sampleEntries() []objd.Entry {
	udint := primitive.Type{Form: primitive.Scalar, Kind: primitive.Uint32, Count: 1}
	return []objd.Entry{
		{Name: "Device_type", Index: 0x1000, Designator: "UDINT", Type: udint, BitLength: 32, Access: objd.ReadOnly},
		{Name: "Identity", SubName: "Vendor_ID", Index: 0x1018, Subindex: 0, Designator: "UDINT", Type: udint, BitLength: 32, Access: objd.ReadOnly},
		{Name: "Identity", SubName: "Product_Code", Index: 0x1018, Subindex: 1, Designator: "UDINT", Type: udint, BitLength: 32, Access: objd.ReadOnly},
		{Name: "Name", Index: 0x1008, Designator: "STRING(12)", Type: primitive.Type{Form: primitive.String, Kind: primitive.FixedString, Count: 12}, BitLength: 96, Access: objd.Unknown},
		{Name: "Buffer", Index: 0x2000, Designator: "ARRAY [0..7] OF BYTE", Type: primitive.Type{Form: primitive.Array, Kind: primitive.Uint8, Count: 8}, BitLength: 64, Access: objd.ReadWrite},
		{Name: "Cmd", Index: 0x7010, Subindex: 255, Designator: "BOOL", Type: primitive.Type{Form: primitive.Scalar, Kind: primitive.Bool, Count: 1}, BitLength: 1, Access: objd.WriteOnly},
	}
}

func TestRoundTripThroughFile(t *testing.T) {
	entries := sampleEntries()
	path := filepath.Join(t.TempDir(), "out", "device.xml.json")

	if err := Write(path, FromEntries(entries)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	recs, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, err := ToEntries(recs)
	if err != nil {
		t.Fatalf("ToEntries: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestRecordFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	if err := Write(path, FromEntries(sampleEntries()[1:2])); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := `[
    {
        "name": "Identity",
        "sub_name": "Vendor_ID",
        "index": "1018",
        "subindex": 0,
        "type": "UDINT",
        "bit_length": 32,
        "access": "ro"
    }
]`
	if string(data) != want {
		t.Fatalf("unexpected record file:\n%s", data)
	}
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := Write(path, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("expected empty array, got %q", data)
	}
}

func TestToEntryErrors(t *testing.T) {
	tests := []struct {
		rec  Record
		kind diag.Kind
	}{
		{Record{Name: "A", Index: "XYZ", Type: "UDINT"}, diag.MalformedAddress},
		{Record{Name: "A", Index: "1000", Subindex: 300, Type: "UDINT"}, diag.MalformedAddress},
		{Record{Name: "A", Index: "1000", Type: "DT1018"}, diag.UnknownType},
		{Record{Name: "A", Index: "1000", Type: "STRING(0)"}, diag.MalformedType},
	}
	for _, tt := range tests {
		_, err := ToEntries([]Record{tt.rec})
		if !diag.IsKind(err, tt.kind) {
			t.Fatalf("ToEntries(%+v) error = %v, want %s", tt.rec, err, tt.kind)
		}
	}
}

func TestReadLegacyLowercaseIndex(t *testing.T) {
	e, err := Record{Name: "RxPDO", Index: "1c12", Subindex: 1, Type: "UINT", BitLength: 16, Access: "UNKNOWN"}.ToEntry()
	if err != nil {
		t.Fatalf("ToEntry: %v", err)
	}
	if e.Index != 0x1C12 || e.Access != objd.Unknown {
		t.Fatalf("unexpected entry %+v", e)
	}
	if FromEntry(e).Index != "1C12" {
		t.Fatalf("expected normalised index")
	}
}

func TestNormalizeLegacySpellings(t *testing.T) {
	got := Normalize([]Record{
		{Name: "RxPDO", Index: "1c12", Subindex: 1, Type: "UINT", BitLength: 16, Access: "UNKNOWN"},
		{Name: "Mode", Index: "6060", Type: "SINT", BitLength: 8, Access: "RW"},
	})
	if got[0].Index != "1C12" || got[0].Access != "unknown" || got[1].Access != "rw" {
		t.Fatalf("unexpected normalised records %+v", got)
	}
	if n := Normalize(nil); n == nil || len(n) != 0 {
		t.Fatalf("expected an empty non-nil list, got %#v", n)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"name":`)); err == nil {
		t.Fatalf("expected a parse error")
	}
}
