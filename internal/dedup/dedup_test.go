package dedup

import (
	"testing"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
)

func entry(name string, index uint16, subindex uint8) objd.Entry {
	return objd.Entry{Name: name, Index: index, Subindex: subindex, Designator: "UDINT", BitLength: 32}
}

func TestDuplicateAddressDropped(t *testing.T) {
	first := entry("First", 0x2000, 3)
	first.SubName = "keep"
	second := entry("Second", 0x2000, 3)

	out, warnings := Entries([]objd.Entry{entry("First", 0x2000, 2), first, second})
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out[1] != first {
		t.Fatalf("expected first occurrence retained unchanged, got %+v", out[1])
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
	w := warnings[0]
	if w.Kind != diag.DuplicateEntry || w.Index != "2000" || w.Subindex != 3 || w.Object != "Second" {
		t.Fatalf("unexpected warning %+v", w)
	}
}

func TestStatusNamesDisambiguated(t *testing.T) {
	out := Names([]objd.Entry{
		entry("Status", 0x6041, 0),
		entry("Controlword", 0x6040, 0),
		entry("Status", 0x6042, 0),
	})
	want := []string{"Status_6041", "Controlword", "Status_6042"}
	for i, name := range want {
		if out[i].Name != name {
			t.Fatalf("entry %d name = %q, want %q", i, out[i].Name, name)
		}
	}
}

func TestSameObjectEntriesKeepName(t *testing.T) {
	in := []objd.Entry{
		entry("Identity", 0x1018, 0),
		entry("Identity", 0x1018, 1),
		entry("Identity", 0x1018, 2),
	}
	out := Names(in)
	for i := range out {
		if out[i].Name != "Identity" {
			t.Fatalf("entry %d renamed to %q", i, out[i].Name)
		}
	}
}

func TestAllEntriesOfCollidingNameRenamed(t *testing.T) {
	out := Names([]objd.Entry{
		entry("Map", 0x1600, 0),
		entry("Map", 0x1600, 1),
		entry("Map", 0x1A00, 0),
		entry("Map", 0x1A00, 1),
	})
	want := []string{"Map_1600", "Map_1600", "Map_1A00", "Map_1A00"}
	for i, name := range want {
		if out[i].Name != name {
			t.Fatalf("entry %d name = %q, want %q", i, out[i].Name, name)
		}
	}
}

func TestNamesIdempotent(t *testing.T) {
	in := []objd.Entry{
		entry("A", 0x2000, 0),
		entry("A", 0x2001, 0),
		entry("A_2000", 0x2002, 0),
		entry("B", 0x2003, 0),
	}
	once := Names(in)
	twice := Names(once)
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("second pass changed entry %d: %+v -> %+v", i, once[i], twice[i])
		}
	}
	seen := map[string]uint16{}
	for _, e := range once {
		if idx, ok := seen[e.Name]; ok && idx != e.Index {
			t.Fatalf("name %q still spans %04X and %04X", e.Name, idx, e.Index)
		}
		seen[e.Name] = e.Index
	}
	if once[3].Name != "B" {
		t.Fatalf("unrelated name changed to %q", once[3].Name)
	}
}

func TestNamesDoesNotModifyInput(t *testing.T) {
	in := []objd.Entry{entry("X", 1, 0), entry("X", 2, 0)}
	_ = Names(in)
	if in[0].Name != "X" || in[1].Name != "X" {
		t.Fatalf("input modified: %+v", in)
	}
}

func TestRun(t *testing.T) {
	out, warnings := Run([]objd.Entry{
		entry("Status", 0x6041, 0),
		entry("Status", 0x6041, 0),
		entry("Status", 0x6042, 0),
	}, nil)
	if len(out) != 2 || len(warnings) != 1 {
		t.Fatalf("expected 2 entries and 1 warning, got %d and %d", len(out), len(warnings))
	}
	if out[0].Name != "Status_6041" || out[1].Name != "Status_6042" {
		t.Fatalf("unexpected names %q %q", out[0].Name, out[1].Name)
	}
}
