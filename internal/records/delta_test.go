package records

import "testing"

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := []Record{
		{Name: "Identity", SubName: "Vendor_ID", Index: "1018", Subindex: 0, Type: "UDINT", BitLength: 32, Access: "ro"},
		{Name: "Old", Index: "2000", Type: "UINT", BitLength: 16, Access: "rw"},
	}
	next := []Record{
		{Name: "Identity", SubName: "Vendor_ID", Index: "1018", Subindex: 0, Type: "UDINT", BitLength: 32, Access: "ro"},
		{Name: "New", Index: "2001", Type: "UINT", BitLength: 16, Access: "rw"},
	}

	delta := ComputeDelta(prev, next)
	if len(delta.Added) != 1 || delta.Added[0].Name != "New" {
		t.Fatalf("expected New added, got %+v", delta.Added)
	}
	if len(delta.Removed) != 1 || delta.Removed[0].Name != "Old" {
		t.Fatalf("expected Old removed, got %+v", delta.Removed)
	}
	if delta.Empty() {
		t.Fatalf("expected non-empty delta")
	}
}

func TestComputeDeltaChangedField(t *testing.T) {
	prev := []Record{{Name: "Status", Index: "6041", Type: "UINT", BitLength: 16, Access: "ro"}}
	next := []Record{{Name: "Status", Index: "6041", Type: "UINT", BitLength: 16, Access: "rw"}}

	delta := ComputeDelta(prev, next)
	if len(delta.Added) != 1 || len(delta.Removed) != 1 {
		t.Fatalf("expected change to appear as add and remove, got %+v", delta)
	}
	if same := ComputeDelta(prev, prev); !same.Empty() {
		t.Fatalf("expected empty delta, got %+v", same)
	}
}

func TestFilterByIndex(t *testing.T) {
	recs := []Record{{Index: "1000"}, {Index: "1018"}, {Index: "1018", Subindex: 1}}
	got := FilterByIndex(recs, map[string]bool{"1018": true})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got := FilterByIndex(recs, nil); len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}
