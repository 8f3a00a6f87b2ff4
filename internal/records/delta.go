package records

import "strconv"

// Delta captures records added and removed between two runs. A record whose
// fields changed appears in both lists.
type Delta struct {
	Added   []Record `json:"added"`
	Removed []Record `json:"removed"`
}

// ComputeDelta computes record-level additions and removals.
func ComputeDelta(prev, next []Record) Delta {
	return Delta{
		Added:   diffRows(prev, next, recordKey),
		Removed: diffRows(next, prev, recordKey),
	}
}

// Empty reports whether the two runs produced the same records.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

func recordKey(r Record) string {
	return r.Index + "|" + strconv.Itoa(r.Subindex) + "|" + r.Name + "|" + r.SubName + "|" +
		r.Type + "|" + strconv.Itoa(r.BitLength) + "|" + r.Access
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}

// FilterByIndex keeps only records whose index is in indexes. An empty set
// keeps nothing.
func FilterByIndex(recs []Record, indexes map[string]bool) []Record {
	out := []Record{}
	for _, r := range recs {
		if indexes[r.Index] {
			out = append(out, r)
		}
	}
	return out
}
