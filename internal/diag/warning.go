package diag

import "fmt"

// WarningKind classifies a recoverable data-quality problem.
type WarningKind uint16

const (
	DuplicateEntry WarningKind = 2000 + iota
	NameShortfall
)

func (k WarningKind) String() string {
	switch k {
	case DuplicateEntry:
		return "DuplicateEntry"
	case NameShortfall:
		return "NameShortfall"
	}
	return fmt.Sprintf("WarningKind(%d)", uint16(k))
}

type Warning struct {
	Kind     WarningKind `json:"kind"`
	Object   string      `json:"object"`
	Index    string      `json:"index"`
	Subindex int         `json:"subindex"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("W%d %s: %s", uint16(w.Kind), w.Kind, w.Message)
}

func WarnDuplicateEntry(object, index string, subindex int) Warning {
	return Warning{
		Kind:     DuplicateEntry,
		Object:   object,
		Index:    index,
		Subindex: subindex,
		Message: fmt.Sprintf(
			"duplicate entry at index 0x%s, subindex %d (object %q); skipping",
			index, subindex, object,
		),
	}
}

func WarnNameShortfall(object, index string, names, entries int) Warning {
	return Warning{
		Kind:   NameShortfall,
		Object: object,
		Index:  index,
		Message: fmt.Sprintf(
			"object %q (0x%s) declares %d sub-item names for %d entries; %d entries have no sub-name",
			object, index, names, entries, entries-names,
		),
	}
}
