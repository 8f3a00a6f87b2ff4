// Package dedup removes duplicate dictionary addresses and disambiguates
// object names shared by more than one index.
package dedup

import (
	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
)

// Run applies Entries and then Names. The input slice is not modified.
func Run(entries []objd.Entry, log logrus.FieldLogger) ([]objd.Entry, []diag.Warning) {
	kept, warnings := Entries(entries)
	if log != nil {
		for _, w := range warnings {
			log.WithFields(logrus.Fields{
				"object":   w.Object,
				"index":    w.Index,
				"subindex": w.Subindex,
			}).Warn(w.Message)
		}
	}
	return Names(kept), warnings
}

// Entries keeps the first entry for each (index, subindex) pair and drops
// later ones with a DuplicateEntry warning. Order is preserved.
func Entries(entries []objd.Entry) ([]objd.Entry, []diag.Warning) {
	seen := make(map[objd.Key]struct{}, len(entries))
	out := make([]objd.Entry, 0, len(entries))
	var warnings []diag.Warning
	for _, e := range entries {
		if _, ok := seen[e.Key()]; ok {
			warnings = append(warnings, diag.WarnDuplicateEntry(e.Name, e.HexIndex(), int(e.Subindex)))
			continue
		}
		seen[e.Key()] = struct{}{}
		out = append(out, e)
	}
	return out, warnings
}

// Names renames every entry whose name is also carried by an entry at a
// different index to "<name>_<INDEX>". Renaming repeats until no name spans
// two indexes, so Names(Names(x)) equals Names(x).
func Names(entries []objd.Entry) []objd.Entry {
	out := make([]objd.Entry, len(entries))
	copy(out, entries)

	for {
		positions := make(map[string][]int)
		var order []string
		for i, e := range out {
			if _, ok := positions[e.Name]; !ok {
				order = append(order, e.Name)
			}
			positions[e.Name] = append(positions[e.Name], i)
		}

		renamed := false
		for _, name := range order {
			pos := positions[name]
			if !spansIndexes(out, pos) {
				continue
			}
			for _, i := range pos {
				out[i].Name = name + "_" + out[i].HexIndex()
			}
			renamed = true
		}
		if !renamed {
			return out
		}
	}
}

func spansIndexes(entries []objd.Entry, pos []int) bool {
	for _, i := range pos[1:] {
		if entries[i].Index != entries[pos[0]].Index {
			return true
		}
	}
	return false
}
