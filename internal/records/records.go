// Package records is the compact, serialisable form of resolved entries
// consumed by the renderers.
package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/esi"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/primitive"
)

// Record is one entry. Index is four upper-case hex digits and Type is the
// designator string.
type Record struct {
	Name      string `json:"name"`
	SubName   string `json:"sub_name"`
	Index     string `json:"index"`
	Subindex  int    `json:"subindex"`
	Type      string `json:"type"`
	BitLength int    `json:"bit_length"`
	Access    string `json:"access"`
}

func FromEntry(e objd.Entry) Record {
	return Record{
		Name:      e.Name,
		SubName:   e.SubName,
		Index:     e.HexIndex(),
		Subindex:  int(e.Subindex),
		Type:      e.Designator,
		BitLength: e.BitLength,
		Access:    e.Access.String(),
	}
}

func FromEntries(entries []objd.Entry) []Record {
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromEntry(e))
	}
	return out
}

// ToEntry parses r back into an entry, re-mapping its designator.
func (r Record) ToEntry() (objd.Entry, error) {
	index, err := esi.ParseIndex("#x" + r.Index)
	if err != nil {
		return objd.Entry{}, diag.Locate(err, r.Name, r.Index)
	}
	if r.Subindex < 0 || r.Subindex > 255 {
		return objd.Entry{}, diag.Locate(
			diag.ErrMalformedAddress(strconv.Itoa(r.Subindex), "subindex out of range 0..255"),
			r.Name, r.Index)
	}
	typ, err := primitive.MapType(r.Type)
	if err != nil {
		return objd.Entry{}, diag.Locate(err, r.Name, r.Index)
	}
	return objd.Entry{
		Name:       r.Name,
		SubName:    r.SubName,
		Index:      index,
		Subindex:   uint8(r.Subindex),
		Designator: r.Type,
		Type:       typ,
		BitLength:  r.BitLength,
		Access:     objd.ParseAccess(r.Access),
	}, nil
}

func ToEntries(recs []Record) ([]objd.Entry, error) {
	out := make([]objd.Entry, 0, len(recs))
	for i, r := range recs {
		e, err := r.ToEntry()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Write persists recs as an indented JSON array.
func Write(path string, recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	return WriteJSON(path, recs)
}

func Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	recs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Parse decodes a records file already in memory.
func Parse(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return recs, nil
}

// Normalize rewrites legacy spellings into the form this tool writes:
// upper-case hex indexes and lower-case access codes. Unrecognised access
// codes become "unknown", matching ToEntry.
func Normalize(recs []Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		r.Index = strings.ToUpper(strings.TrimSpace(r.Index))
		r.Access = objd.ParseAccess(r.Access).String()
		out[i] = r
	}
	return out
}

// WriteJSON writes v with four-space indentation, replacing path atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
