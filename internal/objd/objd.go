// Package objd defines resolved object dictionary entries.
package objd

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/esi-codegen/internal/primitive"
)

// Access is the access rule of an entry.
type Access uint8

const (
	Unknown Access = iota
	ReadOnly
	WriteOnly
	ReadWrite
)

// ParseAccess maps an ESI access designator. Matching is case-insensitive;
// anything unrecognised is Unknown.
func ParseAccess(s string) Access {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ro":
		return ReadOnly
	case "wo":
		return WriteOnly
	case "rw":
		return ReadWrite
	}
	return Unknown
}

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	case ReadWrite:
		return "rw"
	}
	return "unknown"
}

// Entry is one addressable (index, subindex) element of the dictionary.
type Entry struct {
	Name       string
	SubName    string
	Index      uint16
	Subindex   uint8
	Designator string
	Type       primitive.Type
	BitLength  int
	Access     Access
}

// Key identifies an entry's address.
type Key struct {
	Index    uint16
	Subindex uint8
}

func (e Entry) Key() Key {
	return Key{Index: e.Index, Subindex: e.Subindex}
}

// HexIndex is the entry index as four upper-case hex digits.
func (e Entry) HexIndex() string {
	return FormatIndex(e.Index)
}

// FormatIndex formats an index as four upper-case hex digits, no prefix.
func FormatIndex(index uint16) string {
	return fmt.Sprintf("%04X", index)
}

var identReplacer = strings.NewReplacer(
	" ", "_",
	"-", "_",
	"(", "_",
	")", "_",
	"/", "_",
	".", "",
	":", "",
	"&", "and",
)

// Sanitize turns a display name into a C identifier fragment.
func Sanitize(name string) string {
	return identReplacer.Replace(name)
}
