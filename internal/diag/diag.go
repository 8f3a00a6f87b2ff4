// Package diag defines the error and warning kinds reported while turning an
// ESI document into object dictionary entries.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fatal resolution error.
type Kind uint16

const (
	MissingDataTypes Kind = 1000 + iota
	UnknownType
	MalformedType
	MalformedAddress
	TypeCycle
)

var kindNames = map[Kind]string{
	MissingDataTypes: "MissingDataTypes",
	UnknownType:      "UnknownType",
	MalformedType:    "MalformedType",
	MalformedAddress: "MalformedAddress",
	TypeCycle:        "TypeCycle",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Error is a fatal error. Object, Index and Designator locate the problem in
// the source document; any of them may be empty when not known.
type Error struct {
	Kind       Kind
	Object     string
	Index      string
	Designator string
	Message    string
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "E%d %s: %s", uint16(err.Kind), err.Kind, err.Message)
	var loc []string
	if err.Object != "" {
		loc = append(loc, fmt.Sprintf("object %q", err.Object))
	}
	if err.Index != "" {
		loc = append(loc, "index 0x"+err.Index)
	}
	if err.Designator != "" {
		loc = append(loc, fmt.Sprintf("type %q", err.Designator))
	}
	if len(loc) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(loc, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// WithObject returns a copy of err located at the given object. Location
// fields already set are kept.
func (err *Error) WithObject(name, index string) *Error {
	out := *err
	if out.Object == "" {
		out.Object = name
	}
	if out.Index == "" {
		out.Index = index
	}
	return &out
}

// IsKind reports whether err, or any error it wraps, is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == k
	}
	return false
}

// Locate attaches object context to err when it is an *Error; other errors
// are returned unchanged.
func Locate(err error, name, index string) error {
	var de *Error
	if errors.As(err, &de) {
		return de.WithObject(name, index)
	}
	return err
}

func ErrMissingDataTypes() error {
	return &Error{
		Kind:    MissingDataTypes,
		Message: "document has no <DataTypes> section",
	}
}

func ErrUnknownType(designator string) error {
	return &Error{
		Kind:       UnknownType,
		Designator: designator,
		Message:    fmt.Sprintf("type %q is not declared", designator),
	}
}

func ErrNoPrimitive(designator string) error {
	return &Error{
		Kind:       UnknownType,
		Designator: designator,
		Message:    fmt.Sprintf("type %q does not resolve to a primitive type", designator),
	}
}

func ErrMalformedType(designator, reason string) error {
	return &Error{
		Kind:       MalformedType,
		Designator: designator,
		Message:    reason,
	}
}

func ErrMalformedAddress(raw, reason string) error {
	return &Error{
		Kind:    MalformedAddress,
		Message: fmt.Sprintf("invalid object index %q: %s", raw, reason),
	}
}

func ErrTypeCycle(chain []string) error {
	return &Error{
		Kind:       TypeCycle,
		Designator: chain[0],
		Message:    "type reference cycle: " + strings.Join(chain, " -> "),
	}
}
