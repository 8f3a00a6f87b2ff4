// Package primitive maps ESI type designators ("UDINT", "STRING(20)",
// "ARRAY [0..7] OF BYTE") to canonical primitive types.
package primitive

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
)

// Kind is the closed set of primitive element kinds.
type Kind uint8

const (
	Unknown Kind = iota
	Bool
	Int8
	Int16
	Int32
	Uint8
	Uint16
	Uint32
	Float32
	FixedString
)

var kindNames = [...]string{
	Unknown:     "Unknown",
	Bool:        "Bool",
	Int8:        "Int8",
	Int16:       "Int16",
	Int32:       "Int32",
	Uint8:       "Uint8",
	Uint16:      "Uint16",
	Uint32:      "Uint32",
	Float32:     "Float32",
	FixedString: "FixedString",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Bits is the natural width of one element of kind k. Strings count one
// byte per character.
func (k Kind) Bits() int {
	switch k {
	case Bool:
		return 1
	case Int8, Uint8, FixedString:
		return 8
	case Int16, Uint16:
		return 16
	case Int32, Uint32, Float32:
		return 32
	}
	return 0
}

// Form tags the syntactic shape of a designator.
type Form uint8

const (
	Scalar Form = iota
	String
	Array
)

func (f Form) String() string {
	switch f {
	case Scalar:
		return "Scalar"
	case String:
		return "FixedString"
	case Array:
		return "FixedArray"
	}
	return fmt.Sprintf("Form(%d)", uint8(f))
}

// Type is the canonical (kind, width) pair. Count is 1 for scalars, the
// character length for strings and the element count for arrays.
type Type struct {
	Form  Form
	Kind  Kind
	Count int
}

func (t Type) String() string {
	switch t.Form {
	case String:
		return fmt.Sprintf("FixedString(%d)", t.Count)
	case Array:
		return fmt.Sprintf("%s[%d]", t.Kind, t.Count)
	}
	return t.Kind.String()
}

// Bits is the natural bit width of a value of type t.
func (t Type) Bits() int {
	return t.Kind.Bits() * t.Count
}

// Designator is a parsed designator. Elem is set only for the Array form.
type Designator struct {
	Form   Form
	Name   string
	Length int
	Lo, Hi int
	Elem   *Designator
}

var scalars = map[string]Kind{
	"BOOL":  Bool,
	"SINT":  Int8,
	"INT":   Int16,
	"DINT":  Int32,
	"USINT": Uint8,
	"UINT":  Uint16,
	"UDINT": Uint32,
	"REAL":  Float32,
	"BYTE":  Uint8,
	"WORD":  Uint16,
	"DWORD": Uint32,
}

var (
	stringPattern = regexp.MustCompile(`^STRING\((.*)\)$`)
	arrayPattern  = regexp.MustCompile(`^ARRAY\s*\[([^\]]*)\]\s*OF\s+(.+)$`)
	rangePattern  = regexp.MustCompile(`^\s*(-?\d+)\s*\.\.\s*(-?\d+)\s*$`)
)

// Parse parses designator into its tagged form. It fails with
// diag.MalformedType when a structured form is recognised but cannot be
// parsed, and with diag.UnknownType for anything else.
func Parse(designator string) (Designator, error) {
	s := strings.TrimSpace(designator)
	if _, ok := scalars[s]; ok {
		return Designator{Form: Scalar, Name: s}, nil
	}

	if strings.HasPrefix(s, "STRING(") {
		m := stringPattern.FindStringSubmatch(s)
		if m == nil {
			return Designator{}, diag.ErrMalformedType(designator, "unterminated string length")
		}
		n, err := strconv.Atoi(strings.TrimSpace(m[1]))
		if err != nil || n <= 0 {
			return Designator{}, diag.ErrMalformedType(designator,
				fmt.Sprintf("string length %q is not a positive integer", m[1]))
		}
		return Designator{Form: String, Name: "STRING", Length: n}, nil
	}

	if strings.HasPrefix(s, "ARRAY") {
		m := arrayPattern.FindStringSubmatch(s)
		if m == nil {
			return Designator{}, diag.ErrMalformedType(designator, "expected ARRAY [lo..hi] OF <type>")
		}
		r := rangePattern.FindStringSubmatch(m[1])
		if r == nil {
			return Designator{}, diag.ErrMalformedType(designator,
				fmt.Sprintf("array range %q does not parse", m[1]))
		}
		lo, errLo := strconv.ParseInt(r[1], 10, 32)
		hi, errHi := strconv.ParseInt(r[2], 10, 32)
		if errLo != nil || errHi != nil {
			return Designator{}, diag.ErrMalformedType(designator,
				fmt.Sprintf("array range %q does not parse as 32-bit bounds", m[1]))
		}
		if hi < lo {
			return Designator{}, diag.ErrMalformedType(designator,
				fmt.Sprintf("array upper bound %d is below lower bound %d", hi, lo))
		}
		elem, err := Parse(m[2])
		if err != nil {
			return Designator{}, err
		}
		d := Designator{Form: Array, Name: "ARRAY", Lo: int(lo), Hi: int(hi), Elem: &elem}
		if n := d.elements(); n > MaxElements {
			return Designator{}, diag.ErrMalformedType(designator,
				fmt.Sprintf("array holds %d elements, limit is %d", n, MaxElements))
		}
		return d, nil
	}

	return Designator{}, diag.ErrUnknownType(designator)
}

// MaxElements bounds the flattened element count of an array designator.
const MaxElements = math.MaxInt32

// elements is the flattened element count of an array. Nested arrays
// multiply out; bounds are 32-bit so the product fits in int64.
func (d Designator) elements() int64 {
	n := int64(d.Hi) - int64(d.Lo) + 1
	if d.Elem != nil && d.Elem.Form == Array {
		n *= d.Elem.elements()
	}
	return n
}

// Type returns the canonical type of d. An array of arrays flattens to one
// array of the innermost kind.
func (d Designator) Type() Type {
	switch d.Form {
	case String:
		return Type{Form: String, Kind: FixedString, Count: d.Length}
	case Array:
		return Type{Form: Array, Kind: d.Elem.Type().Kind, Count: int(d.elements())}
	}
	return Type{Form: Scalar, Kind: scalars[d.Name], Count: 1}
}

// MapType maps a designator to its canonical type.
func MapType(designator string) (Type, error) {
	d, err := Parse(designator)
	if err != nil {
		return Type{}, err
	}
	return d.Type(), nil
}

// ArrayOf formats the designator of an n-element array of elem.
func ArrayOf(elem string, n int) string {
	return fmt.Sprintf("ARRAY [0..%d] OF %s", n-1, elem)
}
