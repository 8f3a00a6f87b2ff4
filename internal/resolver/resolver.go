// Package resolver flattens the objects of an ESI document into ordered
// object dictionary entries.
//
// Each object becomes either a single entry at subindex 0, when its data
// type has no sub-items, or one entry per sub-item and array element, with
// subindexes counted from 0 within the object. Type references are chased
// through the catalog until they reach a designator the primitive mapper
// understands, so every entry's designator can be mapped again later.
package resolver

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/esi-codegen/internal/catalog"
	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/esi"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/primitive"
)

// MaxSubindex is the highest subindex an object may expand to.
const MaxSubindex = 255

type Options struct {
	// Logger receives one debug line per object. Nil discards.
	Logger logrus.FieldLogger
}

// Result is the outcome of resolving one document.
type Result struct {
	Entries  []objd.Entry
	Warnings []diag.Warning
}

type resolver struct {
	cat *catalog.Catalog
	log logrus.FieldLogger
	out *Result
}

// Resolve expands every object of doc in declaration order. Any type error
// aborts the whole document; no partial result is returned.
func Resolve(doc *esi.Document, opts Options) (*Result, error) {
	cat, err := catalog.New(doc)
	if err != nil {
		return nil, err
	}

	r := &resolver{
		cat: cat,
		log: opts.Logger,
		out: &Result{},
	}
	if r.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		r.log = discard
	}

	for _, obj := range doc.Objects {
		if err := r.object(obj); err != nil {
			return nil, diag.Locate(err, obj.Name, objd.FormatIndex(obj.Index))
		}
	}
	return r.out, nil
}

func (r *resolver) object(obj esi.Object) error {
	dt, err := r.cat.Lookup(obj.Type)
	if err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"object": obj.Name,
		"index":  objd.FormatIndex(obj.Index),
		"type":   obj.Type,
	}).Debug("resolving object")

	if len(dt.SubItems) == 0 {
		return r.leaf(obj, dt)
	}
	return r.composite(obj, dt)
}

func (r *resolver) leaf(obj esi.Object, dt esi.DataType) error {
	designator, err := r.designator(obj.Type, nil)
	if err != nil {
		return err
	}
	typ, err := primitive.MapType(designator)
	if err != nil {
		return err
	}
	bits := dt.BitSize
	if obj.HasBitSize {
		bits = obj.BitSize
	}
	r.out.Entries = append(r.out.Entries, objd.Entry{
		Name:       obj.Name,
		Index:      obj.Index,
		Subindex:   0,
		Designator: designator,
		Type:       typ,
		BitLength:  bits,
		Access:     objd.ParseAccess(obj.Access),
	})
	return nil
}

// group is the run of entries contributed by one type-level sub-item.
type group struct {
	designator string
	typ        primitive.Type
	bits       int
	access     objd.Access
	count      int
}

func (r *resolver) composite(obj esi.Object, dt esi.DataType) error {
	groups := make([]group, 0, len(dt.SubItems))
	total := 0
	for _, sub := range dt.SubItems {
		g, err := r.subItem(sub)
		if err != nil {
			return err
		}
		total += g.count
		if total-1 > MaxSubindex {
			return diag.ErrMalformedType(obj.Type,
				fmt.Sprintf("object expands to more than %d subindexes", MaxSubindex+1))
		}
		groups = append(groups, g)
	}

	names := obj.SubItemNames
	subindex := 0
	for _, g := range groups {
		for i := 0; i < g.count; i++ {
			subName := ""
			if subindex < len(names) {
				subName = objd.Sanitize(names[subindex])
			}
			r.out.Entries = append(r.out.Entries, objd.Entry{
				Name:       obj.Name,
				SubName:    subName,
				Index:      obj.Index,
				Subindex:   uint8(subindex),
				Designator: g.designator,
				Type:       g.typ,
				BitLength:  g.bits,
				Access:     g.access,
			})
			subindex++
		}
	}

	if len(names) < total {
		w := diag.WarnNameShortfall(obj.Name, objd.FormatIndex(obj.Index), len(names), total)
		r.log.WithFields(logrus.Fields{
			"object": obj.Name,
			"index":  w.Index,
		}).Warn(w.Message)
		r.out.Warnings = append(r.out.Warnings, w)
	}
	return nil
}

// subItem resolves one type-level sub-item. Array types contribute one entry
// per element, typed and sized after the array's base type.
func (r *resolver) subItem(sub esi.SubItem) (group, error) {
	dt, err := r.cat.Lookup(sub.Type)
	if err != nil {
		return group{}, err
	}
	baseName := dt.BaseType
	if baseName == "" {
		baseName = dt.Name
	}
	base, err := r.cat.Lookup(baseName)
	if err != nil {
		return group{}, err
	}
	designator, err := r.designator(baseName, nil)
	if err != nil {
		return group{}, err
	}
	typ, err := primitive.MapType(designator)
	if err != nil {
		return group{}, err
	}
	return group{
		designator: designator,
		typ:        typ,
		bits:       base.BitSize,
		access:     objd.ParseAccess(sub.Access),
		count:      dt.Elements(),
	}, nil
}

// designator follows name through the catalog until it reaches a
// designator the primitive mapper accepts. chain holds the names already
// visited on this path.
func (r *resolver) designator(name string, chain []string) (string, error) {
	_, err := primitive.Parse(name)
	if err == nil {
		return strings.TrimSpace(name), nil
	}
	if diag.IsKind(err, diag.MalformedType) {
		return "", err
	}

	for _, seen := range chain {
		if seen == name {
			return "", diag.ErrTypeCycle(append(append([]string{}, chain...), name))
		}
	}

	dt, err := r.cat.Lookup(name)
	if err != nil {
		return "", err
	}
	if dt.BaseType == "" {
		return "", diag.ErrNoPrimitive(name)
	}

	next := append(chain[:len(chain):len(chain)], name)
	base, err := r.designator(dt.BaseType, next)
	if err != nil {
		return "", err
	}
	if !dt.IsArray() {
		return base, nil
	}
	if strings.HasPrefix(base, "ARRAY") {
		return "", diag.ErrMalformedType(name, "arrays of arrays are not supported")
	}
	return primitive.ArrayOf(base, dt.Elements()), nil
}
