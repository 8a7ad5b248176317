// Package catalog provides the isotope catalog consumed by the distribution
// engine: elements keyed by atomic number, their isotope tables, user
// composition overrides and normalization.
package catalog

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

// Catalog stores element isotope tables keyed by atomic number
type Catalog struct {
	elements map[int]*core.Element
	symbols  map[string]int // symbol -> atomic number
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		elements: make(map[int]*core.Element),
		symbols:  make(map[string]int),
	}
}

// FromElements creates a catalog holding the given elements.
func FromElements(elements []*core.Element) (*Catalog, error) {
	c := New()
	for _, e := range elements {
		if err := c.Add(e); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add adds or replaces an element. The catalog keeps its own copy. An
// element without a standard atomic weight gets the abundance-weighted mean
// of its isotopes, or the mass of its lightest isotope when it has no
// natural abundance.
func (c *Catalog) Add(e *core.Element) error {
	if e.AtomicNumber <= 0 {
		return fmt.Errorf("atomic number must be positive, got %d", e.AtomicNumber)
	}
	if e.Symbol == "" {
		return fmt.Errorf("element %d: symbol is required", e.AtomicNumber)
	}
	if z, ok := c.symbols[e.Symbol]; ok && z != e.AtomicNumber {
		return fmt.Errorf("symbol %s already used by atomic number %d", e.Symbol, z)
	}
	for _, iso := range e.Isotopes {
		if iso.AtomicMass <= 0 || math.IsNaN(iso.AtomicMass) {
			return fmt.Errorf("element %s: isotope %d has invalid mass %g", e.Symbol, iso.MassNumber, iso.AtomicMass)
		}
		if iso.Abundance < 0 || iso.Abundance > 1 || math.IsNaN(iso.Abundance) {
			return fmt.Errorf("element %s: isotope %d has abundance %g outside [0,1]", e.Symbol, iso.MassNumber, iso.Abundance)
		}
	}

	element := *e
	element.Isotopes = append([]core.Isotope(nil), e.Isotopes...)
	if element.Name == "" {
		element.Name = element.Symbol
	}
	if element.AverageMass == 0 {
		element.AverageMass = element.WeightedMass()
	}
	if element.AverageMass == 0 && len(element.Isotopes) > 0 {
		lightest := element.Isotopes[0].AtomicMass
		for _, iso := range element.Isotopes[1:] {
			lightest = math.Min(lightest, iso.AtomicMass)
		}
		element.AverageMass = lightest
	}

	if old, ok := c.elements[element.AtomicNumber]; ok && old.Symbol != element.Symbol {
		delete(c.symbols, old.Symbol)
	}
	c.elements[element.AtomicNumber] = &element
	c.symbols[element.Symbol] = element.AtomicNumber
	return nil
}

// borrowNames replaces names that fell back to the symbol with the name
// from another catalog holding the same element under the same symbol.
func (c *Catalog) borrowNames(from *Catalog) {
	for z, e := range c.elements {
		if e.Name != e.Symbol {
			continue
		}
		if src, ok := from.elements[z]; ok && src.Symbol == e.Symbol {
			e.Name = src.Name
		}
	}
}

// Element returns the element with the given atomic number
func (c *Catalog) Element(atomicNumber int) (*core.Element, error) {
	e, ok := c.elements[atomicNumber]
	if !ok {
		return nil, fmt.Errorf("%w: atomic number %d", core.ErrUnknownElement, atomicNumber)
	}
	return e, nil
}

// Lookup returns the element with the given symbol
func (c *Catalog) Lookup(symbol string) (*core.Element, error) {
	z, ok := c.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: symbol %q", core.ErrUnknownElement, symbol)
	}
	return c.elements[z], nil
}

// AtomicNumber returns the atomic number for an element symbol
func (c *Catalog) AtomicNumber(symbol string) (int, bool) {
	z, ok := c.symbols[symbol]
	return z, ok
}

// Elements returns all elements ordered by atomic number
func (c *Catalog) Elements() []*core.Element {
	elements := make([]*core.Element, 0, len(c.elements))
	for _, e := range c.elements {
		elements = append(elements, e)
	}
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].AtomicNumber < elements[j].AtomicNumber
	})
	return elements
}

// Len returns the number of elements
func (c *Catalog) Len() int {
	return len(c.elements)
}

// Normalize rescales the isotope abundances of every element so they sum to
// 1.0. Elements without natural abundance are left untouched. It returns the
// symbols of the elements that were rescaled.
func (c *Catalog) Normalize() []string {
	var changed []string
	for _, e := range c.Elements() {
		sum := 0.0
		for _, iso := range e.Isotopes {
			sum += iso.Abundance
		}
		if sum == 0 || sum == 1.0 {
			continue
		}
		for i := range e.Isotopes {
			e.Isotopes[i].Abundance /= sum
		}
		changed = append(changed, e.Symbol)
	}
	return changed
}
