package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

// OverrideFile is the user isotope composition file. Isotopes are matched
// by mass number; mass and fraction are optional and only the given values
// replace the catalog's.
//
//	elements:
//	  - atomic_number: 1
//	    symbol: H
//	    isotopes:
//	      - mass_number: 2
//	        fraction: 0.5
type OverrideFile struct {
	Elements []ElementOverride `yaml:"elements"`
}

// ElementOverride holds the overrides for one element. AtomicNumber wins
// over Symbol when both are set.
type ElementOverride struct {
	AtomicNumber int               `yaml:"atomic_number,omitempty"`
	Name         string            `yaml:"name,omitempty"`
	Symbol       string            `yaml:"symbol,omitempty"`
	Isotopes     []IsotopeOverride `yaml:"isotopes"`
}

// IsotopeOverride replaces the mass and/or composition fraction of an isotope.
type IsotopeOverride struct {
	MassNumber int      `yaml:"mass_number"`
	Mass       *float64 `yaml:"mass,omitempty"`
	Fraction   *float64 `yaml:"fraction,omitempty"`
}

// Change records one value replaced by an override.
type Change struct {
	Symbol       string
	AtomicNumber int
	MassNumber   int
	Field        string // "mass" or "fraction"
	Old, New     float64
}

func (c Change) String() string {
	return fmt.Sprintf("%s (atomic number %d, mass number %d) %s changed from %g to %g",
		c.Symbol, c.AtomicNumber, c.MassNumber, c.Field, c.Old, c.New)
}

// ApplyOverrides reads a YAML override file and applies it. All entries are
// validated before any value changes, so a failing file leaves the catalog
// untouched. Values equal to the current ones are not reported as changes.
// Callers normally run Normalize afterwards.
func (c *Catalog) ApplyOverrides(r io.Reader) ([]Change, error) {
	var file OverrideFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}

	type pending struct {
		change Change
		target *float64
	}
	var updates []pending

	for i, eo := range file.Elements {
		element, err := c.resolve(eo)
		if err != nil {
			return nil, fmt.Errorf("element entry %d: %w", i+1, err)
		}

		for _, over := range eo.Isotopes {
			iso, ok := element.Isotope(over.MassNumber)
			if !ok {
				return nil, fmt.Errorf("element %s: no isotope with mass number %d", element.Symbol, over.MassNumber)
			}

			if over.Fraction != nil {
				if *over.Fraction < 0 || *over.Fraction > 1 {
					return nil, fmt.Errorf("element %s mass number %d: fraction %g outside [0,1]", element.Symbol, over.MassNumber, *over.Fraction)
				}
				if *over.Fraction != iso.Abundance {
					updates = append(updates, pending{
						change: Change{Symbol: element.Symbol, AtomicNumber: element.AtomicNumber, MassNumber: over.MassNumber, Field: "fraction", Old: iso.Abundance, New: *over.Fraction},
						target: &iso.Abundance,
					})
				}
			}

			if over.Mass != nil {
				if *over.Mass <= 0 {
					return nil, fmt.Errorf("element %s mass number %d: mass must be positive, got %g", element.Symbol, over.MassNumber, *over.Mass)
				}
				if *over.Mass != iso.AtomicMass {
					updates = append(updates, pending{
						change: Change{Symbol: element.Symbol, AtomicNumber: element.AtomicNumber, MassNumber: over.MassNumber, Field: "mass", Old: iso.AtomicMass, New: *over.Mass},
						target: &iso.AtomicMass,
					})
				}
			}
		}
	}

	changes := make([]Change, 0, len(updates))
	for _, u := range updates {
		*u.target = u.change.New
		changes = append(changes, u.change)
	}
	return changes, nil
}

// ApplyOverridesFile applies the override file at path.
func (c *Catalog) ApplyOverridesFile(path string) ([]Change, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overrides: %w", err)
	}
	defer f.Close()

	changes, err := c.ApplyOverrides(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return changes, nil
}

func (c *Catalog) resolve(eo ElementOverride) (*core.Element, error) {
	if eo.AtomicNumber != 0 {
		return c.Element(eo.AtomicNumber)
	}
	if eo.Symbol != "" {
		return c.Lookup(eo.Symbol)
	}
	return nil, errors.New("atomic_number or symbol is required")
}

// WriteOverrides writes an override file listing the current mass and
// fraction of every isotope, for the given symbols or all elements.
func (c *Catalog) WriteOverrides(w io.Writer, symbols ...string) error {
	file := OverrideFile{}

	elements := c.Elements()
	if len(symbols) > 0 {
		elements = elements[:0:0]
		for _, s := range symbols {
			e, err := c.Lookup(s)
			if err != nil {
				return err
			}
			elements = append(elements, e)
		}
	}

	for _, e := range elements {
		eo := ElementOverride{
			AtomicNumber: e.AtomicNumber,
			Name:         e.Name,
			Symbol:       e.Symbol,
		}
		for _, iso := range e.Isotopes {
			mass, fraction := iso.AtomicMass, iso.Abundance
			eo.Isotopes = append(eo.Isotopes, IsotopeOverride{
				MassNumber: iso.MassNumber,
				Mass:       &mass,
				Fraction:   &fraction,
			})
		}
		file.Elements = append(file.Elements, eo)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&file); err != nil {
		return fmt.Errorf("failed to write overrides: %w", err)
	}
	return enc.Close()
}
