package core

import "fmt"

// Isotope is one nuclide of an element.
type Isotope struct {
	MassNumber int     // protons + neutrons
	AtomicMass float64 // relative atomic mass, Ar(12C) = 12
	Abundance  float64 // representative composition fraction, 0..1
}

// Element holds the isotope table of one chemical element.
type Element struct {
	AtomicNumber int
	Symbol       string
	Name         string
	AverageMass  float64 // standard atomic weight
	Isotopes     []Isotope
}

// Profile returns the isotopes with nonzero abundance in table order. These
// are the only isotopes that take part in a convolution.
func (e *Element) Profile() []Isotope {
	profile := make([]Isotope, 0, len(e.Isotopes))
	for _, iso := range e.Isotopes {
		if iso.Abundance > 0 {
			profile = append(profile, iso)
		}
	}
	return profile
}

// Isotope returns the isotope with the given mass number.
func (e *Element) Isotope(massNumber int) (*Isotope, bool) {
	for i := range e.Isotopes {
		if e.Isotopes[i].MassNumber == massNumber {
			return &e.Isotopes[i], true
		}
	}
	return nil, false
}

// MostAbundant returns the isotope with the largest abundance.
func (e *Element) MostAbundant() (Isotope, bool) {
	var best Isotope
	found := false
	for _, iso := range e.Isotopes {
		if !found || iso.Abundance > best.Abundance {
			best = iso
			found = true
		}
	}
	return best, found && best.Abundance > 0
}

// WeightedMass returns the abundance-weighted mean of the isotope masses.
func (e *Element) WeightedMass() float64 {
	mass, total := 0.0, 0.0
	for _, iso := range e.Isotopes {
		mass += iso.AtomicMass * iso.Abundance
		total += iso.Abundance
	}
	if total == 0 {
		return 0
	}
	return mass / total
}

func (e *Element) String() string {
	return fmt.Sprintf("%s(%d)", e.Symbol, e.AtomicNumber)
}
