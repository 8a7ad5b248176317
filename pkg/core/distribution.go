package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Distribution is a computed isotopic mass distribution with the metadata
// needed to report or persist it.
type Distribution struct {
	// Required fields
	Name      string  // Molecule name or formula
	Formula   string  // Compact composition
	States    []State // (mass, probability) pairs, linear probabilities
	BeamWidth int     // State cap used for the computation
	Domain    string  // linear or log10

	// Optional metadata
	Charge           int     // 0 = neutral masses, otherwise m/z
	MonoisotopicMass float64 // Σ count * most abundant isotope mass
	AverageMass      float64 // Σ count * standard atomic weight
	LightestMass     float64 // Σ count * lightest isotope mass
	HeaviestMass     float64 // Σ count * heaviest isotope mass

	// Internal tracking
	Source string // formula, peptide, batch file
}

// State is one mass state with its probability.
type State struct {
	Mass        float64
	Probability float64
}

// ValidationError represents an error found during distribution validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a distribution is complete and numerically sane.
func (d *Distribution) Validate() error {
	var errs []string

	// Required fields
	if d.Formula == "" {
		errs = append(errs, "formula is required")
	}
	if d.BeamWidth <= 0 {
		errs = append(errs, "beam width must be positive")
	}
	if len(d.States) == 0 {
		errs = append(errs, "at least one state is required")
	}
	if d.BeamWidth > 0 && len(d.States) > d.BeamWidth {
		errs = append(errs, fmt.Sprintf("%d states exceed beam width %d", len(d.States), d.BeamWidth))
	}
	if d.Charge < 0 {
		errs = append(errs, "charge must be non-negative")
	}

	// Validate states
	for i, s := range d.States {
		if math.IsNaN(s.Mass) || math.IsInf(s.Mass, 0) {
			errs = append(errs, fmt.Sprintf("state %d has invalid mass", i))
		}
		if math.IsNaN(s.Probability) || math.IsInf(s.Probability, 0) {
			errs = append(errs, fmt.Sprintf("state %d has invalid probability", i))
		}
		if s.Mass <= 0 {
			errs = append(errs, fmt.Sprintf("state %d mass must be positive", i))
		}
		if s.Probability < 0 || s.Probability > 1 {
			errs = append(errs, fmt.Sprintf("state %d probability must be within [0,1]", i))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Distribution",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// IsSortedByMass checks if states are sorted by mass in ascending order.
func (d *Distribution) IsSortedByMass() bool {
	for i := 1; i < len(d.States); i++ {
		if d.States[i].Mass < d.States[i-1].Mass {
			return false
		}
	}
	return true
}

// SortByMass sorts states by mass in ascending order.
func (d *Distribution) SortByMass() {
	sort.Slice(d.States, func(i, j int) bool {
		return d.States[i].Mass < d.States[j].Mass
	})
}

// SortByProbability sorts states by probability in descending order.
func (d *Distribution) SortByProbability() {
	sort.Slice(d.States, func(i, j int) bool {
		return d.States[i].Probability > d.States[j].Probability
	})
}

// TotalProbability returns the probability mass retained by the states.
func (d *Distribution) TotalProbability() float64 {
	total := 0.0
	for _, s := range d.States {
		total += s.Probability
	}
	return total
}

// MostProbable returns the state with the highest probability.
func (d *Distribution) MostProbable() (State, bool) {
	if len(d.States) == 0 {
		return State{}, false
	}
	best := d.States[0]
	for _, s := range d.States[1:] {
		if s.Probability > best.Probability {
			best = s
		}
	}
	return best, true
}

// MeanMass returns the probability-weighted mean mass of the states.
func (d *Distribution) MeanMass() float64 {
	mass, total := 0.0, 0.0
	for _, s := range d.States {
		mass += s.Mass * s.Probability
		total += s.Probability
	}
	if total == 0 {
		return 0
	}
	return mass / total
}

// Label returns the distribution label in format "Name/Charge" for charged
// distributions and "Name" for neutral ones.
func (d *Distribution) Label() string {
	if d.Charge > 0 {
		return fmt.Sprintf("%s/%d", d.Name, d.Charge)
	}
	return d.Name
}
