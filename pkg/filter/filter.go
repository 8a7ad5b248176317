// Package filter provides state filtering and transformation functions
package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

// Sort orders accepted by Config.Order
const (
	OrderMass        = "mass"
	OrderProbability = "probability"
)

// Config holds filtering configuration
type Config struct {
	Charge            int     // Report m/z at this charge (0 = neutral masses)
	MinMass           float64 // Drop states below this mass or m/z (0 = no bound)
	MaxMass           float64 // Drop states above this mass or m/z (0 = no bound)
	BinWidth          float64 // Sum states into bins of this width (0 = no binning)
	ProbabilityCutoff float64 // Keep only states above this % of the most probable (0 = no cutoff)
	TopN              int     // Keep only the N most probable states (0 = no limit)
	Order             string  // Final order: mass (default) or probability
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Charge < 0 {
		return fmt.Errorf("%w: charge must be non-negative, got %d", core.ErrInvalidInput, c.Charge)
	}
	if c.TopN < 0 {
		return fmt.Errorf("%w: top-n must be non-negative, got %d", core.ErrInvalidInput, c.TopN)
	}
	if c.ProbabilityCutoff < 0 || c.ProbabilityCutoff > 100 {
		return fmt.Errorf("%w: probability cutoff %g outside [0,100]", core.ErrInvalidInput, c.ProbabilityCutoff)
	}
	if c.BinWidth < 0 {
		return fmt.Errorf("%w: bin width must be non-negative, got %g", core.ErrInvalidInput, c.BinWidth)
	}
	if c.MaxMass > 0 && c.MinMass > c.MaxMass {
		return fmt.Errorf("%w: min mass %g above max mass %g", core.ErrInvalidInput, c.MinMass, c.MaxMass)
	}
	switch strings.ToLower(c.Order) {
	case "", OrderMass, OrderProbability:
	default:
		return fmt.Errorf("%w: unknown order %q (want mass or probability)", core.ErrInvalidInput, c.Order)
	}
	return nil
}

// Apply applies all configured filters to a distribution
func (c *Config) Apply(d *core.Distribution) error {
	if err := c.Validate(); err != nil {
		return err
	}

	// Convert to m/z first so the window applies to reported values
	if c.Charge > 0 {
		toMZ(d, c.Charge)
	}

	if c.MinMass > 0 || c.MaxMass > 0 {
		c.filterByMass(d)
	}

	if c.BinWidth > 0 {
		c.bin(d)
	}

	// Apply probability filters
	if c.ProbabilityCutoff > 0 {
		c.filterByProbability(d)
	}

	if c.TopN > 0 {
		c.filterTopN(d)
	}

	if strings.EqualFold(c.Order, OrderProbability) {
		d.SortByProbability()
	} else {
		d.SortByMass()
	}

	return nil
}

// toMZ converts neutral masses and the reference masses to m/z
func toMZ(d *core.Distribution, charge int) {
	if d.Charge != 0 {
		return
	}
	for i := range d.States {
		d.States[i].Mass = core.MassToMZ(d.States[i].Mass, charge)
	}
	d.MonoisotopicMass = core.MassToMZ(d.MonoisotopicMass, charge)
	d.AverageMass = core.MassToMZ(d.AverageMass, charge)
	d.LightestMass = core.MassToMZ(d.LightestMass, charge)
	d.HeaviestMass = core.MassToMZ(d.HeaviestMass, charge)
	d.Charge = charge
}

// filterByMass keeps states inside [MinMass, MaxMass]
func (c *Config) filterByMass(d *core.Distribution) {
	var filtered []core.State
	for _, s := range d.States {
		if c.MinMass > 0 && s.Mass < c.MinMass {
			continue
		}
		if c.MaxMass > 0 && s.Mass > c.MaxMass {
			continue
		}
		filtered = append(filtered, s)
	}
	d.States = filtered
}

// bin merges states falling into the same round(mass/width) bin. The bin
// mass is the probability-weighted mean of its states.
func (c *Config) bin(d *core.Distribution) {
	type acc struct {
		weighted, plain, prob float64
		n                     int
	}
	bins := make(map[int64]*acc)
	var keys []int64

	for _, s := range d.States {
		k := int64(math.Round(s.Mass / c.BinWidth))
		b, ok := bins[k]
		if !ok {
			b = &acc{}
			bins[k] = b
			keys = append(keys, k)
		}
		b.weighted += s.Mass * s.Probability
		b.plain += s.Mass
		b.prob += s.Probability
		b.n++
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	states := make([]core.State, 0, len(keys))
	for _, k := range keys {
		b := bins[k]
		mass := b.plain / float64(b.n)
		if b.prob > 0 {
			mass = b.weighted / b.prob
		}
		states = append(states, core.State{Mass: mass, Probability: b.prob})
	}
	d.States = states
}

// filterByProbability removes states below the cutoff percentage
func (c *Config) filterByProbability(d *core.Distribution) {
	if len(d.States) == 0 {
		return
	}

	// Find maximum probability
	maxProb := 0.0
	for _, s := range d.States {
		if s.Probability > maxProb {
			maxProb = s.Probability
		}
	}

	// Calculate threshold
	threshold := (c.ProbabilityCutoff / 100.0) * maxProb

	var filtered []core.State
	for _, s := range d.States {
		if s.Probability >= threshold {
			filtered = append(filtered, s)
		}
	}

	d.States = filtered
}

// filterTopN keeps only the N most probable states
func (c *Config) filterTopN(d *core.Distribution) {
	if len(d.States) <= c.TopN {
		return
	}

	// Create a copy and sort by probability descending
	states := make([]core.State, len(d.States))
	copy(states, d.States)

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].Probability > states[j].Probability
	})

	d.States = states[:c.TopN]
}

// RemoveZeroProbability removes states with zero or negative probability
func RemoveZeroProbability(d *core.Distribution) {
	var filtered []core.State
	for _, s := range d.States {
		if s.Probability > 0 {
			filtered = append(filtered, s)
		}
	}
	d.States = filtered
}
