package distribution

import (
	"fmt"
	"math"
	"strings"
)

// Domain selects the arithmetic used for state probabilities.
type Domain int

const (
	// Linear multiplies abundances and sums merged probabilities.
	Linear Domain = iota
	// Log10 adds log10 abundances. Use it for molecules large enough that
	// linear products underflow.
	Log10
)

func (d Domain) String() string {
	switch d {
	case Linear:
		return "linear"
	case Log10:
		return "log10"
	default:
		return fmt.Sprintf("Domain(%d)", int(d))
	}
}

// ParseDomain parses "linear" or "log10".
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "":
		return Linear, nil
	case "log10", "log":
		return Log10, nil
	default:
		return Linear, fmt.Errorf("unknown domain %q (want linear or log10)", s)
	}
}

// Log10Probability converts a probability of domain d to its base-10
// logarithm.
func (d Domain) Log10Probability(p float64) float64 {
	return d.arithmetic().log10(p)
}

// arithmetic is the per-domain probability algebra. It is picked once per
// computation so the inner loops never branch on the domain.
type arithmetic interface {
	// weight converts an isotope abundance into a domain value.
	weight(abundance float64) float64
	// combine extends a state probability by one isotope weight.
	combine(p, w float64) float64
	// sum adds the probabilities of a merged run.
	sum(ps []float64) float64
	// linear converts a domain value back to a plain probability.
	linear(p float64) float64
	// log10 converts a domain value to its base-10 logarithm.
	log10(p float64) float64
	// degenerate reports a merged probability that carries no information.
	degenerate(p float64) bool
}

func (d Domain) arithmetic() arithmetic {
	if d == Log10 {
		return logArithmetic{}
	}
	return linearArithmetic{}
}

type linearArithmetic struct{}

func (linearArithmetic) weight(a float64) float64     { return a }
func (linearArithmetic) combine(p, w float64) float64 { return p * w }
func (linearArithmetic) linear(p float64) float64     { return p }
func (linearArithmetic) log10(p float64) float64      { return math.Log10(p) }

func (linearArithmetic) sum(ps []float64) float64 {
	total := 0.0
	for _, p := range ps {
		total += p
	}
	return total
}

// Underflow to zero is ordinary for far tail states and is not degenerate.
func (linearArithmetic) degenerate(p float64) bool {
	return p < 0 || math.IsNaN(p)
}

type logArithmetic struct{}

func (logArithmetic) weight(a float64) float64     { return math.Log10(a) }
func (logArithmetic) combine(p, w float64) float64 { return p + w }
func (logArithmetic) linear(p float64) float64     { return math.Pow(10, p) }
func (logArithmetic) log10(p float64) float64      { return p }

// sum is log10(Σ 10^p), shifted by the largest term so that no term
// overflows or underflows on its own.
func (logArithmetic) sum(ps []float64) float64 {
	top := math.Inf(-1)
	for _, p := range ps {
		if p > top || math.IsNaN(p) {
			top = p
		}
	}
	if math.IsInf(top, -1) || math.IsNaN(top) {
		return top
	}
	total := 0.0
	for _, p := range ps {
		total += math.Pow(10, p-top)
	}
	return top + math.Log10(total)
}

func (logArithmetic) degenerate(p float64) bool {
	return math.IsNaN(p)
}
