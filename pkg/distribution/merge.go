package distribution

import (
	"fmt"
	"math"
)

// MergeScale sets the merge tolerance: a run starting at mass m0 absorbs
// every following mass within m0/MergeScale.
const MergeScale = 1e15

// degeneracy is the panic value raised by Merge. Compute recovers it into
// core.ErrNumericDegeneracy.
type degeneracy struct {
	mass  float64
	count int
}

func (d degeneracy) Error() string {
	return fmt.Sprintf("merged run of %d states at mass %.10f has an invalid probability", d.count, d.mass)
}

// Merge collapses near-identical masses in place. mass must be sorted
// ascending and prob must be its companion. Each run is replaced by one
// state at the run's mean mass carrying the run's summed probability in
// domain d. Merge returns the new length; entries beyond it are garbage.
//
// Probabilities that underflowed to zero (-Inf in log10) are summed like
// any other. A run of two or more states whose sum is NaN, or negative in
// the linear domain, cannot come from a valid catalog; Merge panics with a
// degeneracy value in that case.
//
// The merged mass is the run's mean, which may fall within tolerance of
// the next run. A second pass can then merge again, so Merge is only
// idempotent for runs more than about 1.5 tolerances apart.
func Merge(mass, prob []float64, d Domain) int {
	return merge(mass, prob, d.arithmetic())
}

func merge(mass, prob []float64, arith arithmetic) int {
	n := len(mass)
	if len(prob) != n {
		panic(fmt.Sprintf("distribution: merge got %d masses and %d probabilities", n, len(prob)))
	}

	out := 0
	for i := 0; i < n; {
		m0 := mass[i]
		limit := m0 / MergeScale
		j := i + 1
		for j < n && math.Abs(mass[j]-m0) <= limit {
			j++
		}

		if j-i == 1 {
			mass[out], prob[out] = mass[i], prob[i]
		} else {
			total := 0.0
			for _, m := range mass[i:j] {
				total += m
			}
			p := arith.sum(prob[i:j])
			if arith.degenerate(p) {
				panic(degeneracy{mass: m0, count: j - i})
			}
			mass[out] = total / float64(j-i)
			prob[out] = p
		}
		out++
		i = j
	}
	return out
}
