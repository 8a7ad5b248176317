package distribution

import "math"

// Span summarizes the extremes of a molecule's full distribution, before
// any pruning.
type Span struct {
	Lightest           float64 // Σ count * lightest isotope mass
	Heaviest           float64 // Σ count * heaviest isotope mass
	MostProbableLog10  float64 // Σ count * log10(largest abundance)
	LeastProbableLog10 float64 // Σ count * log10(smallest nonzero abundance)
	Monoisotopic       float64 // Σ count * most abundant isotope mass
	Average            float64 // Σ count * average mass
}

// SpanOf computes the span of the given entries. Only isotopes with nonzero
// abundance are considered. Every state the engine produces has a mass in
// [Lightest, Heaviest].
func SpanOf(entries []Entry) Span {
	var s Span
	for _, e := range entries {
		profile := e.Element.Profile()
		if len(profile) == 0 {
			continue
		}

		light, heavy := profile[0].AtomicMass, profile[0].AtomicMass
		most, least := profile[0], profile[0]
		for _, iso := range profile[1:] {
			light = math.Min(light, iso.AtomicMass)
			heavy = math.Max(heavy, iso.AtomicMass)
			if iso.Abundance > most.Abundance {
				most = iso
			}
			if iso.Abundance < least.Abundance {
				least = iso
			}
		}

		n := float64(e.Count)
		s.Lightest += n * light
		s.Heaviest += n * heavy
		s.MostProbableLog10 += n * math.Log10(most.Abundance)
		s.LeastProbableLog10 += n * math.Log10(least.Abundance)
		s.Monoisotopic += n * most.AtomicMass
		s.Average += n * e.Element.AverageMass
	}
	return s
}
