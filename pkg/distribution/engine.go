// Package distribution computes isotopic mass distributions by trellis
// convolution: the molecule is built one atom at a time, every retained
// state is extended by every isotope of the next atom, near-identical masses
// are merged and only the beamWidth most probable states survive each step.
package distribution

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ChrisMcGann/isodalton/pkg/core"
	"github.com/ChrisMcGann/isodalton/pkg/heapsort"
)

// DefaultMaxBufferStates is the default ceiling on the entries of one
// working buffer (beamWidth * largest isotope count).
const DefaultMaxBufferStates = 1 << 24

// Catalog resolves atomic numbers to isotope tables.
type Catalog interface {
	Element(atomicNumber int) (*core.Element, error)
}

// Options controls one computation.
type Options struct {
	BeamWidth       int    // states retained after every step, > 0
	Domain          Domain // probability arithmetic
	MaxBufferStates int    // 0 means DefaultMaxBufferStates
	Logger          *slog.Logger
	Observer        func(Step) // called after every pruning step
}

// Step describes one convolution step.
type Step struct {
	Atom                int    // atoms consumed so far, including this one
	Symbol              string // element of the atom just added
	Candidates          int    // states before merging
	Merged              int    // states after merging
	Retained            int    // states after pruning
	RetainedProbability float64
	MinMass, MaxMass    float64 // candidate mass range
}

// Result is a computed distribution. States are ordered by descending
// probability; probabilities are in Domain.
type Result struct {
	States    []core.State
	Domain    Domain
	BeamWidth int
	Order     []Entry // elements in processing order
	Span      Span
	Elapsed   time.Duration
}

// Linear returns the states with plain probabilities.
func (r *Result) Linear() []core.State {
	arith := r.Domain.arithmetic()
	states := make([]core.State, len(r.States))
	for i, s := range r.States {
		states[i] = core.State{Mass: s.Mass, Probability: arith.linear(s.Probability)}
	}
	return states
}

// TotalProbability returns the linear probability retained by the result.
func (r *Result) TotalProbability() float64 {
	total := 0.0
	for _, s := range r.Linear() {
		total += s.Probability
	}
	return total
}

// Distribution converts the result into its reporting form.
func (r *Result) Distribution(name string, mol core.Molecule) *core.Distribution {
	if name == "" {
		name = mol.Name()
	}
	return &core.Distribution{
		Name:             name,
		Formula:          mol.String(),
		States:           r.Linear(),
		BeamWidth:        r.BeamWidth,
		Domain:           r.Domain.String(),
		MonoisotopicMass: r.Span.Monoisotopic,
		AverageMass:      r.Span.Average,
		LightestMass:     r.Span.Lightest,
		HeaviestMass:     r.Span.Heaviest,
	}
}

// Compute returns the isotopic distribution of mol.
//
// Errors wrap core.ErrInvalidInput for unusable input (empty molecule,
// count below one, unknown element, element without a nonzero isotope,
// non-positive beam width), core.ErrAllocation when the working buffers
// would exceed opts.MaxBufferStates and core.ErrNumericDegeneracy when a
// merged probability is NaN.
func Compute(mol core.Molecule, cat Catalog, opts Options) (res *Result, err error) {
	start := time.Now()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.BeamWidth <= 0 {
		return nil, fmt.Errorf("%w: beam width must be positive, got %d", core.ErrInvalidInput, opts.BeamWidth)
	}
	if opts.Domain != Linear && opts.Domain != Log10 {
		return nil, fmt.Errorf("%w: unknown domain %s", core.ErrInvalidInput, opts.Domain)
	}
	entries, err := resolve(mol, cat)
	if err != nil {
		return nil, err
	}

	order := OrderElements(entries)
	maxIsotopes := 0
	for _, e := range order {
		maxIsotopes = max(maxIsotopes, len(e.Element.Profile()))
	}

	limit := opts.MaxBufferStates
	if limit <= 0 {
		limit = DefaultMaxBufferStates
	}
	if opts.BeamWidth > limit/maxIsotopes {
		return nil, fmt.Errorf("%w: beam width %d with %d isotopes needs more than %d states per buffer",
			core.ErrAllocation, opts.BeamWidth, maxIsotopes, limit)
	}

	span := SpanOf(order)
	logger.Debug("element order", "formula", mol.String(), "order", symbols(order))
	logger.Debug("distribution span",
		"lightest", span.Lightest,
		"heaviest", span.Heaviest,
		"most_probable_log10", span.MostProbableLog10,
		"least_probable_log10", span.LeastProbableLog10)

	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(degeneracy)
			if !ok {
				panic(r)
			}
			res = nil
			err = fmt.Errorf("%w: %s: %s", core.ErrNumericDegeneracy, mol.String(), d.Error())
		}
	}()

	e := newEngine(opts.BeamWidth, maxIsotopes, opts.Domain.arithmetic(), opts.Observer)
	e.run(order)

	res = &Result{
		States:    e.states(),
		Domain:    opts.Domain,
		BeamWidth: opts.BeamWidth,
		Order:     order,
		Span:      span,
		Elapsed:   time.Since(start),
	}
	logger.Info("distribution computed",
		"formula", mol.String(),
		"atoms", mol.AtomCount(),
		"states", len(res.States),
		"beam_width", opts.BeamWidth,
		"domain", opts.Domain.String(),
		"elapsed", res.Elapsed)
	return res, nil
}

func resolve(mol core.Molecule, cat Catalog) ([]Entry, error) {
	if len(mol.Elements) == 0 {
		return nil, fmt.Errorf("%w: molecule has no elements", core.ErrInvalidInput)
	}

	entries := make([]Entry, 0, len(mol.Elements))
	for _, ec := range mol.Elements {
		if ec.Count < 1 {
			return nil, fmt.Errorf("%w: atomic number %d has count %d", core.ErrInvalidInput, ec.AtomicNumber, ec.Count)
		}
		element, err := cat.Element(ec.AtomicNumber)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
		}
		if len(element.Profile()) == 0 {
			return nil, fmt.Errorf("%w: %s has no isotope with nonzero abundance", core.ErrInvalidInput, element.Symbol)
		}
		entries = append(entries, Entry{Element: element, Count: ec.Count})
	}
	return entries, nil
}

func symbols(order []Entry) []string {
	out := make([]string, len(order))
	for i, e := range order {
		out[i] = fmt.Sprintf("%s%d", e.Element.Symbol, e.Count)
	}
	return out
}

// engine holds the two swapped state buffers of one computation.
type engine struct {
	beam     int
	arith    arithmetic
	observer func(Step)

	mass, prob         []float64 // current states
	nextMass, nextProb []float64 // candidates
	n                  int
	atoms              int
}

func newEngine(beam, maxIsotopes int, arith arithmetic, observer func(Step)) *engine {
	size := beam * maxIsotopes
	return &engine{
		beam:     beam,
		arith:    arith,
		observer: observer,
		mass:     make([]float64, size),
		prob:     make([]float64, size),
		nextMass: make([]float64, size),
		nextProb: make([]float64, size),
	}
}

func (e *engine) run(order []Entry) {
	for i, entry := range order {
		profile := entry.Element.Profile()
		weights := make([]float64, len(profile))
		for j, iso := range profile {
			weights[j] = e.arith.weight(iso.Abundance)
		}

		atoms := entry.Count
		if i == 0 {
			e.init(profile, weights)
			atoms--
		}
		for range atoms {
			e.add(entry.Element.Symbol, profile, weights)
		}
	}
}

// init seeds the states with the first atom's isotopes, most probable
// first and capped at the beam width.
func (e *engine) init(profile []core.Isotope, weights []float64) {
	n := len(profile)
	for j, iso := range profile {
		e.mass[j] = iso.AtomicMass
		e.prob[j] = weights[j]
	}
	heapsort.Sort(e.prob[:n], heapsort.Descending, heapsort.Slice[float64](e.mass[:n]))
	e.n = min(n, e.beam)
	e.atoms = 1
}

// add convolves the current states with one more atom.
func (e *engine) add(symbol string, profile []core.Isotope, weights []float64) {
	k := 0
	for i := range e.n {
		for j, iso := range profile {
			e.nextMass[k] = e.mass[i] + iso.AtomicMass
			e.nextProb[k] = e.arith.combine(e.prob[i], weights[j])
			k++
		}
	}

	mass, prob := e.nextMass[:k], e.nextProb[:k]
	heapsort.Sort(mass, heapsort.Ascending, heapsort.Slice[float64](prob))
	lo, hi := mass[0], mass[k-1]

	merged := merge(mass, prob, e.arith)
	heapsort.Sort(prob[:merged], heapsort.Descending, heapsort.Slice[float64](mass[:merged]))
	retained := min(merged, e.beam)

	e.mass, e.nextMass = e.nextMass, e.mass
	e.prob, e.nextProb = e.nextProb, e.prob
	e.n = retained
	e.atoms++

	if e.observer != nil {
		total := 0.0
		for _, p := range e.prob[:retained] {
			total += e.arith.linear(p)
		}
		e.observer(Step{
			Atom:                e.atoms,
			Symbol:              symbol,
			Candidates:          k,
			Merged:              merged,
			Retained:            retained,
			RetainedProbability: total,
			MinMass:             lo,
			MaxMass:             hi,
		})
	}
}

func (e *engine) states() []core.State {
	out := make([]core.State, e.n)
	for i := range e.n {
		out[i] = core.State{Mass: e.mass[i], Probability: e.prob[i]}
	}
	return out
}
