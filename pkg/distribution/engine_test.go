package distribution

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isodalton/pkg/catalog"
	"github.com/ChrisMcGann/isodalton/pkg/core"
)

type testCatalog map[int]*core.Element

func (c testCatalog) Element(z int) (*core.Element, error) {
	e, ok := c[z]
	if !ok {
		return nil, core.ErrUnknownElement
	}
	return e, nil
}

var (
	hydrogen = &core.Element{
		AtomicNumber: 1, Symbol: "H", AverageMass: 1.00794,
		Isotopes: []core.Isotope{
			{MassNumber: 1, AtomicMass: 1.0078250319, Abundance: 0.999885},
			{MassNumber: 2, AtomicMass: 2.0141017780, Abundance: 0.000115},
		},
	}
	carbon = &core.Element{
		AtomicNumber: 6, Symbol: "C", AverageMass: 12.0107,
		Isotopes: []core.Isotope{
			{MassNumber: 12, AtomicMass: 12, Abundance: 0.9893},
			{MassNumber: 13, AtomicMass: 13.0033548378, Abundance: 0.0107},
			{MassNumber: 14, AtomicMass: 14.003241989, Abundance: 0},
		},
	}
	oxygen = &core.Element{
		AtomicNumber: 8, Symbol: "O", AverageMass: 15.9994,
		Isotopes: []core.Isotope{
			{MassNumber: 16, AtomicMass: 15.9949146221, Abundance: 0.99757},
			{MassNumber: 17, AtomicMass: 16.9991315, Abundance: 0.00038},
			{MassNumber: 18, AtomicMass: 17.9991604, Abundance: 0.00205},
		},
	}
	technetium = &core.Element{
		AtomicNumber: 43, Symbol: "Tc", AverageMass: 98,
		Isotopes:     []core.Isotope{{MassNumber: 98, AtomicMass: 97.907216}},
	}

	testElements = testCatalog{1: hydrogen, 6: carbon, 8: oxygen, 43: technetium}
)

func molecule(counts ...int) core.Molecule {
	var mol core.Molecule
	for i := 0; i+1 < len(counts); i += 2 {
		mol.Elements = append(mol.Elements, core.ElementCount{AtomicNumber: counts[i], Count: counts[i+1]})
	}
	return mol
}

func water() core.Molecule {
	return core.Molecule{Formula: "H2O", Elements: []core.ElementCount{
		{AtomicNumber: 1, Symbol: "H", Count: 2},
		{AtomicNumber: 8, Symbol: "O", Count: 1},
	}}
}

func TestComputeWater(t *testing.T) {
	res, err := Compute(water(), testElements, Options{BeamWidth: 5})
	require.NoError(t, err)

	require.NotEmpty(t, res.States)
	assert.LessOrEqual(t, len(res.States), 5)

	top := res.States[0]
	assert.InDelta(t, 18.0105646, top.Mass, 1e-6)
	assert.InDelta(t, 0.99757*0.999885*0.999885, top.Probability, 1e-9)
	assert.InDelta(t, 0.99734, top.Probability, 1e-5)

	for i, s := range res.States {
		assert.LessOrEqual(t, s.Mass, 2*2.0141018+17.9991604+1e-6)
		if i > 0 {
			assert.LessOrEqual(t, s.Probability, res.States[i-1].Probability, "descending probability")
		}
	}

	assert.Equal(t, "H", res.Order[0].Element.Symbol, "fewest isotopes first")
	assert.Equal(t, "O", res.Order[1].Element.Symbol)
	assert.Equal(t, Linear, res.Domain)
	assert.Equal(t, 5, res.BeamWidth)
}

func TestComputeWaterUnpruned(t *testing.T) {
	// H2 gives three masses, times three oxygen isotopes.
	res, err := Compute(water(), testElements, Options{BeamWidth: 100})
	require.NoError(t, err)
	require.Len(t, res.States, 9)
	assert.InDelta(t, 1.0, res.TotalProbability(), 1e-12)
}

func TestComputeLog10MatchesLinear(t *testing.T) {
	mol := molecule(6, 20, 1, 30, 8, 6)

	linear, err := Compute(mol, testElements, Options{BeamWidth: 40})
	require.NoError(t, err)
	logged, err := Compute(mol, testElements, Options{BeamWidth: 40, Domain: Log10})
	require.NoError(t, err)

	require.Equal(t, len(linear.States), len(logged.States))
	converted := logged.Linear()
	for i := range linear.States {
		assert.InDelta(t, linear.States[i].Mass, converted[i].Mass, 1e-9)
		assert.InEpsilon(t, linear.States[i].Probability, converted[i].Probability, 1e-9)
		assert.InDelta(t, math.Log10(linear.States[i].Probability), logged.States[i].Probability, 1e-9)
	}
}

func TestComputeMassBounds(t *testing.T) {
	mol := molecule(6, 12, 1, 22, 8, 11)
	var steps []Step

	res, err := Compute(mol, testElements, Options{
		BeamWidth: 25,
		Observer:  func(s Step) { steps = append(steps, s) },
	})
	require.NoError(t, err)

	span := res.Span
	for _, s := range res.States {
		assert.GreaterOrEqual(t, s.Mass, span.Lightest-1e-9)
		assert.LessOrEqual(t, s.Mass, span.Heaviest+1e-9)
	}

	require.Len(t, steps, mol.AtomCount()-1)
	last := 1.0 + 1e-12
	for _, step := range steps {
		assert.LessOrEqual(t, step.Retained, 25)
		assert.LessOrEqual(t, step.Merged, step.Candidates)
		assert.LessOrEqual(t, step.Retained, step.Merged)
		assert.LessOrEqual(t, step.RetainedProbability, last, "retained probability never grows")
		assert.LessOrEqual(t, step.MinMass, step.MaxMass)
		last = step.RetainedProbability + 1e-12
	}
	assert.Equal(t, mol.AtomCount(), steps[len(steps)-1].Atom)
	assert.InDelta(t, res.TotalProbability(), steps[len(steps)-1].RetainedProbability, 1e-12)
}

func TestComputeSingleAtom(t *testing.T) {
	res, err := Compute(molecule(8, 1), testElements, Options{BeamWidth: 2})
	require.NoError(t, err)
	require.Len(t, res.States, 2, "initial states are capped at the beam width")
	assert.Equal(t, 15.9949146221, res.States[0].Mass)
	assert.Equal(t, 0.99757, res.States[0].Probability)
	assert.Equal(t, 17.9991604, res.States[1].Mass)
}

func TestComputeSkipsZeroAbundanceIsotopes(t *testing.T) {
	res, err := Compute(molecule(6, 2), testElements, Options{BeamWidth: 10})
	require.NoError(t, err)
	require.Len(t, res.States, 3)
	for _, s := range res.States {
		assert.Less(t, s.Mass, 26.01, "carbon-14 never appears")
	}
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name string
		mol  core.Molecule
		opts Options
		want error
	}{
		{"empty molecule", core.Molecule{}, Options{BeamWidth: 5}, core.ErrInvalidInput},
		{"zero beam", water(), Options{}, core.ErrInvalidInput},
		{"unknown element", molecule(92, 1), Options{BeamWidth: 5}, core.ErrInvalidInput},
		{"zero count", molecule(1, 0), Options{BeamWidth: 5}, core.ErrInvalidInput},
		{"no natural isotopes", molecule(43, 1), Options{BeamWidth: 5}, core.ErrInvalidInput},
		{"bad domain", water(), Options{BeamWidth: 5, Domain: Domain(7)}, core.ErrInvalidInput},
		{"buffer limit", water(), Options{BeamWidth: 1000, MaxBufferStates: 2999}, core.ErrAllocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(tt.mol, testElements, tt.opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := Compute(molecule(92, 1), testElements, Options{BeamWidth: 5})
	assert.True(t, errors.Is(err, core.ErrUnknownElement))

	_, err = Compute(water(), testElements, Options{BeamWidth: 1000, MaxBufferStates: 3000})
	assert.NoError(t, err)
}

func TestComputeUnderflow(t *testing.T) {
	// Two identical isotopes whose products underflow to zero.
	tiny := &core.Element{
		AtomicNumber: 99, Symbol: "Xx", AverageMass: 10,
		Isotopes: []core.Isotope{
			{MassNumber: 10, AtomicMass: 10, Abundance: 1e-200},
			{MassNumber: 11, AtomicMass: 10, Abundance: 1e-200},
		},
	}
	cat := testCatalog{99: tiny}

	res, err := Compute(molecule(99, 2), cat, Options{BeamWidth: 4})
	require.NoError(t, err)
	require.Len(t, res.States, 1)
	assert.Equal(t, 0.0, res.States[0].Probability)

	res, err = Compute(molecule(99, 2), cat, Options{BeamWidth: 4, Domain: Log10})
	require.NoError(t, err, "log10 arithmetic keeps the magnitude")
	require.Len(t, res.States, 1)
	assert.InDelta(t, math.Log10(4)-400, res.States[0].Probability, 1e-9)
}

func TestComputeHydrogenTail(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	mol, err := core.ParseFormula("H100", cat)
	require.NoError(t, err)

	for _, d := range []Domain{Linear, Log10} {
		res, err := Compute(mol, cat, Options{BeamWidth: 1000, Domain: d})
		require.NoError(t, err, d.String())
		assert.InDelta(t, 100*1.00782503207, res.States[0].Mass, 1e-6)
		assert.InDelta(t, 1.0, res.TotalProbability(), 1e-9)
	}
}

func TestComputeNumericDegeneracy(t *testing.T) {
	// An infinite abundance turns an underflowed state into NaN.
	broken := &core.Element{
		AtomicNumber: 99, Symbol: "Xx", AverageMass: 10,
		Isotopes: []core.Isotope{
			{MassNumber: 10, AtomicMass: 10, Abundance: math.Inf(1)},
			{MassNumber: 11, AtomicMass: 11, Abundance: 1e-300},
		},
	}
	cat := testCatalog{99: broken}

	for _, d := range []Domain{Linear, Log10} {
		res, err := Compute(molecule(99, 3), cat, Options{BeamWidth: 4, Domain: d})
		require.Error(t, err, d.String())
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, core.ErrNumericDegeneracy))
	}
}

func TestComputeLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Compute(water(), testElements, Options{BeamWidth: 5, Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "element order")
	assert.Contains(t, buf.String(), "distribution computed")
	assert.Contains(t, buf.String(), "states=5")
}

func TestComputeWithDefaultCatalog(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	mol, err := core.PeptideMolecule("PEPTIDE")
	require.NoError(t, err)

	res, err := Compute(mol, cat, Options{BeamWidth: 200})
	require.NoError(t, err)

	// Monoisotopic mass of PEPTIDE.
	assert.InDelta(t, 799.3599, res.States[0].Mass, 1e-3)
	assert.InDelta(t, 799.3599, res.Span.Monoisotopic, 1e-3)
	assert.InDelta(t, 1.0, res.TotalProbability(), 1e-4)

	d := res.Distribution("", mol)
	assert.Equal(t, mol.String(), d.Formula)
	assert.Equal(t, "linear", d.Domain)
	require.NoError(t, d.Validate())
}

func TestResultDistribution(t *testing.T) {
	res, err := Compute(water(), testElements, Options{BeamWidth: 3, Domain: Log10})
	require.NoError(t, err)

	d := res.Distribution("water", water())
	assert.Equal(t, "water", d.Name)
	assert.Equal(t, "H2O", d.Formula)
	assert.Equal(t, "log10", d.Domain)
	assert.Equal(t, 3, d.BeamWidth)
	assert.InDelta(t, 0.99734, d.States[0].Probability, 1e-5)
	assert.InDelta(t, 2*1.00794+15.9994, d.AverageMass, 1e-9)
	require.NoError(t, d.Validate())
}
