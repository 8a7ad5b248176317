package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

func sample() *core.Distribution {
	return &core.Distribution{
		Name:             "test",
		Formula:          "CH4",
		BeamWidth:        10,
		MonoisotopicMass: 100,
		AverageMass:      100.5,
		States: []core.State{
			{Mass: 100.0, Probability: 0.60},
			{Mass: 101.0, Probability: 0.25},
			{Mass: 101.2, Probability: 0.05},
			{Mass: 102.0, Probability: 0.08},
			{Mass: 103.0, Probability: 0.02},
		},
	}
}

func masses(d *core.Distribution) []float64 {
	out := make([]float64, len(d.States))
	for i, s := range d.States {
		out[i] = s.Mass
	}
	return out
}

func TestApplyNoop(t *testing.T) {
	d := sample()
	d.SortByProbability()

	require.NoError(t, (&Config{}).Apply(d))
	assert.Len(t, d.States, 5)
	assert.True(t, d.IsSortedByMass())
}

func TestTopN(t *testing.T) {
	d := sample()
	require.NoError(t, (&Config{TopN: 2}).Apply(d))
	assert.Equal(t, []float64{100, 101}, masses(d))

	d = sample()
	require.NoError(t, (&Config{TopN: 10}).Apply(d))
	assert.Len(t, d.States, 5)
}

func TestProbabilityCutoff(t *testing.T) {
	d := sample()
	// 10% of 0.60 is 0.06
	require.NoError(t, (&Config{ProbabilityCutoff: 10}).Apply(d))
	assert.Equal(t, []float64{100, 101, 102}, masses(d))
}

func TestMassWindow(t *testing.T) {
	d := sample()
	require.NoError(t, (&Config{MinMass: 100.5, MaxMass: 102}).Apply(d))
	assert.Equal(t, []float64{101, 101.2, 102}, masses(d))

	d = sample()
	require.NoError(t, (&Config{MinMass: 102.5}).Apply(d))
	assert.Equal(t, []float64{103}, masses(d))
}

func TestBinning(t *testing.T) {
	d := sample()
	require.NoError(t, (&Config{BinWidth: 1}).Apply(d))
	require.Len(t, d.States, 4)

	assert.InDelta(t, (101.0*0.25+101.2*0.05)/0.30, d.States[1].Mass, 1e-12)
	assert.InDelta(t, 0.30, d.States[1].Probability, 1e-12)
	assert.InDelta(t, 1.0, d.TotalProbability(), 1e-12)
}

func TestBinningZeroProbability(t *testing.T) {
	d := &core.Distribution{States: []core.State{{Mass: 10, Probability: 0}, {Mass: 10.2, Probability: 0}}}
	require.NoError(t, (&Config{BinWidth: 1}).Apply(d))
	require.Len(t, d.States, 1)
	assert.InDelta(t, 10.1, d.States[0].Mass, 1e-12)
}

func TestChargeConvertsToMZ(t *testing.T) {
	d := sample()
	require.NoError(t, (&Config{Charge: 2}).Apply(d))

	assert.Equal(t, 2, d.Charge)
	assert.InDelta(t, (100+2*core.ProtonMass)/2, d.States[0].Mass, 1e-12)
	assert.InDelta(t, (100+2*core.ProtonMass)/2, d.MonoisotopicMass, 1e-12)
	assert.Equal(t, "test/2", d.Label())

	// Already converted distributions are left alone.
	before := d.States[0].Mass
	require.NoError(t, (&Config{Charge: 2}).Apply(d))
	assert.Equal(t, before, d.States[0].Mass)
}

func TestChargeWindowUsesMZ(t *testing.T) {
	d := sample()
	require.NoError(t, (&Config{Charge: 2, MaxMass: 51.5}).Apply(d))
	assert.Len(t, d.States, 1)
}

func TestOrderProbability(t *testing.T) {
	d := sample()
	require.NoError(t, (&Config{Order: "Probability"}).Apply(d))
	assert.Equal(t, []float64{100, 101, 102, 101.2, 103}, masses(d))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"negative charge", Config{Charge: -1}},
		{"negative top-n", Config{TopN: -1}},
		{"cutoff above 100", Config{ProbabilityCutoff: 101}},
		{"negative bin", Config{BinWidth: -0.5}},
		{"inverted window", Config{MinMass: 10, MaxMass: 5}},
		{"unknown order", Config{Order: "intensity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sample()
			err := tt.config.Apply(d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidInput))
			assert.Len(t, d.States, 5, "distribution untouched")
		})
	}
}

func TestRemoveZeroProbability(t *testing.T) {
	d := &core.Distribution{States: []core.State{{Mass: 1, Probability: 0}, {Mass: 2, Probability: 0.5}}}
	RemoveZeroProbability(d)
	require.Len(t, d.States, 1)
	assert.Equal(t, 2.0, d.States[0].Mass)
}
