package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

func water() *core.Distribution {
	return &core.Distribution{
		Name:             "water",
		Formula:          "H2O",
		BeamWidth:        5,
		Domain:           "linear",
		MonoisotopicMass: 18.0105646859,
		AverageMass:      18.01528,
		LightestMass:     18.0105646859,
		HeaviestMass:     22.027364,
		Source:           "formula",
		States: []core.State{
			{Mass: 18.0105646859, Probability: 0.9973406},
			{Mass: 20.0148104, Probability: 0.0020495},
			{Mass: 19.0147830, Probability: 0.0002295},
		},
	}
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")

	w, err := NewWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteDistribution(water()))
	methane := &core.Distribution{
		Name: "methane", Formula: "CH4", BeamWidth: 5, Domain: "log10", Charge: 1,
		States: []core.State{{Mass: 17.0335, Probability: 0.98}},
	}
	require.NoError(t, w.WriteDistribution(methane))
	assert.Equal(t, 2, w.Count())

	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close(), "second close is a no-op")
	assert.Error(t, w.WriteDistribution(water()))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var (
		name, formula, domain string
		states                int
		total                 float64
		massBlob, probBlob    []byte
	)
	err = db.QueryRow(`SELECT Name, Formula, Domain, StateCount, TotalProbability, blobMass, blobProbability
		FROM MoleculeTable WHERE MoleculeId = 1`).Scan(&name, &formula, &domain, &states, &total, &massBlob, &probBlob)
	require.NoError(t, err)
	assert.Equal(t, "water", name)
	assert.Equal(t, "H2O", formula)
	assert.Equal(t, "linear", domain)
	assert.Equal(t, 3, states)
	assert.InDelta(t, 0.9996196, total, 1e-12)

	masses, err := DecodeFloat64s(massBlob)
	require.NoError(t, err)
	assert.Equal(t, []float64{18.0105646859, 20.0148104, 19.0147830}, masses)
	probs, err := DecodeFloat64s(probBlob)
	require.NoError(t, err)
	assert.Equal(t, 0.9973406, probs[0])

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM StateTable`).Scan(&count))
	assert.Equal(t, 4, count)

	var rank int
	var mass float64
	require.NoError(t, db.QueryRow(`SELECT Rank, Mass FROM StateTable WHERE MoleculeId = 1 ORDER BY Rank DESC LIMIT 1`).Scan(&rank, &mass))
	assert.Equal(t, 3, rank)
	assert.Equal(t, 19.0147830, mass)

	var charge int
	require.NoError(t, db.QueryRow(`SELECT Charge FROM MoleculeTable WHERE Name = 'methane'`).Scan(&charge))
	assert.Equal(t, 1, charge)

	var version, modified int
	require.NoError(t, db.QueryRow(`SELECT version FROM HeaderTable`).Scan(&version))
	assert.Equal(t, schemaVersion, version)
	require.NoError(t, db.QueryRow(`SELECT NoofMoleculesModified FROM MaintenanceTable`).Scan(&modified))
	assert.Equal(t, 2, modified)
}

func TestWriteDistributionIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")

	w, err := NewWriter(path)
	require.NoError(t, err)
	defer w.Close()

	// Occupy the id of the second state so its insert fails.
	_, err = w.db.Exec(`INSERT INTO StateTable (StateId, MoleculeId, Rank, Mass, Probability) VALUES (2, 99, 1, 1, 1)`)
	require.NoError(t, err)

	err = w.WriteDistribution(water())
	require.ErrorContains(t, err, "failed to insert state 2 of water")
	assert.Equal(t, 0, w.Count())

	var molecules, states int
	require.NoError(t, w.db.QueryRow(`SELECT COUNT(*) FROM MoleculeTable`).Scan(&molecules))
	require.NoError(t, w.db.QueryRow(`SELECT COUNT(*) FROM StateTable`).Scan(&states))
	assert.Equal(t, 0, molecules)
	assert.Equal(t, 1, states)

	_, err = w.db.Exec(`DELETE FROM StateTable`)
	require.NoError(t, err)
	require.NoError(t, w.WriteDistribution(water()))
	assert.Equal(t, 1, w.Count())
	require.NoError(t, w.db.QueryRow(`SELECT COUNT(*) FROM StateTable WHERE MoleculeId = 1`).Scan(&states))
	assert.Equal(t, 3, states)
}

func TestDecodeFloat64sRejectsTruncatedBlob(t *testing.T) {
	_, err := DecodeFloat64s([]byte{1, 2, 3})
	assert.Error(t, err)

	values, err := DecodeFloat64s(encodeStatesFloat64(nil, true))
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestNewWriterBadPath(t *testing.T) {
	_, err := NewWriter(filepath.Join(t.TempDir(), "missing", "dir", "out.db"))
	assert.Error(t, err)
}
