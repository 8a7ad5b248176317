// Package sqlite provides SQLite database writing for computed distributions
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ChrisMcGann/isodalton/pkg/core"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Date format for MaintenanceTable (space-separated)
	maintenanceDateFormat = "2006 01 02"

	schemaVersion = 1
)

// Writer handles writing distributions to SQLite database files
type Writer struct {
	db           *sql.DB
	outputPath   string
	moleculeStmt *sql.Stmt
	stateStmt    *sql.Stmt
	moleculeID   int
	stateID      int
	closed       bool
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		moleculeID: 1,
		stateID:    1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS MoleculeTable (
		MoleculeId INTEGER PRIMARY KEY,
		Name TEXT,
		Formula TEXT,
		Source TEXT,
		Charge INTEGER,
		BeamWidth INTEGER,
		Domain TEXT,
		MonoisotopicMass DOUBLE,
		AverageMass DOUBLE,
		LightestMass DOUBLE,
		HeaviestMass DOUBLE,
		StateCount INTEGER,
		TotalProbability DOUBLE,
		blobMass BLOB,
		blobProbability BLOB
	);

	CREATE TABLE IF NOT EXISTS StateTable (
		StateId INTEGER PRIMARY KEY,
		MoleculeId INTEGER REFERENCES MoleculeTable(MoleculeId),
		Rank INTEGER,
		Mass DOUBLE,
		Probability DOUBLE
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS MaintenanceTable (
		CreationDate TEXT,
		NoofMoleculesModified INTEGER,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.moleculeStmt, err = w.db.Prepare(`
		INSERT INTO MoleculeTable (
			MoleculeId, Name, Formula, Source, Charge, BeamWidth, Domain,
			MonoisotopicMass, AverageMass, LightestMass, HeaviestMass,
			StateCount, TotalProbability, blobMass, blobProbability
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare molecule statement: %w", err)
	}

	w.stateStmt, err = w.db.Prepare(`
		INSERT INTO StateTable (StateId, MoleculeId, Rank, Mass, Probability)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare state statement: %w", err)
	}

	return nil
}

// WriteDistribution writes a single distribution to the database. States
// are stored in the order given; Rank is the position in that order. The
// molecule row and its states are written in one transaction, so a failed
// write leaves nothing behind.
func (w *Writer) WriteDistribution(d *core.Distribution) error {
	if w.closed {
		return fmt.Errorf("writer for %s is closed", w.outputPath)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Encode states as binary blobs (little-endian float64)
	massBlob := encodeStatesFloat64(d.States, true)
	probBlob := encodeStatesFloat64(d.States, false)

	_, err = tx.Stmt(w.moleculeStmt).Exec(
		w.moleculeID,         // MoleculeId
		d.Name,               // Name
		d.Formula,            // Formula
		d.Source,             // Source
		d.Charge,             // Charge
		d.BeamWidth,          // BeamWidth
		d.Domain,             // Domain
		d.MonoisotopicMass,   // MonoisotopicMass
		d.AverageMass,        // AverageMass
		d.LightestMass,       // LightestMass
		d.HeaviestMass,       // HeaviestMass
		len(d.States),        // StateCount
		d.TotalProbability(), // TotalProbability
		massBlob,             // blobMass
		probBlob,             // blobProbability
	)
	if err != nil {
		return fmt.Errorf("failed to insert molecule: %w", err)
	}

	stateStmt := tx.Stmt(w.stateStmt)
	stateID := w.stateID
	for rank, s := range d.States {
		if _, err := stateStmt.Exec(stateID, w.moleculeID, rank+1, s.Mass, s.Probability); err != nil {
			return fmt.Errorf("failed to insert state %d of %s: %w", rank+1, d.Label(), err)
		}
		stateID++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", d.Label(), err)
	}
	w.stateID = stateID
	w.moleculeID++
	return nil
}

// Count returns the number of distributions written so far
func (w *Writer) Count() int {
	return w.moleculeID - 1
}

// encodeStatesFloat64 encodes state data as little-endian float64 blob
func encodeStatesFloat64(states []core.State, useMass bool) []byte {
	buf := make([]byte, len(states)*8)
	for i, s := range states {
		var value float64
		if useMass {
			value = s.Mass
		} else {
			value = s.Probability
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// DecodeFloat64s decodes a little-endian float64 blob written by the writer
func DecodeFloat64s(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return values, nil
}

// Finalize writes the header and maintenance tables and closes the database.
// Calling it again is a no-op.
func (w *Writer) Finalize() error {
	if w.closed {
		return nil
	}
	w.closed = true

	now := time.Now()

	// Write HeaderTable
	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, now.Format(headerDateFormat), now.Format(headerDateFormat), "isotopic mass distributions")
	if err != nil {
		w.db.Close()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	// Write MaintenanceTable
	_, err = w.db.Exec(`
		INSERT INTO MaintenanceTable (CreationDate, NoofMoleculesModified, Description)
		VALUES (?, ?, ?)
	`, now.Format(maintenanceDateFormat), w.Count(), "")
	if err != nil {
		w.db.Close()
		return fmt.Errorf("failed to insert maintenance: %w", err)
	}

	// Close prepared statements
	if w.moleculeStmt != nil {
		w.moleculeStmt.Close()
	}
	if w.stateStmt != nil {
		w.stateStmt.Close()
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
