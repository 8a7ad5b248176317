// Package batch provides a streaming reader for molecule batch files.
//
// One molecule per line, comma or tab separated:
//
//	# comment
//	Name,Formula,Charge
//	water,H2O
//	insulin,C254H378N65O75S6
//	angiotensin,peptide:DRVYIHPFHL,2
//	C6H12O6
//
// A single field is a formula that also serves as the name. A formula field
// prefixed with "peptide:" is an amino-acid sequence. The optional third
// field is a charge state. A header line starting with "Name" is skipped.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

const peptidePrefix = "peptide:"

// Entry is one molecule of a batch file
type Entry struct {
	Name     string
	Molecule core.Molecule
	Peptide  string // amino-acid sequence when given as a peptide
	Charge   int
	Line     int
}

// Reader provides streaming access to batch files
type Reader struct {
	scanner  *bufio.Scanner
	resolver core.SymbolResolver
	lineNum  int
	current  *Entry
	err      error
}

// NewReader creates a new batch reader. Formulas are resolved against resolver.
func NewReader(r io.Reader, resolver core.SymbolResolver) *Reader {
	return &Reader{
		scanner:  bufio.NewScanner(r),
		resolver: resolver,
	}
}

// Next advances to the next entry. Returns false when no more entries or error.
func (r *Reader) Next() bool {
	r.current = nil

	entry, err := r.readEntry()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = entry
	return true
}

// Entry returns the current entry
func (r *Reader) Entry() *Entry {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readEntry reads the next non-blank, non-comment line
func (r *Reader) readEntry() (*Entry, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitFields(line)

		// Skip header line
		if r.lineNum == 1 && strings.EqualFold(fields[0], "name") {
			continue
		}

		entry, err := r.parseFields(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		entry.Line = r.lineNum
		return entry, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

func splitFields(line string) []string {
	sep := ","
	if !strings.Contains(line, ",") && strings.Contains(line, "\t") {
		sep = "\t"
	}
	fields := strings.Split(line, sep)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func (r *Reader) parseFields(fields []string) (*Entry, error) {
	if len(fields) > 3 {
		return nil, fmt.Errorf("expected at most 3 fields (Name,Formula,Charge), got %d", len(fields))
	}

	entry := &Entry{}
	formula := fields[0]
	if len(fields) >= 2 {
		entry.Name = fields[0]
		formula = fields[1]
	}
	if len(fields) == 3 && fields[2] != "" {
		charge, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("invalid charge '%s': %w", fields[2], err)
		}
		if charge < 0 {
			return nil, fmt.Errorf("%w: charge must be non-negative, got %d", core.ErrInvalidInput, charge)
		}
		entry.Charge = charge
	}

	var err error
	if seq, ok := strings.CutPrefix(formula, peptidePrefix); ok {
		entry.Peptide = strings.TrimSpace(seq)
		entry.Molecule, err = core.PeptideMolecule(entry.Peptide)
	} else {
		entry.Molecule, err = core.ParseFormula(formula, r.resolver)
	}
	if err != nil {
		return nil, err
	}

	if entry.Name == "" {
		if entry.Peptide != "" {
			entry.Name = entry.Peptide
		} else {
			entry.Name = entry.Molecule.Name()
		}
	}

	return entry, nil
}
