// Package nist provides a streaming reader for the NIST "Atomic Weights and
// Isotopic Compositions" linearized ASCII format.
//
// Each isotope is one record of "Key = Value" lines starting with
// "Atomic Number". Consecutive records with the same atomic number are
// assembled into one element; an atomic number may not reappear later:
//
//	Atomic Number = 1
//	Atomic Symbol = H
//	Mass Number = 1
//	Relative Atomic Mass = 1.00782503207(10)
//	Isotopic Composition = 0.999885(70)
//	Standard Atomic Weight = 1.00794(7)
//	Notes = g,m,r,c,w
//
// Uncertainties in parentheses are dropped. Isotopic compositions are
// fractions; an empty composition means zero natural abundance. An optional
// "Element Name" key supplies the element's display name.
package nist

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

// Reader provides streaming access to NIST isotope tables
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
	held    *string // line read ahead of the current record
	pending *record // first record of the next element
	current *core.Element
	seen    map[int]int // atomic number -> line of its first record
	err     error
}

// record is a single isotope entry
type record struct {
	line         int
	atomicNumber int
	symbol       string
	name         string
	massNumber   int
	atomicMass   float64
	composition  float64
	weight       float64
}

// NewReader creates a new NIST reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
		seen:    make(map[int]int),
	}
}

// ReadAll reads every element from r.
func ReadAll(r io.Reader) ([]*core.Element, error) {
	reader := NewReader(r)
	var elements []*core.Element
	for reader.Next() {
		elements = append(elements, reader.Element())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return elements, nil
}

// Next advances to the next element. Returns false when no more elements or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	rec := r.pending
	r.pending = nil
	if rec == nil {
		var err error
		rec, err = r.readRecord()
		if err != nil {
			if err != io.EOF {
				r.err = err
			}
			return false
		}
	}

	if line, dup := r.seen[rec.atomicNumber]; dup {
		r.err = fmt.Errorf("line %d: atomic number %d repeats the element starting at line %d", rec.line, rec.atomicNumber, line)
		return false
	}
	r.seen[rec.atomicNumber] = rec.line

	element := &core.Element{
		AtomicNumber: rec.atomicNumber,
		Symbol:       rec.symbol,
		Name:         rec.name,
		AverageMass:  rec.weight,
	}
	element.Isotopes = append(element.Isotopes, rec.isotope())

	for {
		next, err := r.readRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.err = err
			return false
		}
		if next.atomicNumber != element.AtomicNumber {
			r.pending = next
			break
		}

		// Hydrogen isotopes carry their own symbols (D, T); keep the first
		if element.Symbol == "" {
			element.Symbol = next.symbol
		}
		if element.Name == "" {
			element.Name = next.name
		}
		if element.AverageMass == 0 {
			element.AverageMass = next.weight
		}
		if _, dup := element.Isotope(next.massNumber); dup {
			r.err = fmt.Errorf("line %d: duplicate mass number %d for atomic number %d", next.line, next.massNumber, next.atomicNumber)
			return false
		}
		element.Isotopes = append(element.Isotopes, next.isotope())
	}

	if element.Symbol == "" {
		r.err = fmt.Errorf("line %d: atomic number %d has no symbol", rec.line, rec.atomicNumber)
		return false
	}
	if element.Name == "" {
		element.Name = element.Symbol
	}

	r.current = element
	return true
}

// Element returns the current element
func (r *Reader) Element() *core.Element {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (rec *record) isotope() core.Isotope {
	return core.Isotope{
		MassNumber: rec.massNumber,
		AtomicMass: rec.atomicMass,
		Abundance:  rec.composition,
	}
}

func (r *Reader) nextLine() (string, bool) {
	if r.held != nil {
		line := *r.held
		r.held = nil
		return line, true
	}
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNum++
	return strings.TrimSpace(r.scanner.Text()), true
}

// readRecord reads a single isotope record
func (r *Reader) readRecord() (*record, error) {
	var rec *record

	for {
		line, ok := r.nextLine()
		if !ok {
			break
		}

		// Blank lines separate records
		if line == "" {
			if rec != nil {
				return rec, r.check(rec)
			}
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: expected 'Key = Value', got %q", r.lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "Atomic Number" && rec != nil {
			r.held = &line
			return rec, r.check(rec)
		}
		if rec == nil {
			if key != "Atomic Number" {
				return nil, fmt.Errorf("line %d: record must start with 'Atomic Number', got %q", r.lineNum, key)
			}
			rec = &record{line: r.lineNum}
		}

		if err := rec.set(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// If we have a partially read record, return it
	if rec != nil {
		return rec, r.check(rec)
	}

	return nil, io.EOF
}

func (r *Reader) check(rec *record) error {
	switch {
	case rec.atomicNumber <= 0:
		return fmt.Errorf("line %d: atomic number must be positive", rec.line)
	case rec.massNumber <= 0:
		return fmt.Errorf("line %d: atomic number %d: mass number must be positive", rec.line, rec.atomicNumber)
	case rec.atomicMass <= 0:
		return fmt.Errorf("line %d: atomic number %d mass number %d: relative atomic mass must be positive", rec.line, rec.atomicNumber, rec.massNumber)
	case rec.composition < 0 || rec.composition > 1:
		return fmt.Errorf("line %d: atomic number %d mass number %d: isotopic composition %g outside [0,1]", rec.line, rec.atomicNumber, rec.massNumber, rec.composition)
	}
	return nil
}

// set stores one "Key = Value" field
func (rec *record) set(key, value string) error {
	var err error

	switch key {
	case "Atomic Number":
		rec.atomicNumber, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid atomic number '%s': %w", value, err)
		}

	case "Atomic Symbol":
		rec.symbol = value

	case "Element Name":
		rec.name = value

	case "Mass Number":
		rec.massNumber, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid mass number '%s': %w", value, err)
		}

	case "Relative Atomic Mass":
		rec.atomicMass, err = parseMeasured(value)
		if err != nil {
			return fmt.Errorf("invalid relative atomic mass '%s': %w", value, err)
		}

	case "Isotopic Composition":
		if value == "" {
			return nil
		}
		rec.composition, err = parseMeasured(value)
		if err != nil {
			return fmt.Errorf("invalid isotopic composition '%s': %w", value, err)
		}

	case "Standard Atomic Weight":
		rec.weight, err = parseWeight(value)
		if err != nil {
			return fmt.Errorf("invalid standard atomic weight '%s': %w", value, err)
		}
	}

	// Notes and unknown keys are ignored
	return nil
}

// parseMeasured parses a value with an optional uncertainty, e.g. "1.00782503207(10)"
func parseMeasured(value string) (float64, error) {
	if idx := strings.Index(value, "("); idx >= 0 {
		value = value[:idx]
	}
	value = strings.TrimSuffix(strings.TrimSpace(value), "#")
	return strconv.ParseFloat(value, 64)
}

// parseWeight parses standard atomic weights: "1.00794(7)", "[98]" for the
// mass number of the most stable isotope, or "[1.00784,1.00811]" for an
// interval, whose midpoint is used. An empty value yields zero.
func parseWeight(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		inner := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
		if lo, hi, ok := strings.Cut(inner, ","); ok {
			low, err := parseMeasured(lo)
			if err != nil {
				return 0, err
			}
			high, err := parseMeasured(hi)
			if err != nil {
				return 0, err
			}
			return (low + high) / 2, nil
		}
		return parseMeasured(inner)
	}
	return parseMeasured(value)
}
