package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ElementCount is one element of a molecule and how many atoms of it there are.
type ElementCount struct {
	AtomicNumber int
	Symbol       string
	Count        int
}

// Molecule is an ordered elemental composition.
type Molecule struct {
	Formula  string // formula as given by the user
	Elements []ElementCount
}

// SymbolResolver maps element symbols to atomic numbers.
type SymbolResolver interface {
	AtomicNumber(symbol string) (int, bool)
}

// ParseFormula parses formulas such as "C 254 H 378 N 65 O 75 S 6" or
// "C2H5OH". A symbol is an uppercase letter followed by lowercase letters;
// a missing count means one atom. Repeated symbols are summed into the
// first occurrence so each element appears once, in order of appearance.
func ParseFormula(formula string, resolver SymbolResolver) (Molecule, error) {
	mol := Molecule{Formula: strings.TrimSpace(formula)}
	index := make(map[int]int)

	runes := []rune(formula)
	i := 0
	skipSpace := func() {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
	}

	skipSpace()
	for i < len(runes) {
		if !unicode.IsUpper(runes[i]) {
			return Molecule{}, fmt.Errorf("%w: formula %q: unexpected %q at position %d", ErrInvalidInput, formula, runes[i], i)
		}
		start := i
		i++
		for i < len(runes) && unicode.IsLower(runes[i]) {
			i++
		}
		symbol := string(runes[start:i])

		skipSpace()
		digits := i
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			i++
		}
		count := 1
		if i > digits {
			n, err := strconv.Atoi(string(runes[digits:i]))
			if err != nil {
				return Molecule{}, fmt.Errorf("%w: formula %q: count for %s: %v", ErrInvalidInput, formula, symbol, err)
			}
			count = n
		}
		if count < 1 {
			return Molecule{}, fmt.Errorf("%w: formula %q: %s count must be at least 1", ErrInvalidInput, formula, symbol)
		}

		z, ok := resolver.AtomicNumber(symbol)
		if !ok {
			return Molecule{}, fmt.Errorf("%w: formula %q: %w %q", ErrInvalidInput, formula, ErrUnknownElement, symbol)
		}
		if pos, seen := index[z]; seen {
			mol.Elements[pos].Count += count
		} else {
			index[z] = len(mol.Elements)
			mol.Elements = append(mol.Elements, ElementCount{AtomicNumber: z, Symbol: symbol, Count: count})
		}
		skipSpace()
	}

	if len(mol.Elements) == 0 {
		return Molecule{}, fmt.Errorf("%w: empty formula", ErrInvalidInput)
	}
	return mol, nil
}

// AtomCount returns the total number of atoms.
func (m Molecule) AtomCount() int {
	total := 0
	for _, ec := range m.Elements {
		total += ec.Count
	}
	return total
}

// String returns the compact composition in element order, e.g. "H2O".
func (m Molecule) String() string {
	var b strings.Builder
	for _, ec := range m.Elements {
		b.WriteString(ec.Symbol)
		if ec.Count != 1 {
			b.WriteString(strconv.Itoa(ec.Count))
		}
	}
	return b.String()
}

// Name returns the formula as given, falling back to the compact composition.
func (m Molecule) Name() string {
	if m.Formula != "" {
		return m.Formula
	}
	return m.String()
}
