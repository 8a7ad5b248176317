// Package core provides the domain types shared by the isotope engine, the
// catalog, and the readers and writers: isotopes, elements, molecules and
// computed mass distributions.
package core

import (
	"fmt"
	"strings"
)

// Proton mass for charge calculations
const ProtonMass = 1.00727646688

// Atomic numbers of the elements that make up amino acids
const (
	atomicH = 1
	atomicC = 6
	atomicN = 7
	atomicO = 8
	atomicS = 16
)

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S int
}

// AminoAcidCompositions maps amino acid one-letter codes to residue composition
var AminoAcidCompositions = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1, S: 0},
	'R': {C: 6, H: 12, N: 4, O: 1, S: 0},
	'N': {C: 4, H: 6, N: 2, O: 2, S: 0},
	'D': {C: 4, H: 5, N: 1, O: 3, S: 0},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3, S: 0},
	'Q': {C: 5, H: 8, N: 2, O: 2, S: 0},
	'G': {C: 2, H: 3, N: 1, O: 1, S: 0},
	'H': {C: 6, H: 7, N: 3, O: 1, S: 0},
	'I': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'L': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'K': {C: 6, H: 12, N: 2, O: 1, S: 0},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1, S: 0},
	'P': {C: 5, H: 7, N: 1, O: 1, S: 0},
	'S': {C: 3, H: 5, N: 1, O: 2, S: 0},
	'T': {C: 4, H: 7, N: 1, O: 2, S: 0},
	'W': {C: 11, H: 10, N: 2, O: 1, S: 0},
	'Y': {C: 9, H: 9, N: 1, O: 2, S: 0},
	'V': {C: 5, H: 9, N: 1, O: 1, S: 0},
}

// PeptideComposition sums the residue compositions of a sequence and adds
// one water for the termini.
func PeptideComposition(sequence string) (AminoAcidComposition, error) {
	comp := AminoAcidComposition{C: 0, H: 2, N: 0, O: 1, S: 0} // Add water

	if strings.TrimSpace(sequence) == "" {
		return comp, fmt.Errorf("%w: empty peptide sequence", ErrInvalidInput)
	}

	for i, aa := range strings.ToUpper(strings.TrimSpace(sequence)) {
		aaComp, ok := AminoAcidCompositions[aa]
		if !ok {
			return comp, fmt.Errorf("%w: unknown amino acid %q at position %d", ErrInvalidInput, aa, i+1)
		}
		comp.C += aaComp.C
		comp.H += aaComp.H
		comp.N += aaComp.N
		comp.O += aaComp.O
		comp.S += aaComp.S
	}

	return comp, nil
}

// PeptideMolecule returns the elemental composition of a peptide sequence.
// Elements are listed C, H, N, O, S; sulfur is omitted when absent.
func PeptideMolecule(sequence string) (Molecule, error) {
	comp, err := PeptideComposition(sequence)
	if err != nil {
		return Molecule{}, err
	}

	mol := Molecule{
		Elements: []ElementCount{
			{AtomicNumber: atomicC, Symbol: "C", Count: comp.C},
			{AtomicNumber: atomicH, Symbol: "H", Count: comp.H},
			{AtomicNumber: atomicN, Symbol: "N", Count: comp.N},
			{AtomicNumber: atomicO, Symbol: "O", Count: comp.O},
		},
	}
	if comp.S > 0 {
		mol.Elements = append(mol.Elements, ElementCount{AtomicNumber: atomicS, Symbol: "S", Count: comp.S})
	}
	mol.Formula = mol.String()

	return mol, nil
}

// MassToMZ converts a neutral mass to m/z for a positive charge state:
// (mass + charge * proton) / charge. A charge of zero returns the mass.
func MassToMZ(mass float64, charge int) float64 {
	if charge == 0 {
		return mass
	}
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}
