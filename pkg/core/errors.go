package core

import "errors"

var (
	// ErrInvalidInput marks requests that cannot be computed as given:
	// unknown elements, elements without nonzero isotopes, empty molecules,
	// non-positive counts or beam widths, malformed formulas.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownElement is returned by catalog lookups for atomic numbers or
	// symbols that are not present.
	ErrUnknownElement = errors.New("unknown element")

	// ErrAllocation is returned when the working buffers for a computation
	// would exceed the configured ceiling. Retrying with a smaller beam
	// width is the expected recovery.
	ErrAllocation = errors.New("state buffer allocation exceeds limit")

	// ErrNumericDegeneracy reports a merged run whose combined probability
	// is NaN or negative. Valid catalogs never produce it.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)
