package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ChrisMcGann/isodalton/pkg/reader/nist"
)

// Built-in isotope table in NIST linearized ASCII format, covering the
// elements common in organic and biological molecules.
//
//go:embed data/isotopes.txt
var defaultTable string

// Default returns a normalized catalog built from the embedded NIST table.
func Default() (*Catalog, error) {
	c, err := LoadNIST(strings.NewReader(defaultTable))
	if err != nil {
		return nil, fmt.Errorf("embedded isotope table: %w", err)
	}
	return c, nil
}

// LoadNIST reads a NIST isotope table and returns a normalized catalog.
func LoadNIST(r io.Reader) (*Catalog, error) {
	elements, err := nist.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c, err := FromElements(elements)
	if err != nil {
		return nil, err
	}
	c.Normalize()
	return c, nil
}

// LoadNISTFile reads a NIST isotope table from a file. Published NIST
// tables carry no element names; elements without one take the name from
// the built-in table when atomic number and symbol agree.
func LoadNISTFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open isotope table: %w", err)
	}
	defer f.Close()

	c, err := LoadNIST(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if builtin, err := Default(); err == nil {
		c.borrowNames(builtin)
	}
	return c, nil
}
