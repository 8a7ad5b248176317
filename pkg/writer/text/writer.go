// Package text writes distributions as plain-text reports.
package text

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ChrisMcGann/isodalton/pkg/core"
)

// DefaultPrecision is the number of decimals printed for masses and
// probabilities.
const DefaultPrecision = 6

// Writer prints one report block per distribution.
type Writer struct {
	w         *bufio.Writer
	precision int
	count     int
}

// NewWriter creates a report writer. A negative precision selects
// DefaultPrecision.
func NewWriter(w io.Writer, precision int) *Writer {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &Writer{w: bufio.NewWriter(w), precision: precision}
}

// WriteDistribution writes the header and state table of d. Relative
// intensities are percentages of the most probable state.
func (w *Writer) WriteDistribution(d *core.Distribution) error {
	if w.count > 0 {
		fmt.Fprintln(w.w)
	}
	w.count++

	axis := "Mass"
	if d.Charge > 0 {
		axis = "m/z"
	}

	fmt.Fprintf(w.w, "# %s (%s)\n", d.Label(), d.Formula)
	fmt.Fprintf(w.w, "# beam width %d, %s domain\n", d.BeamWidth, d.Domain)
	fmt.Fprintf(w.w, "# monoisotopic %s %s, average %s %s\n",
		lower(axis), w.float(d.MonoisotopicMass), lower(axis), w.float(d.AverageMass))
	fmt.Fprintf(w.w, "# span %s .. %s\n", w.float(d.LightestMass), w.float(d.HeaviestMass))
	fmt.Fprintf(w.w, "# states %d, total probability %s\n", len(d.States), w.float(d.TotalProbability()))
	fmt.Fprintf(w.w, "%s\tProbability\tRelative\n", axis)

	top, _ := d.MostProbable()
	for _, s := range d.States {
		relative := 0.0
		if top.Probability > 0 {
			relative = 100 * s.Probability / top.Probability
		}
		fmt.Fprintf(w.w, "%s\t%s\t%s\n", w.float(s.Mass), w.float(s.Probability), w.float(relative))
	}

	return w.w.Flush()
}

func (w *Writer) float(v float64) string {
	return fmt.Sprintf("%.*f", w.precision, v)
}

func lower(axis string) string {
	if axis == "Mass" {
		return "mass"
	}
	return axis
}
