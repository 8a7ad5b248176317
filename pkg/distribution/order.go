package distribution

import (
	"github.com/ChrisMcGann/isodalton/pkg/core"
	"github.com/ChrisMcGann/isodalton/pkg/heapsort"
)

// Entry is one element of a molecule resolved against the catalog.
type Entry struct {
	Element *core.Element
	Count   int
}

// OrderElements returns the entries in processing order: ascending by the
// number of nonzero isotopes, then ascending by average mass. Elements with
// few isotopes go first so the state count stays small for as long as
// possible. The input slice is left unchanged.
func OrderElements(entries []Entry) []Entry {
	ordered := append([]Entry(nil), entries...)

	counts := make([]int, len(ordered))
	masses := make([]float64, len(ordered))
	for i := range ordered {
		counts[i] = len(ordered[i].Element.Profile())
	}

	heapsort.Sort(counts, heapsort.Ascending, heapsort.Slice[Entry](ordered))
	for i := range ordered {
		masses[i] = ordered[i].Element.AverageMass
	}

	// Secondary key within each run of equal isotope counts.
	for start := 0; start < len(ordered); {
		end := start + 1
		for end < len(ordered) && counts[end] == counts[start] {
			end++
		}
		heapsort.Sort(masses[start:end], heapsort.Ascending, heapsort.Slice[Entry](ordered[start:end]))
		start = end
	}

	return ordered
}
