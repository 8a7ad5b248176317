// Package heapsort provides an in-place heap sort keyed by one slice that
// carries any number of companion slices through the same permutation.
//
// The isotope engine keeps its states as parallel mass/probability slices,
// so sorting by one column must reorder the others identically. Heap sort
// gives O(n log n) worst case with O(1) extra space; the result is not stable.
package heapsort

import (
	"cmp"
	"fmt"
)

// Direction selects ascending or descending key order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Companion is a slice that is permuted alongside the key slice.
type Companion interface {
	Len() int
	Swap(i, j int)
}

// Slice adapts an ordinary slice into a Companion. The conversion shares the
// backing array, so swaps are visible through the original slice.
type Slice[T any] []T

func (s Slice[T]) Len() int      { return len(s) }
func (s Slice[T]) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Sort reorders keys so they are non-decreasing (Ascending) or non-increasing
// (Descending), applying every swap to each companion as well. Slices of
// length zero or one are left untouched. It panics if a companion's length
// differs from len(keys).
func Sort[K cmp.Ordered](keys []K, dir Direction, companions ...Companion) {
	n := len(keys)
	for i, c := range companions {
		if c.Len() != n {
			panic(fmt.Sprintf("heapsort: companion %d has length %d, keys have %d", i, c.Len(), n))
		}
	}
	if n < 2 {
		return
	}

	h := heap[K]{keys: keys, companions: companions, desc: dir == Descending}

	// Build heap with the element that sorts last at the root.
	for i := n/2 - 1; i >= 0; i-- {
		h.siftDown(i, n)
	}

	// Pop the root to the end of the shrinking heap.
	for end := n - 1; end > 0; end-- {
		h.swap(0, end)
		h.siftDown(0, end)
	}
}

type heap[K cmp.Ordered] struct {
	keys       []K
	companions []Companion
	desc       bool
}

// after reports whether keys[i] belongs after keys[j] in the final order.
func (h *heap[K]) after(i, j int) bool {
	if h.desc {
		return h.keys[i] < h.keys[j]
	}
	return h.keys[i] > h.keys[j]
}

func (h *heap[K]) swap(i, j int) {
	h.keys[i], h.keys[j] = h.keys[j], h.keys[i]
	for _, c := range h.companions {
		c.Swap(i, j)
	}
}

// siftDown restores the heap property on keys[root:hi).
func (h *heap[K]) siftDown(root, hi int) {
	for {
		child := 2*root + 1
		if child >= hi {
			return
		}
		if child+1 < hi && h.after(child+1, child) {
			child++
		}
		if !h.after(child, root) {
			return
		}
		h.swap(root, child)
		root = child
	}
}
