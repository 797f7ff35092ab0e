package object

import "fmt"

// Range is an inclusive numeric range: iteration enumerates integer
// offsets 0..|Max-Min| (both ends included) mapping to Min±offset depending on whether
// Min <= Max (ascending) or Min > Max (descending).
type Range struct {
	header
	Min, Max float64
}

var _ Obj = (*Range)(nil)

func NewRange(min, max float64) *Range {
	return &Range{header: header{typ: ObjTypeRange}, Min: min, Max: max}
}

func (r *Range) String() string { return fmt.Sprintf("%s..%s", formatNumber(r.Min), formatNumber(r.Max)) }

func (r *Range) Blacken(mark func(Value)) {}

// Len is the number of integer steps the range produces.
func (r *Range) Len() int {
	d := r.Max - r.Min
	if d < 0 {
		d = -d
	}
	return int(d) + 1
}

// Ascending reports the iteration direction.
func (r *Range) Ascending() bool { return r.Max >= r.Min }

// At returns the value at iteration offset i (0 <= i < Len()).
func (r *Range) At(i int) float64 {
	if r.Ascending() {
		return r.Min + float64(i)
	}
	return r.Min - float64(i)
}

// InBounds reports whether integer index i is a valid offset into the
// range, used by OP_RANGE_IN_BOUNDS without consuming the iterable.
func (r *Range) InBounds(i int) bool { return i >= 0 && i < r.Len() }

// Contains reports whether n falls within the range's min/max span
// (inclusive), used by MATCH when testing a Number against a Range pattern.
func (r *Range) Contains(n float64) bool {
	lo, hi := r.Min, r.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	return n >= lo && n <= hi
}
