// Package interval provides the shared half-open time interval used by
// both detector timelines and the alignment engine.
package interval

import "math"

// Interval is a half-open time range [Start, End) in seconds.
type Interval struct {
	Start float64
	End   float64
}

// New returns the interval [start, end).
func New(start, end float64) Interval {
	return Interval{Start: start, End: end}
}

// Duration returns End - Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// IsZero reports whether the interval has zero length.
func (iv Interval) IsZero() bool {
	return iv.End == iv.Start
}

// Contains reports whether instant t lies inside iv.
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t < iv.End
}

// Overlap returns the length of the intersection of a and b.
// Disjoint intervals, or intervals touching at a single point, overlap by 0.
func Overlap(a, b Interval) float64 {
	lo := math.Max(a.Start, b.Start)
	hi := math.Min(a.End, b.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Clip returns the part of iv that lies inside bounds. The second return
// value is false when the intersection is empty.
func Clip(iv, bounds Interval) (Interval, bool) {
	lo := math.Max(iv.Start, bounds.Start)
	hi := math.Min(iv.End, bounds.End)
	if hi <= lo {
		return Interval{}, false
	}
	return Interval{Start: lo, End: hi}, true
}

// Less orders intervals by start time, ties broken by end ascending.
func Less(a, b Interval) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}
