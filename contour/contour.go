// Package contour extracts iso-elevation polylines from rasters and measures their smoothness.
package contour

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/samber/lo"
)

// Contour is an ordered polyline at a single level. It is closed iff its first vertex is
// repeated as its last. Walking along it, higher ground is on the right.
type Contour struct {
	Level  float64
	Points []r2.Point
}

// Closed reports whether the contour is a ring.
func (c Contour) Closed() bool {
	n := len(c.Points)
	return n > 2 && c.Points[0] == c.Points[n-1]
}

// LineString converts the contour to an orb line string.
func (c Contour) LineString() orb.LineString {
	ls := make(orb.LineString, len(c.Points))
	for i, p := range c.Points {
		ls[i] = orb.Point{p.X, p.Y}
	}
	return ls
}

// Length returns the planar length of the polyline.
func (c Contour) Length() float64 {
	return planar.Length(c.LineString())
}

// SignedArea is positive for counter-clockwise rings and negative for clockwise ones. It is 0
// for open contours.
func (c Contour) SignedArea() float64 {
	if !c.Closed() {
		return 0
	}
	var a float64
	for i := 0; i < len(c.Points)-1; i++ {
		p, q := c.Points[i], c.Points[i+1]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// Set maps a level to the contours traced at it.
type Set map[float64][]Contour

// Levels returns the levels present in the set in ascending order.
func (s Set) Levels() []float64 {
	levels := lo.Keys(s)
	sort.Float64s(levels)
	return levels
}

// Len returns the total number of contours.
func (s Set) Len() int {
	n := 0
	for _, cs := range s {
		n += len(cs)
	}
	return n
}

// Each calls fn for every contour, levels ascending and in trace order within a level.
func (s Set) Each(fn func(c Contour)) {
	for _, level := range s.Levels() {
		for _, c := range s[level] {
			fn(c)
		}
	}
}

// Vertices returns the number of vertices over all contours.
func (s Set) Vertices() int {
	n := 0
	s.Each(func(c Contour) { n += len(c.Points) })
	return n
}

// Levels returns every multiple of interval in [lo, hi].
func Levels(lo, hi, interval float64) []float64 {
	if !(interval > 0) || math.IsNaN(lo) || math.IsNaN(hi) || hi < lo {
		return nil
	}
	first := math.Ceil(lo / interval)
	last := math.Floor(hi / interval)
	levels := make([]float64, 0, int(last-first)+1)
	for k := first; k <= last; k++ {
		levels = append(levels, k*interval)
	}
	return levels
}

// Kind is the cartographic class of a contour level.
type Kind int

// Contour classes.
const (
	KindForm Kind = iota
	KindNormal
	KindIndex
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindNormal:
		return "normal"
	default:
		return "form"
	}
}

// Classify returns Index for multiples of indexEvery·interval, Normal for other multiples of
// interval and Form for everything in between.
func Classify(level, interval float64, indexEvery int) Kind {
	isMultiple := func(step float64) bool {
		if step <= 0 {
			return false
		}
		q := level / step
		return math.Abs(q-math.Round(q)) < 1e-6
	}
	if indexEvery > 0 && isMultiple(interval*float64(indexEvery)) {
		return KindIndex
	}
	if isMultiple(interval) {
		return KindNormal
	}
	return KindForm
}
