package delaunay

import (
	"math"

	"github.com/golang/geo/r2"
)

// Querier evaluates natural neighbour interpolation over a Triangulation. It keeps scratch
// state between calls, so each goroutine needs its own; the triangulation itself is shared.
type Querier struct {
	t     *Triangulation
	hint  int
	stamp []uint32
	gen   uint32
	cav   []int
	eps   float64
}

// NewQuerier returns a Querier over t.
func (t *Triangulation) NewQuerier() *Querier {
	return &Querier{
		t:     t,
		hint:  t.last,
		stamp: make([]uint32, len(t.tris)),
		eps:   1e-10 * t.scale * t.scale,
	}
}

func (q *Querier) visit(id int) bool {
	if q.stamp[id] == q.gen {
		return true
	}
	q.stamp[id] = q.gen
	return false
}

func (q *Querier) nextGen() {
	q.gen++
	if q.gen == 0 {
		for i := range q.stamp {
			q.stamp[i] = 0
		}
		q.gen = 1
	}
}

// NaturalNeighbor interpolates the vertex values at p using Sibson coordinates. ok is false
// when p lies outside the convex hull of the vertices.
func (q *Querier) NaturalNeighbor(p r2.Point) (float64, bool) {
	pt := Point(p)
	loc := q.t.locate(pt, q.hint)
	if loc < 0 {
		return math.NaN(), false
	}
	q.hint = loc
	if v := q.t.duplicateOf(pt, loc); v >= 0 {
		if v < superVertices {
			return math.NaN(), false
		}
		return q.t.values[v], true
	}
	if q.t.touchesSuper(&q.t.tris[loc]) {
		return math.NaN(), false
	}

	if v, ok := q.sibson(pt, loc); ok {
		return v, true
	}
	// p sits on a line through two natural neighbours; opposite nudges cancel to first order
	dx, dy := 1e-6*q.t.scale, 0.7e-6*q.t.scale
	v1, ok1 := q.sibson(Point{pt.X + dx, pt.Y + dy}, loc)
	v2, ok2 := q.sibson(Point{pt.X - dx, pt.Y - dy}, loc)
	switch {
	case ok1 && ok2:
		return (v1 + v2) / 2, true
	case ok1:
		return v1, true
	case ok2:
		return v2, true
	}
	return q.barycentric(pt, loc)
}

// sibson accumulates Watson's circumcentre areas over the cavity of p. The triangle start must
// contain p.
func (q *Querier) sibson(p Point, start int) (float64, bool) {
	q.nextGen()
	q.cav = q.t.cavity(p, start, q.visit, q.cav)

	var num, den float64
	for _, id := range q.cav {
		tri := &q.t.tris[id]
		if q.t.touchesSuper(tri) || math.IsInf(tri.r2, 1) {
			return math.NaN(), false
		}
		var g [3]Point
		for j := 0; j < 3; j++ {
			c, ok := circumcenter(p, q.t.points[tri.v[(j+1)%3]], q.t.points[tri.v[(j+2)%3]], q.eps)
			if !ok {
				return math.NaN(), false
			}
			g[j] = c
		}
		for j := 0; j < 3; j++ {
			w := g[(j+1)%3].sub(tri.cc).cross(g[(j+2)%3].sub(tri.cc))
			num += w * q.t.values[tri.v[j]]
			den += w
		}
	}
	if den == 0 || math.IsNaN(den) {
		return math.NaN(), false
	}
	return num / den, true
}

func (q *Querier) barycentric(p Point, id int) (float64, bool) {
	tri := &q.t.tris[id]
	a, b, c := q.t.points[tri.v[0]], q.t.points[tri.v[1]], q.t.points[tri.v[2]]
	area := orient(a, b, c)
	if area == 0 {
		return math.NaN(), false
	}
	wa := orient(b, c, p) / area
	wb := orient(c, a, p) / area
	wc := 1 - wa - wb
	return wa*q.t.values[tri.v[0]] + wb*q.t.values[tri.v[1]] + wc*q.t.values[tri.v[2]], true
}
