// Package delaunay builds Delaunay triangulations of scattered samples and interpolates them
// with Sibson natural neighbour coordinates.
package delaunay

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrTooFewPoints is returned when the input has fewer than three distinct points or no area.
var ErrTooFewPoints = errors.New("too few distinct points to triangulate")

// superVertices is the number of synthetic vertices of the enclosing triangle. They occupy the
// first indices of the vertex arrays.
const superVertices = 3

type triangle struct {
	v [3]int // counter-clockwise vertex indices
	n [3]int // n[i] is the triangle across the edge opposite v[i], or -1
	// cached circumcircle; r2 is +Inf for degenerate triangles
	cc    Point
	r2    float64
	alive bool
}

// Triangulation is an incremental Bowyer-Watson Delaunay triangulation with a value per vertex.
// It is immutable once built and can be shared by many Queriers.
type Triangulation struct {
	points []Point
	values []float64
	tris   []triangle
	free   []int
	last   int

	dupEps2   float64
	collinEps float64
	scale     float64
}

// Triangulate builds the Delaunay triangulation of points, tagging each with a value. Duplicate
// points are dropped, keeping the first.
func Triangulate(points []r2.Point, values []float64) (*Triangulation, error) {
	if len(points) != len(values) {
		return nil, errors.Errorf("got %d points but %d values", len(points), len(values))
	}
	if len(points) < 3 {
		return nil, errors.Wrapf(ErrTooFewPoints, "got %d", len(points))
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	deltaMax := math.Max(maxX-minX, maxY-minY)
	if deltaMax == 0 || math.IsNaN(deltaMax) || math.IsInf(deltaMax, 0) {
		return nil, errors.Wrap(ErrTooFewPoints, "points must span a non empty, finite area")
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	t := &Triangulation{
		points:    make([]Point, 0, len(points)+superVertices),
		values:    make([]float64, 0, len(points)+superVertices),
		tris:      make([]triangle, 0, 2*len(points)+1),
		dupEps2:   (1e-9 * deltaMax) * (1e-9 * deltaMax),
		collinEps: 1e-14 * deltaMax * deltaMax,
		scale:     deltaMax,
	}
	t.points = append(t.points,
		Point{midX - 20*deltaMax, midY - deltaMax},
		Point{midX + 20*deltaMax, midY - deltaMax},
		Point{midX, midY + 20*deltaMax},
	)
	t.values = append(t.values, math.NaN(), math.NaN(), math.NaN())
	t.newTriangle([3]int{0, 1, 2}, [3]int{-1, -1, -1})

	for i, p := range points {
		t.insert(Point(p), values[i])
	}
	if t.NumVertices() < 3 {
		return nil, errors.Wrapf(ErrTooFewPoints, "%d distinct", t.NumVertices())
	}
	return t, nil
}

// NumVertices returns the number of distinct input points kept.
func (t *Triangulation) NumVertices() int {
	return len(t.points) - superVertices
}

// Vertex returns the i-th kept input point and its value.
func (t *Triangulation) Vertex(i int) (r2.Point, float64) {
	return r2.Point(t.points[i+superVertices]), t.values[i+superVertices]
}

// Triangles returns the triangles that do not touch the enclosing triangle, as counter-clockwise
// indices into the kept vertices.
func (t *Triangulation) Triangles() [][3]int {
	var out [][3]int
	for _, tri := range t.tris {
		if !tri.alive || t.touchesSuper(&tri) {
			continue
		}
		out = append(out, [3]int{tri.v[0] - superVertices, tri.v[1] - superVertices, tri.v[2] - superVertices})
	}
	return out
}

func (t *Triangulation) touchesSuper(tri *triangle) bool {
	return tri.v[0] < superVertices || tri.v[1] < superVertices || tri.v[2] < superVertices
}

func (t *Triangulation) newTriangle(v, n [3]int) int {
	tri := triangle{v: v, n: n, alive: true}
	if cc, ok := circumcenter(t.points[v[0]], t.points[v[1]], t.points[v[2]], t.collinEps); ok {
		tri.cc = cc
		tri.r2 = cc.squaredDistance(t.points[v[0]])
	} else {
		tri.r2 = math.Inf(1)
	}
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.tris[id] = tri
		return id
	}
	t.tris = append(t.tris, tri)
	return len(t.tris) - 1
}

func (t *Triangulation) inCircle(p Point, id int) bool {
	tri := &t.tris[id]
	if math.IsInf(tri.r2, 1) {
		return true
	}
	return p.squaredDistance(tri.cc) < tri.r2
}

// locate walks from start towards p and returns a triangle containing it, or -1 when p lies
// outside the enclosing triangle. A triangle with a vertex coinciding with p also stops the
// walk, since orientation signs around that vertex are noise.
func (t *Triangulation) locate(p Point, start int) int {
	cur := start
	if cur < 0 || cur >= len(t.tris) || !t.tris[cur].alive {
		cur = t.anyAlive()
	}
	for steps := 0; steps < len(t.tris)+8; steps++ {
		if t.duplicateOf(p, cur) >= 0 {
			return cur
		}
		tri := &t.tris[cur]
		next := -1
		for i := 0; i < 3; i++ {
			a, b := t.points[tri.v[(i+1)%3]], t.points[tri.v[(i+2)%3]]
			if orient(a, b, p) < 0 {
				next = tri.n[i]
				if next < 0 {
					return -1
				}
				break
			}
		}
		if next < 0 {
			return cur
		}
		cur = next
	}
	// the walk cycled on a numerically ambiguous mesh
	return t.scan(p)
}

func (t *Triangulation) anyAlive() int {
	for i := len(t.tris) - 1; i >= 0; i-- {
		if t.tris[i].alive {
			return i
		}
	}
	return -1
}

func (t *Triangulation) scan(p Point) int {
	for id := range t.tris {
		tri := &t.tris[id]
		if !tri.alive {
			continue
		}
		if orient(t.points[tri.v[0]], t.points[tri.v[1]], p) >= 0 &&
			orient(t.points[tri.v[1]], t.points[tri.v[2]], p) >= 0 &&
			orient(t.points[tri.v[2]], t.points[tri.v[0]], p) >= 0 {
			return id
		}
	}
	return -1
}

// duplicateOf returns the vertex of triangle id that coincides with p, or -1.
func (t *Triangulation) duplicateOf(p Point, id int) int {
	for _, v := range t.tris[id].v {
		if t.points[v].squaredDistance(p) <= t.dupEps2 {
			return v
		}
	}
	return -1
}

// cavity collects the connected triangles whose circumcircle contains p, starting from the
// triangle that contains it. visit reports whether a triangle was seen already and marks it.
func (t *Triangulation) cavity(p Point, start int, visit func(id int) bool, out []int) []int {
	out = append(out[:0], start)
	visit(start)
	for i := 0; i < len(out); i++ {
		for _, nb := range t.tris[out[i]].n {
			if nb < 0 || visit(nb) {
				continue
			}
			if t.inCircle(p, nb) {
				out = append(out, nb)
			}
		}
	}
	return out
}

type boundaryEdge struct {
	a, b    int // vertices, counter-clockwise as seen from inside the cavity
	outer   int // triangle on the far side, or -1
	outerAt int // index of the edge in outer
}

func (t *Triangulation) insert(p Point, value float64) {
	start := t.locate(p, t.last)
	if start < 0 || t.duplicateOf(p, start) >= 0 {
		return
	}

	bad := map[int]bool{}
	cav := t.cavity(p, start, func(id int) bool {
		if _, seen := bad[id]; seen {
			return true
		}
		bad[id] = false
		return false
	}, nil)
	for _, id := range cav {
		bad[id] = true
	}

	// the cavity boundary is read before any slot is reused
	var edges []boundaryEdge
	for _, id := range cav {
		tri := &t.tris[id]
		for i := 0; i < 3; i++ {
			nb := tri.n[i]
			if nb >= 0 && bad[nb] {
				continue
			}
			e := boundaryEdge{a: tri.v[(i+1)%3], b: tri.v[(i+2)%3], outer: nb, outerAt: -1}
			if nb >= 0 {
				for j, back := range t.tris[nb].n {
					if back == id {
						e.outerAt = j
						break
					}
				}
			}
			edges = append(edges, e)
		}
	}
	for _, id := range cav {
		t.tris[id].alive = false
		t.free = append(t.free, id)
	}

	pi := len(t.points)
	t.points = append(t.points, p)
	t.values = append(t.values, value)

	startsAt := make(map[int]int, len(edges))
	endsAt := make(map[int]int, len(edges))
	created := make([]int, len(edges))
	for k, e := range edges {
		id := t.newTriangle([3]int{e.a, e.b, pi}, [3]int{-1, -1, e.outer})
		if e.outer >= 0 && e.outerAt >= 0 {
			t.tris[e.outer].n[e.outerAt] = id
		}
		startsAt[e.a] = id
		endsAt[e.b] = id
		created[k] = id
	}
	for k, e := range edges {
		id := created[k]
		// edge b→p is shared with the triangle starting at b, edge p→a with the one ending at a
		if nb, ok := startsAt[e.b]; ok {
			t.tris[id].n[0] = nb
		}
		if nb, ok := endsAt[e.a]; ok {
			t.tris[id].n[1] = nb
		}
	}
	if len(created) > 0 {
		t.last = created[0]
	}
}
