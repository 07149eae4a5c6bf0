package contour

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/terrain/raster"
)

// Cell edges. Corners are numbered 0 bottom-left, 1 bottom-right, 2 top-right, 3 top-left and
// bit i of a cell case is set iff corner i is at or above the level.
const (
	edgeBottom = iota
	edgeRight
	edgeTop
	edgeLeft
)

// segment runs from one crossed edge to another with higher ground on its right.
type segment struct{ from, to int }

var segmentTable = [16][]segment{
	1:  {{edgeLeft, edgeBottom}},
	2:  {{edgeBottom, edgeRight}},
	3:  {{edgeLeft, edgeRight}},
	4:  {{edgeRight, edgeTop}},
	6:  {{edgeBottom, edgeTop}},
	7:  {{edgeLeft, edgeTop}},
	8:  {{edgeTop, edgeLeft}},
	9:  {{edgeTop, edgeBottom}},
	11: {{edgeTop, edgeRight}},
	12: {{edgeRight, edgeLeft}},
	13: {{edgeRight, edgeBottom}},
	14: {{edgeBottom, edgeLeft}},
}

// saddle segments, indexed by whether the high corners are joined through the cell
var saddleTable = map[int][2][]segment{
	5: {
		{{edgeLeft, edgeBottom}, {edgeRight, edgeTop}},
		{{edgeRight, edgeBottom}, {edgeLeft, edgeTop}},
	},
	10: {
		{{edgeBottom, edgeRight}, {edgeTop, edgeLeft}},
		{{edgeBottom, edgeLeft}, {edgeTop, edgeRight}},
	},
}

// TraceLevels traces every level of levels and collects the result into a fresh Set.
func TraceLevels(g *raster.Grid, levels []float64) Set {
	set := make(Set, len(levels))
	for _, level := range levels {
		if cs := Trace(g, level); len(cs) > 0 {
			set[level] = cs
		}
	}
	return set
}

// Trace returns the contours of g at level. Cells with an unset corner are skipped. Closed
// contours around hills run clockwise and around depressions counter-clockwise.
func Trace(g *raster.Grid, level float64) []Contour {
	t := newTracer(g, level)
	n := g.Size()
	for r := 0; r < n-1; r++ {
		for c := 0; c < n-1; c++ {
			t.cell(r, c)
		}
	}
	return t.contours()
}

type node struct {
	p    r2.Point
	next int
}

type chain struct {
	head, tail       int // node indices
	headKey, tailKey int // edge keys
	alive            bool
}

// tracer stitches cell segments into chains. Vertices live in one node arena as singly linked
// lists; heads and tails map an edge key to the id of the chain starting or ending there.
type tracer struct {
	g      *raster.Grid
	level  float64
	nodes  []node
	chains []chain
	heads  map[int]int
	tails  map[int]int
}

func newTracer(g *raster.Grid, level float64) *tracer {
	return &tracer{
		g:     g,
		level: level,
		heads: map[int]int{},
		tails: map[int]int{},
	}
}

func (t *tracer) cell(r, c int) {
	corners := [4]float64{
		t.g.At(r+1, c),
		t.g.At(r+1, c+1),
		t.g.At(r, c+1),
		t.g.At(r, c),
	}
	idx := 0
	for i, v := range corners {
		if math.IsNaN(v) {
			return
		}
		if v >= t.level {
			idx |= 1 << i
		}
	}

	segs := segmentTable[idx]
	if idx == 5 || idx == 10 {
		segs = saddleTable[idx][t.joinHigh(idx, corners)]
	}
	for _, s := range segs {
		t.add(t.edgeKey(r, c, s.from), t.crossing(r, c, s.from, corners),
			t.edgeKey(r, c, s.to), t.crossing(r, c, s.to, corners))
	}
}

// joinHigh returns 1 when the high corners of a saddle are connected through the cell, which
// happens when their mean lies farther from the level than the mean of the low corners.
func (t *tracer) joinHigh(idx int, corners [4]float64) int {
	var high, low float64
	if idx == 5 {
		high, low = corners[0]+corners[2], corners[1]+corners[3]
	} else {
		high, low = corners[1]+corners[3], corners[0]+corners[2]
	}
	if high/2-t.level > t.level-low/2 {
		return 1
	}
	return 0
}

// edgeKey identifies a cell edge so that the two cells sharing it agree. Horizontal edges are
// keyed by their left grid node and vertical edges by their top grid node.
func (t *tracer) edgeKey(r, c, edge int) int {
	n := t.g.Size()
	horizontal := func(r, c int) int { return 2 * (r*n + c) }
	vertical := func(r, c int) int { return 2*(r*n+c) + 1 }
	switch edge {
	case edgeBottom:
		return horizontal(r+1, c)
	case edgeRight:
		return vertical(r, c+1)
	case edgeTop:
		return horizontal(r, c)
	default:
		return vertical(r, c)
	}
}

// crossing interpolates the level along an edge. Horizontal edges are walked left to right and
// vertical edges top to bottom so neighbouring cells compute identical points.
func (t *tracer) crossing(r, c, edge int, corners [4]float64) r2.Point {
	cs := t.g.CellSize()
	var origin r2.Point
	var a, b float64
	var dir r2.Point
	switch edge {
	case edgeBottom:
		origin, a, b, dir = t.g.IndexToCoord(r+1, c), corners[0], corners[1], r2.Point{X: cs}
	case edgeRight:
		origin, a, b, dir = t.g.IndexToCoord(r, c+1), corners[2], corners[1], r2.Point{Y: -cs}
	case edgeTop:
		origin, a, b, dir = t.g.IndexToCoord(r, c), corners[3], corners[2], r2.Point{X: cs}
	default:
		origin, a, b, dir = t.g.IndexToCoord(r, c), corners[3], corners[0], r2.Point{Y: -cs}
	}
	frac := (t.level - a) / (b - a)
	return origin.Add(dir.Mul(frac))
}

func (t *tracer) newNode(p r2.Point) int {
	t.nodes = append(t.nodes, node{p: p, next: -1})
	return len(t.nodes) - 1
}

// add stitches the segment a→b onto the open chains.
func (t *tracer) add(keyA int, pa r2.Point, keyB int, pb r2.Point) {
	x, endsAtA := t.tails[keyA]
	y, startsAtB := t.heads[keyB]

	switch {
	case endsAtA && startsAtB && x == y:
		nb := t.newNode(pb)
		t.nodes[t.chains[x].tail].next = nb
		t.chains[x].tail = nb
		delete(t.tails, keyA)
		delete(t.heads, keyB)
	case endsAtA && startsAtB:
		cx, cy := &t.chains[x], &t.chains[y]
		t.nodes[cx.tail].next = cy.head
		cx.tail = cy.tail
		cx.tailKey = cy.tailKey
		cy.alive = false
		delete(t.tails, keyA)
		delete(t.heads, keyB)
		t.tails[cx.tailKey] = x
	case endsAtA:
		nb := t.newNode(pb)
		cx := &t.chains[x]
		t.nodes[cx.tail].next = nb
		cx.tail = nb
		cx.tailKey = keyB
		delete(t.tails, keyA)
		t.tails[keyB] = x
	case startsAtB:
		na := t.newNode(pa)
		cy := &t.chains[y]
		t.nodes[na].next = cy.head
		cy.head = na
		cy.headKey = keyA
		delete(t.heads, keyB)
		t.heads[keyA] = y
	default:
		na, nb := t.newNode(pa), t.newNode(pb)
		t.nodes[na].next = nb
		id := len(t.chains)
		t.chains = append(t.chains, chain{head: na, tail: nb, headKey: keyA, tailKey: keyB, alive: true})
		t.heads[keyA] = id
		t.tails[keyB] = id
	}
}

// contours walks the surviving chains in id order, dropping repeated vertices.
func (t *tracer) contours() []Contour {
	out := make([]Contour, 0, len(t.chains))
	for _, ch := range t.chains {
		if !ch.alive {
			continue
		}
		var pts []r2.Point
		for i := ch.head; i >= 0; i = t.nodes[i].next {
			p := t.nodes[i].p
			if len(pts) > 0 && pts[len(pts)-1] == p {
				continue
			}
			pts = append(pts, p)
		}
		if len(pts) < 2 {
			continue
		}
		out = append(out, Contour{Level: t.level, Points: pts})
	}
	return out
}
