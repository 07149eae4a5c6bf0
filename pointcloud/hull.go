package pointcloud

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"github.com/pkg/errors"
)

// ErrNoGroundPoints is returned when a tile has no ground classified point to build a hull from.
var ErrNoGroundPoints = errors.New("no ground classified points in tile")

// hullSimplifyThreshold drops duplicate and collinear hull vertices only.
const hullSimplifyThreshold = 1e-9

// BoundedConvexHull returns the closed convex hull of the ground points, counter-clockwise
// from the lowest, then leftmost, vertex. Points within snapEpsilon of the target bounds are
// moved exactly onto them first so the hull and the raster agree on the valid interpolation
// region.
func (ps *PointSet) BoundedConvexHull(target orb.Bound, snapEpsilon float64) (orb.Ring, error) {
	ground := make([]orb.Point, 0, ps.Size())
	for _, p := range ps.points {
		if p.IsGround() {
			ground = append(ground, snapToBound(orb.Point{p.Pos.X, p.Pos.Y}, target, snapEpsilon))
		}
	}
	if len(ground) == 0 {
		return nil, ErrNoGroundPoints
	}

	hull := grahamScan(ground)
	hull = append(hull, hull[0])

	ring, ok := simplify.DouglasPeucker(hullSimplifyThreshold).Simplify(hull).(orb.Ring)
	if !ok || len(ring) == 0 {
		ring = hull
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// grahamScan returns the open counter-clockwise hull of pts starting at the lowest, then
// leftmost, point. On collinearity the farther point wins.
func grahamScan(pts []orb.Point) orb.Ring {
	pivotIdx := 0
	for i, p := range pts {
		q := pts[pivotIdx]
		if p[1] < q[1] || (p[1] == q[1] && p[0] < q[0]) {
			pivotIdx = i
		}
	}
	pivot := pts[pivotIdx]

	rest := make([]orb.Point, 0, len(pts)-1)
	for _, p := range pts {
		if p != pivot {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		c := cross(pivot, rest[i], rest[j])
		if c != 0 {
			return c > 0
		}
		return dist2(pivot, rest[i]) < dist2(pivot, rest[j])
	})

	stack := orb.Ring{pivot}
	for _, p := range rest {
		for len(stack) > 1 && cross(stack[len(stack)-2], stack[len(stack)-1], p) <= 0 {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, p)
	}
	return stack
}

// cross is the z component of (a - o) x (b - o); positive when o, a, b turn left.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func dist2(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

func snapToBound(p orb.Point, b orb.Bound, eps float64) orb.Point {
	snap := func(v, edge float64) float64 {
		if math.Abs(v-edge) <= eps {
			return edge
		}
		return v
	}
	p[0] = snap(snap(p[0], b.Min[0]), b.Max[0])
	p[1] = snap(snap(p[1], b.Min[1]), b.Max[1])
	return p
}
