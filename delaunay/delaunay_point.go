package delaunay

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point is a float64 2d point used in Delaunay triangulation.
type Point r2.Point

func (a Point) squaredDistance(b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

func (a Point) sub(b Point) Point {
	return Point{a.X - b.X, a.Y - b.Y}
}

func (a Point) cross(b Point) float64 {
	return a.X*b.Y - a.Y*b.X
}

// orient is twice the signed area of abc; positive when counter-clockwise.
func orient(a, b, c Point) float64 {
	return b.sub(a).cross(c.sub(a))
}

// circumcenter returns the centre of the circle through a, b and c. ok is false when the
// points are collinear to within eps.
func circumcenter(a, b, c Point, eps float64) (Point, bool) {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) <= eps || math.IsNaN(d) {
		return Point{}, false
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	return Point{
		X: a.X + (cy*b2-by*c2)/d,
		Y: a.Y + (bx*c2-cx*b2)/d,
	}, true
}
