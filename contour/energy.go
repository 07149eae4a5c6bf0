package contour

import (
	"math"

	"github.com/golang/geo/r2"
)

// Energy is a discrete bending energy: for every interior vertex, ℓ·|κ|^exponent where κ = θ/ℓ,
// θ is the turning angle and ℓ the mean length of the two adjacent edges. With exponent 1 it is
// the total absolute turning. Every vertex of a closed contour is interior.
func (c Contour) Energy(exponent float64) float64 {
	pts := c.Points
	closed := c.Closed()
	if closed {
		pts = pts[:len(pts)-1]
	}
	n := len(pts)
	if n < 3 {
		return 0
	}

	var energy float64
	turn := func(prev, cur, next r2.Point) {
		e1, e2 := cur.Sub(prev), next.Sub(cur)
		l1, l2 := e1.Norm(), e2.Norm()
		ell := (l1 + l2) / 2
		if l1 == 0 || l2 == 0 {
			return
		}
		theta := math.Atan2(e1.Cross(e2), e1.Dot(e2))
		kappa := math.Abs(theta) / ell
		energy += ell * math.Pow(kappa, exponent)
	}
	for i := 1; i < n-1; i++ {
		turn(pts[i-1], pts[i], pts[i+1])
	}
	if closed {
		turn(pts[n-2], pts[n-1], pts[0])
		turn(pts[n-1], pts[0], pts[1])
	}
	return energy
}

// Energy sums the energy of every contour in the set.
func (s Set) Energy(exponent float64) float64 {
	var energy float64
	for _, level := range s.Levels() {
		for _, c := range s[level] {
			energy += c.Energy(exponent)
		}
	}
	return energy
}
