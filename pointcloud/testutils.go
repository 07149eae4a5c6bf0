package pointcloud

import (
	"math"

	"github.com/paulmach/orb"
)

// NewTestPointSet samples f on a regular lattice of ground points spaced step apart covering
// bounds, edges included.
func NewTestPointSet(bounds orb.Bound, step float64, f func(x, y float64) float64) *PointSet {
	cols := int(math.Round((bounds.Max[0]-bounds.Min[0])/step)) + 1
	rows := int(math.Round((bounds.Max[1]-bounds.Min[1])/step)) + 1
	ps := NewPointSet(bounds, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := math.Min(bounds.Min[0]+float64(c)*step, bounds.Max[0])
			y := math.Min(bounds.Min[1]+float64(r)*step, bounds.Max[1])
			if err := ps.Add(Point{
				Pos:            NewVector(x, y, f(x, y)),
				Classification: ClassGround,
				ReturnNumber:   1,
				Intensity:      uint16(100 + (r+c)%7),
			}); err != nil {
				panic(err)
			}
		}
	}
	return ps
}
