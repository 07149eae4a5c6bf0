package pointcloud

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ExtrapolateCorners adds a ghost ground point at each of the four tile corners whose
// elevation and intensity are inverse distance weighted from the k nearest points. idx must
// have been built from this set and not be stale. The index is stale afterwards.
func (ps *PointSet) ExtrapolateCorners(idx *Index, k int) error {
	if idx.Set() != ps {
		return errors.New("index was built from a different point set")
	}
	if idx.Stale() {
		return errors.New("index is stale")
	}
	if k < 1 {
		return errors.Errorf("need at least one neighbour for extrapolation, got %d", k)
	}

	b := ps.bounds
	corners := []r2.Point{
		{X: b.Min[0], Y: b.Min[1]},
		{X: b.Max[0], Y: b.Min[1]},
		{X: b.Max[0], Y: b.Max[1]},
		{X: b.Min[0], Y: b.Max[1]},
	}
	ghosts := make([]Point, 0, len(corners))
	for _, c := range corners {
		ghosts = append(ghosts, ps.inverseDistancePoint(c, idx.Nearest(c, k)))
	}
	for _, g := range ghosts {
		ps.AddGhost(g)
	}
	return nil
}

func (ps *PointSet) inverseDistancePoint(at r2.Point, neighbors []int) Point {
	var z, intensity, weights float64
	var returnNumber uint8 = 1
	for i, n := range neighbors {
		p := ps.points[n]
		if i == 0 {
			returnNumber = p.ReturnNumber
		}
		d := at.Sub(p.XY()).Norm()
		if d < 1e-12 {
			return Point{
				Pos:            NewVector(at.X, at.Y, p.Pos.Z),
				Classification: ClassGround,
				ReturnNumber:   p.ReturnNumber,
				Intensity:      p.Intensity,
			}
		}
		w := 1 / (d * d)
		z += w * p.Pos.Z
		intensity += w * float64(p.Intensity)
		weights += w
	}
	return Point{
		Pos:            NewVector(at.X, at.Y, z/weights),
		Classification: ClassGround,
		ReturnNumber:   returnNumber,
		Intensity:      uint16(math.Round(intensity / weights)),
	}
}
