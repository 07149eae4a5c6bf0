package refine

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"

	"go.viam.com/terrain/contour"
	"go.viam.com/terrain/delaunay"
	"go.viam.com/terrain/raster"
)

// Reconstruct rebuilds a raster shaped like like from the vertices of set, each taking its
// contour's level as elevation, by natural neighbour interpolation. Cells unset in like, outside
// clip (when given) or outside the hull of the vertices stay unset.
func Reconstruct(set contour.Set, like *raster.Grid, clip orb.Polygon) (*raster.Grid, error) {
	pts := make([]r2.Point, 0, set.Vertices())
	vals := make([]float64, 0, cap(pts))
	set.Each(func(c contour.Contour) {
		for _, p := range c.Points {
			pts = append(pts, p)
			vals = append(vals, c.Level)
		}
	})
	tri, err := delaunay.Triangulate(pts, vals)
	if err != nil {
		return nil, errors.Wrap(err, "cannot triangulate contour vertices")
	}

	out := raster.New(like.Size(), like.TopLeft(), like.CellSize())
	q := tri.NewQuerier()
	n := like.Size()
	// raster order keeps consecutive queries close, which the querier's walk relies on
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if math.IsNaN(like.At(r, c)) {
				continue
			}
			p := out.IndexToCoord(r, c)
			if len(clip) > 0 && !planar.PolygonContains(clip, orb.Point{p.X, p.Y}) {
				continue
			}
			if v, ok := q.NaturalNeighbor(p); ok {
				out.Set(r, c, v)
			}
		}
	}
	return out, nil
}
