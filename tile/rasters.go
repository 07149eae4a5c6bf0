// Package tile runs the terrain pipeline for one lidar tile: rasterise the ground points, then
// extract contours with the configured algorithm.
package tile

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"

	"go.viam.com/terrain/config"
	"go.viam.com/terrain/logging"
	"go.viam.com/terrain/pointcloud"
	"go.viam.com/terrain/raster"
	"go.viam.com/terrain/surface"
	"go.viam.com/terrain/utils"
)

// Rasters are the grids interpolated from a tile's points. Cells outside Hull are unset.
type Rasters struct {
	Elevation *raster.Grid
	// Slope is in degrees.
	Slope        *raster.Grid
	ReturnNumber *raster.Grid
	Intensity    *raster.Grid
	Hull         orb.Ring
}

// BuildRasters interpolates elevation, slope, return number and intensity grids covering bounds
// from the points of ps. The returned error wraps pointcloud.ErrNoGroundPoints when the tile has
// no ground.
func BuildRasters(
	ctx context.Context,
	ps *pointcloud.PointSet,
	bounds orb.Bound,
	cfg *config.Config,
	logger logging.Logger,
) (*Rasters, error) {
	hull, err := ps.BoundedConvexHull(bounds, cfg.HullSnapEpsilon)
	if err != nil {
		return nil, errors.Wrap(err, "cannot bound tile")
	}
	idx, err := pointcloud.NewIndex(ps)
	if err != nil {
		return nil, err
	}
	ip, err := surface.NewInterpolator(idx, cfg.Neighbors)
	if err != nil {
		return nil, err
	}

	elev := raster.NewForBounds(bounds, cfg.CellSize)
	out := &Rasters{
		Elevation:    elev,
		Slope:        elev.Clone(),
		ReturnNumber: elev.Clone(),
		Intensity:    elev.Clone(),
		Hull:         hull,
	}
	n := out.Elevation.Size()

	inside := make([]bool, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			p := out.Elevation.IndexToCoord(r, c)
			inside[r*n+c] = planar.RingContains(hull, orb.Point{p.X, p.Y})
		}
	}

	elevation := func(ctx context.Context) error {
		utils.ParallelForEachCell(n, n, func(r, c int) {
			if !inside[r*n+c] {
				return
			}
			z, grad := ip.At(pointcloud.FieldElevation, out.Elevation.IndexToCoord(r, c), cfg.RidgeSmoothing)
			out.Elevation.Set(r, c, z)
			out.Slope.Set(r, c, utils.RadToDeg(math.Atan(grad)))
		})
		return ctx.Err()
	}
	auxiliary := func(field pointcloud.Field, g *raster.Grid) utils.SimpleFunc {
		return func(ctx context.Context) error {
			utils.ParallelForEachCell(n, n, func(r, c int) {
				if !inside[r*n+c] {
					return
				}
				v, _ := ip.At(field, g.IndexToCoord(r, c), cfg.RidgeSmoothing)
				g.Set(r, c, v)
			})
			return ctx.Err()
		}
	}

	elapsed, err := utils.RunInParallel(ctx, []utils.SimpleFunc{
		elevation,
		auxiliary(pointcloud.FieldReturnNumber, out.ReturnNumber),
		auxiliary(pointcloud.FieldIntensity, out.Intensity),
	})
	if err != nil {
		return nil, errors.Wrap(err, "interpolating rasters")
	}
	logger.Debugw("built rasters", "size", n, "cell_size", cfg.CellSize, "points", ps.Size(),
		"hull_vertices", len(hull), "elapsed", elapsed)
	return out, nil
}
