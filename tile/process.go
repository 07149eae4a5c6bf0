package tile

import (
	"context"
	"time"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"go.viam.com/terrain/config"
	"go.viam.com/terrain/logging"
	"go.viam.com/terrain/pointcloud"
)

// ghostNeighbors is how many points are blended into each corner ghost.
const ghostNeighbors = 8

// Input is everything needed to process one tile.
type Input struct {
	Name   string
	Points *pointcloud.PointSet
	Bounds orb.Bound
	// Clip is optional.
	Clip   orb.Polygon
	Config *config.Config
}

// Process rasterises the tile and traces its contours.
func Process(ctx context.Context, in Input, logger logging.Logger) (*Result, error) {
	start := time.Now()
	rasters, err := BuildRasters(ctx, in.Points, in.Bounds, in.Config, logger)
	if err != nil {
		return nil, err
	}
	res, err := Contours(rasters, in.Clip, in.Config, logger)
	if err != nil {
		return nil, err
	}
	logger.Infow("processed tile", "tile", in.Name, "points", in.Points.Size(),
		"contours", res.Contours.Len(), "elapsed", time.Since(start))
	return res, nil
}

// LoadLAS reads a LAS tile, keeping ground and water, and adds corner ghosts so the hull covers
// the whole tile. It returns the input in tile-local coordinates and the offset that was removed.
func LoadLAS(fn string, cfg *config.Config, logger logging.Logger) (Input, r2.Point, error) {
	ps, offset, err := pointcloud.NewFromLASFile(fn, pointcloud.LASOptions{}, logger)
	if err != nil {
		return Input{}, r2.Point{}, err
	}
	idx, err := pointcloud.NewIndex(ps)
	if err != nil {
		return Input{}, r2.Point{}, errors.Wrapf(err, "indexing %q", fn)
	}
	if err := ps.ExtrapolateCorners(idx, ghostNeighbors); err != nil {
		return Input{}, r2.Point{}, err
	}
	return Input{Name: fn, Points: ps, Bounds: ps.Bounds(), Config: cfg}, offset, nil
}
