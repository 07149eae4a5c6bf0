// Package pointcloud holds the filtered lidar points of one tile, a nearest neighbour index
// over them and the bounded convex hull that limits where a raster may be interpolated.
package pointcloud

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// MetaData is data about what's stored in the point set.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	inited bool // just to prevent someone creating the wrong way
}

// NewMetaData creates a new MetaData.
func NewMetaData() MetaData {
	return MetaData{
		MinX:   math.MaxFloat64,
		MinY:   math.MaxFloat64,
		MinZ:   math.MaxFloat64,
		MaxX:   -math.MaxFloat64,
		MaxY:   -math.MaxFloat64,
		MaxZ:   -math.MaxFloat64,
		inited: true,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(p Point) {
	if !meta.inited {
		panic("MetaData not inited")
	}
	v := p.Pos
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// PointSet is a growable collection of points for one tile plus the tile bounds. Every point
// lies within the bounds unless it was added as a ghost.
type PointSet struct {
	points []Point
	bounds orb.Bound
	ghosts int
	meta   MetaData
}

// NewPointSet returns an empty set for a tile covering bounds.
func NewPointSet(bounds orb.Bound, capacity int) *PointSet {
	return &PointSet{
		points: make([]Point, 0, capacity),
		bounds: bounds,
		meta:   NewMetaData(),
	}
}

// Add appends a point that must lie inside the tile bounds.
func (ps *PointSet) Add(p Point) error {
	if !ps.bounds.Contains(orb.Point{p.Pos.X, p.Pos.Y}) {
		return errors.Errorf("point (%f, %f) is outside tile bounds %v", p.Pos.X, p.Pos.Y, ps.bounds)
	}
	ps.points = append(ps.points, p)
	ps.meta.Merge(p)
	return nil
}

// AddGhost appends a synthetic boundary point. It may lie anywhere near the bounds.
func (ps *PointSet) AddGhost(p Point) {
	ps.points = append(ps.points, p)
	ps.meta.Merge(p)
	ps.ghosts++
}

// Size returns the number of points, ghosts included.
func (ps *PointSet) Size() int {
	return len(ps.points)
}

// Ghosts returns how many ghost points were added.
func (ps *PointSet) Ghosts() int {
	return ps.ghosts
}

// At returns the i-th point.
func (ps *PointSet) At(i int) Point {
	return ps.points[i]
}

// Bounds returns the declared tile bounds.
func (ps *PointSet) Bounds() orb.Bound {
	return ps.bounds
}

// MetaData returns the extent of the stored points.
func (ps *PointSet) MetaData() MetaData {
	return ps.meta
}

// Iterate calls fn for every point until it returns false.
func (ps *PointSet) Iterate(fn func(i int, p Point) bool) {
	for i, p := range ps.points {
		if !fn(i, p) {
			return
		}
	}
}
