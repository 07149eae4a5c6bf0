package pointcloud

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// ASPRS classification codes the engine cares about.
const (
	ClassGround uint8 = 2
	ClassWater  uint8 = 9
)

// Point is a single lidar return in tile-local coordinates. Points are immutable once built.
type Point struct {
	Pos            r3.Vector
	Classification uint8
	ReturnNumber   uint8
	Intensity      uint16
}

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// XY returns the planimetric position of the point.
func (p Point) XY() r2.Point {
	return r2.Point{X: p.Pos.X, Y: p.Pos.Y}
}

// IsGround reports whether the point is classified as ground.
func (p Point) IsGround() bool {
	return p.Classification == ClassGround
}

// Value returns the scalar the given field selects.
func (p Point) Value(f Field) float64 {
	switch f {
	case FieldElevation:
		return p.Pos.Z
	case FieldReturnNumber:
		return float64(p.ReturnNumber)
	case FieldIntensity:
		return float64(p.Intensity)
	}
	panic(fmt.Sprintf("unknown field %d", f))
}

// Field selects which scalar of a point is interpolated.
type Field int

// The interpolatable fields.
const (
	FieldElevation Field = iota
	FieldReturnNumber
	FieldIntensity
)

func (f Field) String() string {
	switch f {
	case FieldElevation:
		return "elevation"
	case FieldReturnNumber:
		return "return_number"
	case FieldIntensity:
		return "intensity"
	}
	return fmt.Sprintf("field(%d)", int(f))
}
