package raster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestSmoothenZeroAngleIsIdentity(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	g := planeGrid(15, 1, func(p r2.Point) float64 { return rnd.NormFloat64() })
	g.Set(7, 7, math.NaN())
	before := g.Clone()

	for _, filterSize := range []int{0, 3, 4, 9} {
		g.Smoothen(0, filterSize, 3)
		g.Smoothen(-12, filterSize, 0)
	}
	for i := range g.data {
		if math.IsNaN(before.data[i]) {
			test.That(t, math.IsNaN(g.data[i]), test.ShouldBeTrue)
			continue
		}
		test.That(t, g.data[i], test.ShouldEqual, before.data[i])
	}
}

func TestSmoothenKeepsPlanes(t *testing.T) {
	plane := func(p r2.Point) float64 { return 0.3*p.X - 0.2*p.Y + 5 }
	g := planeGrid(21, 1, plane)
	g.Smoothen(20, 3, 2)

	// edge clamping distorts the outermost normals, which reach three cells in after two passes
	for r := 4; r < g.Size()-4; r++ {
		for c := 4; c < g.Size()-4; c++ {
			test.That(t, g.At(r, c), test.ShouldAlmostEqual, plane(g.IndexToCoord(r, c)), 1e-9)
		}
	}
}

func TestSmoothenReducesNoise(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	plane := func(p r2.Point) float64 { return 0.1*p.X + 0.05*p.Y }
	truth := planeGrid(40, 1, plane)
	noisy := planeGrid(40, 1, func(p r2.Point) float64 { return plane(p) + 0.05*rnd.NormFloat64() })

	before, err := noisy.MeanSquaredError(truth)
	test.That(t, err, test.ShouldBeNil)
	noisy.Smoothen(30, 5, 5)
	after, err := noisy.MeanSquaredError(truth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, after, test.ShouldBeLessThan, before)
}

func TestSmoothenPreservesBreaks(t *testing.T) {
	// a cliff between two flat benches
	step := func(p r2.Point) float64 {
		if p.X < 110 {
			return 0
		}
		return 20
	}
	g := planeGrid(21, 1, step)
	g.Smoothen(5, 3, 3)
	test.That(t, g.At(10, 2), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, g.At(10, 18), test.ShouldAlmostEqual, 20.0, 1e-9)
}

func TestSmoothenLeavesUnsetCells(t *testing.T) {
	g := planeGrid(9, 1, func(p r2.Point) float64 { return p.X })
	for c := 0; c < 9; c++ {
		g.Set(0, c, math.NaN())
	}
	g.Smoothen(45, 3, 2)
	for c := 0; c < 9; c++ {
		test.That(t, math.IsNaN(g.At(0, c)), test.ShouldBeTrue)
	}
	test.That(t, math.IsNaN(g.At(4, 4)), test.ShouldBeFalse)
}
