package tile

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/terrain/config"
	"go.viam.com/terrain/contour"
	"go.viam.com/terrain/logging"
	"go.viam.com/terrain/pointcloud"
	"go.viam.com/terrain/raster"
)

var square = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}

func quadratic(x, y float64) float64 {
	return 20 + 0.5*x - y + 0.1*x*x + 0.2*y*y - 0.3*x*y
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RidgeSmoothing = 1e-9
	return &cfg
}

// ramp returns rasters whose elevation is x + 0.5 over a side+1 square grid.
func ramp(side int) *Rasters {
	g := raster.New(side+1, r2.Point{X: 0, Y: float64(side)}, 1)
	g.Fill(func(p r2.Point) float64 { return p.X + 0.5 })
	return &Rasters{Elevation: g}
}

func TestBuildRasters(t *testing.T) {
	ps := pointcloud.NewTestPointSet(square, 1, quadratic)
	rasters, err := BuildRasters(context.Background(), ps, square, testConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rasters.Elevation.Size(), test.ShouldEqual, 11)
	test.That(t, rasters.Hull.Bound(), test.ShouldResemble, square)

	for r := 0; r < 11; r++ {
		for c := 0; c < 11; c++ {
			p := rasters.Elevation.IndexToCoord(r, c)
			test.That(t, rasters.Elevation.At(r, c), test.ShouldAlmostEqual, quadratic(p.X, p.Y), 1e-5)
			test.That(t, rasters.ReturnNumber.At(r, c), test.ShouldEqual, 1.0)
			test.That(t, math.IsNaN(rasters.Intensity.At(r, c)), test.ShouldBeFalse)
		}
	}

	// (4, 6) sits at row 4, col 4
	dzdx := 0.5 + 0.2*4 - 0.3*6
	dzdy := -1 + 0.4*6 - 0.3*4
	want := math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
	test.That(t, rasters.Slope.At(4, 4), test.ShouldAlmostEqual, want, 1e-3)
}

func TestBuildRastersMasksOutsideHull(t *testing.T) {
	ps := pointcloud.NewPointSet(square, 0)
	for x := 0; x <= 10; x++ {
		for y := 0; x+y <= 10; y++ {
			test.That(t, ps.Add(pointcloud.Point{
				Pos:            pointcloud.NewVector(float64(x), float64(y), quadratic(float64(x), float64(y))),
				Classification: pointcloud.ClassGround,
				ReturnNumber:   1,
			}), test.ShouldBeNil)
		}
	}

	rasters, err := BuildRasters(context.Background(), ps, square, testConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	for r := 0; r < 11; r++ {
		for c := 0; c < 11; c++ {
			p := rasters.Elevation.IndexToCoord(r, c)
			switch {
			case p.X+p.Y <= 9:
				test.That(t, math.IsNaN(rasters.Elevation.At(r, c)), test.ShouldBeFalse)
				test.That(t, math.IsNaN(rasters.Slope.At(r, c)), test.ShouldBeFalse)
			case p.X+p.Y >= 11:
				test.That(t, math.IsNaN(rasters.Elevation.At(r, c)), test.ShouldBeTrue)
				test.That(t, math.IsNaN(rasters.Intensity.At(r, c)), test.ShouldBeTrue)
			}
		}
	}
}

func TestBuildRastersErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	water := pointcloud.NewPointSet(square, 0)
	test.That(t, water.Add(pointcloud.Point{
		Pos:            pointcloud.NewVector(5, 5, 1),
		Classification: pointcloud.ClassWater,
	}), test.ShouldBeNil)
	_, err := BuildRasters(context.Background(), water, square, testConfig(), logger)
	test.That(t, errors.Is(err, pointcloud.ErrNoGroundPoints), test.ShouldBeTrue)

	cfg := testConfig()
	cfg.Neighbors = 3
	_, err = BuildRasters(context.Background(), pointcloud.NewTestPointSet(square, 1, quadratic), square, cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestContoursRaw(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithm = config.AlgorithmRaw
	cfg.IndexContourEvery = 2

	res, err := Contours(ramp(20), nil, cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Contours.Levels(), test.ShouldResemble, []float64{5, 10, 15, 20})
	for _, level := range res.Contours.Levels() {
		test.That(t, res.Contours[level], test.ShouldHaveLength, 1)
		for _, p := range res.Contours[level][0].Points {
			test.That(t, p.X, test.ShouldAlmostEqual, level-0.5, 1e-9)
		}
	}
	test.That(t, res.Kinds[5], test.ShouldEqual, contour.KindNormal)
	test.That(t, res.Kinds[10], test.ShouldEqual, contour.KindIndex)
	test.That(t, res.Iterations, test.ShouldEqual, 0)
	test.That(t, res.Scores, test.ShouldBeEmpty)
}

func TestContoursFormLines(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithm = config.AlgorithmRaw
	cfg.FormLines = true

	res, err := Contours(ramp(10), nil, cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Contours.Levels(), test.ShouldResemble, []float64{2.5, 5, 7.5, 10})
	test.That(t, res.Kinds[2.5], test.ShouldEqual, contour.KindForm)
	test.That(t, res.Kinds[5], test.ShouldEqual, contour.KindNormal)
}

func TestContoursSmoothingKeepsPlanes(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithm = config.AlgorithmNormalFieldSmoothing
	cfg.MaxNormalDiffDegrees = 20
	cfg.FilterSize = 3
	cfg.SmoothingIterations = 2

	rasters := ramp(20)
	before := rasters.Elevation.Clone()
	res, err := Contours(rasters, nil, cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Contours[10], test.ShouldHaveLength, 1)
	for _, p := range res.Contours[10][0].Points {
		if p.Y >= 4 && p.Y <= 16 {
			test.That(t, p.X, test.ShouldAlmostEqual, 9.5, 1e-6)
		}
	}

	// smoothing works on a copy
	mse, err := rasters.Elevation.MeanSquaredError(before)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mse, test.ShouldEqual, 0.0)
}

func TestContoursRefinementConvergesOnPlane(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithm = config.AlgorithmNaiveIterativeRefinement

	rasters := ramp(20)
	res, err := Contours(rasters, nil, cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Iterations, test.ShouldEqual, 1)
	test.That(t, res.Scores, test.ShouldHaveLength, 1)
	test.That(t, res.Error, test.ShouldBeLessThan, 1e-12)
	test.That(t, res.Energy, test.ShouldAlmostEqual, 0.0, 1e-12)

	cfg.Algorithm = config.AlgorithmRaw
	raw, err := Contours(rasters, nil, cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Contours, test.ShouldResemble, raw.Contours)
}

func TestContoursEdgeCases(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testConfig()

	empty := &Rasters{Elevation: raster.New(5, r2.Point{X: 0, Y: 4}, 1)}
	res, err := Contours(empty, nil, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Contours.Len(), test.ShouldEqual, 0)

	cfg.Algorithm = "bezier"
	_, err = Contours(ramp(10), nil, cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProcess(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	cfg := testConfig()
	cfg.ContourInterval = 1
	cfg.Algorithm = config.AlgorithmRaw

	res, err := Process(context.Background(), Input{
		Name:   "quadratic",
		Points: pointcloud.NewTestPointSet(square, 1, quadratic),
		Bounds: square,
		Config: cfg,
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Contours.Len(), test.ShouldBeGreaterThan, 0)
	test.That(t, logs.FilterMessageSnippet("processed tile").Len(), test.ShouldEqual, 1)
}

func TestLoadLAS(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ps := pointcloud.NewTestPointSet(square, 2, quadratic)
	n := ps.Size()
	fn := filepath.Join(t.TempDir(), "tile.las")
	test.That(t, pointcloud.WriteToLASFile(ps, r2.Point{X: 500000, Y: 6700000}, fn), test.ShouldBeNil)

	cfg := testConfig()
	in, offset, err := LoadLAS(fn, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, offset.X, test.ShouldAlmostEqual, 500005.0, 1e-3)
	test.That(t, in.Name, test.ShouldEqual, fn)
	test.That(t, in.Config, test.ShouldEqual, cfg)
	test.That(t, in.Points.Size(), test.ShouldEqual, n+4)
	test.That(t, in.Points.Ghosts(), test.ShouldEqual, 4)
	test.That(t, in.Bounds.Min[0], test.ShouldAlmostEqual, -5.0, 1e-3)
	test.That(t, in.Bounds.Max[1], test.ShouldAlmostEqual, 5.0, 1e-3)

	_, _, err = LoadLAS(filepath.Join(t.TempDir(), "missing.las"), cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
