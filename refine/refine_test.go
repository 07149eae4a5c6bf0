package refine

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"go.viam.com/test"

	"go.viam.com/terrain/contour"
	"go.viam.com/terrain/logging"
	"go.viam.com/terrain/raster"
)

func ridge() *raster.Grid {
	g := raster.New(21, r2.Point{X: -10, Y: 10}, 1)
	g.Fill(func(p r2.Point) float64 {
		d := p.X - 0.3*p.Y
		return 6*math.Exp(-d*d/40) + 0.2*p.Y + 0.05
	})
	return g
}

func ridgeParams(lambda float64, iterations int) Params {
	lo, hi, _ := ridge().MinMax()
	return Params{
		Levels:        contour.Levels(lo, hi, 1),
		Lambda:        lambda,
		MaxIterations: iterations,
		HalfSize:      [2]int{1, 2},
		Amplitude:     [2]float64{0.05, 0.2},
	}
}

func TestZeroIterationsMatchesTrace(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	truth := ridge()
	params := ridgeParams(0.001, 0)

	res, err := Refine(truth, params, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Contours, test.ShouldResemble, contour.TraceLevels(truth, params.Levels))
	test.That(t, res.Iterations, test.ShouldEqual, 0)
	test.That(t, res.Error, test.ShouldEqual, 0.0)
	test.That(t, res.Energy, test.ShouldEqual, 0.0)
	test.That(t, res.Scores, test.ShouldBeEmpty)
	test.That(t, logs.FilterMessageSnippet("did not converge").Len(), test.ShouldEqual, 0)
}

func TestScoresSettle(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	truth := ridge()
	before := truth.Clone()

	res, err := Refine(truth, ridgeParams(0.001, 8), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Iterations, test.ShouldEqual, 8)
	test.That(t, res.Scores, test.ShouldHaveLength, 8)
	test.That(t, res.Converged, test.ShouldBeFalse)
	test.That(t, logs.FilterMessageSnippet("did not converge").Len(), test.ShouldEqual, 1)

	for i := 2; i < len(res.Scores); i++ {
		test.That(t, res.Scores[i], test.ShouldBeLessThanOrEqualTo, res.Scores[i-1]*1.05)
	}
	test.That(t, res.Scores[7], test.ShouldBeLessThan, res.Scores[0])
	last := res.Error + 0.001*res.Energy
	test.That(t, last, test.ShouldAlmostEqual, res.Scores[7])
	test.That(t, res.Contours.Len(), test.ShouldBeGreaterThan, 0)

	// the truth raster is read only
	mse, err := truth.MeanSquaredError(before)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mse, test.ShouldEqual, 0.0)
}

func TestErrorShrinksWithoutEnergy(t *testing.T) {
	res, err := Refine(ridge(), ridgeParams(0, 8), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Iterations, test.ShouldEqual, 8)
	test.That(t, res.Scores[7], test.ShouldBeLessThan, 0.6*res.Scores[0])
	test.That(t, res.Error, test.ShouldEqual, res.Scores[7])
}

func TestStopsOnThresholds(t *testing.T) {
	truth := ridge()
	params := ridgeParams(0.001, 8)
	params.MinScore = 1e6
	res, err := Refine(truth, params, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Iterations, test.ShouldEqual, 1)
	test.That(t, res.Converged, test.ShouldBeTrue)
	// no adjustment happens once the score is good enough
	test.That(t, res.Contours, test.ShouldResemble, contour.TraceLevels(truth, params.Levels))

	params = ridgeParams(0.001, 8)
	params.Convergence = 1e6
	res, err = Refine(truth, params, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Iterations, test.ShouldEqual, 2)
	test.That(t, res.Converged, test.ShouldBeTrue)
}

func TestFlatRasterStopsEarly(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	flat := raster.New(11, r2.Point{X: 0, Y: 10}, 1)
	flat.Fill(func(p r2.Point) float64 { return 4.2 })

	res, err := Refine(flat, Params{Levels: []float64{4, 5}, MaxIterations: 5}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Iterations, test.ShouldEqual, 0)
	test.That(t, res.Contours.Len(), test.ShouldEqual, 0)
	test.That(t, logs.FilterMessageSnippet("too few contour vertices").Len(), test.ShouldEqual, 1)
}

func TestReconstructClip(t *testing.T) {
	truth := ridge()
	lo, hi, _ := truth.MinMax()
	set := contour.TraceLevels(truth, contour.Levels(lo, hi, 1))

	full, err := Reconstruct(set, truth, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, full.At(10, 5), test.ShouldAlmostEqual, truth.At(10, 5), 0.1)
	test.That(t, full.At(3, 3), test.ShouldAlmostEqual, truth.At(3, 3), 0.2)

	west := orb.Polygon{orb.Ring{{-11, -11}, {0.5, -11}, {0.5, 11}, {-11, 11}, {-11, -11}}}
	clipped, err := Reconstruct(set, truth, west)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, clipped.At(10, 5), test.ShouldAlmostEqual, full.At(10, 5), 1e-9)
	test.That(t, math.IsNaN(clipped.At(10, 15)), test.ShouldBeTrue)
	test.That(t, math.IsNaN(full.At(10, 15)), test.ShouldBeFalse)

	_, err = Reconstruct(contour.Set{}, truth, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchedule(t *testing.T) {
	p := Params{MaxIterations: 5, HalfSize: [2]int{1, 5}, Amplitude: [2]float64{0.1, 0.9}}
	h, a := p.schedule(0)
	test.That(t, h, test.ShouldEqual, 5)
	test.That(t, a, test.ShouldAlmostEqual, 0.9)
	h, a = p.schedule(2)
	test.That(t, h, test.ShouldEqual, 3)
	test.That(t, a, test.ShouldAlmostEqual, 0.5)
	h, a = p.schedule(4)
	test.That(t, h, test.ShouldEqual, 1)
	test.That(t, a, test.ShouldAlmostEqual, 0.1)

	p.MaxIterations = 1
	h, a = p.schedule(0)
	test.That(t, h, test.ShouldEqual, 5)
	test.That(t, a, test.ShouldAlmostEqual, 0.9)
}

func TestResidualStats(t *testing.T) {
	truth := raster.New(2, r2.Point{X: 0, Y: 1}, 1)
	recon := raster.New(2, r2.Point{X: 0, Y: 1}, 1)
	for i, v := range []float64{1, 2, 3, 4} {
		truth.Set(i/2, i%2, v)
	}
	for i, v := range []float64{0, 3, 0} {
		recon.Set(i/2, i%2, v)
	}

	mean, std, p95 := residualStats(truth, recon)
	test.That(t, mean, test.ShouldAlmostEqual, 1.0)
	test.That(t, std, test.ShouldAlmostEqual, math.Sqrt(8.0/3))
	test.That(t, p95, test.ShouldAlmostEqual, 2.0)

	mean, std, p95 = residualStats(truth, raster.New(2, r2.Point{X: 0, Y: 1}, 1))
	test.That(t, math.IsNaN(mean), test.ShouldBeTrue)
	test.That(t, math.IsNaN(std), test.ShouldBeTrue)
	test.That(t, math.IsNaN(p95), test.ShouldBeTrue)
}
