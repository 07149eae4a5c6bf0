package contour

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

var square = Contour{Level: 10, Points: []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}}

func TestLevels(t *testing.T) {
	test.That(t, Levels(0.3, 10.1, 2.5), test.ShouldResemble, []float64{2.5, 5, 7.5, 10})
	test.That(t, Levels(-3, 3, 2.5), test.ShouldResemble, []float64{-2.5, 0, 2.5})
	test.That(t, Levels(5, 5, 5), test.ShouldResemble, []float64{5})
	test.That(t, Levels(1, 2, 5), test.ShouldBeEmpty)
	test.That(t, Levels(1, 2, 0), test.ShouldBeNil)
	test.That(t, Levels(3, 1, 1), test.ShouldBeNil)
}

func TestClassify(t *testing.T) {
	test.That(t, Classify(25, 5, 5), test.ShouldEqual, KindIndex)
	test.That(t, Classify(-50, 5, 5), test.ShouldEqual, KindIndex)
	test.That(t, Classify(10, 5, 5), test.ShouldEqual, KindNormal)
	test.That(t, Classify(7.5, 5, 5), test.ShouldEqual, KindForm)
	test.That(t, Classify(25, 5, 0), test.ShouldEqual, KindNormal)
	test.That(t, KindIndex.String(), test.ShouldEqual, "index")
}

func TestContourGeometry(t *testing.T) {
	test.That(t, square.Closed(), test.ShouldBeTrue)
	test.That(t, square.Length(), test.ShouldAlmostEqual, 4.0)
	test.That(t, square.SignedArea(), test.ShouldAlmostEqual, 1.0)

	open := Contour{Points: []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}}
	test.That(t, open.Closed(), test.ShouldBeFalse)
	test.That(t, open.SignedArea(), test.ShouldEqual, 0.0)
	test.That(t, len(open.LineString()), test.ShouldEqual, 2)
}

func TestEnergy(t *testing.T) {
	// exponent 1 is total absolute turning: one full revolution for a convex ring
	test.That(t, square.Energy(1), test.ShouldAlmostEqual, 2*math.Pi)
	test.That(t, square.Energy(2), test.ShouldAlmostEqual, math.Pi*math.Pi)

	straight := Contour{Points: []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 5, Y: 5}}}
	test.That(t, straight.Energy(1), test.ShouldAlmostEqual, 0.0)

	zigzag := Contour{Points: []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}, {X: 3, Y: 1}}}
	test.That(t, zigzag.Energy(1), test.ShouldAlmostEqual, math.Pi)
	// sharp turns on short edges weigh more at higher exponents
	test.That(t, zigzag.Energy(2), test.ShouldBeGreaterThan, zigzag.Energy(1))

	set := Set{10: {square}, 20: {zigzag, straight}}
	test.That(t, set.Energy(1), test.ShouldAlmostEqual, 3*math.Pi)
	test.That(t, set.Levels(), test.ShouldResemble, []float64{10, 20})
	test.That(t, set.Len(), test.ShouldEqual, 3)
	test.That(t, Set{}.Energy(1), test.ShouldEqual, 0.0)
}
