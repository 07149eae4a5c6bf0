// Package surface fits local quadratic surfaces to lidar points to estimate a field value and
// its gradient at arbitrary query locations.
package surface

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/terrain/pointcloud"
)

// DefaultNeighbors is how many nearest points feed one local fit.
const DefaultNeighbors = 32

// flatStdDev is the field standard deviation below which a neighbourhood is treated as flat.
const flatStdDev = 1e-9

// Interpolator evaluates a ridge regularised quadratic least squares fit around query points.
// It only reads the indexed point set and is safe for concurrent use.
type Interpolator struct {
	idx *pointcloud.Index
	k   int
}

// NewInterpolator returns an interpolator that fits k nearest neighbours from idx.
func NewInterpolator(idx *pointcloud.Index, k int) (*Interpolator, error) {
	if idx.Stale() {
		return nil, errors.New("point index is stale; rebuild it after adding points")
	}
	if k < 6 {
		return nil, errors.Errorf("a quadratic fit needs at least 6 neighbours, got %d", k)
	}
	return &Interpolator{idx: idx, k: k}, nil
}

// At gathers the nearest neighbours of query and interpolates field there.
func (ip *Interpolator) At(field pointcloud.Field, query r2.Point, ridge float64) (float64, float64) {
	return ip.Interpolate(field, ip.idx.Nearest(query, ip.k), query, ridge)
}

// Interpolate fits [1, x, y, x², y², xy] to field over neighbors and returns the fitted value
// and gradient magnitude at query. ridge must be positive.
func (ip *Interpolator) Interpolate(field pointcloud.Field, neighbors []int, query r2.Point, ridge float64) (float64, float64) {
	ps := ip.idx.Set()
	xs := make([]float64, len(neighbors))
	ys := make([]float64, len(neighbors))
	fs := make([]float64, len(neighbors))
	for i, n := range neighbors {
		p := ps.At(n)
		xs[i], ys[i], fs[i] = p.Pos.X, p.Pos.Y, p.Value(field)
	}
	return fitQuadratic(xs, ys, fs, query, ridge, solveBlockInverse)
}

type solver int

const (
	solveBlockInverse solver = iota
	solveCholesky
)

func fitQuadratic(xs, ys, fs []float64, query r2.Point, ridge float64, how solver) (float64, float64) {
	if len(fs) == 0 {
		return math.NaN(), 0
	}
	meanF, stdF := stat.MeanStdDev(fs, nil)
	if len(fs) == 1 || !(stdF >= flatStdDev) {
		return meanF, 0
	}
	meanX, stdX := stat.MeanStdDev(xs, nil)
	meanY, stdY := stat.MeanStdDev(ys, nil)
	if !(stdX > 0) {
		stdX = 1
	}
	if !(stdY > 0) {
		stdY = 1
	}

	var normal sym6
	var rhs [6]float64
	for i := range fs {
		basis := quadraticBasis((xs[i]-meanX)/stdX, (ys[i]-meanY)/stdY)
		f := (fs[i] - meanF) / stdF
		for r := 0; r < 6; r++ {
			rhs[r] += basis[r] * f
			for c := r; c < 6; c++ {
				normal[r*6+c] += basis[r] * basis[c]
			}
		}
	}
	for r := 0; r < 6; r++ {
		normal[r*6+r] += ridge
		for c := 0; c < r; c++ {
			normal[r*6+c] = normal[c*6+r]
		}
	}

	beta, ok := solveNormal(normal, rhs, how)
	if !ok {
		return meanF, 0
	}

	u, v := (query.X-meanX)/stdX, (query.Y-meanY)/stdY
	basis := quadraticBasis(u, v)
	var value float64
	for i := range beta {
		value += beta[i] * basis[i]
	}
	dvdu := beta[1] + 2*beta[3]*u + beta[5]*v
	dvdv := beta[2] + 2*beta[4]*v + beta[5]*u
	dzdx := dvdu * stdF / stdX
	dzdy := dvdv * stdF / stdY
	return meanF + value*stdF, math.Hypot(dzdx, dzdy)
}

func quadraticBasis(x, y float64) [6]float64 {
	return [6]float64{1, x, y, x * x, y * y, x * y}
}

// solveNormal solves normal·β = rhs. The block inverse is tried first unless the Cholesky path
// is requested; a singular block falls back to Cholesky.
func solveNormal(normal sym6, rhs [6]float64, how solver) ([6]float64, bool) {
	if how == solveBlockInverse {
		if inv, ok := invertSym6(normal); ok {
			return inv.mulVec6(rhs), true
		}
	}
	return solveNormalCholesky(normal, rhs)
}

func solveNormalCholesky(normal sym6, rhs [6]float64) ([6]float64, bool) {
	var beta [6]float64
	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(6, normal[:])); !ok {
		return beta, false
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(6, rhs[:])); err != nil {
		return beta, false
	}
	for i := range beta {
		beta[i] = x.AtVec(i)
	}
	return beta, true
}
