// Package refine searches for a raster whose contours are both smooth and faithful to a true
// terrain raster.
package refine

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"go.viam.com/terrain/contour"
	"go.viam.com/terrain/delaunay"
	"go.viam.com/terrain/logging"
	"go.viam.com/terrain/raster"
	"go.viam.com/terrain/utils"
)

// Params control a refinement run.
type Params struct {
	Levels []float64
	// Lambda weighs contour energy against reconstruction error.
	Lambda        float64
	MaxIterations int
	MinScore      float64
	Convergence   float64
	// HalfSize and Amplitude are [min, max]; both cool from max at the first iteration to min
	// at the last.
	HalfSize  [2]int
	Amplitude [2]float64
	// Clip bounds the cells reconstructed each iteration. Empty means the whole raster.
	Clip orb.Polygon
}

// schedule returns the adjustment window and amplitude for iteration it.
func (p Params) schedule(it int) (int, float64) {
	frac := float64(it) / float64(utils.MaxInt(1, p.MaxIterations-1))
	frac = utils.Clamp(frac, 0, 1)
	halfSize := int(math.Round(utils.Lerp(float64(p.HalfSize[1]), float64(p.HalfSize[0]), frac)))
	amplitude := utils.Lerp(p.Amplitude[1], p.Amplitude[0], frac)
	return halfSize, amplitude
}

// Result is the outcome of Refine.
type Result struct {
	Contours contour.Set
	Adjusted *raster.Grid
	// Error and Energy are the terms of the last scored iteration.
	Error      float64
	Energy     float64
	Scores     []float64
	Iterations int
	Converged  bool
}

// Refine repeatedly traces an adjusted copy of truth, reconstructs a raster from the contour
// vertices and nudges the copy by the windowed reconstruction residual, scoring each round as
// error + λ·energy. truth is not modified.
func Refine(truth *raster.Grid, params Params, logger logging.Logger) (*Result, error) {
	adjusted := truth.Clone()
	res := &Result{Adjusted: adjusted}

	prev := math.NaN()
	for it := 0; it < params.MaxIterations; it++ {
		set := contour.TraceLevels(adjusted, params.Levels)
		recon, err := Reconstruct(set, truth, params.Clip)
		if errors.Is(err, delaunay.ErrTooFewPoints) {
			logger.Warnw("too few contour vertices to reconstruct, stopping", "iteration", it, "vertices", set.Vertices())
			break
		}
		if err != nil {
			return nil, err
		}

		mse, err := truth.MeanSquaredError(recon)
		if err != nil {
			return nil, err
		}
		energy := set.Energy(1)
		score := mse + params.Lambda*energy

		res.Error, res.Energy = mse, energy
		res.Scores = append(res.Scores, score)
		res.Iterations = it + 1

		mean, std, p95 := residualStats(truth, recon)
		logger.Debugw("refinement iteration",
			"iteration", it, "score", score, "error", mse, "energy", energy,
			"residual_mean", mean, "residual_std", std, "residual_p95", p95, "contours", set.Len())

		if score <= params.MinScore || math.Abs(score-prev) <= params.Convergence {
			res.Converged = true
			break
		}
		prev = score

		halfSize, amplitude := params.schedule(it)
		if err := adjusted.Adjust(truth, recon, halfSize, amplitude); err != nil {
			return nil, err
		}
	}

	if params.MaxIterations > 0 && !res.Converged {
		logger.Warnw("refinement did not converge", "iterations", res.Iterations, "error", res.Error, "energy", res.Energy)
	}
	res.Contours = contour.TraceLevels(adjusted, params.Levels)
	return res, nil
}

// residualStats returns the mean and standard deviation of truth − recon and the 95th percentile
// of its magnitude, over cells set in both. All three are NaN when nothing overlaps.
func residualStats(truth, recon *raster.Grid) (float64, float64, float64) {
	nan := math.NaN()
	diff, err := truth.Difference(recon)
	if err != nil {
		return nan, nan, nan
	}
	var residuals, magnitudes stats.Float64Data
	n := diff.Size()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if v := diff.At(r, c); !math.IsNaN(v) {
				residuals = append(residuals, v)
				magnitudes = append(magnitudes, math.Abs(v))
			}
		}
	}
	mean, err := stats.Mean(residuals)
	if err != nil {
		return nan, nan, nan
	}
	std, err := stats.StandardDeviation(residuals)
	if err != nil {
		return nan, nan, nan
	}
	p95, err := stats.Percentile(magnitudes, 95)
	if err != nil {
		return mean, std, nan
	}
	return mean, std, p95
}
