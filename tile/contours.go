package tile

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"go.viam.com/terrain/config"
	"go.viam.com/terrain/contour"
	"go.viam.com/terrain/logging"
	"go.viam.com/terrain/refine"
)

// Result is the contour output of one tile.
type Result struct {
	Contours contour.Set
	// Kinds classifies every traced level.
	Kinds map[float64]contour.Kind
	// Error, Energy, Scores and Iterations are only set by iterative refinement.
	Error      float64
	Energy     float64
	Scores     []float64
	Iterations int
}

// Contours traces the elevation raster with the configured algorithm. clip bounds the cells
// refinement reconstructs; an empty clip means the whole raster.
func Contours(rasters *Rasters, clip orb.Polygon, cfg *config.Config, logger logging.Logger) (*Result, error) {
	lo, hi, ok := rasters.Elevation.MinMax()
	if !ok {
		logger.Debug("elevation raster is empty, no contours")
		return &Result{Contours: contour.Set{}, Kinds: map[float64]contour.Kind{}}, nil
	}
	levels := contour.Levels(lo, hi, cfg.EffectiveInterval())

	res := &Result{}
	switch cfg.Algorithm {
	case config.AlgorithmRaw:
		res.Contours = contour.TraceLevels(rasters.Elevation, levels)
	case config.AlgorithmNormalFieldSmoothing:
		smoothed := rasters.Elevation.Clone()
		smoothed.Smoothen(cfg.MaxNormalDiffDegrees, cfg.FilterSize, int(cfg.SmoothingIterations))
		res.Contours = contour.TraceLevels(smoothed, levels)
	case config.AlgorithmNaiveIterativeRefinement:
		refined, err := refine.Refine(rasters.Elevation, refine.Params{
			Levels:        levels,
			Lambda:        cfg.RegularizationLambda,
			MaxIterations: cfg.RefinementIterations,
			MinScore:      cfg.ConvergenceThresholds[0],
			Convergence:   cfg.ConvergenceThresholds[1],
			HalfSize:      cfg.FilterHalfSize,
			Amplitude:     cfg.Amplitude,
			Clip:          clip,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "refining contours")
		}
		res.Contours = refined.Contours
		res.Error, res.Energy = refined.Error, refined.Energy
		res.Scores, res.Iterations = refined.Scores, refined.Iterations
	default:
		return nil, errors.Errorf("unknown algorithm %q", cfg.Algorithm)
	}

	res.Kinds = make(map[float64]contour.Kind, len(res.Contours))
	for _, level := range res.Contours.Levels() {
		res.Kinds[level] = contour.Classify(level, cfg.ContourInterval, cfg.IndexContourEvery)
	}
	logger.Debugw("traced contours", "algorithm", cfg.Algorithm, "levels", len(levels),
		"contours", res.Contours.Len(), "vertices", res.Contours.Vertices())
	return res, nil
}
