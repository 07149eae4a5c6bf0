// Package config defines the settings that drive terrain rasterisation and contour extraction
// for a tile.
package config

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/terrain/raster"
)

// Algorithm selects how contours are derived from the elevation raster.
type Algorithm string

// The supported contour algorithms.
const (
	AlgorithmRaw                      Algorithm = "raw"
	AlgorithmNormalFieldSmoothing     Algorithm = "normal_field_smoothing"
	AlgorithmNaiveIterativeRefinement Algorithm = "naive_iterative_refinement"
)

// Algorithms lists every known Algorithm.
var Algorithms = []Algorithm{
	AlgorithmRaw,
	AlgorithmNormalFieldSmoothing,
	AlgorithmNaiveIterativeRefinement,
}

// Config is the complete set of parameters for processing one tile.
type Config struct {
	CellSize        float64   `json:"cell_size"`
	ContourInterval float64   `json:"contour_interval"`
	FormLines       bool      `json:"form_lines"`
	Algorithm       Algorithm `json:"algorithm"`

	// SmoothingIterations is used by normal field smoothing.
	SmoothingIterations  uint8   `json:"smoothing_iterations"`
	MaxNormalDiffDegrees float64 `json:"max_normal_diff_degrees"`
	FilterSize           int     `json:"filter_size"`

	RegularizationLambda float64 `json:"regularization_lambda"`
	// ConvergenceThresholds is [min score, minimum score change].
	ConvergenceThresholds [2]float64 `json:"convergence_thresholds"`
	RefinementIterations  int        `json:"refinement_iterations"`
	FilterHalfSize        [2]int     `json:"filter_half_size"`
	Amplitude             [2]float64 `json:"amplitude"`

	RidgeSmoothing    float64 `json:"ridge_smoothing"`
	Neighbors         int     `json:"neighbors"`
	HullSnapEpsilon   float64 `json:"hull_snap_epsilon"`
	IndexContourEvery int     `json:"index_contour_every"`
}

// Default returns the settings used for a 1 m raster with 5 m contours.
func Default() Config {
	return Config{
		CellSize:              1,
		ContourInterval:       5,
		Algorithm:             AlgorithmNormalFieldSmoothing,
		SmoothingIterations:   3,
		MaxNormalDiffDegrees:  15,
		FilterSize:            5,
		RegularizationLambda:  0.001,
		ConvergenceThresholds: [2]float64{1e-4, 1e-6},
		RefinementIterations:  10,
		FilterHalfSize:        [2]int{1, 3},
		Amplitude:             [2]float64{0.05, 0.5},
		RidgeSmoothing:        1e-3,
		Neighbors:             32,
		HullSnapEpsilon:       0.5,
		IndexContourEvery:     5,
	}
}

// EffectiveInterval is the spacing between traced levels. Form lines halve the contour interval.
func (c *Config) EffectiveInterval() float64 {
	if c.FormLines {
		return c.ContourInterval / 2
	}
	return c.ContourInterval
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.CellSize == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "cell_size")
	}
	if c.CellSize < 0 {
		return utils.NewConfigValidationError(path, errors.New("cell_size must be positive"))
	}
	if c.ContourInterval == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "contour_interval")
	}
	if c.ContourInterval < 0 {
		return utils.NewConfigValidationError(path, errors.New("contour_interval must be positive"))
	}
	if c.Algorithm == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "algorithm")
	}
	if !lo.Contains(Algorithms, c.Algorithm) {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown algorithm %q", c.Algorithm))
	}
	if c.RidgeSmoothing <= 0 {
		return utils.NewConfigValidationError(path, errors.New("ridge_smoothing must be positive"))
	}
	if c.Neighbors < 6 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("neighbors must be at least 6 for a quadratic fit, got %d", c.Neighbors))
	}
	if c.MaxNormalDiffDegrees < 0 || c.MaxNormalDiffDegrees > raster.MaxNormalDiffDegrees {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_normal_diff_degrees must be within [0, %d]", raster.MaxNormalDiffDegrees))
	}
	if c.RefinementIterations < 0 {
		return utils.NewConfigValidationError(path, errors.New("refinement_iterations cannot be negative"))
	}
	if c.FilterHalfSize[0] < 0 || c.FilterHalfSize[0] > c.FilterHalfSize[1] {
		return utils.NewConfigValidationError(path,
			errors.Errorf("filter_half_size must be [min, max] with 0 <= min <= max, got %v", c.FilterHalfSize))
	}
	if c.Amplitude[0] < 0 || c.Amplitude[0] > c.Amplitude[1] {
		return utils.NewConfigValidationError(path,
			errors.Errorf("amplitude must be [min, max] with 0 <= min <= max, got %v", c.Amplitude))
	}
	if c.HullSnapEpsilon < 0 {
		return utils.NewConfigValidationError(path, errors.New("hull_snap_epsilon cannot be negative"))
	}
	return nil
}
