package raster

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/terrain/utils"
)

// MaxNormalDiffDegrees is the largest accepted normal deviation threshold for Smoothen.
const MaxNormalDiffDegrees = 60

// neighbours8 are the (drow, dcol) offsets of the eight surrounding cells.
var neighbours8 = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

// Smoothen applies feature preserving smoothing (Lindsay et al. 2019). Surface normals are
// smoothed over a filterSize window, ignoring neighbours whose normal deviates by more than
// maxNormalDiffDegrees, and the elevations are then rebuilt from the smoothed normals over
// iterations passes. filterSize is forced odd and at least 3, iterations at least 1, and the
// angle is clamped to [0, 60].
func (g *Grid) Smoothen(maxNormalDiffDegrees float64, filterSize, iterations int) {
	maxNormalDiffDegrees = utils.Clamp(maxNormalDiffDegrees, 0, MaxNormalDiffDegrees)
	if filterSize < 3 {
		filterSize = 3
	}
	if filterSize%2 == 0 {
		filterSize++
	}
	if iterations < 1 {
		iterations = 1
	}
	if maxNormalDiffDegrees == 0 {
		// no neighbour can ever have a positive weight
		return
	}
	cosThreshold := math.Cos(utils.DegToRad(maxNormalDiffDegrees))

	normals := g.smoothNormals(g.sobelNormals(), filterSize/2, cosThreshold)

	n := g.size
	cs := g.cellSize
	next := make([]float64, len(g.data))
	for iter := 0; iter < iterations; iter++ {
		utils.ParallelForEachCell(n, n, func(r, c int) {
			i := r*n + c
			z := g.data[i]
			next[i] = z
			if math.IsNaN(z) {
				return
			}
			center := normals[i]
			var sumW, sumZ float64
			for _, off := range neighbours8 {
				rr, cc := r+off[0], c+off[1]
				if !g.InBounds(rr, cc) {
					continue
				}
				j := rr*n + cc
				zn := g.data[j]
				if math.IsNaN(zn) {
					continue
				}
				w := normalWeight(center, normals[j], cosThreshold)
				if w == 0 {
					continue
				}
				nn := normals[j]
				// plane through the neighbour with its smoothed normal, evaluated at the centre
				dx := -float64(off[1]) * cs
				dy := float64(off[0]) * cs
				sumZ += w * (zn - (nn.X*dx+nn.Y*dy)/nn.Z)
				sumW += w
			}
			if sumW > 0 {
				next[i] = sumZ / sumW
			}
		})
		g.data, next = next, g.data
	}
}

// normalWeight is max(0, cos θ − cos θmax)² for the angle θ between two unit normals.
func normalWeight(a, b r3.Vector, cosThreshold float64) float64 {
	cos := math.Min(a.Dot(b), 1)
	d := cos - cosThreshold
	if d <= 0 {
		return 0
	}
	return d * d
}

// sobelNormals returns the unit surface normal of every cell from a 3x3 Sobel stencil. Missing
// or unset neighbours take the centre value. Unset cells get a NaN normal.
func (g *Grid) sobelNormals() []r3.Vector {
	n := g.size
	normals := make([]r3.Vector, len(g.data))
	eightCs := 8 * g.cellSize
	utils.ParallelForEachCell(n, n, func(r, c int) {
		z := g.data[r*n+c]
		if math.IsNaN(z) {
			normals[r*n+c] = r3.Vector{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
			return
		}
		at := func(dr, dc int) float64 {
			rr, cc := utils.ClampInt(r+dr, 0, n-1), utils.ClampInt(c+dc, 0, n-1)
			v := g.data[rr*n+cc]
			if math.IsNaN(v) {
				return z
			}
			return v
		}
		nw, north, ne := at(-1, -1), at(-1, 0), at(-1, 1)
		west, east := at(0, -1), at(0, 1)
		sw, south, se := at(1, -1), at(1, 0), at(1, 1)
		gx := ((ne + 2*east + se) - (nw + 2*west + sw)) / eightCs
		gy := ((nw + 2*north + ne) - (sw + 2*south + se)) / eightCs
		normals[r*n+c] = r3.Vector{X: -gx, Y: -gy, Z: 1}.Normalize()
	})
	return normals
}

// smoothNormals averages each normal with the normals of its window, weighted by normalWeight.
func (g *Grid) smoothNormals(normals []r3.Vector, half int, cosThreshold float64) []r3.Vector {
	n := g.size
	out := make([]r3.Vector, len(normals))
	utils.ParallelForEachCell(n, n, func(r, c int) {
		i := r*n + c
		center := normals[i]
		out[i] = center
		if math.IsNaN(center.Z) {
			return
		}
		var sum r3.Vector
		var sumW float64
		for rr := utils.ClampInt(r-half, 0, n-1); rr <= utils.ClampInt(r+half, 0, n-1); rr++ {
			for cc := utils.ClampInt(c-half, 0, n-1); cc <= utils.ClampInt(c+half, 0, n-1); cc++ {
				nb := normals[rr*n+cc]
				if math.IsNaN(nb.Z) {
					continue
				}
				w := normalWeight(center, nb, cosThreshold)
				if w == 0 {
					continue
				}
				sum = sum.Add(nb.Mul(w))
				sumW += w
			}
		}
		if sumW > 0 {
			out[i] = sum.Mul(1 / sumW).Normalize()
		}
	})
	return out
}
