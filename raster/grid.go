// Package raster contains the square scalar grid that interpolated terrain fields are stored in,
// along with the arithmetic and smoothing operations the contouring pipeline needs.
package raster

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"go.viam.com/terrain/utils"
)

// ErrDimensionMismatch is returned when two grids of different side length are combined.
var ErrDimensionMismatch = errors.New("raster dimensions do not match")

// Grid is a square raster of side Size. Unset cells hold NaN. Cell (row, col) sits at world
// coordinate (tl.x + col·cellSize, tl.y − row·cellSize).
type Grid struct {
	size     int
	topLeft  r2.Point
	cellSize float64
	data     []float64
}

// New returns a grid of the given side with every cell unset.
func New(size int, topLeft r2.Point, cellSize float64) *Grid {
	if size < 1 {
		size = 1
	}
	data := make([]float64, size*size)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid{size: size, topLeft: topLeft, cellSize: cellSize, data: data}
}

// NewForBounds returns an unset grid whose top-left cell sits on the top-left corner of b and
// whose side covers the longer extent of b.
func NewForBounds(b orb.Bound, cellSize float64) *Grid {
	side := math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
	return New(SideLength(side, cellSize), r2.Point{X: b.Min[0], Y: b.Max[1]}, cellSize)
}

// SideLength is the number of cells needed along a tile side, both edges included.
func SideLength(side, cellSize float64) int {
	return int(math.Ceil(side/cellSize)) + 1
}

// Size returns the side length in cells.
func (g *Grid) Size() int {
	return g.size
}

// CellSize returns the world distance between adjacent cells.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// TopLeft returns the world coordinate of cell (0, 0).
func (g *Grid) TopLeft() r2.Point {
	return g.topLeft
}

// At returns the value of a cell.
func (g *Grid) At(row, col int) float64 {
	return g.data[row*g.size+col]
}

// Set sets the value of a cell.
func (g *Grid) Set(row, col int, v float64) {
	g.data[row*g.size+col] = v
}

// InBounds reports whether (row, col) is a cell of the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.size && col < g.size
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	data := make([]float64, len(g.data))
	copy(data, g.data)
	return &Grid{size: g.size, topLeft: g.topLeft, cellSize: g.cellSize, data: data}
}

// IndexToCoord returns the world coordinate of a cell.
func (g *Grid) IndexToCoord(row, col int) r2.Point {
	return r2.Point{
		X: g.topLeft.X + float64(col)*g.cellSize,
		Y: g.topLeft.Y - float64(row)*g.cellSize,
	}
}

// CoordToIndex returns the cell closest to a world coordinate. The result may lie outside the
// grid; check it with InBounds.
func (g *Grid) CoordToIndex(p r2.Point) (int, int) {
	col := int(math.Round((p.X - g.topLeft.X) / g.cellSize))
	row := int(math.Round((g.topLeft.Y - p.Y) / g.cellSize))
	return row, col
}

// Fill sets every cell to f of its world coordinate. Cells are evaluated in parallel so f
// must be safe for concurrent use.
func (g *Grid) Fill(f func(p r2.Point) float64) {
	utils.ParallelForEachCell(g.size, g.size, func(row, col int) {
		g.data[row*g.size+col] = f(g.IndexToCoord(row, col))
	})
}

// MinMax returns the smallest and largest set values. ok is false when every cell is unset.
func (g *Grid) MinMax() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.data {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

func (g *Grid) checkDims(other *Grid) error {
	if g.size != other.size {
		return errors.Wrapf(ErrDimensionMismatch, "%d != %d", g.size, other.size)
	}
	return nil
}

// Difference returns g − other cell by cell.
func (g *Grid) Difference(other *Grid) (*Grid, error) {
	if err := g.checkDims(other); err != nil {
		return nil, err
	}
	out := g.Clone()
	for i, v := range other.data {
		out.data[i] -= v
	}
	return out, nil
}

// MeanSquaredError is the mean squared difference over cells set in both grids, or 0 when no
// cell is set in both.
func (g *Grid) MeanSquaredError(other *Grid) (float64, error) {
	if err := g.checkDims(other); err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for i, v := range g.data {
		d := v - other.data[i]
		if math.IsNaN(d) {
			continue
		}
		sum += d * d
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// Adjust adds amplitude times the windowed mean of truth − interpolated to every cell. The
// window spans halfSize cells each way and is clamped at the grid edges. Unset differences are
// left out of the mean, and a window with no set difference adds nothing.
func (g *Grid) Adjust(truth, interpolated *Grid, halfSize int, amplitude float64) error {
	if err := g.checkDims(truth); err != nil {
		return err
	}
	diff, err := truth.Difference(interpolated)
	if err != nil {
		return err
	}
	if halfSize < 0 {
		halfSize = 0
	}

	// summed area tables of the set differences and of their count
	n := g.size
	stride := n + 1
	sums := make([]float64, stride*stride)
	counts := make([]int, stride*stride)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := diff.data[r*n+c]
			cnt := 1
			if math.IsNaN(v) {
				v, cnt = 0, 0
			}
			i := (r+1)*stride + c + 1
			sums[i] = v + sums[i-1] + sums[i-stride] - sums[i-stride-1]
			counts[i] = cnt + counts[i-1] + counts[i-stride] - counts[i-stride-1]
		}
	}

	for r := 0; r < n; r++ {
		r0, r1 := utils.ClampInt(r-halfSize, 0, n-1), utils.ClampInt(r+halfSize, 0, n-1)+1
		for c := 0; c < n; c++ {
			c0, c1 := utils.ClampInt(c-halfSize, 0, n-1), utils.ClampInt(c+halfSize, 0, n-1)+1
			cnt := counts[r1*stride+c1] - counts[r0*stride+c1] - counts[r1*stride+c0] + counts[r0*stride+c0]
			if cnt == 0 {
				continue
			}
			sum := sums[r1*stride+c1] - sums[r0*stride+c1] - sums[r1*stride+c0] + sums[r0*stride+c0]
			g.data[r*n+c] += amplitude * sum / float64(cnt)
		}
	}
	return nil
}
