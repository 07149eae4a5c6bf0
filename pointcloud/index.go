package pointcloud

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Index is a read-only nearest neighbour index over the planimetric positions of a PointSet.
// It is safe for concurrent queries. Adding points to the set afterwards makes it stale.
type Index struct {
	set  *PointSet
	size int
	tree *kdtree.Tree
}

// NewIndex builds a kd-tree over every point currently in ps.
func NewIndex(ps *PointSet) (*Index, error) {
	if ps.Size() == 0 {
		return nil, errors.New("cannot index an empty point set")
	}
	pts := make(planarPoints, ps.Size())
	ps.Iterate(func(i int, p Point) bool {
		pts[i] = planarPoint{X: p.Pos.X, Y: p.Pos.Y, idx: i}
		return true
	})
	return &Index{set: ps, size: ps.Size(), tree: kdtree.New(pts, false)}, nil
}

// Set returns the indexed point set.
func (idx *Index) Set() *PointSet {
	return idx.set
}

// Stale reports whether the set grew since the index was built.
func (idx *Index) Stale() bool {
	return idx.set.Size() != idx.size
}

// Nearest returns the indices of the k points closest to q, nearest first. Equidistant
// results are ordered by point index.
func (idx *Index) Nearest(q r2.Point, k int) []int {
	if k <= 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keeper, planarPoint{X: q.X, Y: q.Y, idx: -1})

	found := make([]kdtree.ComparableDist, 0, keeper.Len())
	for _, cd := range keeper.Heap {
		// NKeeper seeds its heap with an empty sentinel.
		if cd.Comparable == nil {
			continue
		}
		found = append(found, cd)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Dist != found[j].Dist {
			return found[i].Dist < found[j].Dist
		}
		return found[i].Comparable.(planarPoint).idx < found[j].Comparable.(planarPoint).idx
	})

	out := make([]int, len(found))
	for i, cd := range found {
		out[i] = cd.Comparable.(planarPoint).idx
	}
	return out
}

// planarPoint implements kdtree.Comparable over x and y.
type planarPoint struct {
	X, Y float64
	idx  int
}

func (p planarPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(planarPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (p planarPoint) Dims() int { return 2 }

// Distance returns the squared euclidean distance.
func (p planarPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(planarPoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

type planarPoints []planarPoint

func (p planarPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p planarPoints) Len() int                              { return len(p) }
func (p planarPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p planarPoints) Pivot(d kdtree.Dim) int {
	plane := pointPlane{planarPoints: p, Dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfMedians(plane))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for planarPoints.
type pointPlane struct {
	planarPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.planarPoints[i].X < p.planarPoints[j].X
	case 1:
		return p.planarPoints[i].Y < p.planarPoints[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{planarPoints: p.planarPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.planarPoints[i], p.planarPoints[j] = p.planarPoints[j], p.planarPoints[i]
}
