package pointcloud

import (
	"math"
	"math/rand"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/terrain/logging"
)

// DefaultJitter is the default half width, in metres, of the uniform noise added to x and y.
const DefaultJitter = 5e-4

// LASOptions controls how a LAS tile is turned into a PointSet.
type LASOptions struct {
	// Classes to keep. Defaults to ground and water.
	Classes []uint8
	// Jitter is the half width of the planimetric noise. Zero means DefaultJitter, negative disables it.
	Jitter float64
	Seed   int64
}

func (opts LASOptions) keeps(class uint8) bool {
	classes := opts.Classes
	if len(classes) == 0 {
		classes = []uint8{ClassGround, ClassWater}
	}
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

// NewFromLASFile reads the points of a LAS file, keeps the requested classes and returns them
// in tile-local coordinates together with the offset that was subtracted from x and y.
// Elevations are kept absolute.
func NewFromLASFile(fn string, opts LASOptions, logger logging.Logger) (*PointSet, r2.Point, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, r2.Point{}, errors.Wrapf(err, "opening %q", fn)
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	kept := make([]Point, 0, lf.Header.NumberPoints)
	extent := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	skipped := 0
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, r2.Point{}, errors.Wrapf(err, "reading point %d of %q", i, fn)
		}
		data := p.PointData()
		// every return still widens the tile so partially filtered tiles keep their footprint
		extent = extent.Extend(orb.Point{data.X, data.Y})

		class := data.ClassBitField.Value & 0x1F
		if !opts.keeps(class) {
			skipped++
			continue
		}
		kept = append(kept, Point{
			Pos:            NewVector(data.X, data.Y, data.Z),
			Classification: class,
			ReturnNumber:   data.BitField.Value & 0x07,
			Intensity:      data.Intensity,
		})
	}
	if lf.Header.NumberPoints == 0 {
		return nil, r2.Point{}, errors.Errorf("LAS file %q has no points", fn)
	}

	center := extent.Center()
	offset := r2.Point{X: center[0], Y: center[1]}
	local := orb.Bound{
		Min: orb.Point{extent.Min[0] - center[0], extent.Min[1] - center[1]},
		Max: orb.Point{extent.Max[0] - center[0], extent.Max[1] - center[1]},
	}

	jitter := opts.Jitter
	if jitter == 0 {
		jitter = DefaultJitter
	}
	//nolint:gosec
	rnd := rand.New(rand.NewSource(opts.Seed))

	ps := NewPointSet(local, len(kept))
	for _, p := range kept {
		x, y := p.Pos.X-offset.X, p.Pos.Y-offset.Y
		if jitter > 0 {
			x = clampTo(x+(2*rnd.Float64()-1)*jitter, local.Min[0], local.Max[0])
			y = clampTo(y+(2*rnd.Float64()-1)*jitter, local.Min[1], local.Max[1])
		}
		p.Pos = NewVector(x, y, p.Pos.Z)
		if err := ps.Add(p); err != nil {
			return nil, r2.Point{}, err
		}
	}
	logger.Debugw("read LAS tile", "file", fn, "points", lf.Header.NumberPoints, "kept", ps.Size(), "skipped", skipped)
	return ps, offset, nil
}

// WriteToLASFile writes the point set out to a LAS file, shifting it back by offset.
func WriteToLASFile(ps *PointSet, offset r2.Point, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{PointFormatID: 0}); err != nil {
		return
	}

	ps.Iterate(func(_ int, p Point) bool {
		returnNumber := p.ReturnNumber & 0x07
		if returnNumber == 0 {
			returnNumber = 1
		}
		pr0 := &lidario.PointRecord0{
			X:         p.Pos.X + offset.X,
			Y:         p.Pos.Y + offset.Y,
			Z:         p.Pos.Z,
			Intensity: p.Intensity,
			BitField: lidario.PointBitField{
				Value: returnNumber | (returnNumber << 3),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: p.Classification & 0x1F,
			},
			PointSourceID: 1,
		}
		if err = lf.AddLasPoint(pr0); err != nil {
			return false
		}
		return true
	})
	return
}

func clampTo(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
