// Package main traces contours out of LAS tiles and logs a summary per tile.
package main

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/terrain/config"
	"go.viam.com/terrain/contour"
	"go.viam.com/terrain/logging"
	"go.viam.com/terrain/tile"
)

const (
	flagConfig    = "config"
	flagDebug     = "debug"
	flagParallel  = "parallel"
	flagAlgorithm = "algorithm"
	flagLogFile   = "log-file"
)

func main() {
	app := &cli.App{
		Name:      "lidar2contours",
		Usage:     "trace contour lines out of classified lidar tiles",
		ArgsUsage: "<tile.las>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load settings from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagAlgorithm,
				Usage: "override the configured algorithm",
			},
			&cli.IntFlag{
				Name:  flagParallel,
				Value: 2,
				Usage: "number of tiles processed at once",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write JSON logs to `FILE`, rotated by size",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	level := logging.INFO
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger := logging.NewLogger("lidar2contours")
	logger.SetLevel(level)
	if fn := c.String(flagLogFile); fn != "" {
		fileLogger, closer := logging.NewFileLogger("lidar2contours", fn, level)
		defer utils.UncheckedErrorFunc(closer.Close)
		logger = fileLogger
	}
	if c.NArg() == 0 {
		return errors.New("need at least one LAS tile")
	}

	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}

	results := map[string]*tile.Result{}
	var resultsMu sync.Mutex

	group, ctx := errgroup.WithContext(c.Context)
	group.SetLimit(c.Int(flagParallel))
	for _, fn := range c.Args().Slice() {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := processFile(ctx, fn, cfg, logger.Sublogger(fn))
			if err != nil {
				return errors.Wrapf(err, "processing %q", fn)
			}
			resultsMu.Lock()
			defer resultsMu.Unlock()
			results[fn] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	names := lo.Keys(results)
	sort.Strings(names)
	for _, fn := range names {
		logSummary(logger, fn, results[fn])
	}
	return nil
}

func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := config.Default()
	if fn := c.String(flagConfig); fn != "" {
		read, err := config.FromFile(fn, logger)
		if err != nil {
			return nil, err
		}
		cfg = *read
	}
	if algo := c.String(flagAlgorithm); algo != "" {
		cfg.Algorithm = config.Algorithm(algo)
	}
	if err := cfg.Validate(flagConfig); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func processFile(ctx context.Context, fn string, cfg *config.Config, logger logging.Logger) (*tile.Result, error) {
	in, offset, err := tile.LoadLAS(fn, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debugw("loaded tile", "offset_x", offset.X, "offset_y", offset.Y, "points", in.Points.Size())
	return tile.Process(ctx, in, logger)
}

func logSummary(logger logging.Logger, fn string, res *tile.Result) {
	counts := map[contour.Kind]int{}
	for level, kind := range res.Kinds {
		counts[kind] += len(res.Contours[level])
	}
	logger.Infow("tile summary",
		"tile", fn,
		"levels", len(res.Kinds),
		"contours", res.Contours.Len(),
		"vertices", res.Contours.Vertices(),
		contour.KindIndex.String(), counts[contour.KindIndex],
		contour.KindNormal.String(), counts[contour.KindNormal],
		contour.KindForm.String(), counts[contour.KindForm],
		"iterations", res.Iterations,
		"error", res.Error,
		"energy", res.Energy,
	)
}
