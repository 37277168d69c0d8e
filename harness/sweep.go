package harness

import (
	"context"
	"fmt"

	"github.com/milosgajdos/omegaff/config"
	"golang.org/x/sync/errgroup"
)

// Sweep runs independent configurations cfgs in parallel, at most limit at a time,
// and returns their results in the order of cfgs. Runs share no state, so every
// result equals that of a sequential Run. Logs are not written.
// Sweep stops scheduling runs once ctx is cancelled or a run fails.
func Sweep(ctx context.Context, cfgs []*config.Config, limit int) ([]*Result, error) {
	if limit < 1 {
		return nil, fmt.Errorf("invalid sweep limit: %d", limit)
	}

	results := make([]*Result, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, cfg := range cfgs {
		i, cfg := i, cfg
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := Run(cfg, nil)
			if err != nil {
				return fmt.Errorf("sweep run %d: %w", i, err)
			}
			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
