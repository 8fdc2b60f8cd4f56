package gcov

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theKBro/gcovr/internal/coverage"
)

// ProcessAll runs the runner over every data file with a bounded worker
// pool and merges the results. jobs=1 preserves strictly sequential
// processing. Returns the merged coverage and the total tolerated parse
// error count.
func (r *Runner) ProcessAll(ctx context.Context, dataFiles []string) (coverage.Data, int, error) {
	merged := coverage.Data{}
	var mu sync.Mutex
	parseErrors := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)

	for _, dataFile := range dataFiles {
		g.Go(func() error {
			var (
				data coverage.Data
				n    int
				err  error
			)
			if r.opts.UseGcovFiles {
				data, n, err = r.ProcessExisting(dataFile)
			} else {
				data, n, err = r.Process(ctx, dataFile)
			}
			if err != nil {
				return err
			}
			mu.Lock()
			merged.MergeAll(data)
			parseErrors += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	r.logger.Debug("Gathered coverage data",
		zap.Int("files", len(merged)),
		zap.Int("parse_errors", parseErrors))
	return merged, parseErrors, nil
}
