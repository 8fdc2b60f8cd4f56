// Package watch re-runs report generation whenever fresh coverage counter
// files appear, for tight compile/run/report loops.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/theKBro/gcovr/internal/config"
	"github.com/theKBro/gcovr/internal/filter"
)

// Watcher triggers a callback when .gcda or .gcov files change anywhere
// under the root. Events are debounced so one test run producing many
// counter files causes a single regeneration.
type Watcher struct {
	root     string
	filters  *config.Filters
	debounce time.Duration
	logger   *zap.Logger
}

// DefaultDebounce batches the burst of counter writes from one program run.
const DefaultDebounce = 500 * time.Millisecond

func New(root string, filters *config.Filters, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, filters: filters, debounce: debounce, logger: logger}
}

// Run watches until ctx is cancelled, invoking onChange after each settled
// burst of coverage file events. Directories created while watching are
// added to the watch set.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("Could not watch new directory", zap.String("dir", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !isCounterFile(event.Name) {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("Coverage file changed", zap.String("file", event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watch error", zap.Error(err))
		case <-timerC:
			timer = nil
			timerC = nil
			w.logger.Info("Coverage data changed, regenerating report")
			if err := onChange(ctx); err != nil {
				w.logger.Error("Report generation failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		rel := filter.RelativeTo(w.root, path)
		if path != w.root && w.filters.ExcludeDirs.AnyMatches(filter.Normalize(path), rel) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func isCounterFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".gcda" || ext == ".gcov"
}
