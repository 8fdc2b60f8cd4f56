package gcov

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Clean removes coverage byproducts under root: the raw .gcda counter files
// written by the instrumented program and any .gcov text files left by -k.
// extra lists additional generated files (reports) to remove when present.
// Returns the number of files removed.
func Clean(root string, extra []string, logger *zap.Logger) (int, error) {
	removed := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".gcda", ".gcov":
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
			logger.Debug("Removed", zap.String("file", path))
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, err
	}

	for _, path := range extra {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		logger.Debug("Removed", zap.String("file", path))
		removed++
	}
	return removed, nil
}
