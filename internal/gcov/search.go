package gcov

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/theKBro/gcovr/internal/config"
	"github.com/theKBro/gcovr/internal/filter"
)

// FindDataFiles walks the search paths and returns the coverage data files
// to process. With useGcovFiles it collects preprocessed *.gcov files;
// otherwise it collects *.gcda files, falling back to the *.gcno file only
// when no .gcda exists for that object (the program never ran that unit).
func FindDataFiles(searchPaths []string, filters *config.Filters, rootDir string, useGcovFiles bool, logger *zap.Logger) ([]string, error) {
	seen := make(map[string]bool)
	gcdaBase := make(map[string]bool) // object basenames that have a .gcda
	var gcda, gcno, gcovFiles []string

	for _, searchPath := range searchPaths {
		abs, err := filepath.Abs(searchPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve search path %q: %w", searchPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("bad search path %q: %w", searchPath, err)
		}
		if !info.IsDir() {
			// a data file given directly bypasses the walk
			collect(abs, seen, gcdaBase, &gcda, &gcno, &gcovFiles)
			continue
		}

		err = filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				rel := filter.RelativeTo(rootDir, path)
				if filters.ExcludeDirs.AnyMatches(filter.Normalize(path), rel) {
					logger.Debug("Skipping excluded directory", zap.String("dir", path))
					return filepath.SkipDir
				}
				return nil
			}
			collect(path, seen, gcdaBase, &gcda, &gcno, &gcovFiles)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %q: %w", searchPath, err)
		}
	}

	if useGcovFiles {
		sort.Strings(gcovFiles)
		logger.Debug("Found gcov files", zap.Int("count", len(gcovFiles)))
		return gcovFiles, nil
	}

	files := gcda
	for _, path := range gcno {
		base := strings.TrimSuffix(path, ".gcno")
		if !gcdaBase[base] {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	logger.Debug("Found coverage data files",
		zap.Int("gcda", len(gcda)),
		zap.Int("total", len(files)))
	return files, nil
}

func collect(path string, seen, gcdaBase map[string]bool, gcda, gcno, gcovFiles *[]string) {
	if seen[path] {
		return
	}
	switch filepath.Ext(path) {
	case ".gcda":
		seen[path] = true
		gcdaBase[strings.TrimSuffix(path, ".gcda")] = true
		*gcda = append(*gcda, path)
	case ".gcno":
		seen[path] = true
		*gcno = append(*gcno, path)
	case ".gcov":
		seen[path] = true
		*gcovFiles = append(*gcovFiles, path)
	}
}
