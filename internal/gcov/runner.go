package gcov

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theKBro/gcovr/internal/config"
	"github.com/theKBro/gcovr/internal/coverage"
	"github.com/theKBro/gcovr/internal/filter"
)

// Runner invokes the gcov executable over coverage data files and folds the
// parsed output into the coverage model.
type Runner struct {
	opts    *config.Options
	filters *config.Filters
	logger  *zap.Logger
}

func NewRunner(opts *config.Options, filters *config.Filters, logger *zap.Logger) *Runner {
	return &Runner{opts: opts, filters: filters, logger: logger}
}

// Process runs gcov on one data file (.gcda or .gcno) and returns the
// coverage parsed from its output, plus the number of tolerated parse
// errors.
func (r *Runner) Process(ctx context.Context, dataFile string) (coverage.Data, int, error) {
	dataDir := filepath.Dir(dataFile)
	objDir := r.objectDir(dataDir)

	// gcov drops its .gcov files into the working directory; a private
	// temp dir keeps parallel invocations from clobbering each other.
	workDir := filepath.Join(os.TempDir(), "gcovr-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0700); err != nil {
		return nil, 0, fmt.Errorf("failed to create gcov work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	args := []string{dataFile, "--branch-counts", "--branch-probabilities", "--preserve-paths", "--object-directory", objDir}
	cmd := exec.CommandContext(ctx, r.opts.GcovCmd, args...)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("Running gcov",
		zap.String("data_file", dataFile),
		zap.String("object_dir", objDir))

	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("gcov failed on %s: %w\n%s", dataFile, err, strings.TrimSpace(stderr.String()))
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list gcov output: %w", err)
	}

	data := coverage.Data{}
	parseErrors := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".gcov" {
			continue
		}
		gcovPath := filepath.Join(workDir, entry.Name())

		// The gcov filters match the name gcov gave the file, with the
		// --preserve-paths encoding undone; the private work dir is an
		// implementation detail they must never see.
		name := demangleGcovName(entry.Name())
		if !r.filters.KeepGcov(name, name) {
			r.logger.Debug("Filtering gcov file", zap.String("file", entry.Name()))
			continue
		}

		n, err := r.parseInto(data, gcovPath, dataDir, objDir)
		if err != nil {
			return nil, 0, err
		}
		parseErrors += n

		if r.opts.Keep {
			kept := filepath.Join(dataDir, entry.Name())
			if err := copyFile(gcovPath, kept); err != nil {
				r.logger.Warn("Could not keep gcov file", zap.String("file", kept), zap.Error(err))
			}
		}
	}

	if r.opts.Delete && strings.HasSuffix(dataFile, ".gcda") {
		if err := os.Remove(dataFile); err != nil {
			r.logger.Warn("Could not delete coverage file", zap.String("file", dataFile), zap.Error(err))
		}
	}

	return data, parseErrors, nil
}

// ProcessExisting parses an already-generated .gcov file (--use-gcov-files).
func (r *Runner) ProcessExisting(gcovFile string) (coverage.Data, int, error) {
	abs, err := filepath.Abs(gcovFile)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve %q: %w", gcovFile, err)
	}
	rel := filter.RelativeTo(r.opts.RootDir, abs)
	if !r.filters.KeepGcov(filter.Normalize(abs), rel) {
		return coverage.Data{}, 0, nil
	}

	data := coverage.Data{}
	n, err := r.parseInto(data, abs, filepath.Dir(abs), filepath.Dir(abs))
	if err != nil {
		return nil, 0, err
	}
	return data, n, nil
}

// parseInto parses one .gcov file, resolves its source path, applies the
// source filters, and merges the result into data.
func (r *Runner) parseInto(data coverage.Data, gcovPath, dataDir, objDir string) (int, error) {
	f, err := os.Open(gcovPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", gcovPath, err)
	}
	defer f.Close()

	res, err := Parse(filepath.Base(gcovPath), f, ParseOptions{
		ExcludeUnreachableBranches: r.opts.ExcludeUnreachableBranches,
		IgnoreParseErrors:          r.opts.IgnoreParseErrors,
	})
	if err != nil {
		return 0, err
	}

	source := r.resolveSource(res.Source, dataDir, objDir)
	rel := filter.RelativeTo(r.opts.RootDir, source)
	if !r.filters.KeepSource(filter.Normalize(source), rel) {
		r.logger.Debug("Filtering source file", zap.String("source", source))
		return res.ParseErrors, nil
	}

	res.Coverage.Path = rel
	data.Merge(res.Coverage)
	return res.ParseErrors, nil
}

// resolveSource turns the Source: path recorded by gcov into an absolute
// path. gcov records it relative to the compilation working directory,
// which we guess the same way the data file path was guessed: try the data
// file's directory, then the object directory, then the project root.
func (r *Runner) resolveSource(source, dataDir, objDir string) string {
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	for _, base := range []string{dataDir, objDir, r.opts.RootDir} {
		candidate := filepath.Join(base, source)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(dataDir, source)
}

// objectDir resolves the --object-directory option against a data file's
// directory, defaulting to the directory itself.
func (r *Runner) objectDir(dataDir string) string {
	if r.opts.ObjDir == "" {
		return dataDir
	}
	if filepath.IsAbs(r.opts.ObjDir) {
		return filepath.Clean(r.opts.ObjDir)
	}
	return filepath.Join(r.opts.StartingDir, r.opts.ObjDir)
}

// demangleGcovName undoes the --preserve-paths encoding in a gcov output
// file name, turning src#main.cpp.gcov back into src/main.cpp.gcov.
func demangleGcovName(name string) string {
	return strings.NewReplacer("#", "/", "^", "..").Replace(name)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
