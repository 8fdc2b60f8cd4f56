package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theKBro/gcovr/internal/config"
	"github.com/theKBro/gcovr/internal/coverage"
	"github.com/theKBro/gcovr/internal/gcov"
	"github.com/theKBro/gcovr/internal/history"
	"github.com/theKBro/gcovr/internal/report"
	"github.com/theKBro/gcovr/internal/watch"
)

const version = "3.4"

var (
	opts         = config.Default()
	showVersion  bool
	htmlAbsolute bool

	logger *zap.Logger
)

// thresholdError carries the --fail-under exit code through cobra.
type thresholdError struct {
	code int
}

func (e *thresholdError) Error() string {
	return fmt.Sprintf("coverage below threshold (exit code %d)", e.code)
}

// rootCmd is the report generator itself: gcovr [options] [search_paths...]
var rootCmd = &cobra.Command{
	Use:   "gcovr [search_paths...]",
	Short: "A utility to run gcov and summarize the coverage",
	Long: `gcovr runs gcov over the coverage data files produced by an instrumented
program, aggregates line and branch coverage per source file, and renders a
report: a fixed-width text table by default, or Cobertura XML (--xml) or
HTML (--html, --html-details).

Search paths default to the project root (and --object-directory when set).`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("html-absolute-paths") {
			opts.RelativeAnchors = !htmlAbsolute
		}

		zapCfg := zap.NewProductionConfig()
		if opts.Verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("gcovr %s\n", version)
			return nil
		}
		opts.SearchPaths = args

		ctx, cancel := signalContext()
		defer cancel()
		return runReport(ctx)
	},
}

// cleanCmd removes coverage byproducts: .gcda counters, .gcov text files,
// and the configured report output.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove coverage counter files and generated reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		if _, err := opts.Finalize(); err != nil {
			return err
		}
		var extra []string
		if opts.Output != "" {
			extra = append(extra, opts.Output)
		}
		removed, err := gcov.Clean(opts.RootDir, extra, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d file(s)\n", removed)
		return nil
	},
}

// watchCmd regenerates the report whenever fresh counter files appear.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the report whenever coverage data changes",
	Long: `Watches the project root for new or updated .gcda/.gcov files and re-runs
report generation after each instrumented program run. Threshold options are
reported but do not stop the watch loop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts.SearchPaths = args
		if err := opts.Validate(); err != nil {
			return err
		}
		filters, err := opts.Finalize()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		// initial report so the watch starts from a known state
		if err := runReport(ctx); err != nil {
			var te *thresholdError
			if !errors.As(err, &te) {
				logger.Warn("Initial report failed", zap.Error(err))
			}
		}

		w := watch.New(opts.RootDir, filters, watch.DefaultDebounce, logger)
		err = w.Run(ctx, func(ctx context.Context) error {
			err := runReport(ctx)
			var te *thresholdError
			if errors.As(err, &te) {
				return nil
			}
			return err
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// historyCmd lists recorded report runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded coverage runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		if _, err := opts.Finalize(); err != nil {
			return err
		}

		store, err := history.Open(history.DefaultPath(opts.RootDir))
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), 20)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs. Generate a report first.")
			return nil
		}
		fmt.Printf("%-20s %6s %10s %10s\n", "Date", "Files", "Lines", "Branches")
		for _, run := range runs {
			fmt.Printf("%-20s %6d %9.1f%% %9.1f%%\n",
				run.Timestamp.Format("2006-01-02 15:04:05"),
				run.Files, run.LinePercent, run.BranchPercent)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "Print progress messages")
	pf.BoolVar(&showVersion, "version", false, "Print the version number, then exit")
	pf.Float64Var(&opts.FailUnderLine, "fail-under-line", 0,
		"Exit with a status of 2 if the total line coverage is less than MIN")
	pf.Float64Var(&opts.FailUnderBranch, "fail-under-branch", 0,
		"Exit with a status of 4 if the total branch coverage is less than MIN")

	// Output options
	pf.StringVarP(&opts.Output, "output", "o", opts.Output, "Print output to this filename")
	pf.BoolVarP(&opts.ShowBranch, "branches", "b", false, "Tabulate the branch coverage instead of the line coverage")
	pf.BoolVarP(&opts.SortUncovered, "sort-uncovered", "u", false, "Sort entries by increasing number of uncovered lines")
	pf.BoolVarP(&opts.SortPercent, "sort-percentage", "p", false, "Sort entries by decreasing percentage of covered lines")
	pf.BoolVarP(&opts.PrintSummary, "print-summary", "s", false, "Print a small summary with line & branch percentage coverage")
	pf.BoolVarP(&opts.XML, "xml", "x", false, "Generate XML instead of the normal tabular output")
	pf.BoolVar(&opts.XMLPretty, "xml-pretty", false, "Generate pretty XML instead of the normal dense format")
	pf.BoolVar(&opts.HTML, "html", false, "Generate HTML instead of the normal tabular output")
	pf.BoolVar(&opts.HTMLDetails, "html-details", false, "Generate HTML output for source file coverage")
	pf.BoolVar(&htmlAbsolute, "html-absolute-paths", false, "Use absolute paths for HTML report links")
	pf.StringVar(&opts.HTMLEncoding, "html-encoding", opts.HTMLEncoding, "HTML file encoding")

	// Filter options
	pf.StringVarP(&opts.Root, "root", "r", opts.Root, "Root directory for source files")
	pf.StringArrayVarP(&opts.Filter, "filter", "f", nil, "Keep only source files that match this regular expression")
	pf.StringArrayVarP(&opts.Exclude, "exclude", "e", nil, "Exclude source files that match this regular expression")
	pf.StringVar(&opts.GcovFilter, "gcov-filter", "", "Keep only gcov data files that match this regular expression")
	pf.StringArrayVar(&opts.GcovExclude, "gcov-exclude", nil, "Exclude gcov data files that match this regular expression")
	pf.StringArrayVar(&opts.ExcludeDirs, "exclude-directories", nil, "Exclude directories that match this regular expression from the search")

	// Gcov options
	pf.StringVar(&opts.GcovCmd, "gcov-executable", opts.GcovCmd, "Name or path of the gcov executable")
	pf.BoolVarP(&opts.UseGcovFiles, "use-gcov-files", "g", false, "Use preprocessed gcov files for analysis")
	pf.BoolVar(&opts.ExcludeUnreachableBranches, "exclude-unreachable-branches", false,
		"Exclude branches marked with exclusion markers or on lines of compiler-generated dead code")
	pf.BoolVar(&opts.IgnoreParseErrors, "gcov-ignore-parse-errors", false,
		"Skip lines with parse errors in gcov files instead of exiting with an error")
	pf.StringVar(&opts.ObjDir, "object-directory", "", "Directory that contains the gcov data files")
	pf.BoolVarP(&opts.Keep, "keep", "k", false, "Keep the temporary *.gcov files generated by gcov")
	pf.BoolVarP(&opts.Delete, "delete", "d", false, "Delete the coverage files after they are processed")
	pf.IntVarP(&opts.Jobs, "jobs", "j", opts.Jobs, "Number of gcov invocations to run in parallel")

	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	// project config file in the working directory seeds the defaults;
	// command-line flags override it
	if err := config.LoadFile(config.ConfigFileName, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		var te *thresholdError
		if errors.As(err, &te) {
			os.Exit(te.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// runReport is the full pipeline: discover data files, run gcov, render the
// configured report, record history, and apply the fail-under thresholds.
func runReport(ctx context.Context) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	filters, err := opts.Finalize()
	if err != nil {
		return err
	}

	searchPaths := opts.SearchPaths
	if len(searchPaths) == 0 {
		searchPaths = []string{opts.Root}
		if opts.ObjDir != "" {
			searchPaths = append(searchPaths, opts.ObjDir)
		}
	}

	dataFiles, err := gcov.FindDataFiles(searchPaths, filters, opts.RootDir, opts.UseGcovFiles, logger)
	if err != nil {
		return err
	}
	logger.Info("Processing coverage data files", zap.Int("count", len(dataFiles)))

	runner := gcov.NewRunner(opts, filters, logger)
	data, parseErrors, err := runner.ProcessAll(ctx, dataFiles)
	if err != nil {
		return err
	}
	if parseErrors > 0 {
		fmt.Fprintf(os.Stderr, "gcovr: skipped %d unparsable line(s), see --gcov-ignore-parse-errors\n", parseErrors)
	}

	if err := renderReport(data); err != nil {
		return err
	}
	if opts.PrintSummary {
		report.Summary(data)
	}

	recordHistory(ctx, data)

	return checkThresholds(data)
}

func renderReport(data coverage.Data) error {
	ropts := report.Options{
		RootDir:         opts.RootDir,
		Output:          opts.Output,
		ShowBranch:      opts.ShowBranch,
		Sort:            sortMode(opts),
		Pretty:          opts.XMLPretty,
		Details:         opts.HTMLDetails,
		RelativeAnchors: opts.RelativeAnchors,
		Encoding:        opts.HTMLEncoding,
	}
	switch {
	case opts.XML || opts.XMLPretty:
		return report.Cobertura(data, ropts, version, time.Now())
	case opts.HTML || opts.HTMLDetails:
		return report.HTML(data, ropts, version, time.Now())
	default:
		return report.Text(data, ropts)
	}
}

func sortMode(opts *config.Options) coverage.SortMode {
	switch {
	case opts.SortUncovered:
		return coverage.SortByUncovered
	case opts.SortPercent:
		return coverage.SortByPercent
	default:
		return coverage.SortByName
	}
}

// recordHistory is best effort: a broken history database never fails the
// report.
func recordHistory(ctx context.Context, data coverage.Data) {
	store, err := history.Open(history.DefaultPath(opts.RootDir))
	if err != nil {
		logger.Warn("Could not open history store", zap.Error(err))
		return
	}
	defer store.Close()
	if _, err := store.Record(ctx, data, time.Now()); err != nil {
		logger.Warn("Could not record run", zap.Error(err))
	}
}

func checkThresholds(data coverage.Data) error {
	if opts.FailUnderLine <= 0 && opts.FailUnderBranch <= 0 {
		return nil
	}
	lines, branches := data.GlobalStats()
	if code := thresholdExit(lines, branches, opts.FailUnderLine, opts.FailUnderBranch); code != 0 {
		return &thresholdError{code: code}
	}
	return nil
}

// thresholdExit maps coverage totals to the fail-under exit code: 2 for
// lines, 4 for branches, 6 for both. The comparison uses the exact
// covered/total ratio, not the one-decimal display percent, so 79.96%
// still fails a threshold of 80. A project with no branches at all
// passes any branch threshold.
func thresholdExit(lines, branches coverage.Stats, failLine, failBranch float64) int {
	lineRatio := 0.0
	if lines.Total > 0 {
		lineRatio = 100.0 * float64(lines.Covered) / float64(lines.Total)
	}
	branchRatio := 100.0
	if branches.Total > 0 {
		branchRatio = 100.0 * float64(branches.Covered) / float64(branches.Total)
	}
	code := 0
	if failLine > 0 && lineRatio < failLine {
		code |= 2
	}
	if failBranch > 0 && branchRatio < failBranch {
		code |= 4
	}
	return code
}
