// Package config holds all gcovr configuration: the command-line options,
// the optional gcovr.yaml project file, and the compiled filter sets derived
// from them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/theKBro/gcovr/internal/filter"
)

// Options is the full option set. Field names and defaults follow the
// command-line surface; yaml tags allow the same settings in gcovr.yaml.
type Options struct {
	Verbose bool `yaml:"verbose"`

	// Threshold settings. Percentages in [0, 100]; 0 disables the check.
	FailUnderLine   float64 `yaml:"fail_under_line"`
	FailUnderBranch float64 `yaml:"fail_under_branch"`

	// Output settings
	Output        string `yaml:"output"`
	ShowBranch    bool   `yaml:"branches"`
	SortUncovered bool   `yaml:"sort_uncovered"`
	SortPercent   bool   `yaml:"sort_percentage"`
	PrintSummary  bool   `yaml:"print_summary"`
	XML           bool   `yaml:"xml"`
	XMLPretty     bool   `yaml:"xml_pretty"`
	HTML          bool   `yaml:"html"`
	HTMLDetails   bool   `yaml:"html_details"`
	// RelativeAnchors keeps HTML links relative; --html-absolute-paths
	// turns it off.
	RelativeAnchors bool   `yaml:"html_relative_anchors"`
	HTMLEncoding    string `yaml:"html_encoding"`

	// Filter settings
	Root        string   `yaml:"root"`
	Filter      []string `yaml:"filter"`
	Exclude     []string `yaml:"exclude"`
	GcovFilter  string   `yaml:"gcov_filter"`
	GcovExclude []string `yaml:"gcov_exclude"`
	ExcludeDirs []string `yaml:"exclude_directories"`

	// Gcov settings
	GcovCmd                    string `yaml:"gcov_executable"`
	UseGcovFiles               bool   `yaml:"use_gcov_files"`
	ExcludeUnreachableBranches bool   `yaml:"exclude_unreachable_branches"`
	IgnoreParseErrors          bool   `yaml:"gcov_ignore_parse_errors"`
	ObjDir                     string `yaml:"object_directory"`
	Keep                       bool   `yaml:"keep"`
	Delete                     bool   `yaml:"delete"`
	Jobs                       int    `yaml:"jobs"`

	// Positional search paths; overrides the root/objdir default when set.
	SearchPaths []string `yaml:"search_paths"`

	// Resolved at finalization
	RootDir     string `yaml:"-"`
	StartingDir string `yaml:"-"`
}

// ConfigFileName is looked up in the working directory before flags are
// applied.
const ConfigFileName = "gcovr.yaml"

// Default returns the option set matching the tool's built-in defaults.
func Default() *Options {
	gcov := os.Getenv("GCOV")
	if gcov == "" {
		gcov = "gcov"
	}
	return &Options{
		Root:            ".",
		GcovCmd:         gcov,
		RelativeAnchors: true,
		HTMLEncoding:    "UTF-8",
		Jobs:            1,
	}
}

// LoadFile reads a gcovr.yaml file into opts. A missing file is not an error.
func LoadFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Save writes opts as YAML, mostly for tests and for seeding a project file.
func (o *Options) Save(path string) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks option ranges and paths before any work starts.
func (o *Options) Validate() error {
	if o.Root == "" {
		return fmt.Errorf("empty --root option: root specifies the path to the root directory of your project and cannot be an empty string")
	}
	if err := checkPercentage("--fail-under-line", o.FailUnderLine); err != nil {
		return err
	}
	if err := checkPercentage("--fail-under-branch", o.FailUnderBranch); err != nil {
		return err
	}
	if o.ObjDir != "" {
		if _, err := os.Stat(filepath.Clean(o.ObjDir)); err != nil {
			return fmt.Errorf("bad --object-directory option: the specified directory does not exist")
		}
	}
	if o.Jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", o.Jobs)
	}
	return nil
}

func checkPercentage(flag string, v float64) error {
	if v < 0.0 || v > 100.0 {
		return fmt.Errorf("option %s: %v not in range [0.0, 100.0]", flag, v)
	}
	return nil
}

// Filters holds the compiled filter sets.
type Filters struct {
	// Keep filters for source files; defaults to the root filter.
	Filter filter.Set
	// Exclude filters for source files.
	Exclude filter.Set
	// Keep filter for gcov data files; matches everything by default.
	GcovFilter *filter.Filter
	// Exclude filters for gcov data files.
	GcovExclude filter.Set
	// Directory names excluded from the search walk.
	ExcludeDirs filter.Set
}

// Finalize resolves the root directory and compiles all filter sets.
func (o *Options) Finalize() (*Filters, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	o.StartingDir = cwd

	o.RootDir, err = filepath.Abs(o.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", o.Root, err)
	}
	if o.Output != "" {
		o.Output, err = filepath.Abs(o.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output %q: %w", o.Output, err)
		}
	}

	f := &Filters{}
	if f.Filter, err = filter.BuildSet(o.Filter); err != nil {
		return nil, err
	}
	if len(f.Filter) == 0 {
		// The root filter keeps everything under the project root.
		rootFilter, err := filter.Build(regexp.QuoteMeta(filter.Normalize(o.RootDir) + "/"))
		if err != nil {
			return nil, err
		}
		f.Filter = filter.Set{rootFilter}
	}
	if f.Exclude, err = filter.BuildSet(o.Exclude); err != nil {
		return nil, err
	}
	if o.GcovFilter != "" {
		if f.GcovFilter, err = filter.Build(o.GcovFilter); err != nil {
			return nil, err
		}
	} else {
		f.GcovFilter = filter.MustBuild("")
	}
	if f.GcovExclude, err = filter.BuildSet(o.GcovExclude); err != nil {
		return nil, err
	}
	if f.ExcludeDirs, err = filter.BuildSet(o.ExcludeDirs); err != nil {
		return nil, err
	}
	return f, nil
}

// KeepSource reports whether a source path survives the keep/exclude sets.
// rel must be relative to RootDir in slash form.
func (f *Filters) KeepSource(abs, rel string) bool {
	if !f.Filter.AnyMatches(abs, rel) {
		return false
	}
	return !f.Exclude.AnyMatches(abs, rel)
}

// KeepGcov reports whether a gcov data file survives the gcov filter sets.
func (f *Filters) KeepGcov(abs, rel string) bool {
	if !f.GcovFilter.Matches(abs, rel) {
		return false
	}
	return !f.GcovExclude.AnyMatches(abs, rel)
}
