// Package report renders coverage data as text tables, one-line summaries,
// Cobertura XML, and HTML pages.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/theKBro/gcovr/internal/coverage"
)

// Options carry the rendering settings shared by all generators.
type Options struct {
	// RootDir is shown in report headers and used for relative paths.
	RootDir string
	// Output is the destination file; empty writes to stdout.
	Output string
	// ShowBranch tabulates branch coverage instead of line coverage.
	ShowBranch bool
	// Sort selects file ordering in tabular reports.
	Sort coverage.SortMode
	// Pretty indents XML output.
	Pretty bool
	// Details generates per-file HTML source pages.
	Details bool
	// RelativeAnchors keeps HTML links relative to the overview page.
	RelativeAnchors bool
	// Encoding is declared in the HTML meta charset.
	Encoding string
	// MediumThreshold and HighThreshold color HTML coverage bars.
	MediumThreshold float64
	HighThreshold   float64
}

// DefaultHTMLThresholds are the coverage percentages separating the red,
// yellow, and green bands.
const (
	DefaultMediumThreshold = 75.0
	DefaultHighThreshold   = 90.0
)

// WriteTo opens the configured output destination, hands the writer to fn,
// and closes it. An empty Output writes to stdout.
func (o Options) WriteTo(fn func(io.Writer) error) error {
	if o.Output == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(o.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
