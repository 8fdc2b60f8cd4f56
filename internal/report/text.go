package report

import (
	"fmt"
	"io"

	"github.com/theKBro/gcovr/internal/coverage"
)

const textRule = "------------------------------------------------------------------------------"

// Text writes the classic fixed-width coverage table.
func Text(data coverage.Data, opts Options) error {
	return opts.WriteTo(func(w io.Writer) error {
		return writeText(w, data, opts)
	})
}

func writeText(w io.Writer, data coverage.Data, opts Options) error {
	fmt.Fprintln(w, textRule)
	fmt.Fprintln(w, "                           GCC Code Coverage Report")
	fmt.Fprintf(w, "Directory: %s\n", opts.RootDir)
	fmt.Fprintln(w, textRule)
	if opts.ShowBranch {
		fmt.Fprintf(w, "%-40s %8s %8s %6s\n", "File", "Branches", "Taken", "Cover")
	} else {
		fmt.Fprintf(w, "%-40s %8s %8s %6s   %s\n", "File", "Lines", "Exec", "Cover", "Missing")
	}
	fmt.Fprintln(w, textRule)

	var totalCovered, totalCount int
	for _, fc := range data.SortedFiles(opts.Sort) {
		var stats coverage.Stats
		missing := ""
		if opts.ShowBranch {
			stats = fc.BranchStats()
		} else {
			stats = fc.LineStats()
			missing = fc.MissingRanges()
		}
		totalCovered += stats.Covered
		totalCount += stats.Total

		name := fc.Path
		if len(name) > 40 {
			// long names get their own line so the columns stay aligned
			fmt.Fprintln(w, name)
			name = ""
		}
		if opts.ShowBranch {
			fmt.Fprintf(w, "%-40s %8d %8d %6s\n", name, stats.Total, stats.Covered, percentCell(stats))
		} else {
			fmt.Fprintf(w, "%-40s %8d %8d %6s   %s\n", name, stats.Total, stats.Covered, percentCell(stats), missing)
		}
	}

	fmt.Fprintln(w, textRule)
	total := coverage.Stats{Total: totalCount, Covered: totalCovered}
	if totalCount > 0 {
		total.Percent = 100.0 * float64(totalCovered) / float64(totalCount)
	}
	fmt.Fprintf(w, "%-40s %8d %8d %6s\n", "TOTAL", total.Total, total.Covered, percentCell(total))
	fmt.Fprintln(w, textRule)
	return nil
}

// percentCell renders a whole-number percentage, or "--" when there is
// nothing to measure.
func percentCell(s coverage.Stats) string {
	if s.Total == 0 {
		return "--"
	}
	return fmt.Sprintf("%.0f%%", 100.0*float64(s.Covered)/float64(s.Total))
}
