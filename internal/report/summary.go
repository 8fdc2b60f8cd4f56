package report

import (
	"fmt"
	"io"
	"os"

	"github.com/theKBro/gcovr/internal/coverage"
)

// Summary prints the two-line line/branch totals to stdout. It always goes
// to stdout, even when the main report is redirected to a file.
func Summary(data coverage.Data) {
	WriteSummary(os.Stdout, data)
}

// WriteSummary writes the summary to an arbitrary writer.
func WriteSummary(w io.Writer, data coverage.Data) {
	lines, branches := data.GlobalStats()
	fmt.Fprintf(w, "lines: %.1f%% (%d out of %d)\n", lines.Percent, lines.Covered, lines.Total)
	fmt.Fprintf(w, "branches: %.1f%% (%d out of %d)\n", branches.Percent, branches.Covered, branches.Total)
}
