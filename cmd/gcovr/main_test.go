package main

import (
	"math"
	"testing"

	"github.com/theKBro/gcovr/internal/config"
	"github.com/theKBro/gcovr/internal/coverage"
)

func stats(covered, total int) coverage.Stats {
	s := coverage.Stats{Covered: covered, Total: total}
	if total > 0 {
		s.Percent = 100.0 * float64(covered) / float64(total)
	}
	return s
}

// rounded mimics GlobalStats, which carries the one-decimal display percent.
func rounded(covered, total int) coverage.Stats {
	s := stats(covered, total)
	s.Percent = math.Round(s.Percent*10) / 10
	return s
}

func TestThresholdExit(t *testing.T) {
	tests := []struct {
		name                 string
		lines, branches      coverage.Stats
		failLine, failBranch float64
		want                 int
	}{
		{"no thresholds", stats(1, 10), stats(0, 10), 0, 0, 0},
		{"passing", stats(9, 10), stats(9, 10), 80, 80, 0},
		{"line failure", stats(5, 10), stats(9, 10), 80, 80, 2},
		{"branch failure", stats(9, 10), stats(5, 10), 80, 80, 4},
		{"both failures", stats(5, 10), stats(5, 10), 80, 80, 6},
		{"no branches passes branch threshold", stats(9, 10), stats(0, 0), 80, 80, 0},
		{"exactly at threshold passes", stats(8, 10), stats(8, 10), 80, 80, 0},
		// 7996/10000 displays as 80.0% but is below 80
		{"line rounding does not mask a failure", rounded(7996, 10000), stats(9, 10), 80, 80, 2},
		{"branch rounding does not mask a failure", stats(9, 10), rounded(7996, 10000), 80, 80, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := thresholdExit(tt.lines, tt.branches, tt.failLine, tt.failBranch)
			if got != tt.want {
				t.Errorf("thresholdExit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSortMode(t *testing.T) {
	o := config.Default()
	if sortMode(o) != coverage.SortByName {
		t.Error("default sort should be by name")
	}
	o.SortUncovered = true
	if sortMode(o) != coverage.SortByUncovered {
		t.Error("-u should sort by uncovered")
	}
	o.SortUncovered = false
	o.SortPercent = true
	if sortMode(o) != coverage.SortByPercent {
		t.Error("-p should sort by percent")
	}
}

func TestFlagSurface(t *testing.T) {
	// every documented option must be wired
	for _, name := range []string{
		"verbose", "version", "fail-under-line", "fail-under-branch",
		"output", "branches", "sort-uncovered", "sort-percentage",
		"print-summary", "xml", "xml-pretty", "html", "html-details",
		"html-absolute-paths", "html-encoding",
		"root", "filter", "exclude", "gcov-filter", "gcov-exclude",
		"exclude-directories",
		"gcov-executable", "use-gcov-files", "exclude-unreachable-branches",
		"gcov-ignore-parse-errors", "object-directory", "keep", "delete",
		"jobs",
	} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}

	for _, name := range []string{"clean", "watch", "history"} {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestThresholdError_Code(t *testing.T) {
	err := &thresholdError{code: 6}
	if err.Error() == "" {
		t.Error("threshold error should describe itself")
	}
}
