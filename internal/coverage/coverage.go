// Package coverage holds the aggregated coverage model: per-file line hit
// counts and branch outcomes, merged across all gcov data files that mention
// the same source file.
package coverage

import (
	"sort"
)

// BranchKey identifies a single branch outcome on a source line.
type BranchKey struct {
	Line   int
	Branch int
}

// FileCoverage accumulates coverage for one source file.
type FileCoverage struct {
	// Path is the source path, normalized relative to the report root.
	Path string

	// Lines maps executable line numbers to execution counts. A line that
	// appears with count 0 is executable but never hit.
	Lines map[int]int64

	// Branches maps branch outcomes to taken counts. "never executed"
	// branches are recorded with count 0.
	Branches map[BranchKey]int64

	// Excluded marks lines suppressed by LCOV/GCOVR exclusion markers.
	// Excluded lines contribute nothing to totals and keep no branches.
	Excluded map[int]bool
}

func NewFileCoverage(path string) *FileCoverage {
	return &FileCoverage{
		Path:     path,
		Lines:    make(map[int]int64),
		Branches: make(map[BranchKey]int64),
		Excluded: make(map[int]bool),
	}
}

// AddLine records an execution count for a line. Counts accumulate across
// data files; a noncode marker never overrides an executable record.
func (fc *FileCoverage) AddLine(line int, count int64) {
	if fc.Excluded[line] {
		return
	}
	fc.Lines[line] += count
}

// AddBranch records a taken count for a branch outcome.
func (fc *FileCoverage) AddBranch(line, branch int, count int64) {
	if fc.Excluded[line] {
		return
	}
	fc.Branches[BranchKey{Line: line, Branch: branch}] += count
}

// ExcludeLine drops a line (and its branches) from the file, and blocks any
// later records for it. Used for LCOV_EXCL / GCOVR_EXCL markers.
func (fc *FileCoverage) ExcludeLine(line int) {
	fc.Excluded[line] = true
	delete(fc.Lines, line)
	for key := range fc.Branches {
		if key.Line == line {
			delete(fc.Branches, key)
		}
	}
}

// Merge folds other into fc. Both must describe the same source file.
// Exclusions union; counts add.
func (fc *FileCoverage) Merge(other *FileCoverage) {
	for line := range other.Excluded {
		fc.ExcludeLine(line)
	}
	for line, count := range other.Lines {
		fc.AddLine(line, count)
	}
	for key, count := range other.Branches {
		fc.AddBranch(key.Line, key.Branch, count)
	}
}

// UncoveredLines returns the executable lines with a zero hit count, sorted.
func (fc *FileCoverage) UncoveredLines() []int {
	var lines []int
	for line, count := range fc.Lines {
		if count == 0 {
			lines = append(lines, line)
		}
	}
	sort.Ints(lines)
	return lines
}

// CoveredLines returns the lines with a nonzero hit count, sorted.
func (fc *FileCoverage) CoveredLines() []int {
	var lines []int
	for line, count := range fc.Lines {
		if count > 0 {
			lines = append(lines, line)
		}
	}
	sort.Ints(lines)
	return lines
}

// Data is the full coverage set, keyed by normalized source path.
type Data map[string]*FileCoverage

// Merge folds a parsed file into the set, merging with any existing entry
// for the same source.
func (d Data) Merge(fc *FileCoverage) {
	if existing, ok := d[fc.Path]; ok {
		existing.Merge(fc)
		return
	}
	d[fc.Path] = fc
}

// MergeAll folds every file of other into d.
func (d Data) MergeAll(other Data) {
	for _, fc := range other {
		d.Merge(fc)
	}
}

// SortMode selects the file ordering for tabular reports.
type SortMode int

const (
	SortByName      SortMode = iota // lexicographic by path
	SortByUncovered                 // increasing number of uncovered lines
	SortByPercent                   // decreasing percent covered
)

// SortedFiles returns the files of d in the requested order. Ties fall back
// to path order so report output is deterministic.
func (d Data) SortedFiles(mode SortMode) []*FileCoverage {
	files := make([]*FileCoverage, 0, len(d))
	for _, fc := range d {
		files = append(files, fc)
	}
	sort.Slice(files, func(i, j int) bool {
		switch mode {
		case SortByUncovered:
			ui, uj := len(files[i].UncoveredLines()), len(files[j].UncoveredLines())
			if ui != uj {
				return ui < uj
			}
		case SortByPercent:
			pi := files[i].LineStats().Percent
			pj := files[j].LineStats().Percent
			if pi != pj {
				return pi > pj
			}
		}
		return files[i].Path < files[j].Path
	})
	return files
}
