package coverage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileCoverage_Merge(t *testing.T) {
	a := NewFileCoverage("src/main.cpp")
	a.AddLine(3, 1)
	a.AddLine(5, 0)
	a.AddBranch(3, 0, 1)
	a.AddBranch(3, 1, 0)

	b := NewFileCoverage("src/main.cpp")
	b.AddLine(3, 4)
	b.AddLine(5, 2)
	b.AddBranch(3, 1, 7)

	a.Merge(b)

	if got := a.Lines[3]; got != 5 {
		t.Errorf("line 3 count = %d, want 5", got)
	}
	if got := a.Lines[5]; got != 2 {
		t.Errorf("line 5 count = %d, want 2", got)
	}
	if got := a.Branches[BranchKey{Line: 3, Branch: 1}]; got != 7 {
		t.Errorf("branch 3/1 count = %d, want 7", got)
	}
}

func TestFileCoverage_ExcludeLine(t *testing.T) {
	fc := NewFileCoverage("a.cpp")
	fc.AddLine(10, 3)
	fc.AddBranch(10, 0, 1)
	fc.ExcludeLine(10)

	if len(fc.Lines) != 0 || len(fc.Branches) != 0 {
		t.Fatalf("exclusion did not clear records: %d lines, %d branches", len(fc.Lines), len(fc.Branches))
	}

	// Records arriving after the marker are dropped too.
	fc.AddLine(10, 5)
	fc.AddBranch(10, 1, 2)
	if len(fc.Lines) != 0 || len(fc.Branches) != 0 {
		t.Errorf("excluded line accepted later records")
	}
}

func TestStats(t *testing.T) {
	fc := NewFileCoverage("a.cpp")
	fc.AddLine(1, 1)
	fc.AddLine(2, 0)
	fc.AddLine(3, 9)
	fc.AddBranch(1, 0, 1)
	fc.AddBranch(1, 1, 0)

	ls := fc.LineStats()
	if ls.Total != 3 || ls.Covered != 2 {
		t.Errorf("line stats = %d/%d, want 2/3", ls.Covered, ls.Total)
	}
	if ls.Percent != 66.7 {
		t.Errorf("line percent = %v, want 66.7", ls.Percent)
	}

	bs := fc.BranchStats()
	if bs.Total != 2 || bs.Covered != 1 || bs.Percent != 50.0 {
		t.Errorf("branch stats = %+v, want 1/2 at 50.0", bs)
	}
}

func TestGlobalStats_Empty(t *testing.T) {
	d := Data{}
	lines, branches := d.GlobalStats()
	if lines.Percent != 0 || branches.Percent != 0 {
		t.Errorf("empty set should report 0 percent, got %v / %v", lines.Percent, branches.Percent)
	}
}

func TestMissingRanges(t *testing.T) {
	tests := []struct {
		name      string
		uncovered []int
		covered   []int
		want      string
	}{
		{"none", nil, []int{1, 2}, ""},
		{"single", []int{5}, nil, "5"},
		{"run", []int{8, 9, 10}, nil, "8-10"},
		{"mixed", []int{5, 8, 9, 21}, []int{6, 7}, "5,8-9,21"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := NewFileCoverage("a.cpp")
			for _, line := range tt.uncovered {
				fc.AddLine(line, 0)
			}
			for _, line := range tt.covered {
				fc.AddLine(line, 1)
			}
			if got := fc.MissingRanges(); got != tt.want {
				t.Errorf("MissingRanges() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCoveredRanges(t *testing.T) {
	fc := NewFileCoverage("a.cpp")
	for _, line := range []int{3, 4, 8} {
		fc.AddLine(line, 1)
	}
	fc.AddLine(5, 0)

	if got := fc.CoveredRanges(); got != "3-4,8" {
		t.Errorf("CoveredRanges() = %q, want %q", got, "3-4,8")
	}
	if got := fc.CoveredLines(); len(got) != 3 || got[0] != 3 || got[2] != 8 {
		t.Errorf("CoveredLines() = %v, want [3 4 8]", got)
	}
}

func TestData_SortedFiles(t *testing.T) {
	d := Data{}

	full := NewFileCoverage("full.cpp")
	full.AddLine(1, 1)
	full.AddLine(2, 1)

	half := NewFileCoverage("half.cpp")
	half.AddLine(1, 1)
	half.AddLine(2, 0)

	empty := NewFileCoverage("empty.cpp")
	empty.AddLine(1, 0)
	empty.AddLine(2, 0)

	d.Merge(full)
	d.Merge(half)
	d.Merge(empty)

	paths := func(files []*FileCoverage) []string {
		var out []string
		for _, fc := range files {
			out = append(out, fc.Path)
		}
		return out
	}

	if diff := cmp.Diff([]string{"empty.cpp", "full.cpp", "half.cpp"}, paths(d.SortedFiles(SortByName))); diff != "" {
		t.Errorf("SortByName mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"full.cpp", "half.cpp", "empty.cpp"}, paths(d.SortedFiles(SortByUncovered))); diff != "" {
		t.Errorf("SortByUncovered mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"full.cpp", "half.cpp", "empty.cpp"}, paths(d.SortedFiles(SortByPercent))); diff != "" {
		t.Errorf("SortByPercent mismatch (-want +got):\n%s", diff)
	}
}

func TestData_MergeSameFile(t *testing.T) {
	d := Data{}

	a := NewFileCoverage("x.cpp")
	a.AddLine(1, 0)
	b := NewFileCoverage("x.cpp")
	b.AddLine(1, 3)

	d.Merge(a)
	d.Merge(b)

	if len(d) != 1 {
		t.Fatalf("expected 1 file, got %d", len(d))
	}
	if got := d["x.cpp"].Lines[1]; got != 3 {
		t.Errorf("merged count = %d, want 3", got)
	}
}
