package gcov

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theKBro/gcovr/internal/coverage"
)

const sampleGcov = `        -:    0:Source:src/main.cpp
        -:    0:Graph:main.gcno
        -:    0:Data:main.gcda
        -:    0:Runs:1
        -:    0:Programs:1
        -:    1:#include <iostream>
        -:    2:
        1:    3:int main(int argc, char** argv) {
function main called 1 returned 100% blocks executed 75%
        1:    4:    if (argc > 1) {
branch  0 taken 0 (fallthrough)
branch  1 taken 1
    #####:    5:        std::cout << argv[1];
call    0 never executed
        -:    6:    }
        1:    8:    return 0;
        -:    9:}
`

func TestParse(t *testing.T) {
	res, err := Parse("main.cpp.gcov", strings.NewReader(sampleGcov), ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, "src/main.cpp", res.Source)
	assert.Equal(t, 0, res.ParseErrors)

	fc := res.Coverage
	assert.Equal(t, int64(1), fc.Lines[3])
	assert.Equal(t, int64(1), fc.Lines[4])
	assert.Equal(t, int64(0), fc.Lines[5])
	assert.Equal(t, int64(1), fc.Lines[8])
	// noncode lines are absent
	_, ok := fc.Lines[1]
	assert.False(t, ok, "noncode line recorded")

	assert.Equal(t, int64(0), fc.Branches[coverage.BranchKey{Line: 4, Branch: 0}])
	assert.Equal(t, int64(1), fc.Branches[coverage.BranchKey{Line: 4, Branch: 1}])

	ls := fc.LineStats()
	assert.Equal(t, 4, ls.Total)
	assert.Equal(t, 3, ls.Covered)
}

func TestParse_UncoveredExceptional(t *testing.T) {
	input := `        -:    0:Source:a.cpp
        1:    1:void f() {
    =====:    2:    g();
        -:    3:}
`
	res, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Coverage.Lines[2])
}

func TestParse_StarSuffixCount(t *testing.T) {
	input := `        -:    0:Source:a.cpp
        4*:    1:int f(int x) { return x ? 1 : 0; }
`
	res, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Coverage.Lines[1])
}

func TestParse_BranchPercentForm(t *testing.T) {
	input := `        -:    0:Source:a.cpp
        9:    1:if (x) {
branch  0 taken 60%
branch  1 taken 40%
branch  2 never executed
`
	res, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	fc := res.Coverage
	assert.Equal(t, int64(60), fc.Branches[coverage.BranchKey{Line: 1, Branch: 0}])
	assert.Equal(t, int64(0), fc.Branches[coverage.BranchKey{Line: 1, Branch: 2}])

	bs := fc.BranchStats()
	assert.Equal(t, 3, bs.Total)
	assert.Equal(t, 2, bs.Covered)
}

func TestParse_ExclusionMarkers(t *testing.T) {
	input := `        -:    0:Source:a.cpp
        1:    1:int covered() { return 1; }
    #####:    2:int debugOnly() { return 2; }  // LCOV_EXCL_LINE
        -:    3:// LCOV_EXCL_START
    #####:    4:void unreached() {
    #####:    5:    abort();
        -:    6:}  // LCOV_EXCL_STOP
        1:    7:int alsoCovered() { return 3; }
`
	res, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)

	fc := res.Coverage
	ls := fc.LineStats()
	assert.Equal(t, 2, ls.Total, "excluded lines must not count")
	assert.Equal(t, 2, ls.Covered)
	assert.Empty(t, fc.UncoveredLines())
}

func TestParse_GcovrMarkers(t *testing.T) {
	input := `        -:    0:Source:a.cpp
    #####:    1:int x() { return 0; }  // GCOVR_EXCL_LINE
        1:    2:int y() { return 1; }
`
	res, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Coverage.LineStats().Total)
}

func TestParse_ExcludeUnreachableBranches(t *testing.T) {
	input := `        -:    0:Source:a.cpp
        1:    1:    if (x) doThing();
branch  0 taken 1
branch  1 taken 0
        1:    2:}
branch  2 taken 1
branch  3 taken 0
`
	res, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{
		ExcludeUnreachableBranches: true,
	})
	require.NoError(t, err)

	fc := res.Coverage
	// Branches on the code line survive; branches on the bare brace go.
	assert.Equal(t, 2, fc.BranchStats().Total)
	_, ok := fc.Branches[coverage.BranchKey{Line: 2, Branch: 2}]
	assert.False(t, ok, "brace-only line kept its branches")
}

func TestParse_Malformed(t *testing.T) {
	input := `        -:    0:Source:a.cpp
this line is garbage
        1:    2:int y;
`
	_, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{})
	require.Error(t, err)

	res, err := Parse("a.cpp.gcov", strings.NewReader(input), ParseOptions{IgnoreParseErrors: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ParseErrors)
	assert.Equal(t, int64(1), res.Coverage.Lines[2])
}

func TestParse_MissingSource(t *testing.T) {
	_, err := Parse("a.gcov", strings.NewReader("        1:    1:int x;\n"), ParseOptions{})
	require.Error(t, err)
}
