// Package gcov discovers coverage data files, drives the gcov executable
// over them, and parses the resulting .gcov text output into the coverage
// model.
package gcov

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/theKBro/gcovr/internal/coverage"
)

// ParseOptions control how .gcov text is interpreted.
type ParseOptions struct {
	// ExcludeUnreachableBranches drops branch records attached to lines
	// that hold no real code (closing braces, bare punctuation), which gcc
	// emits for compiler-generated exception paths.
	ExcludeUnreachableBranches bool

	// IgnoreParseErrors skips unrecognized lines instead of failing.
	// Skipped lines are counted in ParseResult.ParseErrors.
	IgnoreParseErrors bool
}

// ParseResult is the outcome of parsing one .gcov file.
type ParseResult struct {
	// Source is the path recorded in the file's Source: metadata line,
	// as written by gcov (usually relative to the compilation directory).
	Source string

	// Coverage holds the parsed counts. Path is left as Source; callers
	// normalize it before merging.
	Coverage *coverage.FileCoverage

	// ParseErrors counts lines skipped under IgnoreParseErrors.
	ParseErrors int
}

// Exclusion marker pairs recognized in source text. Both the lcov and the
// gcovr spellings work.
var exclMarkers = []struct {
	line, start, stop string
}{
	{"LCOV_EXCL_LINE", "LCOV_EXCL_START", "LCOV_EXCL_STOP"},
	{"GCOVR_EXCL_LINE", "GCOVR_EXCL_START", "GCOVR_EXCL_STOP"},
}

// Parse reads gcov text output. name is used in error messages only.
func Parse(name string, r io.Reader, opts ParseOptions) (*ParseResult, error) {
	res := &ParseResult{Coverage: coverage.NewFileCoverage("")}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	curLine := 0         // line number of the last line record
	curLineHasCode := "" // its source text, for unreachable-branch checks
	inExclRange := false
	lineno := 0

	for scanner.Scan() {
		lineno++
		text := scanner.Text()
		if text == "" {
			continue
		}

		switch {
		case strings.HasPrefix(text, "function "):
			// function summaries carry no per-line data
			continue
		case strings.HasPrefix(text, "call "):
			// call records are not tabulated
			continue
		case strings.HasPrefix(text, "branch "):
			if curLine == 0 {
				continue
			}
			if opts.ExcludeUnreachableBranches && !hasCode(curLineHasCode) {
				continue
			}
			idx, taken, err := parseBranch(text)
			if err != nil {
				if opts.IgnoreParseErrors {
					res.ParseErrors++
					continue
				}
				return nil, fmt.Errorf("%s:%d: %w", name, lineno, err)
			}
			res.Coverage.AddBranch(curLine, idx, taken)
			continue
		}

		count, srcLine, source, err := splitLineRecord(text)
		if err != nil {
			if opts.IgnoreParseErrors {
				res.ParseErrors++
				continue
			}
			return nil, fmt.Errorf("%s:%d: %w", name, lineno, err)
		}

		if srcLine == 0 {
			// metadata: Source, Graph, Data, Runs, Programs
			if key, value, ok := strings.Cut(source, ":"); ok && key == "Source" {
				res.Source = value
			}
			continue
		}

		if inExclRange {
			res.Coverage.ExcludeLine(srcLine)
		}
		for _, m := range exclMarkers {
			if strings.Contains(source, m.start) {
				inExclRange = true
				res.Coverage.ExcludeLine(srcLine)
			}
			if strings.Contains(source, m.stop) {
				inExclRange = false
				res.Coverage.ExcludeLine(srcLine)
			}
			if strings.Contains(source, m.line) {
				res.Coverage.ExcludeLine(srcLine)
			}
		}

		curLine = srcLine
		curLineHasCode = source

		switch count {
		case countNoncode:
			// not executable; nothing to record
		case countUncovered, countUncoveredExc:
			res.Coverage.AddLine(srcLine, 0)
		default:
			res.Coverage.AddLine(srcLine, count)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if res.Source == "" {
		return nil, fmt.Errorf("%s: missing Source metadata line", name)
	}
	return res, nil
}

// Sentinel counts for the non-numeric count fields.
const (
	countNoncode      int64 = -1 // "-"
	countUncovered    int64 = -2 // "#####"
	countUncoveredExc int64 = -3 // "=====", unexecuted exceptional path
)

// splitLineRecord parses "   count:  lineno:source". The count field is a
// number (possibly with a trailing '*' for partially executed lines), "-",
// "#####", or "=====".
func splitLineRecord(text string) (count int64, line int, source string, err error) {
	countField, rest, ok := strings.Cut(text, ":")
	if !ok {
		return 0, 0, "", fmt.Errorf("malformed gcov line %q", text)
	}
	lineField, source, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, 0, "", fmt.Errorf("malformed gcov line %q", text)
	}

	line, err = strconv.Atoi(strings.TrimSpace(lineField))
	if err != nil {
		return 0, 0, "", fmt.Errorf("bad line number in %q", text)
	}

	switch c := strings.TrimSpace(countField); c {
	case "-":
		return countNoncode, line, source, nil
	case "#####":
		return countUncovered, line, source, nil
	case "=====":
		return countUncoveredExc, line, source, nil
	default:
		c = strings.TrimSuffix(c, "*")
		n, err := strconv.ParseInt(c, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, "", fmt.Errorf("bad execution count in %q", text)
		}
		return n, line, source, nil
	}
}

// parseBranch parses "branch  N taken M", "branch  N taken M%",
// "branch  N never executed", and "branch  N taken M (fallthrough)".
func parseBranch(text string) (idx int, taken int64, err error) {
	fields := strings.Fields(text)
	if len(fields) < 3 || fields[0] != "branch" {
		return 0, 0, fmt.Errorf("malformed branch record %q", text)
	}
	idx, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed branch record %q", text)
	}
	switch fields[2] {
	case "never":
		return idx, 0, nil
	case "taken":
		if len(fields) < 4 {
			return 0, 0, fmt.Errorf("malformed branch record %q", text)
		}
		// without -c gcov reports a percentage instead of a count
		value := strings.TrimSuffix(fields[3], "%")
		taken, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed branch record %q", text)
		}
		return idx, taken, nil
	default:
		return 0, 0, fmt.Errorf("malformed branch record %q", text)
	}
}

// hasCode reports whether a source line holds anything besides braces,
// parens, and comment text. Used for --exclude-unreachable-branches.
func hasCode(source string) bool {
	code := strings.TrimSpace(source)
	if i := strings.Index(code, "//"); i >= 0 {
		code = strings.TrimSpace(code[:i])
	}
	if code == "" {
		return false
	}
	return strings.Trim(code, "{}(); ") != ""
}
