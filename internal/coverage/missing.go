package coverage

import (
	"fmt"
	"strings"
)

// MissingRanges renders the uncovered lines of a file as a compact range
// list, e.g. "5,8-9,21". Returns "" when everything is covered.
func (fc *FileCoverage) MissingRanges() string {
	return formatRanges(fc.UncoveredLines())
}

// CoveredRanges is the counterpart for the lines that were hit.
func (fc *FileCoverage) CoveredRanges() string {
	return formatRanges(fc.CoveredLines())
}

func formatRanges(lines []int) string {
	if len(lines) == 0 {
		return ""
	}

	var parts []string
	start, prev := lines[0], lines[0]
	flush := func() {
		if start == prev {
			parts = append(parts, fmt.Sprintf("%d", start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, line := range lines[1:] {
		if line == prev+1 {
			prev = line
			continue
		}
		flush()
		start, prev = line, line
	}
	flush()
	return strings.Join(parts, ",")
}
