package coverage

// Stats is a covered/total pair with its percentage.
type Stats struct {
	Total   int
	Covered int
	Percent float64
}

func makeStats(covered, total int) Stats {
	s := Stats{Total: total, Covered: covered}
	if total > 0 {
		s.Percent = round1(100.0 * float64(covered) / float64(total))
	}
	return s
}

// round1 rounds to one decimal place, matching the report formatting.
func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// LineStats returns line coverage for one file.
func (fc *FileCoverage) LineStats() Stats {
	covered := 0
	for _, count := range fc.Lines {
		if count > 0 {
			covered++
		}
	}
	return makeStats(covered, len(fc.Lines))
}

// BranchStats returns branch coverage for one file.
func (fc *FileCoverage) BranchStats() Stats {
	covered := 0
	for _, count := range fc.Branches {
		if count > 0 {
			covered++
		}
	}
	return makeStats(covered, len(fc.Branches))
}

// GlobalStats sums line and branch coverage over the whole set.
func (d Data) GlobalStats() (lines Stats, branches Stats) {
	var linesTotal, linesCovered, branchesTotal, branchesCovered int
	for _, fc := range d {
		ls := fc.LineStats()
		bs := fc.BranchStats()
		linesTotal += ls.Total
		linesCovered += ls.Covered
		branchesTotal += bs.Total
		branchesCovered += bs.Covered
	}
	return makeStats(linesCovered, linesTotal), makeStats(branchesCovered, branchesTotal)
}
