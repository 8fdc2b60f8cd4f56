package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/theKBro/gcovr/internal/coverage"
)

// Cobertura structures, matching the coverage-04 DTD closely enough for the
// usual CI consumers.

type xmlCoverage struct {
	XMLName         xml.Name     `xml:"coverage"`
	LineRate        string       `xml:"line-rate,attr"`
	BranchRate      string       `xml:"branch-rate,attr"`
	LinesCovered    int          `xml:"lines-covered,attr"`
	LinesValid      int          `xml:"lines-valid,attr"`
	BranchesCovered int          `xml:"branches-covered,attr"`
	BranchesValid   int          `xml:"branches-valid,attr"`
	Complexity      string       `xml:"complexity,attr"`
	Timestamp       int64        `xml:"timestamp,attr"`
	Version         string       `xml:"version,attr"`
	Sources         []string     `xml:"sources>source"`
	Packages        []xmlPackage `xml:"packages>package"`
}

type xmlPackage struct {
	Name       string     `xml:"name,attr"`
	LineRate   string     `xml:"line-rate,attr"`
	BranchRate string     `xml:"branch-rate,attr"`
	Complexity string     `xml:"complexity,attr"`
	Classes    []xmlClass `xml:"classes>class"`
}

type xmlClass struct {
	Name       string    `xml:"name,attr"`
	Filename   string    `xml:"filename,attr"`
	LineRate   string    `xml:"line-rate,attr"`
	BranchRate string    `xml:"branch-rate,attr"`
	Complexity string    `xml:"complexity,attr"`
	Methods    struct{}  `xml:"methods"`
	Lines      []xmlLine `xml:"lines>line"`
}

type xmlLine struct {
	Number            int    `xml:"number,attr"`
	Hits              int64  `xml:"hits,attr"`
	Branch            string `xml:"branch,attr"`
	ConditionCoverage string `xml:"condition-coverage,attr,omitempty"`
}

// Cobertura writes a Cobertura XML report, dense by default and indented
// with opts.Pretty.
func Cobertura(data coverage.Data, opts Options, version string, now time.Time) error {
	return opts.WriteTo(func(w io.Writer) error {
		return writeCobertura(w, data, opts, version, now)
	})
}

func writeCobertura(w io.Writer, data coverage.Data, opts Options, version string, now time.Time) error {
	lines, branches := data.GlobalStats()

	doc := xmlCoverage{
		LineRate:        rate(lines),
		BranchRate:      rate(branches),
		LinesCovered:    lines.Covered,
		LinesValid:      lines.Total,
		BranchesCovered: branches.Covered,
		BranchesValid:   branches.Total,
		Complexity:      "0.0",
		Timestamp:       now.Unix(),
		Version:         "gcovr " + version,
		Sources:         []string{opts.RootDir},
	}

	// group files into packages by directory
	packages := make(map[string][]*coverage.FileCoverage)
	for _, fc := range data.SortedFiles(coverage.SortByName) {
		dir := path.Dir(fc.Path)
		packages[dir] = append(packages[dir], fc)
	}
	var pkgNames []string
	for name := range packages {
		pkgNames = append(pkgNames, name)
	}
	sort.Strings(pkgNames)

	for _, dir := range pkgNames {
		pkg := xmlPackage{
			Name:       packageName(dir),
			Complexity: "0.0",
		}
		pkgData := coverage.Data{}
		for _, fc := range packages[dir] {
			pkgData[fc.Path] = fc
			pkg.Classes = append(pkg.Classes, classFor(fc))
		}
		pkgLines, pkgBranches := pkgData.GlobalStats()
		pkg.LineRate = rate(pkgLines)
		pkg.BranchRate = rate(pkgBranches)
		doc.Packages = append(doc.Packages, pkg)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<!DOCTYPE coverage SYSTEM \"http://cobertura.sourceforge.net/xml/coverage-04.dtd\">\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if opts.Pretty {
		enc.Indent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode XML report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func classFor(fc *coverage.FileCoverage) xmlClass {
	cls := xmlClass{
		Name:       className(fc.Path),
		Filename:   fc.Path,
		LineRate:   rate(fc.LineStats()),
		BranchRate: rate(fc.BranchStats()),
		Complexity: "0.0",
	}

	// branches grouped per line for condition-coverage
	branchTotal := make(map[int]int)
	branchTaken := make(map[int]int)
	for key, count := range fc.Branches {
		branchTotal[key.Line]++
		if count > 0 {
			branchTaken[key.Line]++
		}
	}

	var lineNos []int
	for line := range fc.Lines {
		lineNos = append(lineNos, line)
	}
	sort.Ints(lineNos)

	for _, line := range lineNos {
		xl := xmlLine{
			Number: line,
			Hits:   fc.Lines[line],
			Branch: "false",
		}
		if total := branchTotal[line]; total > 0 {
			taken := branchTaken[line]
			xl.Branch = "true"
			xl.ConditionCoverage = fmt.Sprintf("%d%% (%d/%d)", 100*taken/total, taken, total)
		}
		cls.Lines = append(cls.Lines, xl)
	}
	return cls
}

// rate formats covered/total as the 0..1 ratio Cobertura expects.
func rate(s coverage.Stats) string {
	if s.Total == 0 {
		return "1.0"
	}
	return strconv.FormatFloat(float64(s.Covered)/float64(s.Total), 'f', 4, 64)
}

// packageName maps a directory to a Java-style package name.
func packageName(dir string) string {
	if dir == "." {
		return ""
	}
	name := ""
	for i, part := range splitPath(dir) {
		if i > 0 {
			name += "."
		}
		name += part
	}
	return name
}

func className(file string) string {
	return strings.NewReplacer("/", "_", ".", "_").Replace(file)
}

func splitPath(p string) []string {
	var parts []string
	for p != "" && p != "." && p != "/" {
		dir, base := path.Dir(p), path.Base(p)
		parts = append([]string{base}, parts...)
		if dir == p {
			break
		}
		p = dir
	}
	return parts
}
