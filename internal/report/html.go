package report

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theKBro/gcovr/internal/coverage"
)

// HTML writes the overview page and, with opts.Details, one annotated
// source page per file. Details pages are derived from the output file
// name, so --html-details requires --output.
func HTML(data coverage.Data, opts Options, version string, now time.Time) error {
	if opts.Details && opts.Output == "" {
		return fmt.Errorf("--html-details requires --output")
	}
	if opts.MediumThreshold == 0 {
		opts.MediumThreshold = DefaultMediumThreshold
	}
	if opts.HighThreshold == 0 {
		opts.HighThreshold = DefaultHighThreshold
	}

	page := buildOverview(data, opts, version, now)

	if opts.Details {
		for i, row := range page.Files {
			fc := data[row.Path]
			detailPath := detailFileName(opts.Output, fc.Path)
			page.Files[i].Link = linkTo(opts, detailPath)
			if err := writeDetailPage(fc, detailPath, opts, version, now); err != nil {
				return err
			}
		}
	}

	return opts.WriteTo(func(w io.Writer) error {
		return overviewTmpl.Execute(w, page)
	})
}

type overviewPage struct {
	Encoding  string
	Root      string
	Version   string
	Timestamp string
	Lines     barStats
	Branches  barStats
	Files     []fileRow
}

type fileRow struct {
	Path     string
	Link     string
	Lines    barStats
	Branches barStats
}

type barStats struct {
	Covered int
	Total   int
	Percent float64
	Band    string // "low", "medium", "high"
}

func buildOverview(data coverage.Data, opts Options, version string, now time.Time) *overviewPage {
	lines, branches := data.GlobalStats()
	page := &overviewPage{
		Encoding:  opts.Encoding,
		Root:      opts.RootDir,
		Version:   version,
		Timestamp: now.Format("2006-01-02 15:04:05"),
		Lines:     bar(lines, opts),
		Branches:  bar(branches, opts),
	}
	for _, fc := range data.SortedFiles(opts.Sort) {
		page.Files = append(page.Files, fileRow{
			Path:     fc.Path,
			Lines:    bar(fc.LineStats(), opts),
			Branches: bar(fc.BranchStats(), opts),
		})
	}
	return page
}

func bar(s coverage.Stats, opts Options) barStats {
	b := barStats{Covered: s.Covered, Total: s.Total, Percent: s.Percent, Band: "high"}
	switch {
	case s.Total == 0:
		b.Percent = 100.0
	case s.Percent < opts.MediumThreshold:
		b.Band = "low"
	case s.Percent < opts.HighThreshold:
		b.Band = "medium"
	}
	return b
}

// detailFileName mangles a source path into a sibling of the overview page:
// coverage.html + src/main.cpp -> coverage.src_main_cpp.html
func detailFileName(output, sourcePath string) string {
	dir := filepath.Dir(output)
	base := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	mangled := strings.NewReplacer("/", "_", "\\", "_", ".", "_").Replace(sourcePath)
	return filepath.Join(dir, base+"."+mangled+".html")
}

func linkTo(opts Options, detailPath string) string {
	if opts.RelativeAnchors {
		return filepath.Base(detailPath)
	}
	return detailPath
}

type detailPage struct {
	Encoding  string
	Path      string
	Version   string
	Timestamp string
	Lines     barStats
	Branches  barStats
	Rows      []sourceRow
	Missing   bool // source file could not be read
	Covered   string
	Uncovered string
}

type sourceRow struct {
	Number int
	Hits   string
	Class  string // "covered", "uncovered", "noncode", "excluded"
	Text   string
}

func writeDetailPage(fc *coverage.FileCoverage, detailPath string, opts Options, version string, now time.Time) error {
	page := &detailPage{
		Encoding:  opts.Encoding,
		Path:      fc.Path,
		Version:   version,
		Timestamp: now.Format("2006-01-02 15:04:05"),
		Lines:     bar(fc.LineStats(), opts),
		Branches:  bar(fc.BranchStats(), opts),
	}

	sourceFile := fc.Path
	if !filepath.IsAbs(sourceFile) {
		sourceFile = filepath.Join(opts.RootDir, filepath.FromSlash(fc.Path))
	}
	f, err := os.Open(sourceFile)
	if err != nil {
		// No source to annotate; fall back to the bare line numbers.
		page.Missing = true
		page.Covered = fc.CoveredRanges()
		page.Uncovered = fc.MissingRanges()
	} else {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			row := sourceRow{Number: lineNo, Text: scanner.Text(), Class: "noncode"}
			if fc.Excluded[lineNo] {
				row.Class = "excluded"
			} else if count, ok := fc.Lines[lineNo]; ok {
				row.Hits = fmt.Sprintf("%d", count)
				if count > 0 {
					row.Class = "covered"
				} else {
					row.Class = "uncovered"
				}
			}
			page.Rows = append(page.Rows, row)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read source %s: %w", sourceFile, err)
		}
	}

	out, err := os.Create(detailPath)
	if err != nil {
		return fmt.Errorf("failed to create detail page: %w", err)
	}
	if err := detailTmpl.Execute(out, page); err != nil {
		out.Close()
		return fmt.Errorf("failed to render detail page: %w", err)
	}
	return out.Close()
}

var overviewTmpl = template.Must(template.New("overview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="{{.Encoding}}">
<title>GCC Code Coverage Report</title>
<style>
body { font-family: sans-serif; }
table.listing { border-collapse: collapse; width: 100%; }
table.listing th, table.listing td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
td.pct { text-align: right; white-space: nowrap; }
.low { background-color: #f8b7b7; }
.medium { background-color: #f8e8a2; }
.high { background-color: #c8f0c8; }
p.meta { color: #666; font-size: smaller; }
</style>
</head>
<body>
<h1>GCC Code Coverage Report</h1>
<p class="meta">Directory: {{.Root}}<br>Date: {{.Timestamp}}<br>Generated by gcovr {{.Version}}</p>
<table class="listing">
<tr><th></th><th>Coverage</th><th>Covered</th><th>Total</th></tr>
<tr><td>Lines</td><td class="pct {{.Lines.Band}}">{{printf "%.1f" .Lines.Percent}}%</td><td>{{.Lines.Covered}}</td><td>{{.Lines.Total}}</td></tr>
<tr><td>Branches</td><td class="pct {{.Branches.Band}}">{{printf "%.1f" .Branches.Percent}}%</td><td>{{.Branches.Covered}}</td><td>{{.Branches.Total}}</td></tr>
</table>
<h2>Files</h2>
<table class="listing">
<tr><th>File</th><th>Lines</th><th>Line coverage</th><th>Branches</th><th>Branch coverage</th></tr>
{{range .Files}}<tr>
<td>{{if .Link}}<a href="{{.Link}}">{{.Path}}</a>{{else}}{{.Path}}{{end}}</td>
<td>{{.Lines.Covered}} / {{.Lines.Total}}</td>
<td class="pct {{.Lines.Band}}">{{printf "%.1f" .Lines.Percent}}%</td>
<td>{{.Branches.Covered}} / {{.Branches.Total}}</td>
<td class="pct {{.Branches.Band}}">{{printf "%.1f" .Branches.Percent}}%</td>
</tr>
{{end}}</table>
</body>
</html>
`))

var detailTmpl = template.Must(template.New("detail").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="{{.Encoding}}">
<title>Coverage - {{.Path}}</title>
<style>
body { font-family: sans-serif; }
table.source { border-collapse: collapse; font-family: monospace; width: 100%; }
table.source td { padding: 0 8px; white-space: pre; }
td.lineno { text-align: right; color: #888; border-right: 1px solid #ccc; }
td.hits { text-align: right; color: #555; border-right: 1px solid #ccc; }
tr.covered { background-color: #c8f0c8; }
tr.uncovered { background-color: #f8b7b7; }
tr.excluded { background-color: #e0e0e0; }
.low { background-color: #f8b7b7; }
.medium { background-color: #f8e8a2; }
.high { background-color: #c8f0c8; }
p.meta { color: #666; font-size: smaller; }
</style>
</head>
<body>
<h1>{{.Path}}</h1>
<p class="meta">Lines: <span class="{{.Lines.Band}}">{{printf "%.1f" .Lines.Percent}}%</span> ({{.Lines.Covered}} of {{.Lines.Total}})
&mdash; Branches: <span class="{{.Branches.Band}}">{{printf "%.1f" .Branches.Percent}}%</span> ({{.Branches.Covered}} of {{.Branches.Total}})<br>
Date: {{.Timestamp}} &mdash; Generated by gcovr {{.Version}}</p>
{{if .Missing}}<p>Source file could not be read.<br>
Covered lines: {{.Covered}}<br>Uncovered lines: {{.Uncovered}}</p>{{else}}
<table class="source">
{{range .Rows}}<tr class="{{.Class}}"><td class="lineno">{{.Number}}</td><td class="hits">{{.Hits}}</td><td>{{.Text}}</td></tr>
{{end}}</table>
{{end}}</body>
</html>
`))
