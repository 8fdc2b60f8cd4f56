package report

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCobertura(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(1700000000, 0)
	err := writeCobertura(&buf, sampleData(), Options{RootDir: "/project"}, "3.4", now)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header), "missing XML declaration")
	assert.Contains(t, out, "coverage-04.dtd")

	// round-trip through the same structs to check the document shape
	body := out[strings.Index(out, "<coverage"):]
	var doc xmlCoverage
	require.NoError(t, xml.Unmarshal([]byte(body), &doc))

	assert.Equal(t, 5, doc.LinesCovered)
	assert.Equal(t, 6, doc.LinesValid)
	assert.Equal(t, 1, doc.BranchesCovered)
	assert.Equal(t, 2, doc.BranchesValid)
	assert.Equal(t, "0.8333", doc.LineRate)
	assert.Equal(t, int64(1700000000), doc.Timestamp)
	assert.Equal(t, "gcovr 3.4", doc.Version)
	require.Equal(t, []string{"/project"}, doc.Sources)

	require.Len(t, doc.Packages, 1)
	pkg := doc.Packages[0]
	assert.Equal(t, "src", pkg.Name)
	require.Len(t, pkg.Classes, 2)

	main := pkg.Classes[0]
	assert.Equal(t, "src_main_cpp", main.Name)
	assert.Equal(t, "src/main.cpp", main.Filename)
	require.Len(t, main.Lines, 4)

	// line 4 carries the branch annotation
	var line4 *xmlLine
	for i := range main.Lines {
		if main.Lines[i].Number == 4 {
			line4 = &main.Lines[i]
		}
	}
	require.NotNil(t, line4)
	assert.Equal(t, "true", line4.Branch)
	assert.Equal(t, "50% (1/2)", line4.ConditionCoverage)

	// line 3 has no branches
	assert.Equal(t, "false", main.Lines[0].Branch)
	assert.Empty(t, main.Lines[0].ConditionCoverage)
}

func TestWriteCobertura_Pretty(t *testing.T) {
	var dense, pretty bytes.Buffer
	now := time.Now()
	require.NoError(t, writeCobertura(&dense, sampleData(), Options{RootDir: "/p"}, "3.4", now))
	require.NoError(t, writeCobertura(&pretty, sampleData(), Options{RootDir: "/p", Pretty: true}, "3.4", now))

	assert.Greater(t, strings.Count(pretty.String(), "\n"), strings.Count(dense.String(), "\n"))
}

func TestPackageNames(t *testing.T) {
	assert.Equal(t, "", packageName("."))
	assert.Equal(t, "src", packageName("src"))
	assert.Equal(t, "src.net", packageName("src/net"))
	assert.Equal(t, "main_cpp", className("main.cpp"))
	assert.Equal(t, "src_main_cpp", className("src/main.cpp"))
}
