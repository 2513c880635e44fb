package dataset

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleure/fleure-db/analysis"
	"github.com/fleure/fleure-db/updateinfo"
)

func testErratum() analysis.Erratum {
	return analysis.Erratum{
		Update: updateinfo.Update{
			Advisory: "RHSA-2016:2872",
			Type:     "security",
			Title:    "Moderate: sudo security update",
			Severity: "Moderate",
		},
		PackageNamesList: []string{"sudo", "sudo-devel"},
		CVEs: []analysis.CVE{
			{ID: "CVE-2016-7032", Title: "CVE-2016-7032"},
			{ID: "CVE-2016-7076", Title: "CVE-2016-7076"},
		},
		Bugzillas: []analysis.Bugzilla{
			{ID: "1372830", Summary: "sudo: noexec bypass", URL: "https://bugzilla.redhat.com/1372830"},
			{ID: "1384982", URL: "https://bugzilla.redhat.com/1384982"},
		},
	}
}

func TestCellData(t *testing.T) {
	e := testErratum()

	tests := []struct {
		key  string
		want string
	}{
		{"advisory", "RHSA-2016:2872"},
		{"severity", "Moderate"},
		{"update_names", "sudo, sudo-devel"},
		{"cves", "CVE-2016-7032, CVE-2016-7076"},
		{"bzs", "bz#1372830: sudo: noexec bypass (https://bugzilla.redhat.com/1372830), bz#1384982 (https://bugzilla.redhat.com/1384982)"},
		{"solution", NA},
		{"no_such_key", NA},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, CellData(e, tt.key))
		})
	}

	e.CVEs, e.Bugzillas = nil, nil
	assert.Equal(t, "", CellData(e, "cves"))
	assert.Equal(t, NA, CellData(e, "bzs"))
}

func TestMake(t *testing.T) {
	ds := Make("Critical or Important RHSAs of the system", []string{"advisory", "cves"}, []analysis.Erratum{testErratum()})
	assert.Equal(t, "Critical or Important RHSAs of", ds.Title)
	assert.Len(t, ds.Title, 30)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, []string{"RHSA-2016:2872", "CVE-2016-7032, CVE-2016-7076"}, ds.Rows[0])
}

func TestMakeMultibyteTitle(t *testing.T) {
	title := strings.Repeat("é", 29) + "çà"
	ds := Make(title, []string{"advisory"}, nil)
	assert.True(t, utf8.ValidString(ds.Title))
	assert.Equal(t, 30, utf8.RuneCountInString(ds.Title))
	assert.Equal(t, strings.Repeat("é", 29)+"ç", ds.Title)
}

func TestOverview(t *testing.T) {
	e := testErratum()
	res := analysis.Result{
		Security: analysis.SecurityAnalysis{
			List:            []analysis.Erratum{e, e},
			Important:       []analysis.Erratum{e},
			LatestImportant: []analysis.Erratum{e},
		},
	}

	ds := Overview(res, OverviewOptions{Keywords: []string{"crash", "hang"}, Installed: 10, FromOthers: 2})
	assert.Equal(t, OverviewTitle, ds.Title)
	for _, row := range ds.Rows {
		assert.Len(t, row, 3)
	}

	values := make(map[string]string)
	for _, row := range ds.Rows {
		values[row[0]] = row[1]
	}
	assert.Equal(t, "2", values["# of RHSAs"])
	assert.Equal(t, "1", values["# of Important RHSAs"])
	assert.Equal(t, "0", values["# of Critical RHSAs"])
	assert.Equal(t, "10", values["# of Installed RPMs"])
	assert.Equal(t, "2", values["# of RPMs from other vendors (non Red Hat)"])
	assert.Contains(t, values, "RHBAs (Bug Errata) by keywords: crash, hang")
	assert.NotContains(t, values, "RHSAs and RHBAs by CVSS score")
	assert.NotContains(t, values, "# of RHBAs of core rpms (latests only)")

	ds = Overview(res, OverviewOptions{Score: 4, CoreRPMs: []string{"kernel"}})
	values = make(map[string]string)
	for _, row := range ds.Rows {
		values[row[0]] = row[1]
	}
	assert.Contains(t, values, "# of RHSAs of CVSS Score >= 4.0")
	assert.Contains(t, values, "RHBAs of core rpms: kernel")
}

func TestRenderTable(t *testing.T) {
	ds := Overview(analysis.Result{}, OverviewOptions{})

	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, ds))
	out := buf.String()
	assert.Contains(t, out, OverviewTitle)
	assert.Contains(t, out, "# of Critical RHSAs")
	assert.Contains(t, out, "Origin of Installed RPMs")
}

func TestRenderCSV(t *testing.T) {
	ds := Make("RHSAs", []string{"advisory", "update_names"}, []analysis.Erratum{testErratum()})

	var buf bytes.Buffer
	require.NoError(t, RenderCSV(&buf, ds))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"advisory", "update_names"},
		{"RHSA-2016:2872", "sudo, sudo-devel"},
	}, records)
}
