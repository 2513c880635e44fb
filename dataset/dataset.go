// Package dataset turns analysis results into tabular datasets and renders
// them as text tables or CSV.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/tidwall/gjson"

	"github.com/fleure/fleure-db/analysis"
	"github.com/fleure/fleure-db/dblog"
)

// NA is the value of cells without data.
const NA = "N/A"

const maxTitle = 30

type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func formatBugzilla(bz analysis.Bugzilla) string {
	if bz.Summary != "" {
		return fmt.Sprintf("bz#%s: %s (%s)", bz.ID, bz.Summary, bz.URL)
	}
	return fmt.Sprintf("bz#%s (%s)", bz.ID, bz.URL)
}

// CellData returns the value of key of e as a cell. Keys are the JSON keys
// of the erratum, e.g. advisory, update_names, cves or bzs.
func CellData(e analysis.Erratum, key string) string {
	switch key {
	case "cves":
		titles := make([]string, 0, len(e.CVEs))
		for _, c := range e.CVEs {
			titles = append(titles, c.Title)
		}
		return strings.Join(titles, ", ")
	case "bzs":
		if len(e.Bugzillas) == 0 {
			return NA
		}
		bzs := make([]string, 0, len(e.Bugzillas))
		for _, bz := range e.Bugzillas {
			bzs = append(bzs, formatBugzilla(bz))
		}
		return strings.Join(bzs, ", ")
	}

	b, err := json.Marshal(e)
	if err != nil {
		dblog.L.Warn("cannot encode %s: %v", e.Advisory, err)
		return NA
	}
	return cell(gjson.GetBytes(b, key))
}

func cell(r gjson.Result) string {
	switch {
	case !r.Exists():
		return NA
	case r.IsArray():
		var vals []string
		r.ForEach(func(_, v gjson.Result) bool {
			vals = append(vals, v.String())
			return true
		})
		return strings.Join(vals, ", ")
	default:
		return r.String()
	}
}

// Make builds a dataset of ers with a column per header key.
func Make(title string, headers []string, ers []analysis.Erratum) *Dataset {
	if r := []rune(title); len(r) > maxTitle {
		title = string(r[:maxTitle])
	}
	ds := &Dataset{Title: title, Headers: headers}
	for _, e := range ers {
		row := make([]string, 0, len(headers))
		for _, h := range headers {
			row = append(row, CellData(e, h))
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func pad(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

// RenderTable writes ds to w as a text table.
func RenderTable(w io.Writer, ds *Dataset) error {
	if ds.Title != "" {
		if _, err := fmt.Fprintln(w, ds.Title); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader(ds.Headers),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(len(ds.Headers), tw.AlignLeft)),
	)
	for _, row := range ds.Rows {
		if err := table.Append(pad(row, len(ds.Headers))); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// RenderCSV writes ds to w as CSV, headers first.
func RenderCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Headers); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := cw.Write(pad(row, len(ds.Headers))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
