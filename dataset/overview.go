package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fleure/fleure-db/analysis"
)

// OverviewTitle is the title of the overview dataset.
const OverviewTitle = "Overview of analysis results"

var overviewHeaders = []string{"Item", "Value", "Notes"}

// OverviewOptions are the parameters of the analysis and the counts of
// packages it was run against.
type OverviewOptions struct {
	Score    float64
	Keywords []string
	// CoreRPMs adds the core rpms section when not nil.
	CoreRPMs   []string
	UpdateRPMs int
	Installed  int
	FromOthers int
}

type overview [][]string

func (o *overview) section(title string) { *o = append(*o, []string{title}) }
func (o *overview) blank()               { *o = append(*o, nil) }

func (o *overview) count(item string, n int) {
	*o = append(*o, []string{item, strconv.Itoa(n)})
}

// Overview summarizes res in a three columns dataset: item, value, notes.
// Single cell rows are section separators.
func Overview(res analysis.Result, opts OverviewOptions) *Dataset {
	var o overview
	o.section("Critical or Important RHSAs (Security Errata)")
	o.count("# of Critical RHSAs", len(res.Security.Critical))
	o.count("# of Critical RHSAs (latests only)", len(res.Security.LatestCritical))
	o.count("# of Important RHSAs", len(res.Security.Important))
	o.count("# of Important RHSAs (latests only)", len(res.Security.LatestImportant))
	o.section("Update RPMs by Critical or Important RHSAs at minimum")
	o.count("# of Update RPMs by Critical RHSAs at minimum", len(res.Security.CriticalUpdates))
	o.count("# of Update RPMs by Important RHSAs at minimum", len(res.Security.ImportantUpdates))
	o.blank()
	o.section("RHBAs (Bug Errata) by keywords: " + strings.Join(opts.Keywords, ", "))
	o.count("# of RHBAs by keywords", len(res.Bug.ByKeywords))
	o.count("# of Update RPMs by RHBAs by keywords at minimum", len(res.Bug.UpdatesByKeywords))

	if opts.CoreRPMs != nil {
		o.blank()
		o.section("RHBAs of core rpms: " + strings.Join(opts.CoreRPMs, ", "))
		o.count("# of RHBAs of core rpms (latests only)", len(res.Bug.LatestOfCoreRPMs))
	}

	if opts.Score > 0 {
		o.blank()
		o.section("RHSAs and RHBAs by CVSS score")
		o.count(fmt.Sprintf("# of RHSAs of CVSS Score >= %.1f", opts.Score), len(res.Security.HigherCVSS))
		o.count("# of Update RPMs by the above RHSAs at minimum", len(res.Security.HigherCVSSUpdates))
		o.count(fmt.Sprintf("# of RHBAs of CVSS Score >= %.1f", opts.Score), len(res.Bug.HigherCVSS))
		o.count("# of Update RPMs by the above RHBAs at minimum", len(res.Bug.HigherCVSSUpdates))
	}

	o.blank()
	o.count("# of RHSAs", len(res.Security.List))
	o.count("# of RHBAs", len(res.Bug.List))
	o.count("# of RHEAs (Enhancement Errata)", len(res.Enhancement.List))
	o.count("# of Update RPMs", opts.UpdateRPMs)
	o.count("# of Installed RPMs", opts.Installed)
	o.blank()
	o.section("Origin of Installed RPMs")
	o.count("# of RPMs from other vendors (non Red Hat)", opts.FromOthers)

	ds := &Dataset{Title: OverviewTitle, Headers: overviewHeaders}
	for _, row := range o {
		ds.Rows = append(ds.Rows, pad(row, len(overviewHeaders)))
	}
	return ds
}
