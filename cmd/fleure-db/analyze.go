package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/fleure/fleure-db/analysis"
	"github.com/fleure/fleure-db/config"
	"github.com/fleure/fleure-db/convert"
	"github.com/fleure/fleure-db/dataset"
	"github.com/fleure/fleure-db/dates"
	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/installed"
	"github.com/fleure/fleure-db/source"
	"github.com/fleure/fleure-db/store/jsonfile"
	"github.com/fleure/fleure-db/store/sqlite"
	"github.com/fleure/fleure-db/updateinfo"
)

const (
	analysisFileName = "analysis.json"
	topicsFileName   = "topics.json"
)

var analyzeFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "installed-dir",
		Usage: "analyze the updates applicable to the RPMs in this dir",
	},
	cli.BoolFlag{
		Name:  "rpmdb",
		Usage: "analyze the updates applicable to the RPMs installed in the root",
	},
	cli.StringFlag{
		Name:  "cvss-scores",
		Usage: "JSON file of CVSS scores of CVEs",
	},
	cli.Float64Flag{
		Name:  "score",
		Usage: "lowest CVSS score of errata to list; 0 disables",
		Value: -1,
	},
	cli.IntFlag{
		Name:  "topics",
		Usage: "number of topics of errata descriptions to print; 0 disables",
		Value: -1,
	},
	cli.BoolFlag{
		Name:  "no-stemming",
		Usage: "match keywords as written instead of by word stems",
	},
	cli.IntFlag{
		Name:  "since-weeks",
		Usage: "analyze only the errata issued in the last N weeks",
	},
	cli.IntFlag{
		Name:  "since-days",
		Usage: "analyze only the errata issued in the last N days",
	},
	cli.StringFlag{
		Name:  "until",
		Usage: "end date of --since-weeks and --since-days [default: today]",
	},
	cli.StringFlag{
		Name:  "format",
		Usage: "format of the overview: table or csv",
		Value: "table",
	},
}

var analyzeCommand = cli.Command{
	Name:    "analyze",
	Aliases: []string{"a"},
	Usage:   "analyze the errata of the database in the output dir",
	Action:  analyzeAction,
	Flags:   analyzeFlags,
}

func analyzeAction(c *cli.Context) error {
	cnf := configOf(c)
	ctx := contextOf(c)

	db, err := openOutdirDB(ctx, cnf.Outdir)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		dblog.L.Warn("No updates found in %s", db.Path())
	}
	updates, err := db.ListUpdates(ctx, sqlite.ListFilter{})
	if err != nil {
		return err
	}
	return analyze(c, cnf, updates)
}

// openOutdirDB opens the database create wrote in outdir.
func openOutdirDB(ctx context.Context, outdir string) (*sqlite.Store, error) {
	path := filepath.Join(outdir, convert.DBFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no database in %s, run create first: %w", outdir, err)
	}
	return sqlite.Open(ctx, path)
}

// issuedWithin returns the updates issued in the period given by the
// --since-weeks or --since-days flags, or all updates without them.
func issuedWithin(c *cli.Context, updates []updateinfo.Update) ([]updateinfo.Update, error) {
	weeks, days, until := c.Int("since-weeks"), c.Int("since-days"), c.String("until")
	if weeks <= 0 && days <= 0 {
		return updates, nil
	}
	if until != "" {
		if _, err := dates.ParseDate(until); err != nil {
			return nil, fmt.Errorf("--until: %w", err)
		}
	}

	var res []updateinfo.Update
	for _, u := range updates {
		var ok bool
		var err error
		if weeks > 0 {
			ok, err = dates.InLastWeeks(u.Issued, weeks, until)
		} else {
			ok, err = dates.InLastDays(u.Issued, days, until)
		}
		if err != nil {
			dblog.L.Warn("%s: %v", u.Advisory, err)
			continue
		}
		if ok {
			res = append(res, u)
		}
	}
	dblog.L.Info("%d of %d updates issued in the period", len(res), len(updates))
	return res, nil
}

// installedPackages returns the installed packages selected by the flags
// of c, or nil if none is.
func installedPackages(ctx context.Context, c *cli.Context, cnf *config.Config) ([]installed.Package, error) {
	switch {
	case c.String("installed-dir") != "":
		return installed.ScanDir(c.String("installed-dir"))
	case c.Bool("rpmdb"):
		return installed.List(ctx, source.ExecRunner{}, cnf.Root)
	}
	return nil, nil
}

func analysisOptions(c *cli.Context, cnf *config.Config) analysis.Options {
	score := cnf.CVSSMinScore
	if s := c.Float64("score"); s >= 0 {
		score = s
	}
	return analysis.Options{
		Score:           score,
		Keywords:        cnf.Keywords,
		PackageKeywords: cnf.PackageKeywords,
		CoreRPMs:        cnf.CoreRPMs,
		Stemming:        cnf.Stemming && !c.Bool("no-stemming"),
	}
}

var errataHeaders = []string{"advisory", "title", "severity", "issued", "update_names", "cves", "bzs"}

func analyze(c *cli.Context, cnf *config.Config, updates []updateinfo.Update) error {
	ctx := contextOf(c)

	scoresPath := cnf.CVSSScores
	if c.IsSet("cvss-scores") {
		scoresPath = c.String("cvss-scores")
	}
	var scores analysis.CVSSScores
	if scoresPath != "" {
		var err error
		if scores, err = analysis.LoadCVSSScores(scoresPath); err != nil {
			return err
		}
	}

	updates, err := issuedWithin(c, updates)
	if err != nil {
		return err
	}

	pkgs, err := installedPackages(ctx, c, cnf)
	if err != nil {
		return err
	}
	if pkgs != nil {
		if err := saveInstalled(ctx, cnf, pkgs); err != nil {
			return err
		}
		updates = installed.Applicable(updates, pkgs)
		dblog.L.Info("%d updates applicable to %d installed RPMs", len(updates), len(pkgs))
	}

	opts := analysisOptions(c, cnf)
	ers := analysis.NewErrata(updates, scores)
	res := analysis.AnalyzeErrata(ers, opts)
	if err := jsonfile.Save(res, filepath.Join(cnf.Outdir, analysisFileName), ""); err != nil {
		return err
	}

	numUpdates := len(analysis.UpdatesFromErrata(ers))
	if pkgs != nil {
		numUpdates = len(installed.UpdatePackages(updates, pkgs))
	}
	overview := dataset.Overview(res, dataset.OverviewOptions{
		Score:      opts.Score,
		Keywords:   opts.Keywords,
		CoreRPMs:   opts.CoreRPMs,
		UpdateRPMs: numUpdates,
		Installed:  len(pkgs),
		FromOthers: len(installed.FromOthers(pkgs, installed.DefaultVendor)),
	})
	if err := render(c.App.Writer, c.String("format"), overview); err != nil {
		return err
	}

	if err := saveErrataLists(cnf.Outdir, res); err != nil {
		return err
	}

	topics := cnf.Topics
	if n := c.Int("topics"); n >= 0 {
		topics = n
	}
	if topics > 0 && len(ers) > 0 {
		return printTopics(c.App.Writer, cnf.Outdir, ers, topics)
	}
	return nil
}

func saveInstalled(ctx context.Context, cnf *config.Config, pkgs []installed.Package) error {
	db, err := sqlite.Open(ctx, filepath.Join(cnf.Outdir, convert.DBFileName))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveInstalled(ctx, pkgs)
}

func render(w io.Writer, format string, ds *dataset.Dataset) error {
	switch format {
	case "table", "":
		return dataset.RenderTable(w, ds)
	case "csv":
		return dataset.RenderCSV(w, ds)
	}
	return fmt.Errorf("unknown format: %s", format)
}

// saveErrataLists writes the main errata lists of res as CSV files in outdir.
func saveErrataLists(outdir string, res analysis.Result) error {
	lists := []struct {
		file  string
		title string
		ers   []analysis.Erratum
	}{
		{"rhsa_critical.csv", "Critical RHSAs (latests)", res.Security.LatestCritical},
		{"rhsa_important.csv", "Important RHSAs (latests)", res.Security.LatestImportant},
		{"rhsa_cvss.csv", "RHSAs of higher CVSS scores", res.Security.HigherCVSS},
		{"rhba_keywords.csv", "RHBAs by keywords", res.Bug.ByKeywords},
		{"rhba_core_rpms.csv", "RHBAs of core RPMs (latests)", res.Bug.LatestOfCoreRPMs},
	}
	for _, l := range lists {
		ds := dataset.Make(l.title, errataHeaders, l.ers)
		if err := writeCSV(filepath.Join(outdir, l.file), ds); err != nil {
			return err
		}
	}
	return nil
}

func printTopics(w io.Writer, outdir string, ers []analysis.Erratum, n int) error {
	model := analysis.NewTopicModel(ers)
	if err := model.Save(filepath.Join(outdir, topicsFileName)); err != nil {
		return err
	}

	ds := &dataset.Dataset{Title: "Topics of errata", Headers: []string{"Term", "Weight"}}
	for _, t := range model.Topics(n) {
		ds.Rows = append(ds.Rows, []string{t.Term, fmt.Sprintf("%.3f", t.Weight)})
	}
	return dataset.RenderTable(w, ds)
}

func writeCSV(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.RenderCSV(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
