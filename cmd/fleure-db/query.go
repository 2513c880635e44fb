package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli"

	"github.com/fleure/fleure-db/analysis"
	"github.com/fleure/fleure-db/config"
	"github.com/fleure/fleure-db/convert"
	"github.com/fleure/fleure-db/dataset"
	"github.com/fleure/fleure-db/installed"
	"github.com/fleure/fleure-db/store/sqlite"
)

var queryCommand = cli.Command{
	Name:      "query",
	Usage:     "query the updates of the output dir",
	ArgsUsage: "[GJSON_PATH]",
	Action:    queryAction,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "advisory",
			Usage: "print the update of this advisory, e.g. RHSA-2016:2872",
		},
		cli.StringFlag{
			Name:  "package",
			Usage: "print the updates shipping a package of this name",
		},
		cli.StringFlag{
			Name:  "installed",
			Usage: "print the installed packages recorded by analyze matching this name or LIKE pattern",
		},
		cli.BoolFlag{
			Name:  "strict",
			Usage: "match --installed names exactly",
		},
		cli.BoolFlag{
			Name:  "count",
			Usage: "print the number of updates",
		},
		cli.StringFlag{
			Name:  "similar",
			Usage: "print the errata closest to this advisory by description",
		},
		cli.IntFlag{
			Name:  "n",
			Usage: "number of similar errata and terms to print",
			Value: 5,
		},
	},
}

func queryAction(c *cli.Context) error {
	cnf := configOf(c)
	switch {
	case c.String("similar") != "":
		return querySimilar(c, cnf)
	case c.String("advisory") != "", c.String("package") != "", c.IsSet("installed"), c.Bool("count"):
		return queryDB(c, cnf)
	case c.NArg() == 1:
		return queryJSON(c, cnf)
	}
	return fmt.Errorf("query needs a gjson path or one of --advisory, --package, --installed, --count, --similar")
}

func queryJSON(c *cli.Context, cnf *config.Config) error {
	path := filepath.Join(cnf.Outdir, convert.RawFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if !gjson.ValidBytes(b) {
		return fmt.Errorf("invalid JSON in %s", path)
	}

	res := gjson.GetBytes(b, c.Args().First())
	if !res.Exists() {
		return fmt.Errorf("no match for %q", c.Args().First())
	}
	_, err = fmt.Fprintln(c.App.Writer, res.String())
	return err
}

func queryDB(c *cli.Context, cnf *config.Config) error {
	ctx := contextOf(c)
	db, err := openOutdirDB(ctx, cnf.Outdir)
	if err != nil {
		return err
	}
	defer db.Close()

	var v any
	switch {
	case c.String("advisory") != "":
		u, err := db.GetUpdate(ctx, c.String("advisory"))
		if errors.Is(err, sqlite.ErrNotFound) {
			return fmt.Errorf("no such advisory: %s", c.String("advisory"))
		}
		if err != nil {
			return err
		}
		v = u
	case c.String("package") != "":
		if v, err = db.UpdatesByPackage(ctx, c.String("package")); err != nil {
			return err
		}
	case c.IsSet("installed"):
		pkgs, err := db.ListInstalled(ctx, c.String("installed"), c.Bool("strict"))
		if err != nil {
			return err
		}
		if pkgs == nil {
			pkgs = []installed.Package{}
		}
		v = pkgs
	default:
		n, err := db.Count(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, n)
		return err
	}
	return printJSON(c.App.Writer, v)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// querySimilar prints the errata of the topic model saved by analyze that
// are the closest to an advisory, and its top terms.
func querySimilar(c *cli.Context, cnf *config.Config) error {
	advisory, n := c.String("similar"), c.Int("n")

	model, err := analysis.LoadTopicModel(filepath.Join(cnf.Outdir, topicsFileName))
	if err != nil {
		return fmt.Errorf("no topic model, run analyze first: %w", err)
	}
	sims, err := model.Similar(advisory, n)
	if err != nil {
		return err
	}
	terms, err := model.TopTerms(advisory, n)
	if err != nil {
		return err
	}

	ds := &dataset.Dataset{Title: "Errata similar to " + advisory, Headers: []string{"Advisory", "Score"}}
	for _, s := range sims {
		ds.Rows = append(ds.Rows, []string{s.Advisory, fmt.Sprintf("%.3f", s.Score)})
	}
	if err := dataset.RenderTable(c.App.Writer, ds); err != nil {
		return err
	}

	ds = &dataset.Dataset{Title: "Terms of " + advisory, Headers: []string{"Term", "Weight"}}
	for _, t := range terms {
		ds.Rows = append(ds.Rows, []string{t.Term, fmt.Sprintf("%.3f", t.Weight)})
	}
	return dataset.RenderTable(c.App.Writer, ds)
}
