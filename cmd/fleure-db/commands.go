package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"github.com/fleure/fleure-db/config"
	"github.com/fleure/fleure-db/convert"
	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/metrics"
	"github.com/fleure/fleure-db/repodata"
	"github.com/fleure/fleure-db/source"
	"github.com/fleure/fleure-db/version"
)

var optFlag = cli.StringSliceFlag{
	Name:  "opt",
	Usage: "extra option passed to dnf or yum makecache",
}

var makecacheCommand = cli.Command{
	Name:    "makecache",
	Aliases: []string{"m"},
	Usage:   "make the updateinfo cache of repos",
	Action:  makecacheAction,
	Flags:   []cli.Flag{optFlag},
}

var createCommand = cli.Command{
	Name:    "create",
	Aliases: []string{"c"},
	Usage:   "create the updateinfo database of repos in the output dir",
	Action:  createAction,
	Flags:   append([]cli.Flag{optFlag}, analyzeFlags...),
}

var reposCommand = cli.Command{
	Name:   "repos",
	Usage:  "list the repos of the root",
	Action: reposAction,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "all",
			Usage: "list disabled repos too",
		},
	},
}

var versionCommand = cli.Command{
	Name:  "version",
	Usage: "print the version",
	Action: func(c *cli.Context) error {
		_, err := fmt.Fprintln(c.App.Writer, version.String())
		return err
	},
}

// reposOf returns the configured repos, or the enabled repos of the root.
func reposOf(cnf *config.Config) ([]string, error) {
	if len(cnf.Repos) > 0 {
		return cnf.Repos, nil
	}
	return repodata.EnabledRepoIDs(cnf.Root)
}

// makecacheOptions returns the options of dnf or yum makecache: --verbose
// or --quiet by verbosity, then extra.
func makecacheOptions(verbosity int, extra []string) []string {
	opt := "--quiet"
	if verbosity > 0 {
		opt = "--verbose"
	}
	return append([]string{opt}, extra...)
}

func makecache(c *cli.Context, cnf *config.Config, repos []string) error {
	ctx := contextOf(c)
	dblog.L.Info("Making cache of repos: %v", repos)
	if cnf.Native {
		return source.NewDownloader(cnf.Download).NativeMakeCache(ctx, repos, cnf.Root)
	}
	opts := makecacheOptions(cnf.Verbosity, c.StringSlice("opt"))
	return source.MakeCache(ctx, source.ExecRunner{}, repos, opts, cnf.Root)
}

func makecacheAction(c *cli.Context) error {
	cnf := configOf(c)
	repos, err := reposOf(cnf)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		return cli.ShowAppHelp(c)
	}
	return makecache(c, cnf, repos)
}

func createAction(c *cli.Context) error {
	cnf := configOf(c)
	repos, err := reposOf(cnf)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		return cli.ShowAppHelp(c)
	}

	if cnf.Makecache {
		if err := makecache(c, cnf, repos); err != nil {
			return err
		}
	}

	start := time.Now()
	updates, err := convert.ConvertRepos(contextOf(c), repos, cnf.Outdir, cnf.Root)
	if err != nil {
		return err
	}
	dblog.L.Info("Created the database of %d updates in %s", len(updates), cnf.Outdir)

	if cnf.Metrics != "" {
		m := metrics.New()
		m.Observe(updates, time.Now(), time.Since(start))
		if err := m.WriteTextfile(cnf.Metrics); err != nil {
			return err
		}
	}

	if cnf.Analyze {
		return analyze(c, cnf, updates)
	}
	return nil
}

func reposAction(c *cli.Context) error {
	cnf := configOf(c)
	repos, err := repodata.GetRepos(cnf.Root)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(repos))
	for id, rc := range repos {
		if rc.Enabled || c.Bool("all") {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Repo ID\tName\tEnabled")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%s\t%t\n", id, repos[id].Name, repos[id].Enabled)
	}
	return w.Flush()
}
