package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/fleure/fleure-db/config"
	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/version"
)

const (
	configKey  = "config"
	contextKey = "context"
	startKey   = "start"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "conf, C",
		Usage: "configuration file, directory or glob [default: " + config.DefaultPath + "]",
	},
	cli.StringFlag{
		Name:  "outdir, O",
		Usage: "output dir",
	},
	cli.StringFlag{
		Name:  "root, R",
		Usage: "root dir of the system whose repos are used",
	},
	cli.StringSliceFlag{
		Name:  "repo, r",
		Usage: "repo id to process; may be given several times [default: enabled repos of the root]",
	},
	cli.BoolFlag{
		Name:  "makecache, M",
		Usage: "make the repo cache before creating the database",
	},
	cli.BoolFlag{
		Name:  "analyze, A",
		Usage: "analyze errata after creating the database",
	},
	cli.BoolFlag{
		Name:  "native",
		Usage: "fetch updateinfo over HTTP instead of running dnf or yum",
	},
	cli.StringFlag{
		Name:  "metrics",
		Usage: "node exporter textfile to write metrics to",
	},
	cli.StringFlag{
		Name:  "logfile",
		Usage: "log to this file instead of stderr",
	},
	cli.BoolFlag{
		Name:  "verbose, v",
		Usage: "verbose mode",
	},
	cli.BoolFlag{
		Name:  "debug, D",
		Usage: "debug mode",
	},
}

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "fleure-db"
	app.Usage = "create and analyze errata databases from the updateinfo of yum repos"
	app.Version = version.Version
	app.HideVersion = true
	app.Flags = globalFlags
	app.Metadata = map[string]interface{}{contextKey: ctx}
	app.Before = setup
	app.After = teardown
	app.Commands = []cli.Command{
		makecacheCommand,
		createCommand,
		analyzeCommand,
		reposCommand,
		queryCommand,
		versionCommand,
	}
	return app
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := config.Files(config.DefaultPath); err != nil {
		return config.Default(), nil
	}
	return config.Load(config.DefaultPath)
}

// setup loads the configuration, applies the global flags over it and sets
// up logging.
func setup(c *cli.Context) error {
	cnf, err := loadConfig(c.String("conf"))
	if err != nil {
		return err
	}

	flags := &config.Config{
		Outdir:    c.String("outdir"),
		Root:      c.String("root"),
		Repos:     c.StringSlice("repo"),
		Makecache: c.Bool("makecache"),
		Analyze:   c.Bool("analyze"),
		Native:    c.Bool("native"),
		Metrics:   c.String("metrics"),
		LogFile:   c.String("logfile"),
	}
	switch {
	case c.Bool("debug"):
		flags.Verbosity = 2
	case c.Bool("verbose") && cnf.Verbosity < 1:
		flags.Verbosity = 1
	}
	if err := cnf.Override(flags); err != nil {
		return err
	}

	logger, err := dblog.NewLogger(dblog.LevelFromVerbosity(cnf.Verbosity), cnf.LogFile)
	if err != nil {
		return err
	}
	dblog.L = logger

	c.App.Metadata[configKey] = cnf
	c.App.Metadata[startKey] = time.Now()
	return nil
}

func teardown(c *cli.Context) error {
	if start, ok := c.App.Metadata[startKey].(time.Time); ok {
		dblog.L.Info("Elapsed: %s", time.Since(start).Round(time.Millisecond))
	}
	dblog.L.Close()
	dblog.L = dblog.NewWriterLogger(dblog.WARN, os.Stderr)
	return nil
}

func configOf(c *cli.Context) *config.Config {
	if cnf, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cnf
	}
	return config.Default()
}

func contextOf(c *cli.Context) context.Context {
	if ctx, ok := c.App.Metadata[contextKey].(context.Context); ok {
		return ctx
	}
	return context.Background()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(ctx).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
