// Package convert turns the cached updateinfo of repos into the JSON and
// SQLite files of an outdir.
package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/repodata"
	"github.com/fleure/fleure-db/store/jsonfile"
	"github.com/fleure/fleure-db/store/sqlite"
	"github.com/fleure/fleure-db/updateinfo"
)

const (
	RawFileName     = "updateinfo.json"
	UpdatesFileName = "updates.json"
	DBFileName      = "updateinfo.db"

	topKey = "updates"
)

// Converter holds what every conversion of an outdir shares.
type Converter struct {
	Outdir string
	Finder repodata.Finder
	// Parallel limits concurrent repo conversions; 0 means no limit.
	Parallel int
}

func New(outdir, root string) *Converter {
	return &Converter{Outdir: outdir, Finder: repodata.NewFinder(root), Parallel: 4}
}

// ConvertRepos converts repos and saves their merged updates.
func ConvertRepos(ctx context.Context, repos []string, outdir, root string) ([]updateinfo.Update, error) {
	return New(outdir, root).Repos(ctx, repos)
}

// Repo loads the cached updateinfo of repo and saves it under
// <outdir>/<repo>/ as parsed, normalized and as a database. A repo without
// cached updateinfo has no updates.
func (c *Converter) Repo(ctx context.Context, repo string) ([]updateinfo.Update, error) {
	path, err := c.Finder.Find(repo)
	if errors.Is(err, repodata.ErrNotFound) {
		dblog.L.Warn("Could not find updateinfo: %v", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dblog.L.Debug("Loading %s for %s", path, repo)
	raw, err := updateinfo.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load updateinfo of %s: %w", repo, err)
	}

	routdir := filepath.Join(c.Outdir, repo)
	if err := jsonfile.Save(raw.Updates, filepath.Join(routdir, RawFileName), topKey); err != nil {
		return nil, err
	}

	updates := updateinfo.NormalizeAll(raw, repo)
	sortByID(updates)

	if err := c.save(ctx, updates, routdir, UpdatesFileName); err != nil {
		return nil, err
	}
	dblog.L.Info("%s: %d updates converted", repo, len(updates))
	return updates, nil
}

// Repos converts repos concurrently and merges their updates in repos
// order: an update found in several repos lists all of them.
func (c *Converter) Repos(ctx context.Context, repos []string) ([]updateinfo.Update, error) {
	results := make([][]updateinfo.Update, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	if c.Parallel > 0 {
		g.SetLimit(c.Parallel)
	}
	for i, repo := range repos {
		g.Go(func() error {
			updates, err := c.Repo(gctx, repo)
			if err != nil {
				return err
			}
			results[i] = updates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	updates := Merge(results...)
	if err := c.save(ctx, updates, c.Outdir, RawFileName); err != nil {
		return nil, err
	}
	dblog.L.Info("%d updates of %d repos saved in %s", len(updates), len(repos), c.Outdir)
	return updates, nil
}

// Merge merges lists of updates by id. Repos of an update seen more than
// once are united; the first occurrence wins otherwise. The result is
// sorted by id.
func Merge(lists ...[]updateinfo.Update) []updateinfo.Update {
	byID := make(map[int64]int)
	var merged []updateinfo.Update

	for _, updates := range lists {
		for _, u := range updates {
			i, ok := byID[u.ID]
			if !ok {
				u.Repos = append([]updateinfo.Repo(nil), u.Repos...)
				byID[u.ID] = len(merged)
				merged = append(merged, u)
				continue
			}
			for _, r := range u.Repos {
				if !merged[i].HasRepo(r.ID) {
					merged[i].Repos = append(merged[i].Repos, r)
				}
			}
		}
	}

	sortByID(merged)
	return merged
}

func (c *Converter) save(ctx context.Context, updates []updateinfo.Update, dir, jsonName string) error {
	if updates == nil {
		updates = []updateinfo.Update{}
	}
	if err := jsonfile.Save(updates, filepath.Join(dir, jsonName), topKey); err != nil {
		return err
	}

	db, err := sqlite.Open(ctx, filepath.Join(dir, DBFileName))
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveUpdates(ctx, updates)
}

func sortByID(updates []updateinfo.Update) {
	sort.SliceStable(updates, func(i, j int) bool { return updates[i].ID < updates[j].ID })
}
