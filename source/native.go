package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/repodata"
)

// ErrNoUpdateinfo is returned for repos whose repomd.xml has no updateinfo.
var ErrNoUpdateinfo = errors.New("no updateinfo in repomd.xml")

const maxParallelFetches = 4

// CacheDir returns the directory FetchUpdateinfo stores repo's files in.
func CacheDir(root, repo string) string {
	return filepath.Join(root, repodata.NativeCacheDir, repo, "repodata")
}

// FetchUpdateinfo downloads the updateinfo listed in repo's repomd.xml into
// CacheDir and returns its path. Older updateinfo files are removed.
func (d *Downloader) FetchUpdateinfo(ctx context.Context, repo repodata.RepoConfig, root string) (string, error) {
	if repo.BaseURL == "" {
		return "", fmt.Errorf("repo %s has no baseurl", repo.ID)
	}

	repomds, err := repodata.GetMetadata(ctx, d.Client, repo.BaseURL)
	if err != nil {
		return "", err
	}
	ui, ok := repomds["updateinfo"]
	if !ok {
		return "", fmt.Errorf("%w: repo=%s", ErrNoUpdateinfo, repo.ID)
	}

	dir := CacheDir(root, repo.ID)
	dst := filepath.Join(dir, path.Base(ui.Location.Href))
	if _, err := os.Stat(dst); err == nil {
		dblog.L.Info("%s: updateinfo is up to date: %s", repo.ID, dst)
		return dst, nil
	}

	url := strings.TrimSuffix(repo.BaseURL, "/") + "/" + strings.TrimPrefix(ui.Location.Href, "/")
	if err := d.Download(ctx, url, dst); err != nil {
		return "", err
	}

	olds, _ := filepath.Glob(filepath.Join(dir, "*-updateinfo.xml*"))
	for _, old := range olds {
		if old != dst {
			dblog.L.Debug("removing old updateinfo: %s", old)
			_ = os.Remove(old)
		}
	}
	dblog.L.Info("%s: updateinfo saved to %s", repo.ID, dst)
	return dst, nil
}

// NativeMakeCache fetches the updateinfo of repos, as configured in
// <root>/etc/yum.repos.d, without dnf or yum.
func (d *Downloader) NativeMakeCache(ctx context.Context, repos []string, root string) error {
	configs, err := repodata.GetRepos(root)
	if err != nil {
		return err
	}

	selected := make([]repodata.RepoConfig, 0, len(repos))
	for _, id := range repos {
		rc, ok := configs[id]
		if !ok {
			return fmt.Errorf("unknown repo: %s", id)
		}
		selected = append(selected, rc)
	}

	return WithLock(ctx, root, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelFetches)
		for _, rc := range selected {
			g.Go(func() error {
				_, err := d.FetchUpdateinfo(gctx, rc, root)
				return err
			})
		}
		return g.Wait()
	})
}
