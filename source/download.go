// Package source refreshes the repository metadata cache, either by running
// dnf/yum makecache or by downloading updateinfo directly.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fleure/fleure-db/config"
	"github.com/fleure/fleure-db/dblog"
)

// Downloader fetches files over HTTP, retrying transient failures.
type Downloader struct {
	Client *http.Client
	// Retries is the number of attempts after the first one.
	Retries int
	// Interval is the initial backoff interval.
	Interval time.Duration
}

// NewDownloader returns a Downloader configured by c.
func NewDownloader(c config.Download) *Downloader {
	return &Downloader{
		Client:   &http.Client{Timeout: c.Timeout},
		Retries:  c.Retries,
		Interval: 500 * time.Millisecond,
	}
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("fetching %s: status code %d", e.url, e.code)
}

// Download saves url to dst. dst is replaced only once the whole body was
// received.
func (d *Downloader) Download(ctx context.Context, url, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	operation := func() (int64, error) {
		n, err := d.fetch(ctx, url, dst)
		if se, ok := err.(*statusError); ok && se.code < http.StatusInternalServerError {
			return 0, backoff.Permanent(err)
		}
		return n, err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = d.Interval

	n, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(d.Retries+1)), // #nosec G115 -- retries come from the configuration
		backoff.WithNotify(func(err error, duration time.Duration) {
			dblog.L.Warn("download of %s failed, retrying in %v: %v", url, duration, err)
		}),
	)
	if err != nil {
		return err
	}

	dblog.L.Debug("downloaded %s to %s (%d bytes)", url, dst, n)
	return nil
}

func (d *Downloader) fetch(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error fetching URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &statusError{url: url, code: resp.StatusCode}
	}

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("error creating file: %w", err))
	}
	tmp := out.Name()
	defer os.Remove(tmp)

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("error reading response body: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		return 0, backoff.Permanent(err)
	}
	return n, nil
}
