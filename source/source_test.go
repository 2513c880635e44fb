package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleure/fleure-db/repodata"
)

type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.run(ctx, name, args...)
}

func testDownloader() *Downloader {
	return &Downloader{Client: http.DefaultClient, Retries: 2, Interval: time.Millisecond}
}

func TestDownload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky":
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("flaky content"))
		case "/ok":
			_, _ = w.Write([]byte("content"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := testDownloader()

	t.Run("ok", func(t *testing.T) {
		dst := filepath.Join(dir, "a", "b", "ok.txt")
		require.NoError(t, d.Download(t.Context(), srv.URL+"/ok", dst))
		b, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "content", string(b))
	})

	t.Run("retries server errors", func(t *testing.T) {
		dst := filepath.Join(dir, "flaky.txt")
		require.NoError(t, d.Download(t.Context(), srv.URL+"/flaky", dst))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		dst := filepath.Join(dir, "missing.txt")
		err := d.Download(t.Context(), srv.URL+"/missing", dst)
		assert.ErrorContains(t, err, "status code 404")
		assert.NoFileExists(t, dst)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".missing.txt.", "temporary files are removed")
		}
	})
}

func TestMakeCacheArgs(t *testing.T) {
	args, err := MakeCacheArgs(true, []string{"a", "b"}, []string{"--quiet"}, "/srv/root")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dnf", "makecache", "--installroot", "/srv/root", "--disablerepo", "*",
		"--enablerepo", "a", "--enablerepo", "b", "--quiet",
	}, args)

	args, err = MakeCacheArgs(false, []string{"a"}, nil, "/")
	require.NoError(t, err)
	assert.Equal(t, "yum", args[0])
}

func TestMakeCache(t *testing.T) {
	root := t.TempDir()

	var got []string
	runner := &fakeRunner{run: func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return []byte("Metadata cache created."), nil
	}}
	require.NoError(t, MakeCache(t.Context(), runner, []string{"rhel-7-server-rpms"}, nil, root))

	want, err := MakeCacheArgs(repodata.IsDNFAvailable(), []string{"rhel-7-server-rpms"}, nil, root)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	failing := &fakeRunner{run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Cannot find a valid baseurl"), errors.New("exit status 1")
	}}
	err = MakeCache(t.Context(), failing, []string{"x"}, nil, root)
	assert.ErrorContains(t, err, "Cannot find a valid baseurl")
}

const repomdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <revision>1</revision>
  <data type="updateinfo">
    <checksum type="sha256">%[1]s</checksum>
    <location href="repodata/%[1]s-updateinfo.xml.gz"/>
  </data>
</repomd>`

func writeRepoFile(t *testing.T, root, id, baseURL string) {
	t.Helper()
	dir := filepath.Join(root, "etc", "yum.repos.d")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := fmt.Sprintf("[%s]\nname=%s\nbaseurl=%s\nenabled=1\n", id, id, baseURL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".repo"), []byte(content), 0o644))
}

func TestNativeMakeCache(t *testing.T) {
	var checksum atomic.Value
	checksum.Store("0123abcd")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sum := checksum.Load().(string)
		switch r.URL.Path {
		case "/with/repodata/repomd.xml":
			fmt.Fprintf(w, repomdTemplate, sum)
		case "/with/repodata/" + sum + "-updateinfo.xml.gz":
			_, _ = w.Write([]byte("payload-" + sum))
		case "/without/repodata/repomd.xml":
			_, _ = w.Write([]byte(`<repomd><data type="primary"/></repomd>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	root := t.TempDir()
	writeRepoFile(t, root, "with", srv.URL+"/with")
	writeRepoFile(t, root, "without", srv.URL+"/without")
	d := testDownloader()

	require.NoError(t, d.NativeMakeCache(t.Context(), []string{"with"}, root))
	first := filepath.Join(CacheDir(root, "with"), "0123abcd-updateinfo.xml.gz")
	assert.FileExists(t, first)

	path, err := repodata.Finder{Root: root}.Find("with")
	require.NoError(t, err)
	assert.Equal(t, first, path)

	checksum.Store("4567ef01")
	require.NoError(t, d.NativeMakeCache(t.Context(), []string{"with"}, root))
	assert.NoFileExists(t, first, "old updateinfo is removed")
	assert.FileExists(t, filepath.Join(CacheDir(root, "with"), "4567ef01-updateinfo.xml.gz"))

	err = d.NativeMakeCache(t.Context(), []string{"without"}, root)
	assert.ErrorIs(t, err, ErrNoUpdateinfo)

	err = d.NativeMakeCache(t.Context(), []string{"unknown"}, root)
	assert.ErrorContains(t, err, "unknown repo")
}
