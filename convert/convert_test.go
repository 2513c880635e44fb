package convert

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/fleure/fleure-db/repodata"
	"github.com/fleure/fleure-db/store/sqlite"
	"github.com/fleure/fleure-db/updateinfo"
)

const eusUpdateinfo = `<?xml version="1.0" encoding="UTF-8"?>
<updates>
  <update from="security@redhat.com" status="final" type="security" version="1">
    <id>RHSA-2016:2872</id>
    <title>Moderate: sudo security update</title>
    <issued date="2016-12-06 00:00:00"/>
    <severity>Moderate</severity>
    <references>
      <reference href="https://access.redhat.com/errata/RHSA-2016:2872" id="RHSA-2016:2872" type="self"/>
    </references>
    <pkglist>
      <collection short="rhel-7-server-eus-rpms">
        <name>RHEL 7 EUS</name>
        <package name="sudo" version="1.8.6p7" release="21.el7_3" epoch="0" arch="x86_64"/>
      </collection>
    </pkglist>
  </update>
  <update from="security@redhat.com" status="final" type="security" version="1">
    <id>RHSA-2016:0001</id>
    <title>Low: foo security update</title>
    <issued date="2016-01-04 00:00:00"/>
    <severity>Low</severity>
    <pkglist>
      <collection short="rhel-7-server-eus-rpms">
        <package name="foo" version="1.0" release="1.el7" epoch="0" arch="noarch"/>
      </collection>
    </pkglist>
  </update>
</updates>
`

func writeCache(t *testing.T, root, repo string, content []byte) {
	t.Helper()
	dir := filepath.Join(root, repodata.NativeCacheDir, repo, "repodata")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	f, err := os.Create(filepath.Join(dir, "0123-updateinfo.xml.gz"))
	require.NoError(t, err)
	defer f.Close()
	zw := gzip.NewWriter(f)
	_, err = zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func setupRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	fixture, err := os.ReadFile(filepath.Join("..", "updateinfo", "testdata", "updateinfo.xml"))
	require.NoError(t, err)
	writeCache(t, root, "rhel-7-server-rpms", fixture)
	writeCache(t, root, "rhel-7-server-eus-rpms", []byte(eusUpdateinfo))
	return root
}

func TestConverterRepo(t *testing.T) {
	root := setupRoot(t)
	outdir := t.TempDir()

	updates, err := New(outdir, root).Repo(t.Context(), "rhel-7-server-rpms")
	require.NoError(t, err)
	require.Len(t, updates, 2, "the corrupt update is skipped")
	assert.Less(t, updates[0].ID, updates[1].ID)

	routdir := filepath.Join(outdir, "rhel-7-server-rpms")
	raw, err := os.ReadFile(filepath.Join(routdir, RawFileName))
	require.NoError(t, err)
	assert.Equal(t, int64(3), gjson.GetBytes(raw, "updates.#").Int(), "parsed data is kept as is")

	normalized, err := os.ReadFile(filepath.Join(routdir, UpdatesFileName))
	require.NoError(t, err)
	assert.Equal(t, "RHSA-2016:2872", gjson.GetBytes(normalized, "updates.0.advisory").String())

	db, err := sqlite.Open(t.Context(), filepath.Join(routdir, DBFileName))
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestConvertRepoMissing(t *testing.T) {
	outdir := t.TempDir()
	updates, err := New(outdir, t.TempDir()).Repo(t.Context(), "no-such-repo")
	require.NoError(t, err)
	assert.Empty(t, updates)
	assert.NoDirExists(t, filepath.Join(outdir, "no-such-repo"))
}

func TestConvertRepos(t *testing.T) {
	root := setupRoot(t)
	outdir := t.TempDir()

	updates, err := ConvertRepos(t.Context(), []string{"rhel-7-server-rpms", "rhel-7-server-eus-rpms", "missing"}, outdir, root)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	byAdvisory := make(map[string]updateinfo.Update)
	for _, u := range updates {
		byAdvisory[u.Advisory] = u
	}
	assert.Equal(t, []updateinfo.Repo{
		{ID: "rhel-7-server-rpms", Name: "rhel-7-server-rpms"},
		{ID: "rhel-7-server-eus-rpms", Name: "RHEL 7 EUS"},
	}, byAdvisory["RHSA-2016:2872"].Repos)
	assert.Len(t, byAdvisory["RHSA-2016:0001"].Repos, 1)

	merged, err := os.ReadFile(filepath.Join(outdir, RawFileName))
	require.NoError(t, err)
	assert.Equal(t, int64(3), gjson.GetBytes(merged, "updates.#").Int())

	db, err := sqlite.Open(t.Context(), filepath.Join(outdir, DBFileName))
	require.NoError(t, err)
	defer db.Close()
	eus, err := db.ListUpdates(t.Context(), sqlite.ListFilter{Repo: "rhel-7-server-eus-rpms"})
	require.NoError(t, err)
	assert.Len(t, eus, 2)
}

func TestMerge(t *testing.T) {
	a := []updateinfo.Update{
		{ID: 2, Repos: []updateinfo.Repo{{ID: "a"}}},
		{ID: 1, Repos: []updateinfo.Repo{{ID: "a"}}},
	}
	b := []updateinfo.Update{
		{ID: 2, Title: "ignored", Repos: []updateinfo.Repo{{ID: "b"}, {ID: "a"}}},
		{ID: 3, Repos: []updateinfo.Repo{{ID: "b"}}},
	}

	merged := Merge(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{merged[0].ID, merged[1].ID, merged[2].ID})
	assert.Empty(t, merged[1].Title)
	assert.Equal(t, []updateinfo.Repo{{ID: "a"}, {ID: "b"}}, merged[1].Repos)
	assert.Equal(t, []updateinfo.Repo{{ID: "a"}}, a[0].Repos, "inputs are not modified")
}
