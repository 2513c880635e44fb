package main

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/fleure/fleure-db/repodata"
	"github.com/fleure/fleure-db/version"
)

const shippedConf = "../../data/conf"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp(t.Context())
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{"fleure-db", "-C", shippedConf}, args...))
	return buf.String(), err
}

func setupRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	fixture, err := os.ReadFile(filepath.Join("..", "..", "updateinfo", "testdata", "updateinfo.xml"))
	require.NoError(t, err)

	dir := filepath.Join(root, repodata.NativeCacheDir, "rhel-7-server-rpms", "repodata")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, "0123-updateinfo.xml.gz"))
	require.NoError(t, err)
	defer f.Close()
	zw := gzip.NewWriter(f)
	_, err = zw.Write(fixture)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return root
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestRepos(t *testing.T) {
	root := filepath.Join("..", "..", "repodata", "testdata", "root")

	out, err := run(t, "-R", root, "repos")
	require.NoError(t, err)
	assert.Contains(t, out, "rhel-7-server-rpms")
	assert.Contains(t, out, "epel")
	assert.NotContains(t, out, "rhel-7-server-debug-rpms")

	out, err = run(t, "-R", root, "repos", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "rhel-7-server-debug-rpms")
}

func TestCreateWithoutRepos(t *testing.T) {
	out, err := run(t, "-R", t.TempDir(), "-O", t.TempDir(), "create")
	require.NoError(t, err)
	assert.Contains(t, out, "USAGE")
}

func TestCreateAnalyzeQuery(t *testing.T) {
	root := setupRoot(t)
	outdir := filepath.Join(t.TempDir(), "out")
	prom := filepath.Join(t.TempDir(), "fleure_db.prom")

	_, err := run(t, "-R", root, "-O", outdir, "-r", "rhel-7-server-rpms", "--metrics", prom, "create")
	require.NoError(t, err)
	for _, name := range []string{"updateinfo.json", "updateinfo.db", "rhel-7-server-rpms/updates.json"} {
		assert.FileExists(t, filepath.Join(outdir, name))
	}
	assert.FileExists(t, prom)

	out, err := run(t, "-O", outdir, "query", "updates.#")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = run(t, "-O", outdir, "query", "no.such.key")
	assert.ErrorContains(t, err, "no match")

	out, err = run(t, "-O", outdir, "analyze", "--format", "csv", "--topics", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Item,Value,Notes")
	assert.Contains(t, out, "# of RHSAs")

	b, err := os.ReadFile(filepath.Join(outdir, analysisFileName))
	require.NoError(t, err)
	assert.Equal(t, int64(3), gjson.GetBytes(b, "rate_by_type.#").Int())
	assert.FileExists(t, filepath.Join(outdir, "rhsa_critical.csv"))
	assert.NoFileExists(t, filepath.Join(outdir, topicsFileName))
}

func TestCreateAndAnalyze(t *testing.T) {
	root := setupRoot(t)
	outdir := t.TempDir()

	out, err := run(t, "-R", root, "-O", outdir, "-r", "rhel-7-server-rpms", "-A", "create", "--topics", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Overview of analysis results")
	assert.FileExists(t, filepath.Join(outdir, topicsFileName))
}

func TestAnalyzeUnknownFormat(t *testing.T) {
	root := setupRoot(t)
	outdir := t.TempDir()
	_, err := run(t, "-R", root, "-O", outdir, "-r", "rhel-7-server-rpms", "create")
	require.NoError(t, err)

	_, err = run(t, "-O", outdir, "analyze", "--format", "xlsx")
	assert.ErrorContains(t, err, "unknown format")
}

func create(t *testing.T) string {
	t.Helper()
	outdir := t.TempDir()
	_, err := run(t, "-R", setupRoot(t), "-O", outdir, "-r", "rhel-7-server-rpms", "create")
	require.NoError(t, err)
	return outdir
}

func bugKeywords(t *testing.T, outdir string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(outdir, analysisFileName))
	require.NoError(t, err)
	var kwds []string
	for _, k := range gjson.GetBytes(b, "rhba.list_by_kwds.0.keywords").Array() {
		kwds = append(kwds, k.String())
	}
	return kwds
}

func TestAnalyzeStemming(t *testing.T) {
	outdir := create(t)

	_, err := run(t, "-O", outdir, "analyze", "--topics", "0")
	require.NoError(t, err)
	kwds := bugKeywords(t, outdir)
	assert.Contains(t, kwds, "hang")
	assert.Contains(t, kwds, "panic")

	_, err = run(t, "-O", outdir, "analyze", "--topics", "0", "--no-stemming")
	require.NoError(t, err)
	assert.Equal(t, []string{"xfs"}, bugKeywords(t, outdir))
}

func TestAnalyzeSinceWeeks(t *testing.T) {
	outdir := create(t)

	_, err := run(t, "-O", outdir, "analyze", "--topics", "0", "--since-weeks", "2", "--until", "2016-12-10")
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(outdir, analysisFileName))
	require.NoError(t, err)
	assert.Equal(t, "RHSA-2016:2872", gjson.GetBytes(b, "rhsa.list.0.advisory").String())
	assert.Equal(t, int64(0), gjson.GetBytes(b, "rhba.list.#").Int())

	_, err = run(t, "-O", outdir, "analyze", "--since-days", "3", "--until", "someday")
	assert.ErrorContains(t, err, "--until")
}

func TestAnalyzeWithoutDatabase(t *testing.T) {
	outdir := filepath.Join(t.TempDir(), "mistyped")

	_, err := run(t, "-O", outdir, "analyze")
	assert.ErrorContains(t, err, "run create first")
	assert.NoFileExists(t, filepath.Join(outdir, "updateinfo.db"))

	_, err = run(t, "-O", outdir, "query", "--count")
	assert.ErrorContains(t, err, "run create first")
}

func TestQueryDB(t *testing.T) {
	outdir := create(t)

	out, err := run(t, "-O", outdir, "query", "--count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "-O", outdir, "query", "--advisory", "RHSA-2016:2872")
	require.NoError(t, err)
	assert.Equal(t, "Important: sudo security update", gjson.Get(out, "title").String())

	_, err = run(t, "-O", outdir, "query", "--advisory", "RHSA-1999:0001")
	assert.ErrorContains(t, err, "no such advisory")

	out, err = run(t, "-O", outdir, "query", "--package", "kernel")
	require.NoError(t, err)
	assert.Equal(t, "RHBA-2016:2423", gjson.Get(out, "0.advisory").String())
	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())

	out, err = run(t, "-O", outdir, "query", "--installed", "")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, err = run(t, "-O", outdir, "query")
	assert.Error(t, err)
}

func TestQuerySimilar(t *testing.T) {
	outdir := create(t)

	_, err := run(t, "-O", outdir, "query", "--similar", "RHSA-2016:2872")
	assert.ErrorContains(t, err, "run analyze first")

	_, err = run(t, "-O", outdir, "analyze", "--topics", "3")
	require.NoError(t, err)
	out, err := run(t, "-O", outdir, "query", "--similar", "RHSA-2016:2872", "--n", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Errata similar to RHSA-2016:2872")
	assert.Contains(t, out, "Terms of RHSA-2016:2872")
	assert.Contains(t, out, "sudo")
}

func TestMakecacheOptions(t *testing.T) {
	assert.Equal(t, []string{"--quiet"}, makecacheOptions(0, nil))
	assert.Equal(t, []string{"--verbose", "--setopt=timeout=5"}, makecacheOptions(1, []string{"--setopt=timeout=5"}))
}
