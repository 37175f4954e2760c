package libupdate

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cameio-cli/src/fetch"
	"cameio-cli/src/logger"
	"cameio-cli/src/prompt"
	"cameio-cli/src/runner"
	"cameio-cli/src/ui"
)

// fakeGetter serves JSON and archives from memory.
type fakeGetter struct {
	json      map[string]string
	downloads map[string][]byte
	requested []string
}

func (f *fakeGetter) GetJSON(ctx context.Context, url string, v any) error {
	f.requested = append(f.requested, url)
	body, ok := f.json[url]
	if !ok {
		return &fetch.StatusError{URL: url, StatusCode: http.StatusNotFound}
	}
	return json.Unmarshal([]byte(body), v)
}

func (f *fakeGetter) Download(ctx context.Context, url string, progress io.Writer) ([]byte, error) {
	f.requested = append(f.requested, url)
	data, ok := f.downloads[url]
	if !ok {
		return nil, &fetch.StatusError{URL: url, StatusCode: http.StatusNotAcceptable}
	}
	return data, nil
}

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "www"), 0o755))
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func releaseZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"cameio-bower-1.2.0/js/cameio.js":   "new js",
		"cameio-bower-1.2.0/css/cameio.css": "new css",
		"cameio-bower-1.2.0/README.md":      "readme",
		"cameio-bower-1.2.0/bower.json":     "{}",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newUpdater(dir string, g Getter, r runner.Runner, p prompt.Prompter) (*Updater, *bytes.Buffer) {
	var out bytes.Buffer
	return &Updater{
		Dir:       dir,
		Fetch:     g,
		Runner:    r,
		Prompter:  p,
		Printer:   ui.NewPrinter(&out, &out),
		Log:       logger.NewSilentLogger(),
		CodeHost:  "https://code.example.com/1.0",
		GitHubOrg: "org",
	}, &out
}

func TestVersionData_FieldFallbacks(t *testing.T) {
	var long, short VersionData
	require.NoError(t, json.Unmarshal([]byte(`{"version_number":"1.2.0","version_codename":"neon","release_date":"2026-01-02"}`), &long))
	require.NoError(t, json.Unmarshal([]byte(`{"version":"1.1.0","codename":"argon","date":"2025-05-06"}`), &short))

	assert.Equal(t, VersionData{Version: "1.2.0", Codename: "neon", Date: "2026-01-02"}, long)
	assert.Equal(t, VersionData{Version: "1.1.0", Codename: "argon", Date: "2025-05-06"}, short)
}

func TestLoadLocal(t *testing.T) {
	dir := newProject(t, map[string]string{"www/lib/cameio/version.json": `{"version":"1.0.0"}`})
	local, err := LoadLocal(dir)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", local.Version)
	assert.False(t, local.UsesBower)

	dir = newProject(t, map[string]string{"www/lib/cameio/bower.json": `{"version":"0.9.0"}`})
	local, err = LoadLocal(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.9.0", local.Version)
	assert.True(t, local.UsesBower)

	_, err = LoadLocal(newProject(t, nil))
	assert.Error(t, err)
}

func TestFetchVersion_OverHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/latest.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version_number":"1.2.0","release_date":"2026-01-02"}`))
	})
	mux.HandleFunc("/1.1.0/version.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"1.1.0","date":"2025-05-06"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := fetch.NewClient("", 5*time.Second, logger.NewSilentLogger())
	require.NoError(t, err)
	u, _ := newUpdater(t.TempDir(), client, &runner.Recorder{}, &prompt.StaticPrompter{})
	u.CodeHost = srv.URL + "/"

	v, err := u.FetchVersion(context.Background(), "latest")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v.Version)

	v, err = u.FetchVersion(context.Background(), "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, "2025-05-06", v.Date)

	_, err = u.FetchVersion(context.Background(), "9.9.9")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestPrintVersions(t *testing.T) {
	g := &fakeGetter{json: map[string]string{
		"https://code.example.com/1.0/latest.json": `{"version_number":"1.2.0","release_date":"2026-01-02"}`,
	}}

	dir := newProject(t, map[string]string{"www/lib/cameio/version.json": `{"version":"1.0.0"}`})
	u, out := newUpdater(dir, g, &runner.Recorder{}, &prompt.StaticPrompter{})
	require.NoError(t, u.PrintVersions(context.Background()))
	assert.Contains(t, out.String(), "Local Cameio version: 1.0.0")
	assert.Contains(t, out.String(), "Latest Cameio version: 1.2.0  (released 2026-01-02)")
	assert.Contains(t, out.String(), "Local version is out of date")

	dir = newProject(t, map[string]string{"www/lib/cameio/version.json": `{"version":"1.2.0"}`})
	u, out = newUpdater(dir, g, &runner.Recorder{}, &prompt.StaticPrompter{})
	require.NoError(t, u.PrintVersions(context.Background()))
	assert.Contains(t, out.String(), "Local version up to date")
}

func TestPrintVersions_NoWWW(t *testing.T) {
	u, _ := newUpdater(t.TempDir(), &fakeGetter{}, &runner.Recorder{}, &prompt.StaticPrompter{})
	assert.ErrorIs(t, u.PrintVersions(context.Background()), ErrNoWWW)
}

func TestUpdate_Bower(t *testing.T) {
	dir := newProject(t, map[string]string{"www/lib/cameio/bower.json": `{"version":"0.9.0"}`})
	rec := &runner.Recorder{}
	g := &fakeGetter{}
	u, _ := newUpdater(dir, g, rec, &prompt.StaticPrompter{})

	require.NoError(t, u.Update(context.Background(), ""))
	assert.Equal(t, []string{"bower update cameio"}, rec.Calls())
	assert.Empty(t, g.requested)
}

func TestUpdate_Declined(t *testing.T) {
	dir := newProject(t, map[string]string{"www/lib/cameio/version.json": `{"version":"1.0.0"}`})
	g := &fakeGetter{}
	u, _ := newUpdater(dir, g, &runner.Recorder{}, &prompt.StaticPrompter{Yes: false})

	require.NoError(t, u.Update(context.Background(), ""))
	assert.Empty(t, g.requested)
}

func TestUpdate_ReplacesLib(t *testing.T) {
	dir := newProject(t, map[string]string{
		"www/lib/cameio/version.json":    `{"version":"1.0.0"}`,
		"www/lib/cameio/js/cameio.js":    "old js",
		"www/lib/cameio/fonts/icons.ttf": "font",
	})
	g := &fakeGetter{
		json: map[string]string{
			"https://code.example.com/1.0/latest.json": `{"version_number":"1.2.0","version_codename":"neon","release_date":"2026-01-02"}`,
		},
		downloads: map[string][]byte{
			"https://github.com/org/cameio-bower/archive/v1.2.0.zip": releaseZip(t),
		},
	}
	u, out := newUpdater(dir, g, &runner.Recorder{}, &prompt.StaticPrompter{Yes: true})

	require.NoError(t, u.Update(context.Background(), ""))

	lib := filepath.Join(dir, "www", "lib", "cameio")
	js, err := os.ReadFile(filepath.Join(lib, "js", "cameio.js"))
	require.NoError(t, err)
	assert.Equal(t, "new js", string(js))
	assert.FileExists(t, filepath.Join(lib, "css", "cameio.css"))
	assert.FileExists(t, filepath.Join(lib, "fonts", "icons.ttf"))
	assert.NoFileExists(t, filepath.Join(lib, "README.md"))
	assert.NoFileExists(t, filepath.Join(lib, "bower.json"))

	local, err := LoadLocal(dir)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", local.Version)

	data, err := os.ReadFile(filepath.Join(lib, "version.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.2.0","codename":"neon","date":"2026-01-02"}`, string(data))

	assert.Contains(t, out.String(), "Latest version: 1.2.0")
	assert.Contains(t, out.String(), "Cameio version updated to: 1.2.0")
}

func TestUpdate_InvalidVersion(t *testing.T) {
	dir := newProject(t, map[string]string{"www/lib/cameio/version.json": `{"version":"1.0.0"}`})
	g := &fakeGetter{json: map[string]string{
		"https://code.example.com/1.0/7.0.0/version.json": `{"version":"7.0.0"}`,
	}}
	u, _ := newUpdater(dir, g, &runner.Recorder{}, &prompt.StaticPrompter{Yes: true})

	err := u.Update(context.Background(), "6.0.0")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	err = u.Update(context.Background(), "7.0.0")
	assert.True(t, errors.Is(err, ErrInvalidVersion), "missing release archive: %v", err)
}
