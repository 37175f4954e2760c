package scaffold

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cameio-cli/src/logger"
	"cameio-cli/src/prompt"
	"cameio-cli/src/runner"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
)

const wrapperConfig = `<?xml version='1.0' encoding='utf-8'?>
<widget id="com.cameio.starter" version="0.0.1" xmlns="http://www.w3.org/ns/widgets">
  <name>HelloCameio</name>
  <content src="index.html" />
</widget>
`

const starterIndex = `<!DOCTYPE html>
<html>
  <head>
    <link href="lib/cameio/css/cameio.css" rel="stylesheet">
    <script src="lib/cameio/js/cameio.bundle.js"></script>
  </head>
  <body></body>
</html>`

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fakeGetter struct {
	bodies map[string][]byte
	gets   []string
}

func (g *fakeGetter) Get(ctx context.Context, url string) ([]byte, error) {
	g.gets = append(g.gets, url)
	body, ok := g.bodies[url]
	if !ok {
		return nil, fmt.Errorf("GET %s: HTTP 404", url)
	}
	return body, nil
}

func (g *fakeGetter) Download(ctx context.Context, url string, progress io.Writer) ([]byte, error) {
	return g.Get(ctx, url)
}

type fakeCloner struct {
	files  map[string]string
	err    error
	cloned []string
}

func (c *fakeCloner) Clone(ctx context.Context, repoURL, dest string) error {
	c.cloned = append(c.cloned, repoURL)
	if c.err != nil {
		return c.err
	}
	for name, content := range c.files {
		if err := writeFile(filepath.Join(dest, name), content); err != nil {
			return err
		}
	}
	return nil
}

type fakeSass struct {
	dirs []string
}

func (s *fakeSass) Run(ctx context.Context, dir string) error {
	s.dirs = append(s.dirs, dir)
	return nil
}

type harness struct {
	starter *Starter
	getter  *fakeGetter
	git     *fakeCloner
	runner  *runner.Recorder
	sass    *fakeSass
	prompts *prompt.StaticPrompter
	out     *bytes.Buffer
	root    string
}

const wrapperURL = "https://github.com/videogamearmy/cameio-app-base/archive/master.zip"

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		getter: &fakeGetter{bodies: map[string][]byte{
			wrapperURL: zipOf(t, map[string]string{
				"cameio-app-base-master/config.xml":     wrapperConfig,
				"cameio-app-base-master/package.json":   `{"name":"cameio-app-base","version":"1.0.0"}`,
				"cameio-app-base-master/bower.json":     `{"name":"HelloCameio"}`,
				"cameio-app-base-master/README.md":      "readme",
				"cameio-app-base-master/hooks/README.md": "hooks",
				"cameio-app-base-master/www/.gitkeep":   "",
			}),
		}},
		git:     &fakeCloner{files: map[string]string{"index.html": starterIndex, "README.md": "x"}},
		runner:  &runner.Recorder{},
		sass:    &fakeSass{},
		prompts: &prompt.StaticPrompter{},
		out:     &bytes.Buffer{},
		root:    t.TempDir(),
	}
	h.starter = New(Config{
		Fetch:     h.getter,
		Git:       h.git,
		Runner:    h.runner,
		Sass:      h.sass,
		Prompter:  h.prompts,
		Printer:   ui.NewPrinter(h.out, h.out),
		Log:       logger.NewSilentLogger(),
		GitHubOrg: "videogamearmy",
		APIURL:    func(path string) string { return "https://apps.cameio.io/api/v1/" + path },
	})
	h.starter.Random = func() int { return 123456 }
	return h
}

func (h *harness) path(parts ...string) string {
	return filepath.Join(append([]string{h.root}, parts...)...)
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestStart_NamedStarter(t *testing.T) {
	h := newHarness(t)

	err := h.starter.Start(context.Background(), Options{Dir: h.path("my-App"), Template: "sidemenu", Android: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://github.com/videogamearmy/cameio-app-sidemenu.git"}, h.git.cloned)

	config := read(t, h.path("my-App", "config.xml"))
	assert.Contains(t, config, `<widget id="com.cameioframework.myapp123456"`)
	assert.Contains(t, config, "<name>my-App</name>")

	assert.Equal(t, []string{
		"cordova plugin add org.apache.cordova.device",
		"cordova plugin add org.apache.cordova.console",
		"cordova plugin add com.cameio.keyboard",
		"cordova platform add android",
	}, h.runner.Calls())
	for _, dir := range h.runner.Dirs() {
		assert.Equal(t, h.path("my-App"), dir)
	}

	pkg := read(t, h.path("my-App", "package.json"))
	assert.Contains(t, pkg, `"name": "my-app"`)
	assert.Contains(t, pkg, `"description": "my-App: An Cameio project"`)
	assert.Contains(t, pkg, `"version": "1.0.0"`)
	assert.Contains(t, read(t, h.path("my-App", "bower.json")), `"name": "my-App"`)
	assert.Equal(t, "my-App", store.OpenProject(h.path("my-App")).GetString("name"))

	assert.False(t, exists(h.path("my-App", "README.md")))
	assert.False(t, exists(h.path("my-App", "www", "README.md")))
	assert.True(t, exists(h.path("my-App", "hooks", "README.md")))

	// starters already point at lib/cameio
	assert.Equal(t, starterIndex, read(t, h.path("my-App", "www", "index.html")))
	assert.Empty(t, h.sass.dirs)
	assert.Contains(t, h.out.String(), "cameio setup sass")
	assert.Contains(t, h.out.String(), "cameio platform add ios [android]")
}

func TestStart_AppSetupFromStarter(t *testing.T) {
	h := newHarness(t)
	h.git.files["app.json"] = `{"plugins":["com.example.camera"],"sass":true}`

	err := h.starter.Start(context.Background(), Options{Dir: h.path("app"), PackageID: "com.Example.My_App", IOS: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"cordova plugin add com.example.camera", "cordova platform add ios"}, h.runner.Calls())
	assert.Equal(t, []string{h.path("app")}, h.sass.dirs)
	assert.False(t, exists(h.path("app", "www", "app.json")))
	assert.Contains(t, read(t, h.path("app", "config.xml")), `id="com.example.myapp"`)
	assert.NotContains(t, h.out.String(), "Setup this project to use Sass")
}

func TestStart_NoCordova(t *testing.T) {
	h := newHarness(t)

	err := h.starter.Start(context.Background(), Options{Dir: h.path("web"), NoCordova: true, Sass: true})
	require.NoError(t, err)

	assert.False(t, exists(h.path("web", "config.xml")))
	assert.False(t, exists(h.path("web", "hooks")))
	assert.Empty(t, h.runner.Calls())
	assert.Equal(t, []string{h.path("web")}, h.sass.dirs)
	assert.NotContains(t, h.out.String(), "cameio run <PLATFORM>")
}

func TestStart_Codepen(t *testing.T) {
	h := newHarness(t)
	pen := "http://codepen.io/cameio/pen/GpCst"
	h.getter.bodies[pen+".html"] = []byte(`<html>
  <head>
    <script src="//code.cameioframework.com/nightly/js/cameio.bundle.js"></script>
  </head>
  <body>
    <script id="templates/home.html" type="text/ng-template">
      <h1>Home</h1>
    </script>
  </body>
</html>`)
	h.getter.bodies[pen+".css"] = []byte("body { cursor: url('http://cameioframework.com/img/finger.png'), auto; color: red; }")
	h.getter.bodies[pen+".js"] = []byte("angular.module('app', [])")

	err := h.starter.Start(context.Background(), Options{Dir: h.path("pen"), Template: pen + "?editors=101"})
	require.NoError(t, err)

	assert.Empty(t, h.git.cloned)
	index := read(t, h.path("pen", "www", "index.html"))
	assert.True(t, strings.HasPrefix(index, "<!DOCTYPE html>\n"))
	assert.Contains(t, index, `<link href="css/style.css" rel="stylesheet">`)
	assert.Contains(t, index, `<script src="cordova.js"></script>`)
	assert.Contains(t, index, `<script src="lib/cameio/js/cameio.bundle.js"></script>`)
	assert.NotContains(t, index, "ng-template")

	assert.Equal(t, "<h1>Home</h1>", read(t, h.path("pen", "www", "templates", "home.html")))
	assert.Equal(t, "body {  color: red; }", read(t, h.path("pen", "www", "css", "style.css")))
	assert.Equal(t, "angular.module('app', [])", read(t, h.path("pen", "www", "js", "app.js")))
}

func TestStart_Creator(t *testing.T) {
	h := newHarness(t)
	h.getter.bodies["https://apps.cameio.io/api/v1/creator/abc123/download/html"] = []byte("<html><head></head></html>")

	err := h.starter.Start(context.Background(), Options{Dir: h.path("proto"), Template: "creator:abc123", NoCordova: true})
	require.NoError(t, err)

	assert.Equal(t, "<html><head></head></html>", read(t, h.path("proto", "www", "index.html")))
}

func TestStart_CreatorFetchFails(t *testing.T) {
	h := newHarness(t)

	err := h.starter.Start(context.Background(), Options{Dir: h.path("proto"), Template: "creator:nope"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to initialize app")
	assert.Empty(t, h.runner.Calls())
}

func TestStart_LocalSeed(t *testing.T) {
	h := newHarness(t)
	local := h.path("starter-src")
	require.NoError(t, writeFile(filepath.Join(local, "index.html"), starterIndex))
	require.NoError(t, writeFile(filepath.Join(local, "js", "app.js"), "app"))
	require.NoError(t, writeFile(filepath.Join(local, ".git", "HEAD"), "ref"))

	err := h.starter.Start(context.Background(), Options{Dir: h.path("local"), Template: local, NoCordova: true})
	require.NoError(t, err)

	assert.Equal(t, "app", read(t, h.path("local", "www", "js", "app.js")))
	assert.False(t, exists(h.path("local", "www", ".git")))
}

func TestStart_InvalidGitHubURL(t *testing.T) {
	h := newHarness(t)

	err := h.starter.Start(context.Background(), Options{Dir: h.path("bad"), Template: "https://github.com/only-owner"})

	assert.ErrorIs(t, err, ErrInvalidGitHubURL)
	assert.Empty(t, h.git.cloned)
	assert.Contains(t, h.out.String(), "Example of a valid URL")
}

func TestStart_CloneFails(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("repository not found")
	h.git.err = boom

	err := h.starter.Start(context.Background(), Options{Dir: h.path("x")})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"https://github.com/videogamearmy/cameio-app-tabs.git"}, h.git.cloned)
}

func TestStart_PluginAddFails(t *testing.T) {
	h := newHarness(t)
	h.runner.Fail = map[string]error{"cordova plugin add org.apache.cordova.console": errors.New("exit 1")}

	err := h.starter.Start(context.Background(), Options{Dir: h.path("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Perhaps your version of Cordova is too old")
	assert.Len(t, h.runner.Calls(), 2)
}

func TestStart_ExistingDirectory(t *testing.T) {
	h := newHarness(t)
	target := h.path("exists")
	require.NoError(t, writeFile(filepath.Join(target, "keep.txt"), "mine"))

	err := h.starter.Start(context.Background(), Options{Dir: target})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, "mine", read(t, filepath.Join(target, "keep.txt")))
	assert.Empty(t, h.getter.gets)

	h.prompts.Yes = true
	require.NoError(t, h.starter.Start(context.Background(), Options{Dir: target}))
	assert.False(t, exists(filepath.Join(target, "keep.txt")))
	assert.True(t, exists(filepath.Join(target, "config.xml")))
}

func TestStart_LocalLibSymlinks(t *testing.T) {
	h := newHarness(t)
	lib := h.path("cameio-lib")
	for _, d := range []string{"css", "js", "fonts"} {
		require.NoError(t, os.MkdirAll(filepath.Join(lib, d), 0o755))
	}
	h.git.files["lib/cameio/css/cameio.css"] = "old"

	err := h.starter.Start(context.Background(), Options{Dir: h.path("linked"), Lib: lib, NoCordova: true})
	require.NoError(t, err)

	cssLink := h.path("linked", "www", "lib", "cameio", "css")
	dest, err := os.Readlink(cssLink)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib, "css"), dest)
	assert.Equal(t, "old", read(t, filepath.Join(cssLink+"_local", "cameio.css")))
}

func TestStart_RequiresDir(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.starter.Start(context.Background(), Options{}))
}
