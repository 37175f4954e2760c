package sass

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cameio-cli/src/devserver"
	"cameio-cli/src/logger"
	"cameio-cli/src/runner"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
)

const indexHTML = `<!DOCTYPE html>
<html>
  <head>
    <link href="lib/cameio/css/cameio.css" rel="stylesheet">
    <link href="css/style.css" rel="stylesheet">

    <!-- IF using Sass (run gulp sass first), then uncomment below and remove the CSS includes above
    <link href="css/cameio.app.css" rel="stylesheet">
    -->
    <script src="js/app.js"></script>
  </head>
</html>`

const wantHTML = `<!DOCTYPE html>
<html>
  <head>

    <!-- compiled css output -->
    <link href="css/cameio.app.css" rel="stylesheet">
    <script src="js/app.js"></script>
  </head>
</html>`

func TestRewriteIndex(t *testing.T) {
	assert.Equal(t, wantHTML, RewriteIndex(indexHTML))
}

func TestAddStartupTasks(t *testing.T) {
	project := store.NewMemoryStore(nil)
	project.Set("gulpStartupTasks", []any{"watch", "lint"})

	AddStartupTasks(project)

	tasks, _ := project.Get("gulpStartupTasks")
	assert.Equal(t, []string{"watch", "lint", "sass"}, tasks)
	patterns, _ := project.Get("watchPatterns")
	assert.Equal(t, devserver.DefaultWatchPatterns, patterns)

	project.Set("watchPatterns", []string{"src/**"})
	AddStartupTasks(project)
	patterns, _ = project.Get("watchPatterns")
	assert.Equal(t, []string{"src/**"}, patterns)
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "www"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "www", "index.html"), []byte(indexHTML), 0o644))
	return dir
}

func TestSetupRun(t *testing.T) {
	dir := newProject(t)
	rec := &runner.Recorder{}
	var out bytes.Buffer
	s := &Setup{Runner: rec, Printer: ui.NewPrinter(&out, &out), Log: logger.NewSilentLogger()}

	require.NoError(t, s.Run(context.Background(), dir))

	assert.Equal(t, []string{"npm install", "gulp sass"}, rec.Calls())
	assert.Equal(t, []string{dir, dir}, rec.Dirs())

	got, _ := os.ReadFile(filepath.Join(dir, "www", "index.html"))
	assert.Equal(t, wantHTML, string(got))

	project := store.OpenProject(dir)
	tasks, _ := project.Get("gulpStartupTasks")
	assert.Equal(t, []any{"sass", "watch"}, tasks)
	assert.Contains(t, out.String(), "Successful sass build")
}

func TestSetupRun_NpmFails(t *testing.T) {
	dir := newProject(t)
	boom := errors.New("exit status 1")
	rec := &runner.Recorder{Fail: map[string]error{"npm install": boom}}
	var out bytes.Buffer
	s := &Setup{Runner: rec, Printer: ui.NewPrinter(&out, &out), Log: logger.NewSilentLogger()}

	err := s.Run(context.Background(), dir)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"npm install"}, rec.Calls())
	got, _ := os.ReadFile(filepath.Join(dir, "www", "index.html"))
	assert.Equal(t, indexHTML, string(got))
}

func TestSetupRun_MissingIndex(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	s := &Setup{Runner: &runner.Recorder{}, Printer: ui.NewPrinter(&out, &out), Log: logger.NewSilentLogger()}

	err := s.Run(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error loading")
}
