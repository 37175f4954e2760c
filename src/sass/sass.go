// Package sass switches a project to Sass-compiled css.
package sass

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cameio-cli/src/configxml"
	"cameio-cli/src/devserver"
	"cameio-cli/src/logger"
	"cameio-cli/src/runner"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
)

const compiledMarker = "    <!-- compiled css output -->"

var (
	sassComment = regexp.MustCompile(`(?i)<!--(.*?) sass `)
	commentEnd  = regexp.MustCompile(`-->`)
	defaultCSS  = regexp.MustCompile(`(?i)lib/cameio/css/cameio\.css|css/style\.css`)
)

// Setup prepares a project for Sass.
type Setup struct {
	Runner  runner.Runner
	Printer *ui.Printer
	Log     logger.Logger
}

// Run installs the node dependencies, points the start page at the
// compiled css, registers the sass and watch startup tasks and builds once.
func (s *Setup) Run(ctx context.Context, dir string) error {
	if err := s.Runner.Run(ctx, dir, "npm", "install"); err != nil {
		s.Printer.Error("Error running npm install")
		return err
	}
	s.Printer.Success("Successful npm install")

	src, err := configxml.ContentSrc(dir)
	if err != nil {
		return err
	}
	indexPath := filepath.Join(dir, "www", src)
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return fmt.Errorf("Error loading %s: %w", indexPath, err)
	}

	project := store.OpenProject(dir)
	AddStartupTasks(project)
	if err := project.Save(); err != nil {
		return err
	}

	if err := os.WriteFile(indexPath, []byte(RewriteIndex(string(data))), 0o644); err != nil {
		return fmt.Errorf("Error parsing %s: %w", indexPath, err)
	}

	s.Printer.Success("Updated %s <link href> references to sass compiled css", indexPath)
	s.Printer.Success("\nCameio project ready to use Sass!")
	s.Printer.Warn(" * Customize the app using scss/cameio.app.scss")
	s.Printer.Warn(" * Run cameio serve to start a local dev server and watch/compile Sass to CSS")
	s.Printer.Plain("")

	if err := s.Runner.Run(ctx, dir, "gulp", "sass"); err != nil {
		s.Printer.Error("Error running gulp sass")
		return err
	}
	s.Printer.Success("Successful sass build")
	return nil
}

// RewriteIndex replaces the sass comment block with the compiled css
// marker and drops the default css links.
func RewriteIndex(html string) string {
	lines := strings.Split(html, "\n")
	out := make([]string, 0, len(lines))
	removing := false

	for _, line := range lines {
		switch {
		case sassComment.MatchString(line):
			line = compiledMarker
			removing = true
		case removing && commentEnd.MatchString(line):
			removing = false
			continue
		case defaultCSS.MatchString(line):
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// AddStartupTasks adds the sass and watch gulp tasks and the default watch
// patterns to the project record.
func AddStartupTasks(project store.Store) {
	var tasks []string
	if raw, ok := project.Get("gulpStartupTasks"); ok {
		tasks = toStrings(raw)
	}
	for _, want := range []string{"sass", "watch"} {
		if !contains(tasks, want) {
			tasks = append(tasks, want)
		}
	}
	project.Set("gulpStartupTasks", tasks)

	if _, ok := project.Get("watchPatterns"); !ok {
		project.Set("watchPatterns", devserver.DefaultWatchPatterns)
	}
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
