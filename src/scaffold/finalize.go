package scaffold

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cameio-cli/src/store"
)

// DefaultLibPath is where starters ship the framework.
const DefaultLibPath = "lib/cameio"

var (
	whitespace    = regexp.MustCompile(`\s+`)
	starterNameRe = regexp.MustCompile(`(?i)cameio-starter`)
	libDirs       = []string{"css", "js", "fonts"}
)

func (s *Starter) finalize(ctx context.Context, p *project) error {
	if err := s.updateLibFiles(p); err != nil {
		return fmt.Errorf("Error updating lib files: %w", err)
	}

	if err := updateJSON(filepath.Join(p.target, "package.json"), func(m map[string]any) {
		m["name"] = PackageName(p.opts.AppName)
		m["description"] = p.opts.AppName + ": An Cameio project"
	}); err != nil {
		s.log.Error("package.json: %v", err)
	}

	project := store.OpenProject(p.target)
	project.Set("name", p.opts.AppName)
	if err := project.Save(); err != nil {
		s.log.Error("cameio.project: %v", err)
	}

	if err := updateJSON(filepath.Join(p.target, "bower.json"), func(m map[string]any) {
		m["name"] = p.opts.AppName
	}); err != nil {
		s.log.Error("bower.json: %v", err)
	}

	os.Remove(filepath.Join(p.target, "README.md"))
	os.Remove(filepath.Join(p.www, "README.md"))

	s.printQuickHelp(p)
	return nil
}

// PackageName is the npm package name for an app name.
func PackageName(appName string) string {
	return url.PathEscape(whitespace.ReplaceAllString(strings.ToLower(appName), "-"))
}

// updateJSON edits a JSON object file. A missing file is not an error.
func updateJSON(path string, edit func(map[string]any)) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		m = map[string]any{}
	}
	edit(m)
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// updateLibFiles links a local framework checkout given with --lib, or
// rewrites the framework includes of index.html to the lib path.
func (s *Starter) updateLibFiles(p *project) error {
	libPath := p.opts.Lib
	if libPath == "" {
		libPath = DefaultLibPath
	}

	if p.opts.Lib != "" {
		local, err := filepath.Abs(p.opts.Lib)
		if err != nil {
			return err
		}
		if _, err := os.Stat(local); err == nil {
			if err := s.linkLocalLib(p.www, local); err != nil {
				return err
			}
			libPath = DefaultLibPath
		}
	}

	if libPath == DefaultLibPath && (p.seed == SeedStarter || starterNameRe.MatchString(p.template)) {
		return nil
	}

	s.printer.Plain("Replacing Cameio lib references with %s", libPath)
	indexPath := filepath.Join(p.www, "index.html")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return err
	}
	return os.WriteFile(indexPath, []byte(RewriteLibPaths(string(data), libPath)), 0o644)
}

// linkLocalLib moves www/lib/cameio/{css,js,fonts} aside to *_local and
// symlinks them to the local checkout.
func (s *Starter) linkLocalLib(www, local string) error {
	libDir := filepath.Join(www, filepath.FromSlash(DefaultLibPath))
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return err
	}
	for _, name := range libDirs {
		link := filepath.Join(libDir, name)
		if _, err := os.Lstat(link); err == nil {
			if err := os.Rename(link, link+"_local"); err != nil {
				return err
			}
		}
		to := filepath.Join(local, name)
		s.printer.Plain("Create www/lib/cameio/%s symlink to %s", name, to)
		if err := os.Symlink(to, link); err != nil {
			return err
		}
	}
	return nil
}

func (s *Starter) printQuickHelp(p *project) {
	bold := s.printer.Styles.AccentStyle()
	pr := s.printer

	pr.Success("\nYour Cameio project is ready to go! Some quick tips:")
	pr.Plain("\n * cd into your project: %s", bold.Render("$ cd "+p.opts.Dir))
	if !p.hasSass {
		pr.Plain("\n * Setup this project to use Sass: %s", bold.Render("cameio setup sass"))
	}
	pr.Plain("\n * Develop in the browser with live reload: %s", bold.Render("cameio serve"))
	if p.cordova {
		pr.Plain("\n * Add a platform (ios or Android): %s", bold.Render("cameio platform add ios [android]"))
		pr.Small("   Note: iOS development requires OS X currently")
		pr.Small("   See the Android Platform Guide for full Android installation instructions:")
		pr.Small("   https://cordova.apache.org/docs/en/edge/guide_platforms_android_index.md.html")
		pr.Plain("\n * Build your app: %s", bold.Render("cameio build <PLATFORM>"))
		pr.Plain("\n * Simulate your app: %s", bold.Render("cameio emulate <PLATFORM>"))
		pr.Plain("\n * Run your app on a device: %s", bold.Render("cameio run <PLATFORM>"))
		pr.Plain("\n * Package an app using Cameio package service: %s", bold.Render("cameio package <MODE> <PLATFORM>"))
	}
	pr.Plain("\nFor more help use %s or visit the Cameio docs: %s", bold.Render("cameio --help"), bold.Render("http://cameioframework.com/docs"))
	pr.Plain("")
}
