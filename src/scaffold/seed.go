package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// SeedType is where the www content of a new app comes from.
type SeedType string

const (
	SeedCodepen SeedType = "codepen"
	SeedCreator SeedType = "creator"
	SeedGitHub  SeedType = "github"
	SeedLocal   SeedType = "local"
	SeedStarter SeedType = "cameio-starter"
)

var (
	codepenRe = regexp.MustCompile(`(?i)//codepen\.io/`)
	creatorRe = regexp.MustCompile(`(?i)creator:`)
	githubRe  = regexp.MustCompile(`(?i)//github\.com/`)
)

// ErrInvalidGitHubURL is returned for GitHub URLs that are not owner/repo.
var ErrInvalidGitHubURL = errors.New("Invalid Github URL")

// ClassifySeed tells how template is fetched.
func ClassifySeed(template string) SeedType {
	switch {
	case codepenRe.MatchString(template):
		return SeedCodepen
	case creatorRe.MatchString(template):
		return SeedCreator
	case githubRe.MatchString(template):
		return SeedGitHub
	case strings.ContainsAny(template, `/\`) &&
		!strings.Contains(template, "http://") && !strings.Contains(template, "https://"):
		return SeedLocal
	}
	return SeedStarter
}

// StarterRepo is the repository name of a named starter template.
func StarterRepo(template string) string {
	return "cameio-app-" + template
}

func (s *Starter) fetchSeed(ctx context.Context, p *project) error {
	p.seed = ClassifySeed(p.template)
	switch p.seed {
	case SeedCodepen:
		return s.fetchCodepen(ctx, p)
	case SeedCreator:
		return s.fetchCreator(ctx, p)
	case SeedGitHub:
		return s.fetchGitHub(ctx, p, p.template)
	case SeedLocal:
		return s.fetchLocal(p)
	}
	return s.fetchGitHub(ctx, p, s.githubURL(StarterRepo(p.template)))
}

func (s *Starter) fetchCreator(ctx context.Context, p *project) error {
	id := strings.TrimSpace(strings.SplitN(p.template, ":", 2)[1])
	downloadURL := s.apiURL("creator/" + url.PathEscape(id) + "/download/html")
	s.printer.Info("\nDownloading Creator Prototype: %s", downloadURL)

	html, err := s.fetch.Get(ctx, downloadURL)
	if err != nil {
		return fmt.Errorf("Unable to fetch %s: %w", downloadURL, err)
	}
	return os.WriteFile(filepath.Join(p.www, "index.html"), html, 0o644)
}

// fetchCodepen writes the pen's html, css and js. Each part is optional.
func (s *Starter) fetchCodepen(ctx context.Context, p *project) error {
	penURL := strings.SplitN(strings.SplitN(p.template, "?", 2)[0], "#", 2)[0]
	s.printer.Info("\nDownloading Codepen: %s", penURL)

	if body, err := s.fetch.Get(ctx, penURL+".html"); err == nil {
		html := CodepenHTML(string(body), p.cordova)
		html, err = ExtractTemplates(html, p.www)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(p.www, "index.html"), []byte(html), 0o644); err != nil {
			return err
		}
	} else {
		s.log.Error("codepen html %s: %v", penURL, err)
	}

	if body, err := s.fetch.Get(ctx, penURL+".css"); err == nil {
		css := strings.Replace(string(body), "cursor: url('http://cameioframework.com/img/finger.png'), auto;", "", 1)
		if err := writeFile(filepath.Join(p.www, "css", "style.css"), css); err != nil {
			return err
		}
	} else {
		s.log.Error("codepen css %s: %v", penURL, err)
	}

	if body, err := s.fetch.Get(ctx, penURL+".js"); err == nil {
		if err := writeFile(filepath.Join(p.www, "js", "app.js"), string(body)); err != nil {
			return err
		}
	} else {
		s.log.Error("codepen js %s: %v", penURL, err)
	}
	return nil
}

// ParseGitHubURL returns the owner and repository of a GitHub repo URL.
func ParseGitHubURL(raw string) (owner, repo string, err error) {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Hostname(), "github.com") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidGitHubURL, raw)
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidGitHubURL, raw)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

func (s *Starter) fetchGitHub(ctx context.Context, p *project, repoURL string) error {
	owner, repo, err := ParseGitHubURL(repoURL)
	if err != nil {
		s.printer.Error("Invalid Github URL: %s", repoURL)
		s.printer.Error("Example of a valid URL: %s/", s.githubURL("cameio-app-sidemenu"))
		return err
	}

	cloneURL := "https://github.com/" + owner + "/" + repo + ".git"
	s.printer.Info("\nDownloading starter template: %s", cloneURL)
	if err := s.git.Clone(ctx, cloneURL, p.www); err != nil {
		s.printer.Error("More info available at: \nhttp://cameioframework.com/getting-started/\nhttps://github.com/%s/cameio-cli", s.githubOrg)
		return fmt.Errorf("clone %s: %w", cloneURL, err)
	}
	return nil
}

func (s *Starter) fetchLocal(p *project) error {
	src, err := filepath.Abs(p.template)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("Unable to find local starter template: %s", src)
	}
	s.printer.Info("\nCopying files to www from: %s", src)
	return copyDir(src, p.www)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// copyDir copies the contents of src into dst, overwriting files.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
