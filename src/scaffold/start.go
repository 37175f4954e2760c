// Package scaffold creates a new app from the wrapper project and a starter
// template.
package scaffold

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"cameio-cli/src/archive"
	"cameio-cli/src/configxml"
	"cameio-cli/src/logger"
	"cameio-cli/src/prompt"
	"cameio-cli/src/runner"
	"cameio-cli/src/ui"
)

const (
	// WrapperRepo is the cordova wrapper every app starts from.
	WrapperRepo = "cameio-app-base"

	DefaultTemplate = "tabs"
	AppSetupFile    = "app.json"
)

// ErrCancelled is returned when the user keeps an existing directory.
var ErrCancelled = errors.New("start cancelled")

// AppSetup is the www/app.json a starter may ship.
type AppSetup struct {
	Plugins []string `json:"plugins"`
	Sass    bool     `json:"sass"`
}

// DefaultApp is used when the starter has no app.json.
var DefaultApp = AppSetup{
	Plugins: []string{
		"org.apache.cordova.device",
		"org.apache.cordova.console",
		"com.cameio.keyboard",
	},
}

var cordovaFiles = []string{"hooks", "platforms", "plugins", "config.xml"}

// Getter downloads public resources.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string, progress io.Writer) ([]byte, error)
}

// Cloner checks a git repository out into dest.
type Cloner interface {
	Clone(ctx context.Context, repoURL, dest string) error
}

// SassSetup switches a project to Sass.
type SassSetup interface {
	Run(ctx context.Context, dir string) error
}

// Options are the start command arguments.
type Options struct {
	// Dir is the app directory argument as typed.
	Dir       string
	AppName   string
	PackageID string
	Template  string
	Lib       string
	NoCordova bool
	Sass      bool
	IOS       bool
	Android   bool
}

// Config wires a Starter.
type Config struct {
	Fetch     Getter
	Git       Cloner
	Runner    runner.Runner
	Sass      SassSetup
	Prompter  prompt.Prompter
	Printer   *ui.Printer
	Log       logger.Logger
	GitHubOrg string
	// APIURL builds dashboard API URLs for creator downloads.
	APIURL func(path string) string
}

// Starter runs the start pipeline.
type Starter struct {
	fetch     Getter
	git       Cloner
	runner    runner.Runner
	sass      SassSetup
	prompter  prompt.Prompter
	printer   *ui.Printer
	log       logger.Logger
	githubOrg string
	apiURL    func(string) string

	// Random returns the numeric suffix of generated package ids.
	Random func() int
	// Progress receives download progress bars; nil disables them.
	Progress io.Writer
}

// New creates a Starter.
func New(cfg Config) *Starter {
	return &Starter{
		fetch:     cfg.Fetch,
		git:       cfg.Git,
		runner:    cfg.Runner,
		sass:      cfg.Sass,
		prompter:  cfg.Prompter,
		printer:   cfg.Printer,
		log:       cfg.Log,
		githubOrg: cfg.GitHubOrg,
		apiURL:    cfg.APIURL,
		Random:    func() int { return 100000 + rand.IntN(900000) },
	}
}

// project is the state threaded through the pipeline.
type project struct {
	opts     Options
	target   string
	www      string
	seed     SeedType
	setup    AppSetup
	hasSass  bool
	cordova  bool
	template string
}

type step struct {
	name string
	run  func(ctx context.Context, p *project) error
}

// Start creates the app described by opts.
func (s *Starter) Start(ctx context.Context, opts Options) error {
	if opts.Dir == "" {
		return errors.New("Invalid command")
	}
	target, err := filepath.Abs(opts.Dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", opts.Dir, err)
	}

	p := &project{
		opts:     opts,
		target:   target,
		www:      filepath.Join(target, "www"),
		cordova:  !opts.NoCordova,
		template: opts.Template,
	}
	if p.template == "" {
		p.template = DefaultTemplate
	}
	if p.opts.AppName == "" {
		p.opts.AppName = DefaultAppName(opts.Dir)
	}

	s.printer.Plain("Creating Cameio app in folder %s based on %s project", target, s.printer.Styles.AccentStyle().Render(p.template))

	if err := s.prepareTarget(ctx, target); err != nil {
		return err
	}

	steps := []step{
		{"fetch wrapper", s.fetchWrapper},
		{"fetch seed", s.fetchSeed},
		{"load app setup", s.loadAppSetup},
		{"init cordova", s.initCordova},
		{"setup sass", s.setupSass},
		{"finalize", s.finalize},
	}
	for _, st := range steps {
		s.log.Debug("start %s: %s", target, st.name)
		if err := st.run(ctx, p); err != nil {
			return fmt.Errorf("Unable to initialize app: %w", err)
		}
	}
	return nil
}

func (s *Starter) prepareTarget(ctx context.Context, target string) error {
	if _, err := os.Stat(target); err == nil {
		s.printer.Error("\nThe directory %s already exists.", target)
		ok, err := s.prompter.Confirm(ctx, "Would you like to overwrite the directory with this new project?")
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	return nil
}

func (s *Starter) githubURL(repo string) string {
	return "https://github.com/" + s.githubOrg + "/" + repo
}

func (s *Starter) fetchWrapper(ctx context.Context, p *project) error {
	data, err := s.fetch.Download(ctx, s.githubURL(WrapperRepo)+"/archive/master.zip", s.Progress)
	if err != nil {
		return fmt.Errorf("Unable to fetch wrapper repo: %w", err)
	}
	if err := archive.ExtractBytes(data, p.target, true); err != nil {
		return fmt.Errorf("Unable to fetch wrapper repo: %w", err)
	}

	if !p.cordova {
		for _, name := range cordovaFiles {
			if err := os.RemoveAll(filepath.Join(p.target, name)); err != nil {
				return err
			}
		}
	}
	return os.MkdirAll(p.www, 0o755)
}

func (s *Starter) loadAppSetup(ctx context.Context, p *project) error {
	p.setup = DefaultApp

	path := filepath.Join(p.www, AppSetupFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var setup AppSetup
	if err := json.Unmarshal(data, &setup); err != nil {
		s.printer.Warn("app.json error: %v", err)
		return nil
	}
	p.setup = setup
	return os.Remove(path)
}

func (s *Starter) initCordova(ctx context.Context, p *project) error {
	if !p.cordova {
		return nil
	}

	s.printer.Info("\nUpdate config.xml")
	id := p.opts.PackageID
	if id == "" {
		id = s.defaultPackageID(p.opts.Dir)
	}
	if err := configxml.SetWidget(p.target, SanitizeID(id), p.opts.AppName); err != nil {
		return fmt.Errorf("Error updating config.xml file: %w", err)
	}

	var cmds [][]string
	for _, plugin := range p.setup.Plugins {
		cmds = append(cmds, []string{"plugin", "add", plugin})
	}
	if p.opts.Android {
		cmds = append(cmds, []string{"platform", "add", "android"})
	}
	if p.opts.IOS {
		cmds = append(cmds, []string{"platform", "add", "ios"})
	}

	s.printer.Info("Initializing cordova project")
	for _, args := range cmds {
		if err := s.runner.Run(ctx, p.target, "cordova", args...); err != nil {
			return fmt.Errorf("Unable to add plugins. Perhaps your version of Cordova is too old. "+
				"Try updating (npm install -g cordova), removing this project folder, and trying again: %w", err)
		}
	}
	return nil
}

func (s *Starter) setupSass(ctx context.Context, p *project) error {
	if !p.opts.Sass && !p.setup.Sass {
		return nil
	}
	s.printer.Success("setup sass")
	p.hasSass = true
	return s.sass.Run(ctx, p.target)
}

func (s *Starter) defaultPackageID(dir string) string {
	name := DefaultAppName(dir)
	if name != "tmp" {
		name += fmt.Sprint(s.Random())
	}
	return "com.cameioframework." + strings.ReplaceAll(name, ".", "")
}

// DefaultAppName is the last path element of the app directory argument.
func DefaultAppName(dir string) string {
	dir = strings.TrimRight(dir, `/\`)
	if i := strings.LastIndexAny(dir, `/\`); i >= 0 {
		return dir[i+1:]
	}
	return dir
}

// SanitizeID removes spaces, dashes and underscores and lowercases id.
func SanitizeID(id string) string {
	id = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(id)
	return strings.ToLower(strings.TrimSpace(id))
}
