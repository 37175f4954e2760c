// Package packaging submits app builds to the build service, follows them
// to completion and downloads the resulting packages.
package packaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cameio-cli/src/broker"
	"cameio-cli/src/contracts"
	"cameio-cli/src/logger"
	"cameio-cli/src/prompt"
	"cameio-cli/src/service"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
	"cameio-cli/src/upload"
)

// ErrNoPluginDir is returned when the project has no plugins directory.
var ErrNoPluginDir = errors.New("Unable to find plugin directory. Make sure the working directory is an Cameio project.")

// Dashboard is the part of the build service the packager calls.
type Dashboard interface {
	SigningInfo(ctx context.Context, sess *service.Session, appID, cck string) (service.SigningInfo, error)
	ClearSigning(ctx context.Context, sess *service.Session, appID string) error
	SubmitBuild(ctx context.Context, sess *service.Session, r service.BuildRequest) (*service.BuildResponse, error)
	service.StatusFetcher
	Downloader
}

// Uploader uploads the app content and records the app id.
type Uploader interface {
	Upload(ctx context.Context, sess *service.Session, note string) (*upload.Result, error)
}

// Sessions hands out the process session.
type Sessions interface {
	Get(ctx context.Context) (*service.Session, error)
}

// Options are the inputs of one package invocation.
type Options struct {
	// Args are the positional arguments after the command name.
	Args []string
	// Values and Files hold signing values given as flags, keyed by dashed
	// field name.
	Values  map[string]string
	Files   map[string]string
	NoEmail bool
	Output  string
}

// Request is a parsed package invocation.
type Request struct {
	Mode      service.Mode
	Platforms []service.Platform
}

// Packager runs package invocations for the project in Dir.
type Packager struct {
	dash     Dashboard
	uploader Uploader
	sessions Sessions
	project  store.Store
	private  func(appID string) store.Store
	prompter prompt.Prompter
	printer  *ui.Printer
	events   *broker.BuildEvents
	log      logger.Logger

	Dir string
	// InitialWait precedes the first status poll of every platform.
	InitialWait time.Duration
	Interval    time.Duration
	MaxAttempts int
	Sleep       func(ctx context.Context, d time.Duration) error
	// ShowProgress draws download progress bars on the printer's Err.
	ShowProgress bool

	privMu sync.Mutex
	privs  map[string]store.Store
}

// Config carries the collaborators of a Packager.
type Config struct {
	Dashboard Dashboard
	Uploader  Uploader
	Sessions  Sessions
	Project   store.Store
	// Private opens the per-app private store holding the cck.
	Private  func(appID string) store.Store
	Prompter prompt.Prompter
	Printer  *ui.Printer
	Events   *broker.BuildEvents
	Log      logger.Logger
	Dir      string
}

// New creates a packager with the standard polling schedule.
func New(cfg Config) *Packager {
	return &Packager{
		dash:         cfg.Dashboard,
		uploader:     cfg.Uploader,
		sessions:     cfg.Sessions,
		project:      cfg.Project,
		private:      cfg.Private,
		prompter:     cfg.Prompter,
		printer:      cfg.Printer,
		events:       cfg.Events,
		log:          cfg.Log,
		Dir:          cfg.Dir,
		InitialWait:  PollInterval,
		Interval:     PollInterval,
		MaxAttempts:  MaxAttempts,
		Sleep:        sleepContext,
		ShowProgress: true,
		privs:        map[string]store.Store{},
	}
}

// ParseArgs accepts "<mode> <platform...>" and "<platform> <mode>".
func ParseArgs(args []string) (*Request, error) {
	if len(args) < 2 {
		return nil, service.Usagef("No platforms or build mode specified.")
	}

	var modeArg string
	var platformArgs []string
	if _, ok := service.ParseMode(args[1]); ok {
		modeArg, platformArgs = args[1], args[:1]
	} else {
		modeArg, platformArgs = args[0], args[1:]
	}

	mode, ok := service.ParseMode(modeArg)
	if !ok {
		return nil, service.Usagef("Package build mode must be \"debug\" or \"release\".")
	}

	req := &Request{Mode: mode}
	for _, a := range platformArgs {
		switch p := service.Platform(strings.ToLower(a)); p {
		case service.PlatformIOS, service.PlatformAndroid:
			req.Platforms = append(req.Platforms, p)
		default:
			return nil, service.Usagef("Unknown platform %q. Use \"ios\" or \"android\".", a)
		}
	}
	if len(req.Platforms) == 0 {
		return nil, service.Usagef("No platforms specified.")
	}
	return req, nil
}

// LoadPlugins reads plugins/*/package.json under dir. Entries without a
// repo or name, and unreadable ones, are skipped.
func LoadPlugins(dir string) ([]service.Plugin, error) {
	entries, err := os.ReadDir(filepath.Join(dir, "plugins"))
	if err != nil {
		return nil, ErrNoPluginDir
	}

	var plugins []service.Plugin
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, "plugins", e.Name(), "package.json"))
		if err != nil {
			continue
		}
		var p service.Plugin
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		if p.Repo != "" || p.Name != "" {
			plugins = append(plugins, p)
		}
	}
	return plugins, nil
}

// Run performs one package invocation: upload, then one concurrent build
// per platform. Platform failures do not stop their siblings; all of them
// are returned joined.
func (p *Packager) Run(ctx context.Context, opts Options) error {
	name := p.project.GetString("name")
	if name == "" {
		name = "app"
	}
	p.printer.Success("Loading %s...", name)

	req, err := ParseArgs(opts.Args)
	if err != nil {
		return err
	}

	plugins, err := LoadPlugins(p.Dir)
	if err != nil {
		return err
	}

	values, files := copyMap(opts.Values), copyMap(opts.Files)
	for _, path := range files {
		if !fileExists(path) {
			return fmt.Errorf("%w: Unable to find file: %s", service.ErrLocalIO, path)
		}
	}
	useCmdArgs := len(values) > 0 || len(files) > 0

	sess, err := p.sessions.Get(ctx)
	if err != nil {
		return err
	}

	if !useCmdArgs {
		signing, err := p.loadSigning(ctx, sess)
		if err != nil {
			return err
		}
		fields := RequiredFields(req, signing)
		if len(fields) > 0 {
			answers, err := p.prompter.Ask(ctx, promptFields(fields))
			if err != nil {
				return fmt.Errorf("error packaging: %w", err)
			}
			for _, f := range fields {
				v, ok := answers[f.Name]
				if !ok {
					continue
				}
				if f.IsFile {
					files[f.Name] = v
				} else {
					values[f.Name] = v
				}
			}
		}
	}

	if _, err := p.uploader.Upload(ctx, sess, ""); err != nil {
		return err
	}

	appID := p.project.GetString("app_id")
	if appID == "" {
		return service.ErrMissingAppID
	}

	base := service.BuildRequest{
		AppID:            appID,
		Name:             p.project.GetString("name"),
		Mode:             req.Mode,
		BuildStatusEmail: !opts.NoEmail,
		Plugins:          plugins,
		Values:           values,
		Files:            expandFiles(files),
		ConfigFile:       p.readConfigXML(),
	}

	errs := make([]error, len(req.Platforms))
	var g errgroup.Group
	for i, platform := range req.Platforms {
		g.Go(func() error {
			r := base
			r.Platform = platform
			if err := p.buildPlatform(ctx, sess, r, opts.Output); err != nil {
				errs[i] = &service.PlatformError{Platform: platform, Err: err}
				return errs[i]
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

// ClearSigning removes the signing data the build service holds for the app.
func (p *Packager) ClearSigning(ctx context.Context) error {
	p.printer.Warn("Clearing app signing and credential information...")

	appID := p.project.GetString("app_id")
	if appID == "" {
		return fmt.Errorf("%w: App Id is not known", service.ErrMissingAppID)
	}

	sess, err := p.sessions.Get(ctx)
	if err != nil {
		return err
	}
	if err := p.dash.ClearSigning(ctx, sess, appID); err != nil {
		return err
	}
	p.printer.Success("App (%s) signing and credential information cleared\n", appID)
	return nil
}

func (p *Packager) loadSigning(ctx context.Context, sess *service.Session) (service.SigningInfo, error) {
	appID := p.project.GetString("app_id")
	if appID == "" {
		return nil, nil
	}
	cck := p.privateStore(appID).GetString("cck")
	if cck == "" {
		return nil, nil
	}
	return p.dash.SigningInfo(ctx, sess, appID, cck)
}

func (p *Packager) privateStore(appID string) store.Store {
	p.privMu.Lock()
	defer p.privMu.Unlock()
	s, ok := p.privs[appID]
	if !ok {
		s = p.private(appID)
		p.privs[appID] = s
	}
	return s
}

func (p *Packager) readConfigXML() string {
	data, err := os.ReadFile(filepath.Join(p.Dir, "config.xml"))
	if err != nil {
		return ""
	}
	return string(data)
}

func (p *Packager) buildPlatform(ctx context.Context, sess *service.Session, r service.BuildRequest, output string) error {
	tracker := &eventTracker{events: p.events, base: contracts.BuildEvent{
		AppID:    r.AppID,
		AppName:  r.Name,
		Platform: string(r.Platform),
		Mode:     string(r.Mode),
	}}

	p.printer.Plain("%s %s building...", r.Platform, r.Mode)
	r.CCK = p.privateStore(r.AppID).GetString("cck")

	resp, err := p.dash.SubmitBuild(ctx, sess, r)
	if err != nil {
		tracker.emit(ctx, "error", 0, err.Error(), "")
		return err
	}

	if err := p.saveBuildResponse(r.AppID, resp); err != nil {
		p.log.Error("Failed to save build response for %s: %v", r.Platform, err)
	}

	if len(resp.Errors) > 0 {
		for _, msg := range resp.Errors {
			p.printer.Error("%s", msg)
		}
		tracker.emit(ctx, "error", 0, strings.Join(resp.Errors, "; "), "")
		return &service.RemoteError{Op: "packaging " + string(r.Platform), Messages: resp.Errors}
	}
	if resp.BuildStatusURL == "" {
		tracker.emit(ctx, "error", 0, "no build status url", "")
		return fmt.Errorf("%w: package response has no build_status_url", service.ErrBadResponse)
	}

	tracker.emit(ctx, "submitted", 0, "", "")
	label := fmt.Sprintf("%s %s", r.Platform, r.Mode)
	p.printer.Dots(label, 1)

	if err := p.Sleep(ctx, p.InitialWait); err != nil {
		p.printer.EndLine()
		return err
	}

	poller := &Poller{
		Fetcher:     p.dash,
		Interval:    p.Interval,
		MaxAttempts: p.MaxAttempts,
		Sleep:       p.Sleep,
		OnProgress: func(pr Progress) {
			if pr.Message != "" {
				p.printer.EndLine()
				p.printer.Error("%s", pr.Message)
			}
			p.printer.Dots(label, pr.Attempt)
			tracker.observe(ctx, pr)
		},
	}

	final, err := poller.Poll(ctx, sess, resp.BuildStatusURL)
	p.printer.EndLine()
	if err != nil {
		status := "error"
		if errors.Is(err, service.ErrBuildFailed) {
			status = "failed"
			p.printer.Error("%s", service.ClearSigningHint)
		}
		tracker.emit(ctx, status, tracker.attempt, err.Error(), "")
		return err
	}

	p.printer.Plain("\n%s build complete, downloading package...", r.Platform)

	path, err := ArtifactPath(p.Dir, output, final.PackageFilename)
	if err != nil {
		tracker.emit(ctx, "error", tracker.attempt, err.Error(), "")
		return err
	}

	var progress = p.printer.Err
	if !p.ShowProgress {
		progress = nil
	}
	if _, err := DownloadArtifact(ctx, p.dash, final.PackageURL, path, progress); err != nil {
		tracker.emit(ctx, "error", tracker.attempt, err.Error(), "")
		return err
	}

	p.printer.Success("Saved %s package: %s\n", r.Platform, path)
	tracker.emit(ctx, "success", tracker.attempt, "", path)
	return nil
}

// saveBuildResponse stores the cck against appID and the returned app id
// and name in the project. The project is saved even when nothing changed.
func (p *Packager) saveBuildResponse(appID string, resp *service.BuildResponse) error {
	var errs []error
	if resp.CCK != "" {
		priv := p.privateStore(appID)
		priv.Set("cck", resp.CCK)
		if err := priv.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if resp.AppID != "" {
		p.project.Set("app_id", resp.AppID)
	}
	if resp.Name != "" {
		p.project.Set("name", resp.Name)
	}
	if err := p.project.Save(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// eventTracker emits one event per status transition of a platform build.
type eventTracker struct {
	events  *broker.BuildEvents
	base    contracts.BuildEvent
	last    string
	attempt int
}

func (t *eventTracker) observe(ctx context.Context, pr Progress) {
	t.attempt = pr.Attempt
	status := pr.Status.String()
	if status == t.last && pr.Message == "" {
		return
	}
	if pr.Status.Terminal() {
		// emitted by the caller once the outcome is known
		return
	}
	t.emit(ctx, status, pr.Attempt, pr.Message, "")
}

func (t *eventTracker) emit(ctx context.Context, status string, attempt int, msg, path string) {
	t.last = status
	ev := t.base
	ev.Status = status
	ev.Attempt = attempt
	ev.Message = msg
	ev.PackagePath = path
	t.events.Emit(ctx, ev)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func expandFiles(files map[string]string) map[string]string {
	out := make(map[string]string, len(files))
	for k, v := range files {
		out[k] = ExpandPath(v)
	}
	return out
}
