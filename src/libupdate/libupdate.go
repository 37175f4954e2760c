// Package libupdate reports and updates the framework copy a project ships
// in www/lib/cameio.
package libupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cameio-cli/src/archive"
	"cameio-cli/src/fetch"
	"cameio-cli/src/logger"
	"cameio-cli/src/prompt"
	"cameio-cli/src/runner"
	"cameio-cli/src/ui"
)

// LibDir is the framework directory inside a project.
const LibDir = "www/lib/cameio"

// BowerRepo hosts the packaged framework releases.
const BowerRepo = "cameio-bower"

var (
	ErrNoWWW          = errors.New(`"www" directory cannot be found. Make sure the working directory is at the top level of an Cameio project.`)
	ErrInvalidVersion = errors.New("invalid version")
)

// VersionData describes one framework release. The manifests on the code
// host use either the long or the short field names.
type VersionData struct {
	Version  string `json:"version"`
	Codename string `json:"codename"`
	Date     string `json:"date"`
}

func (v *VersionData) UnmarshalJSON(data []byte) error {
	var raw struct {
		VersionNumber   string `json:"version_number"`
		Version         string `json:"version"`
		VersionCodename string `json:"version_codename"`
		Codename        string `json:"codename"`
		ReleaseDate     string `json:"release_date"`
		Date            string `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = VersionData{
		Version:  firstOf(raw.VersionNumber, raw.Version),
		Codename: firstOf(raw.VersionCodename, raw.Codename),
		Date:     firstOf(raw.ReleaseDate, raw.Date),
	}
	return nil
}

func firstOf(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Local is the installed framework version.
type Local struct {
	Version   string
	Path      string
	UsesBower bool
}

// LoadLocal reads version.json, falling back to the bower.json of a bower
// managed install.
func LoadLocal(dir string) (Local, error) {
	lib := filepath.Join(dir, filepath.FromSlash(LibDir))
	local := Local{Path: filepath.Join(lib, "version.json")}
	if _, err := os.Stat(local.Path); err != nil {
		bower := filepath.Join(lib, "bower.json")
		if _, err := os.Stat(bower); err == nil {
			local.Path = bower
			local.UsesBower = true
		}
	}

	data, err := os.ReadFile(local.Path)
	if err != nil {
		return local, err
	}
	var v VersionData
	if err := json.Unmarshal(data, &v); err != nil {
		return local, fmt.Errorf("%s: %w", local.Path, err)
	}
	local.Version = v.Version
	return local, nil
}

// Getter fetches manifests and archives.
type Getter interface {
	GetJSON(ctx context.Context, url string, v any) error
	Download(ctx context.Context, url string, progress io.Writer) ([]byte, error)
}

// Updater runs the lib command for the project in Dir.
type Updater struct {
	Dir       string
	Fetch     Getter
	Runner    runner.Runner
	Prompter  prompt.Prompter
	Printer   *ui.Printer
	Log       logger.Logger
	CodeHost  string
	GitHubOrg string
	// Progress receives the download bar; nil disables it.
	Progress io.Writer
}

func (u *Updater) checkWWW() error {
	if info, err := os.Stat(filepath.Join(u.Dir, "www")); err != nil || !info.IsDir() {
		return ErrNoWWW
	}
	return nil
}

// FetchVersion returns the manifest of version, or of the newest release
// when version is "latest".
func (u *Updater) FetchVersion(ctx context.Context, version string) (VersionData, error) {
	host := strings.TrimRight(u.CodeHost, "/")
	url := host + "/" + version + "/version.json"
	if version == "latest" {
		url = host + "/latest.json"
	}

	var v VersionData
	if err := u.Fetch.GetJSON(ctx, url, &v); err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return v, fmt.Errorf("%w: %s", ErrInvalidVersion, version)
		}
		return v, fmt.Errorf("Unable to load version data: %w", err)
	}
	return v, nil
}

// PrintVersions compares the installed version with the latest release.
func (u *Updater) PrintVersions(ctx context.Context) error {
	if err := u.checkWWW(); err != nil {
		return err
	}
	local, err := LoadLocal(u.Dir)
	if err != nil {
		u.Log.Debug("load local version: %v", err)
		u.Printer.Error("Unable to load cameio lib version information")
	}
	u.Printer.Plain("%s%s  (%s)", u.Printer.Styles.SuccessStyle().Render("Local Cameio version: "), local.Version, local.Path)

	latest, err := u.FetchVersion(ctx, "latest")
	if err != nil {
		return err
	}
	u.Printer.Plain("%s%s  (released %s)", u.Printer.Styles.SuccessStyle().Render("Latest Cameio version: "), latest.Version, latest.Date)
	if local.Version != latest.Version {
		u.Printer.Warn(" * Local version is out of date")
	} else {
		u.Printer.Success(" * Local version up to date")
	}
	return nil
}

// Update replaces the installed framework with version ("" for latest).
// Bower managed installs are updated through bower.
func (u *Updater) Update(ctx context.Context, version string) error {
	if err := u.checkWWW(); err != nil {
		return err
	}
	local, _ := LoadLocal(u.Dir)
	if local.UsesBower {
		return u.Runner.Run(ctx, u.Dir, "bower", "update", "cameio")
	}

	libPath := filepath.Join(u.Dir, filepath.FromSlash(LibDir))
	ok, err := u.Prompter.Confirm(ctx, fmt.Sprintf("Are you sure you want to replace %s with an updated version of Cameio?", libPath))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if version == "" {
		version = "latest"
	}
	data, err := u.FetchVersion(ctx, version)
	if err != nil {
		return err
	}
	label := "Version: "
	if version == "latest" {
		label = "Latest version: "
	}
	u.Printer.Plain("%s%s  (released %s)", u.Printer.Styles.SuccessStyle().Render(label), data.Version, data.Date)

	return u.install(ctx, libPath, data)
}

func (u *Updater) install(ctx context.Context, libPath string, data VersionData) error {
	url := fmt.Sprintf("https://github.com/%s/%s/archive/v%s.zip", u.GitHubOrg, BowerRepo, data.Version)
	u.Printer.Success("Downloading: %s", url)

	zipData, err := u.Fetch.Download(ctx, url, u.Progress)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrInvalidVersion, data.Version)
		}
		return fmt.Errorf("Unable to download zip: %w", err)
	}

	if err := archive.ExtractBytes(zipData, libPath, true); err != nil {
		return fmt.Errorf("updateFiles, invalid zip: %w", err)
	}
	for _, name := range []string{"README.md", "bower.json"} {
		if err := os.Remove(filepath.Join(libPath, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			u.Log.Debug("remove %s: %v", name, err)
		}
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(libPath, "version.json"), out, 0o644); err != nil {
		return fmt.Errorf("Error writing version data: %w", err)
	}

	u.Printer.Success("Cameio version updated to: %s", data.Version)
	return nil
}
