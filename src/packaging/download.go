package packaging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cameio-cli/src/service"
	"cameio-cli/src/ui"
)

// PackagesDir is where artifacts land when no output path is given.
const PackagesDir = "packages"

// Downloader opens a built package for reading.
type Downloader interface {
	Download(ctx context.Context, packageURL string) (io.ReadCloser, int64, error)
}

// ArtifactPath returns where an artifact is written. An explicit output
// path is used as is for every platform of the invocation; otherwise the
// file goes to <projectDir>/packages/<filename>, creating the directory.
func ArtifactPath(projectDir, output, filename string) (string, error) {
	if output != "" {
		return ExpandPath(output), nil
	}
	if filename == "" {
		return "", fmt.Errorf("%w: build finished without a package filename", service.ErrBadResponse)
	}
	dir := filepath.Join(projectDir, PackagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create %s: %w", service.ErrLocalIO, dir, err)
	}
	return filepath.Join(dir, filepath.Base(filename)), nil
}

// DownloadArtifact streams packageURL into path, drawing a progress bar on
// progress when it is non-nil. Any failure after the file is created
// removes it.
func DownloadArtifact(ctx context.Context, dl Downloader, packageURL, path string, progress io.Writer) (n int64, err error) {
	body, size, err := dl.Download(ctx, packageURL)
	if err != nil {
		return 0, fmt.Errorf("error downloading package: %w", err)
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create %s: %w", service.ErrLocalIO, path, err)
	}
	defer func() {
		if err != nil {
			os.Remove(path)
		}
	}()

	var w io.Writer = f
	var bar *ui.DownloadBar
	if progress != nil {
		bar = ui.NewDownloadBar(progress, size)
		w = io.MultiWriter(f, bar)
	}

	n, err = io.Copy(w, body)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		f.Close()
		return n, fmt.Errorf("%w: error downloading package: %w", service.ErrTransport, err)
	}
	if size > 0 && n != size {
		f.Close()
		return n, fmt.Errorf("%w: package truncated at %d of %d bytes", service.ErrTransport, n, size)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("%w: failed to write %s: %w", service.ErrLocalIO, path, err)
	}
	return n, nil
}

// ExpandPath resolves a leading "~" to the home directory and unescapes
// "\ " the way shells pass paths with spaces.
func ExpandPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\ `, " "))
	if p == "~" || len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// fileExists reports whether the expanded path names an existing file.
func fileExists(p string) bool {
	_, err := os.Stat(ExpandPath(p))
	return err == nil
}
