// Package upload archives the app content and uploads it to the dashboard.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"cameio-cli/src/archive"
	"cameio-cli/src/logger"
	"cameio-cli/src/service"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
)

// DefaultContentDir is the app content directory archived for upload.
const DefaultContentDir = "www"

// Uploader posts an archive to the dashboard.
type Uploader interface {
	Upload(ctx context.Context, sess *service.Session, r service.UploadRequest) (*service.UploadResponse, error)
}

// Result is what a successful upload hands to the caller.
type Result struct {
	AppID string
}

// Client uploads the project in dir.
type Client struct {
	dash    Uploader
	project store.Store
	printer *ui.Printer
	log     logger.Logger

	// Dir is the project root. ContentDir is relative to it.
	Dir        string
	ContentDir string
	// TempDir receives the temporary archive; defaults to Dir.
	TempDir string
}

// NewClient creates an upload client for the project rooted at dir.
func NewClient(dash Uploader, project store.Store, dir string, printer *ui.Printer, log logger.Logger) *Client {
	return &Client{
		dash:       dash,
		project:    project,
		printer:    printer,
		log:        log,
		Dir:        dir,
		ContentDir: DefaultContentDir,
	}
}

// Upload archives the content directory and posts it with note. On success
// the returned app id is stored in the project and saved. The temporary
// archive is always removed.
func (c *Client) Upload(ctx context.Context, sess *service.Session, note string) (*Result, error) {
	tmpDir := c.TempDir
	if tmpDir == "" {
		tmpDir = c.Dir
	}
	archivePath := filepath.Join(tmpDir, "www-"+uuid.New().String()+".zip")

	if err := archive.ZipDir(filepath.Join(c.Dir, c.ContentDir), archivePath); err != nil {
		os.Remove(archivePath)
		return nil, fmt.Errorf("%w: error uploading: %w", service.ErrLocalIO, err)
	}
	defer func() {
		if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Error("Failed to remove %s: %v", archivePath, err)
		}
	}()

	c.printer.Success("\nUploading app...")
	c.log.Debug("Uploading %s for app %q", archivePath, c.project.GetString("app_id"))

	resp, err := c.dash.Upload(ctx, sess, service.UploadRequest{
		AppID:       c.project.GetString("app_id"),
		Name:        c.project.GetString("name"),
		Note:        note,
		ArchivePath: archivePath,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		for _, msg := range resp.Errors {
			c.printer.Error("%s", msg)
		}
		return nil, &service.RemoteError{Op: "unable to upload app", Messages: resp.Errors}
	}

	c.project.Set("app_id", resp.AppID)
	if err := c.project.Save(); err != nil {
		return nil, fmt.Errorf("%w: failed to save project: %w", service.ErrLocalIO, err)
	}

	c.printer.Plain("Successfully uploaded (%s)\n", resp.AppID)
	return &Result{AppID: resp.AppID}, nil
}
