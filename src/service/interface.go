package service

import (
	"context"
	"io"
)

// Dashboard defines the remote operations of the cameio build service.
// Every call carries the Session cookies.
type Dashboard interface {
	// Login posts the credentials and returns the resulting session.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Upload posts the packaged app archive.
	Upload(ctx context.Context, sess *Session, req UploadRequest) (*UploadResponse, error)

	// SigningInfo returns the is_valid_<field> flags for an app.
	SigningInfo(ctx context.Context, sess *Session, appID, cck string) (SigningInfo, error)

	// ClearSigning removes stored signing and credential data for an app.
	ClearSigning(ctx context.Context, sess *Session, appID string) error

	// SubmitBuild submits one platform build.
	SubmitBuild(ctx context.Context, sess *Session, req BuildRequest) (*BuildResponse, error)

	// BuildStatus performs one poll of a build status URL.
	BuildStatus(ctx context.Context, sess *Session, statusURL string) (*BuildStatusResponse, error)

	// Versions lists the uploaded versions of an app.
	Versions(ctx context.Context, sess *Session, appID string) ([]Version, error)

	// Deploy activates a version of an app.
	Deploy(ctx context.Context, sess *Session, appID, uuid string) (*DeployResponse, error)

	// Download opens a built package. Package URLs may point off the
	// dashboard host, so no cookies are sent. The caller closes the body.
	Download(ctx context.Context, packageURL string) (io.ReadCloser, int64, error)
}

// StatusFetcher is the part of Dashboard the build status poller needs.
type StatusFetcher interface {
	BuildStatus(ctx context.Context, sess *Session, statusURL string) (*BuildStatusResponse, error)
}
