// Package dashboard provides a client for the cameio build service API.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cameio-cli/src/config"
	"cameio-cli/src/logger"
	"cameio-cli/src/service"
)

const (
	// ArchiveName is the filename the app archive is uploaded under.
	ArchiveName = "www.zip"

	tracerName = "cameio-cli/dashboard"
)

// Client is a cameio dashboard API client.
type Client struct {
	baseURL    string
	apiPrefix  string
	httpClient *http.Client
	log        logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

var _ service.Dashboard = (*Client)(nil)

// NewClient creates a dashboard client. A configured proxy is used for every
// request; no timeout is set beyond the transport defaults.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.DashURL, "/"),
		apiPrefix:  cfg.APIPrefix,
		httpClient: &http.Client{Transport: transport},
		log:        log,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}, nil
}

// DashURL returns the dashboard base URL.
func (c *Client) DashURL() string {
	return c.baseURL
}

func (c *Client) apiURL(path string) string {
	return c.baseURL + "/" + strings.Trim(c.apiPrefix, "/") + "/" + path
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", service.ErrTransport, op, err)
}

// do sends req with the session cookies and returns the response.
func (c *Client) do(req *http.Request, sess *service.Session) (*http.Response, error) {
	if cookie := sess.CookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	c.log.Debug("%s %s", req.Method, req.URL.Redacted())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(req.Context()).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

func decode(resp *http.Response, v any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", service.ErrTransport, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: HTTP %d: %v", service.ErrBadResponse, resp.StatusCode, err)
	}
	return nil
}

// Login posts the credentials. Only a 200 answer counts as success; its
// cookies become the session.
func (c *Client) Login(ctx context.Context, email, password string) (sess *service.Session, err error) {
	ctx, span := c.startSpan(ctx, "dashboard.login")
	defer func() { endSpan(span, err) }()

	values := url.Values{}
	values.Set("username", strings.ToLower(email))
	values.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL("user/login"), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// A redirect means the credentials were not accepted.
	client := *c.httpClient
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError("error logging in", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: login returned HTTP %d", service.ErrAuth, resp.StatusCode)
	}

	now := c.now()
	cookies := resp.Cookies()
	for _, ck := range cookies {
		if ck.Expires.IsZero() && ck.MaxAge > 0 {
			ck.Expires = now.Add(time.Duration(ck.MaxAge) * time.Second)
		}
	}
	return &service.Session{Cookies: cookies}, nil
}

// Upload posts the app archive to app/upload/{app_id}.
func (c *Client) Upload(ctx context.Context, sess *service.Session, r service.UploadRequest) (out *service.UploadResponse, err error) {
	ctx, span := c.startSpan(ctx, "dashboard.upload", attribute.String("cameio.app_id", r.AppID))
	defer func() { endSpan(span, err) }()

	f := newForm()
	f.field("name", r.Name)
	f.field("note", r.Note)
	f.field("csrfmiddlewaretoken", sess.CSRFToken())
	f.file("app_file", r.ArchivePath, ArchiveName, "application/zip")
	body, contentType, err := f.finish()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL("app/upload/"+r.AppID), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req, sess)
	if err != nil {
		return nil, transportError("error uploading", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w (401): please log in and run this command again", service.ErrSessionExpired)
	case http.StatusForbidden:
		return nil, fmt.Errorf("%w (403)", service.ErrForbidden)
	}

	var result service.UploadResponse
	if err := decode(resp, &result); err != nil {
		return nil, fmt.Errorf("error upload response: %w", err)
	}
	if len(result.Errors) == 0 && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upload returned HTTP %d", service.ErrRejected, resp.StatusCode)
	}
	return &result, nil
}

// SigningInfo fetches app/{app_id}/signing. A non-200 answer yields nil
// info and no error: the fields are simply asked for again.
func (c *Client) SigningInfo(ctx context.Context, sess *service.Session, appID, cck string) (info service.SigningInfo, err error) {
	ctx, span := c.startSpan(ctx, "dashboard.signing", attribute.String("cameio.app_id", appID))
	defer func() { endSpan(span, err) }()

	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL("app/"+appID+"/signing"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("cck", cck)

	resp, err := c.do(req, sess)
	if err != nil {
		return nil, transportError("error loading app signing info", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("Signing info unavailable: HTTP %d", resp.StatusCode)
		return nil, nil
	}

	if err := decode(resp, &info); err != nil {
		return nil, fmt.Errorf("error parsing app signing: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: invalid app signing information", service.ErrBadResponse)
	}
	return info, nil
}

// ClearSigning calls app/{app_id}/signing/clear.
func (c *Client) ClearSigning(ctx context.Context, sess *service.Session, appID string) (err error) {
	ctx, span := c.startSpan(ctx, "dashboard.signing_clear", attribute.String("cameio.app_id", appID))
	defer func() { endSpan(span, err) }()

	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL("app/"+appID+"/signing/clear"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, sess)
	if err != nil {
		return transportError("error clearing app signing", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w (401)", service.ErrSessionExpired)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: clearing signing returned HTTP %d", service.ErrRejected, resp.StatusCode)
	}
	return nil
}

// SubmitBuild posts one platform build to app/{app_id}/package. The decoded
// response is returned as is, including any "errors".
func (c *Client) SubmitBuild(ctx context.Context, sess *service.Session, r service.BuildRequest) (out *service.BuildResponse, err error) {
	ctx, span := c.startSpan(ctx, "dashboard.package",
		attribute.String("cameio.app_id", r.AppID),
		attribute.String("cameio.platform", string(r.Platform)),
		attribute.String("cameio.mode", string(r.Mode)),
	)
	defer func() { endSpan(span, err) }()

	f := newForm()
	f.field("build_status_email", fmt.Sprintf("%t", r.BuildStatusEmail))
	f.field("name", r.Name)
	f.field("platform", string(r.Platform))
	f.field("build_mode", string(r.Mode))
	f.field("csrfmiddlewaretoken", sess.CSRFToken())
	for i, p := range r.Plugins {
		f.field(fmt.Sprintf("plugin_%d", i), p.Source())
		if p.Name != "" {
			f.field(fmt.Sprintf("plugin_%d_name", i), p.Name)
		}
		if p.Version != "" {
			f.field(fmt.Sprintf("plugin_%d_version", i), p.Version)
		}
	}
	for _, k := range service.OrderedFields(r.Values) {
		f.field(service.FieldName(k), r.Values[k])
	}
	for _, k := range service.OrderedFields(r.Files) {
		if r.Files[k] == "" {
			continue
		}
		f.file(service.FieldName(k), r.Files[k], "", "application/octet-stream")
	}
	if r.ConfigFile != "" {
		f.field("config_file", r.ConfigFile)
	}
	body, contentType, err := f.finish()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL("app/"+r.AppID+"/package"), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if r.CCK != "" {
		req.Header.Set("cck", r.CCK)
	}

	resp, err := c.do(req, sess)
	if err != nil {
		return nil, transportError("error packaging "+string(r.Platform), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w (401)", service.ErrSessionExpired)
	}

	var result service.BuildResponse
	if err := decode(resp, &result); err != nil {
		return nil, fmt.Errorf("error packaging %s: %w", r.Platform, err)
	}
	return &result, nil
}

// BuildStatus performs a single GET of statusURL with the session cookies.
func (c *Client) BuildStatus(ctx context.Context, sess *service.Session, statusURL string) (out *service.BuildStatusResponse, err error) {
	ctx, span := c.startSpan(ctx, "dashboard.build_status")
	defer func() { endSpan(span, err) }()

	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, sess)
	if err != nil {
		return nil, transportError("error pinging build status", err)
	}
	defer resp.Body.Close()

	var result service.BuildStatusResponse
	if err := decode(resp, &result); err != nil {
		return nil, fmt.Errorf("error pinging build status: %w", err)
	}
	if result.Status != nil {
		span.SetAttributes(attribute.String("cameio.build_status", result.Status.String()))
	}
	return &result, nil
}

// Versions lists the uploaded versions of an app.
func (c *Client) Versions(ctx context.Context, sess *service.Session, appID string) (out []service.Version, err error) {
	ctx, span := c.startSpan(ctx, "dashboard.versions", attribute.String("cameio.app_id", appID))
	defer func() { endSpan(span, err) }()

	f := newForm()
	f.field("csrfmiddlewaretoken", sess.CSRFToken())
	body, contentType, err := f.finish()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL("app/"+appID+"/versions"), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req, sess)
	if err != nil {
		return nil, transportError("error fetching versions", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := decode(resp, &raw); err != nil {
		return nil, fmt.Errorf("error response: %w", err)
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var rejected struct {
			Errors []string `json:"errors"`
		}
		if err := json.Unmarshal(raw, &rejected); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrBadResponse, err)
		}
		return nil, &service.RemoteError{Op: "unable to fetch versions list", Messages: rejected.Errors}
	}

	var versions []service.Version
	if err := json.Unmarshal(raw, &versions); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrBadResponse, err)
	}
	return versions, nil
}

// Deploy activates version uuid; an empty uuid deploys the latest upload.
func (c *Client) Deploy(ctx context.Context, sess *service.Session, appID, uuid string) (out *service.DeployResponse, err error) {
	ctx, span := c.startSpan(ctx, "dashboard.deploy", attribute.String("cameio.app_id", appID))
	defer func() { endSpan(span, err) }()

	values := url.Values{}
	values.Set("uuid", uuid)
	values.Set("csrfmiddlewaretoken", sess.CSRFToken())

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL("app/"+appID+"/deploy"), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req, sess)
	if err != nil {
		return nil, transportError("error deploying version", err)
	}
	defer resp.Body.Close()

	var result service.DeployResponse
	if err := decode(resp, &result); err != nil {
		return nil, fmt.Errorf("error response: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, &service.RemoteError{Op: "unable to deploy version", Messages: result.Errors}
	}
	return &result, nil
}

// Download opens packageURL. Any answer other than 200 is an error.
func (c *Client) Download(ctx context.Context, packageURL string) (io.ReadCloser, int64, error) {
	ctx, span := c.startSpan(ctx, "dashboard.download")

	req, err := http.NewRequestWithContext(ctx, "GET", packageURL, nil)
	if err != nil {
		endSpan(span, err)
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = transportError("error downloading package", err)
		endSpan(span, err)
		return nil, 0, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		err := fmt.Errorf("%w: package download failed with status %d: %s", service.ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
		endSpan(span, err)
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int64("http.response_content_length", resp.ContentLength))
	return &spanBody{ReadCloser: resp.Body, span: span}, resp.ContentLength, nil
}

// spanBody ends the download span when the body is closed.
type spanBody struct {
	io.ReadCloser
	span trace.Span
	err  error
}

func (b *spanBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		b.err = err
	}
	return n, err
}

func (b *spanBody) Close() error {
	err := b.ReadCloser.Close()
	endSpan(b.span, b.err)
	return err
}
