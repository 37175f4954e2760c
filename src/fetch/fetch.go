// Package fetch downloads starter archives, version manifests and other
// public resources outside the dashboard API.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cameio-cli/src/logger"
	"cameio-cli/src/service"
	"cameio-cli/src/ui"
)

// ErrNotFound matches 404 and 406 answers.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-2xx answer.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	if target == ErrNotFound {
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusNotAcceptable
	}
	return target == service.ErrTransport
}

// Client is a plain HTTP getter honouring the configured proxy.
type Client struct {
	httpClient *http.Client
	log        logger.Logger
	tracer     trace.Tracer
}

// NewClient creates a client. proxy may be empty.
func NewClient(proxy string, timeout time.Duration, log logger.Logger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		log:        log,
		tracer:     otel.Tracer("cameio-cli/fetch"),
	}, nil
}

func (c *Client) open(ctx context.Context, rawURL string) (*http.Response, trace.Span, error) {
	ctx, span := c.tracer.Start(ctx, "fetch.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", rawURL)))

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, span, fmt.Errorf("failed to create request: %w", err)
	}
	c.log.Debug("GET %s", req.URL.Redacted())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, span, fmt.Errorf("%w: GET %s: %w", service.ErrTransport, rawURL, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, span, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, span, nil
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Get returns the body of rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (body []byte, err error) {
	resp, span, err := c.open(ctx, rawURL)
	defer func() { end(span, err) }()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", service.ErrTransport, rawURL, err)
	}
	return body, nil
}

// GetJSON decodes the body of rawURL into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", service.ErrBadResponse, rawURL, err)
	}
	return nil
}

// Download returns the body of rawURL, drawing a progress bar on progress
// when it is not nil.
func (c *Client) Download(ctx context.Context, rawURL string, progress io.Writer) (body []byte, err error) {
	resp, span, err := c.open(ctx, rawURL)
	defer func() { end(span, err) }()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if progress != nil {
		bar := ui.NewDownloadBar(progress, resp.ContentLength)
		defer bar.Finish()
		r = io.TeeReader(resp.Body, bar)
	}
	body, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", service.ErrTransport, rawURL, err)
	}
	return body, nil
}
