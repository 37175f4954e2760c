// Package versioncheck looks up the newest published CLI release at most
// once a day and warns when the running binary is behind.
package versioncheck

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"cameio-cli/src/logger"
	"cameio-cli/src/store"
)

// Interval is the minimum time between two registry lookups.
const Interval = 24 * time.Hour

// StoreKey holds the time of the last lookup in milliseconds since epoch.
const StoreKey = "versionCheck"

// JSONGetter fetches and decodes a JSON document.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Checker compares Current with the registry's latest release.
type Checker struct {
	Store       store.Store
	Fetch       JSONGetter
	RegistryURL string
	Current     string
	Log         logger.Logger
	Now         func() time.Time

	done   chan struct{}
	latest string
}

// New creates a checker.
func New(s store.Store, fetch JSONGetter, registryURL, current string, log logger.Logger) *Checker {
	return &Checker{
		Store:       s,
		Fetch:       fetch,
		RegistryURL: registryURL,
		Current:     current,
		Log:         log,
		Now:         time.Now,
	}
}

// Due reports whether a lookup should run now.
func (c *Checker) Due() bool {
	if strings.Contains(c.Current, "beta") {
		return false
	}
	raw, ok := c.Store.Get(StoreKey)
	if !ok {
		return true
	}
	last, ok := millis(raw)
	if !ok {
		return true
	}
	return time.UnixMilli(last).Add(Interval).Before(c.Now())
}

func millis(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// Check runs a lookup when one is due and returns the latest version, or
// "" when nothing was learned. Failures are only logged.
func (c *Checker) Check(ctx context.Context) string {
	if !c.Due() {
		return ""
	}
	var body struct {
		Version string `json:"version"`
	}
	url := strings.TrimRight(c.RegistryURL, "/") + "/cameio/latest"
	if err := c.Fetch.GetJSON(ctx, url, &body); err != nil {
		c.Log.Debug("version check: %v", err)
		return ""
	}
	c.Store.Set(StoreKey, c.Now().UnixMilli())
	if err := c.Store.Save(); err != nil {
		c.Log.Debug("version check: %v", err)
	}
	return body.Version
}

// Start runs Check in the background.
func (c *Checker) Start(ctx context.Context) {
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.latest = c.Check(ctx)
	}()
}

// Wait blocks until the background check ends or ctx is done and returns
// the latest version it found.
func (c *Checker) Wait(ctx context.Context) string {
	if c.done == nil {
		return ""
	}
	select {
	case <-c.done:
		return c.latest
	case <-ctx.Done():
		return ""
	}
}

var (
	ruleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// PrintWarning writes the out-of-date banner when latest differs from
// the running version.
func (c *Checker) PrintWarning(w io.Writer, latest string) bool {
	if latest == "" || latest == strings.TrimSpace(c.Current) {
		return false
	}
	rule := "-------------------------"
	lines := []string{
		"",
		ruleStyle.Render(rule),
		warnStyle.Bold(true).Render("Cameio CLI is out of date:"),
		warnStyle.Render(" * Locally installed version: " + c.Current),
		warnStyle.Render(" * Latest version: " + latest),
		warnStyle.Render(" * Run ") + lipgloss.NewStyle().Bold(true).Render("npm update -g cameio") + warnStyle.Render(" to update"),
		ruleStyle.Render(rule),
		"",
	}
	io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return true
}
