// Package mcp exposes build status, app versions and the local build
// history as Model Context Protocol tools.
package mcp

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"cameio-cli/src/contracts"
	"cameio-cli/src/service"
)

// BuildStatus is the build_status tool response.
type BuildStatus struct {
	StatusURL       string   `json:"status_url"`
	Status          *int     `json:"status"`
	StatusName      string   `json:"status_name"`
	Terminal        bool     `json:"terminal"`
	Message         string   `json:"message,omitempty"`
	PackageURL      string   `json:"package_url,omitempty"`
	PackageFilename string   `json:"package_filename,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// VersionList is the list_versions tool response.
type VersionList struct {
	AppID    string            `json:"app_id"`
	Versions []service.Version `json:"versions"`
}

// BuildList is the list_builds tool response.
type BuildList struct {
	Count  int                    `json:"count"`
	Events []contracts.BuildEvent `json:"events"`
}

func toBuildStatus(statusURL string, resp *service.BuildStatusResponse) BuildStatus {
	out := BuildStatus{
		StatusURL:       statusURL,
		StatusName:      "unknown",
		Message:         clean(resp.Message),
		PackageURL:      resp.PackageURL,
		PackageFilename: resp.PackageFilename,
	}
	for _, e := range resp.Errors {
		out.Errors = append(out.Errors, clean(e))
	}
	if resp.Status != nil {
		code := int(*resp.Status)
		out.Status = &code
		out.StatusName = resp.Status.String()
		out.Terminal = resp.Status.Terminal()
	}
	if len(resp.Errors) > 0 {
		out.Terminal = true
	}
	return out
}

// clean strips terminal escapes the build service copies from build logs.
func clean(s string) string {
	return strings.TrimSpace(ansi.Strip(s))
}

func toBuildList(events []contracts.BuildEvent) BuildList {
	if events == nil {
		events = []contracts.BuildEvent{}
	}
	return BuildList{Count: len(events), Events: events}
}
