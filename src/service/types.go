package service

import (
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"
)

// Platform is a build target supported by the build service.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Mode is the build mode requested from the build service.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

// ParseMode returns the Mode for s, case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(s)) {
	case ModeDebug:
		return ModeDebug, true
	case ModeRelease:
		return ModeRelease, true
	}
	return "", false
}

// BuildStatus is the numeric state reported by the build status endpoint.
type BuildStatus int

const (
	StatusInitialized BuildStatus = 0
	StatusQueued      BuildStatus = 1
	StatusBuilding    BuildStatus = 2
	StatusSuccess     BuildStatus = 3
	StatusFailed      BuildStatus = 4
)

// Known reports whether s is one of the five defined states.
func (s BuildStatus) Known() bool {
	return s >= StatusInitialized && s <= StatusFailed
}

// Terminal reports whether polling stops at s.
func (s BuildStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func (s BuildStatus) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusQueued:
		return "queued"
	case StatusBuilding:
		return "building"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Session is the authenticated cookie bundle shared by every remote call
// of one process invocation.
type Session struct {
	Cookies []*http.Cookie
}

// CSRFToken returns the token sent as csrfmiddlewaretoken.
// The csrftoken cookie wins; otherwise the first cookie's value is used.
func (s *Session) CSRFToken() string {
	if s == nil || len(s.Cookies) == 0 {
		return ""
	}
	for _, c := range s.Cookies {
		if c.Name == "csrftoken" {
			return c.Value
		}
	}
	return s.Cookies[0].Value
}

// uriComponent turns query escaping into URI component escaping: spaces
// become %20 and !'()* stay literal.
var uriComponent = strings.NewReplacer("+", "%20", "%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")

// CookieHeader renders the cookies as a Cookie request header value.
func (s *Session) CookieHeader() string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		parts = append(parts, c.Name+"="+uriComponent.Replace(url.QueryEscape(c.Value)))
	}
	return strings.Join(parts, "; ")
}

// Valid reports whether the session carries a sessionid cookie that has not
// expired at now. Cookies without an expiry are treated as expired since
// they cannot be trusted across process invocations.
func (s *Session) Valid(now time.Time) bool {
	if s == nil {
		return false
	}
	for _, c := range s.Cookies {
		if c.Name == "sessionid" && c.Expires.After(now) {
			return true
		}
	}
	return false
}

// Plugin is a cordova plugin shipped with a build request.
type Plugin struct {
	Name    string `json:"name"`
	Repo    string `json:"repo,omitempty"`
	Version string `json:"version,omitempty"`
}

// Source returns the value sent as plugin_N: the repo when known, else the name.
func (p Plugin) Source() string {
	if p.Repo != "" {
		return p.Repo
	}
	return p.Name
}

// UploadRequest is one upload of the packaged app content.
type UploadRequest struct {
	AppID       string
	Name        string
	Note        string
	ArchivePath string
}

// UploadResponse is the decoded body of a successful upload.
type UploadResponse struct {
	Errors []string `json:"errors,omitempty"`
	AppID  string   `json:"app_id"`
}

// SigningInfo holds the is_valid_<field> flags returned by the signing endpoint.
type SigningInfo map[string]any

// IsValid reports whether the server already holds a valid value for the
// dashed field name, e.g. "android-keystore-file".
func (s SigningInfo) IsValid(field string) bool {
	if s == nil {
		return false
	}
	v, ok := s["is_valid_"+FieldName(field)]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// BuildRequest is one platform submission to the package endpoint.
type BuildRequest struct {
	AppID            string
	Name             string
	Platform         Platform
	Mode             Mode
	BuildStatusEmail bool
	CCK              string
	Plugins          []Plugin
	// Values and Files are keyed by dashed field names; keys are sent with
	// dashes translated to underscores. Files hold local paths.
	Values     map[string]string
	Files      map[string]string
	ConfigFile string
}

// BuildResponse is the decoded body of a package submission.
type BuildResponse struct {
	Errors         []string `json:"errors,omitempty"`
	BuildStatusURL string   `json:"build_status_url,omitempty"`
	CCK            string   `json:"cck,omitempty"`
	AppID          string   `json:"app_id,omitempty"`
	Name           string   `json:"name,omitempty"`
}

// BuildStatusResponse is one answer of the build status endpoint.
type BuildStatusResponse struct {
	Errors          []string     `json:"errors,omitempty"`
	Message         string       `json:"message,omitempty"`
	Status          *BuildStatus `json:"status"`
	PackageURL      string       `json:"package_url,omitempty"`
	PackageFilename string       `json:"package_filename,omitempty"`
}

// Version is one uploaded version of an app.
type Version struct {
	UUID    string `json:"uuid"`
	Created string `json:"created"`
	Note    string `json:"note"`
	Active  bool   `json:"active"`
}

// DeployResponse is the decoded body of a deploy call.
type DeployResponse struct {
	Errors []string `json:"errors,omitempty"`
	UUID   string   `json:"uuid"`
}

// SigningFields lists the signing form fields in submission order.
var SigningFields = []string{
	"android-keystore-file",
	"android-keystore-alias",
	"android-keystore-password",
	"android-key-password",
	"ios-certificate-file",
	"ios-certificate-password",
	"ios-profile-file",
}

// FieldName translates a dashed field name to its form key.
func FieldName(field string) string {
	return strings.ReplaceAll(field, "-", "_")
}

// OrderedFields returns the keys of m with known signing fields first, in
// SigningFields order, followed by the rest sorted.
func OrderedFields(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for _, f := range SigningFields {
		if _, ok := m[f]; ok {
			keys = append(keys, f)
		}
	}
	var rest []string
	for k := range m {
		if !slices.Contains(SigningFields, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
