// Package session resolves the authenticated session used by every remote call.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"cameio-cli/src/logger"
	"cameio-cli/src/prompt"
	"cameio-cli/src/service"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
)

// CookieStoreName is the private store holding saved cookies per dashboard.
const CookieStoreName = "cookies"

var (
	ErrMissingEmail    = errors.New("--email or -e command line flag, or CAMEIO_EMAIL environment variable required")
	ErrMissingPassword = errors.New("--password or -p command line flag, or CAMEIO_PASSWORD environment variable required")
)

var emailPattern = regexp.MustCompile(`^[A-z0-9!#$%&'*+/=?^_{|}~\-]+(?:\.[A-z0-9!#$%&'*+/=?^_{|}~\-]+)*@(?:[A-z0-9](?:[A-z0-9\-]*[A-z0-9])?\.)+[A-z0-9](?:[A-z0-9\-]*[A-z0-9])?$`)

// ValidateEmail checks the address shape accepted at the login prompt.
func ValidateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.Session, error)
}

// Credentials are the email and password given on the command line or in
// the environment.
type Credentials struct {
	Email    string
	Password string
}

// Manager obtains the session once per process and hands the same pointer
// to every caller.
type Manager struct {
	auth     Authenticator
	cookies  store.Store
	dashURL  string
	creds    Credentials
	prompter prompt.Prompter
	printer  *ui.Printer
	log      logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	cached *service.Session
}

// NewManager creates a session manager. cookies is the private cookie store.
func NewManager(auth Authenticator, cookies store.Store, dashURL string, creds Credentials, p prompt.Prompter, printer *ui.Printer, log logger.Logger) *Manager {
	return &Manager{
		auth:     auth,
		cookies:  cookies,
		dashURL:  dashURL,
		creds:    creds,
		prompter: p,
		printer:  printer,
		log:      log,
		now:      time.Now,
	}
}

// Get returns the session, logging in when needed.
//
// Exactly one of email and password given is an error. With neither,
// saved cookies are reused while their sessionid is unexpired; otherwise
// the user is prompted and the resulting cookies are saved.
func (m *Manager) Get(ctx context.Context) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return m.cached, nil
	}

	email, password := m.creds.Email, m.creds.Password
	switch {
	case email == "" && password != "":
		return nil, ErrMissingEmail
	case email != "" && password == "":
		return nil, ErrMissingPassword
	}

	prompted := false
	if email == "" {
		if sess := m.saved(); sess != nil {
			m.log.Debug("Reusing saved session for %s", m.dashURL)
			m.cached = sess
			return sess, nil
		}

		m.printer.Success("\nTo continue, please login to your Cameio account.")
		m.printer.Info("Don't have one? Create one at: %s/signup\n", m.dashURL)

		answers, err := m.prompter.Ask(ctx, []prompt.Field{
			{Name: "email", Label: "Email:", Required: true, Validate: ValidateEmail},
			{Name: "password", Label: "Password:", Hidden: true, Required: true},
		})
		if err != nil {
			return nil, fmt.Errorf("error logging in: %w", err)
		}
		email, password = answers["email"], answers["password"]
		prompted = true
	}

	sess, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if prompted {
		if err := m.save(sess); err != nil {
			m.log.Error("Failed to save cookies: %v", err)
		}
	}

	m.printer.Success("Logged in! :)")
	m.cached = sess
	return sess, nil
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires"`
}

type storedJar struct {
	Cookies []storedCookie `json:"cookies"`
}

func (m *Manager) saved() *service.Session {
	raw, ok := m.cookies.Get(m.dashURL)
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var jar storedJar
	if err := json.Unmarshal(data, &jar); err != nil {
		m.log.Debug("Ignoring unreadable saved cookies: %v", err)
		return nil
	}

	sess := &service.Session{}
	for _, c := range jar.Cookies {
		sess.Cookies = append(sess.Cookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	if !sess.Valid(m.now()) {
		return nil
	}
	return sess
}

func (m *Manager) save(sess *service.Session) error {
	jar := storedJar{}
	for _, c := range sess.Cookies {
		jar.Cookies = append(jar.Cookies, storedCookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	m.cookies.Set(m.dashURL, jar)
	return m.cookies.Save()
}
