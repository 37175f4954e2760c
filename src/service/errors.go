package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuth           = errors.New("authentication failed")
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrAuth)

	ErrTransport   = errors.New("transport error")
	ErrBadResponse = fmt.Errorf("malformed response: %w", ErrTransport)

	ErrRejected  = errors.New("rejected by build service")
	ErrForbidden = fmt.Errorf("forbidden: %w", ErrRejected)

	ErrTimeout          = errors.New("build status polling timed out")
	ErrLocalIO          = errors.New("local io error")
	ErrBuildFailed      = errors.New("build failed")
	ErrUnexpectedStatus = errors.New("unexpected build status")
	ErrMissingAppID     = errors.New("missing app id")
)

// ClearSigningHint is shown whenever a build ends in FAILED.
const ClearSigningHint = "Use 'cameio package --clear-signing' to clear app signing and credential data if needed."

// RemoteError carries the messages of a non-empty "errors" field.
type RemoteError struct {
	Op       string
	Messages []string
}

func (e *RemoteError) Error() string {
	if len(e.Messages) == 0 {
		return e.Op + ": rejected by build service"
	}
	return e.Op + ": " + strings.Join(e.Messages, "; ")
}

// Is makes every RemoteError match ErrRejected.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRejected
}

// UsageError reports bad command arguments. The fail path prints the
// command usage after it.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// Usagef builds a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\n" + e.Hint
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// PlatformError ties a build failure to the platform it happened on.
type PlatformError struct {
	Platform Platform
	Err      error
}

func (e *PlatformError) Error() string {
	return string(e.Platform) + ": " + e.Err.Error()
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// WrapError converts client errors to user-friendly messages.
// Joined errors are converted branch by branch, platform errors keep their
// platform as a prefix. Errors already wrapped and errors of unknown kind
// are returned as is.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, Messages(WrapError(e))...)
		}
		return &UserError{Message: strings.Join(lines, "\n"), Err: err}
	}

	if pe, ok := err.(*PlatformError); ok {
		lines := Messages(WrapError(pe.Err))
		for i := range lines {
			lines[i] = string(pe.Platform) + ": " + lines[i]
		}
		return &UserError{Message: strings.Join(lines, "\n"), Err: err}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return err
	}

	var re *RemoteError
	if errors.As(err, &re) {
		return &UserError{
			Message: strings.Join(Messages(err), "\n"),
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, ErrSessionExpired):
		return &UserError{
			Message: "Session expired",
			Hint:    "Please log in and run this command again.",
			Err:     err,
		}
	case errors.Is(err, ErrAuth):
		return &UserError{
			Message: "Email or Password incorrect",
			Hint:    "Please try again.",
			Err:     err,
		}
	case errors.Is(err, ErrForbidden):
		return &UserError{
			Message: "Forbidden upload",
			Err:     err,
		}
	case errors.Is(err, ErrBuildFailed):
		return &UserError{
			Message: err.Error(),
			Hint:    ClearSigningHint,
			Err:     err,
		}
	case errors.Is(err, ErrTimeout):
		return &UserError{
			Message: "Timed out waiting for the build",
			Hint:    "The build may still complete. Check the dashboard for its status.",
			Err:     err,
		}
	case errors.Is(err, ErrMissingAppID):
		return &UserError{
			Message: "Missing app id",
			Hint:    "Run 'cameio upload' first to register this project.",
			Err:     err,
		}
	}

	return err
}

// Messages flattens err into the lines to print: the text of a UserError,
// one line per remote message, one group per joined branch, otherwise the
// error text itself.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	if ue, ok := err.(*UserError); ok {
		return []string{ue.Error()}
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, Messages(e)...)
		}
		return out
	}
	var re *RemoteError
	if errors.As(err, &re) && len(re.Messages) > 0 {
		return re.Messages
	}
	return []string{err.Error()}
}
