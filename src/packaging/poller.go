package packaging

import (
	"context"
	"fmt"
	"time"

	"cameio-cli/src/service"
)

const (
	// PollInterval is the fixed wait between two status polls.
	PollInterval = 5000 * time.Millisecond
	// MaxAttempts is the number of non-terminal answers tolerated.
	MaxAttempts = 60
)

// Progress is reported after every poll that does not end polling.
type Progress struct {
	Attempt int
	Status  service.BuildStatus
	Message string
}

// Poller queries a build status URL until the build reaches a terminal state.
type Poller struct {
	Fetcher     service.StatusFetcher
	Interval    time.Duration
	MaxAttempts int
	// Sleep waits between polls. It returns early with ctx's error.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnProgress is optional.
	OnProgress func(Progress)
}

// NewPoller creates a poller with the standard interval and ceiling.
func NewPoller(f service.StatusFetcher) *Poller {
	return &Poller{
		Fetcher:     f,
		Interval:    PollInterval,
		MaxAttempts: MaxAttempts,
		Sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poll returns the SUCCESS response, whose package fields locate the
// artifact. The first poll is immediate; later polls wait Interval.
//
// A non-empty errors field ends polling with a *service.RemoteError whatever
// the status. FAILED yields service.ErrBuildFailed, a status outside 0..4
// yields service.ErrUnexpectedStatus and exceeding MaxAttempts yields
// service.ErrTimeout. Fetch errors are returned without retrying.
func (p *Poller) Poll(ctx context.Context, sess *service.Session, statusURL string) (*service.BuildStatusResponse, error) {
	attempt := 1
	for {
		resp, err := p.Fetcher.BuildStatus(ctx, sess, statusURL)
		if err != nil {
			return nil, fmt.Errorf("error pinging build status: %w", err)
		}

		if len(resp.Errors) > 0 {
			return nil, &service.RemoteError{Op: "build status", Messages: resp.Errors}
		}

		if resp.Status == nil || !resp.Status.Known() {
			return nil, fmt.Errorf("%w: %s", service.ErrUnexpectedStatus, describeStatus(resp.Status))
		}
		status := *resp.Status

		switch status {
		case service.StatusSuccess:
			p.report(Progress{Attempt: attempt, Status: status, Message: resp.Message})
			return resp, nil
		case service.StatusFailed:
			p.report(Progress{Attempt: attempt, Status: status, Message: resp.Message})
			return nil, service.ErrBuildFailed
		}

		attempt++
		if attempt > p.MaxAttempts {
			return nil, fmt.Errorf("%w: unable to receive build status after %d attempts", service.ErrTimeout, p.MaxAttempts)
		}
		p.report(Progress{Attempt: attempt, Status: status, Message: resp.Message})

		if err := p.Sleep(ctx, p.Interval); err != nil {
			return nil, err
		}
	}
}

func (p *Poller) report(pr Progress) {
	if p.OnProgress != nil {
		p.OnProgress(pr)
	}
}

func describeStatus(s *service.BuildStatus) string {
	if s == nil {
		return "missing status"
	}
	return fmt.Sprintf("status %d", int(*s))
}
