// Package apps lists and deploys the uploaded versions of an app and
// prints the local build history, live when event brokers are configured.
package apps

import (
	"context"
	"fmt"

	"cameio-cli/src/broker"
	"cameio-cli/src/contracts"
	"cameio-cli/src/logger"
	"cameio-cli/src/service"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
	"cameio-cli/src/upload"
)

// Dashboard is the part of the build service the app command calls.
type Dashboard interface {
	Versions(ctx context.Context, sess *service.Session, appID string) ([]service.Version, error)
	Deploy(ctx context.Context, sess *service.Session, appID, uuid string) (*service.DeployResponse, error)
}

// Uploader uploads the current content as a new version.
type Uploader interface {
	Upload(ctx context.Context, sess *service.Session, note string) (*upload.Result, error)
}

// Sessions hands out the process session.
type Sessions interface {
	Get(ctx context.Context) (*service.Session, error)
}

// Manager runs the app command for one project.
type Manager struct {
	Dashboard Dashboard
	Uploader  Uploader
	Sessions  Sessions
	Project   store.Store
	History   store.History
	Printer   *ui.Printer
	Log       logger.Logger
}

// Versions prints the uploaded versions, the active one starred.
func (m *Manager) Versions(ctx context.Context) error {
	appID := m.Project.GetString("app_id")
	if appID == "" {
		m.Printer.Error("No versions uploaded!")
		return nil
	}

	sess, err := m.Sessions.Get(ctx)
	if err != nil {
		return err
	}
	versions, err := m.Dashboard.Versions(ctx, sess, appID)
	if err != nil {
		return err
	}
	m.Printer.Plain("%s", m.Printer.Styles.VersionsTable(versions))
	return nil
}

// Deploy activates version uuid. Without a uuid the current content is
// uploaded with note first and that upload is deployed.
func (m *Manager) Deploy(ctx context.Context, note, uuid string) error {
	sess, err := m.Sessions.Get(ctx)
	if err != nil {
		return err
	}

	appID := m.Project.GetString("app_id")
	if uuid == "" {
		res, err := m.Uploader.Upload(ctx, sess, note)
		if err != nil {
			return err
		}
		appID = res.AppID
	}
	if appID == "" {
		return fmt.Errorf("%w: upload the app before deploying a version", service.ErrMissingAppID)
	}

	m.Log.Debug("deploying %q of app %s", uuid, appID)
	resp, err := m.Dashboard.Deploy(ctx, sess, appID, uuid)
	if err != nil {
		return err
	}
	m.Printer.Plain("Successfully deployed %s", resp.UUID)
	return nil
}

// Builds prints up to limit recorded build events, newest first.
func (m *Manager) Builds(ctx context.Context, limit int) error {
	events, err := m.History.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read build history: %w", err)
	}
	if len(events) == 0 {
		m.Printer.Small("No builds recorded yet.")
		return nil
	}
	m.Printer.Plain("%s", m.Printer.Styles.BuildsTable(events))
	return nil
}

// Follow prints build events from msgs as they are published, until msgs
// is closed or ctx is done. Records that are not build events are logged
// and skipped.
func (m *Manager) Follow(ctx context.Context, msgs <-chan broker.Message) error {
	m.Printer.Small("Following builds, press Ctrl+C to stop.")
	m.Printer.Plain("%s", ui.BuildsHeader())
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			event, err := contracts.DecodeBuildEvent(msg.Value)
			if err != nil {
				m.Log.Error("Skipping record %s@%d: %v", msg.Key, msg.Offset, err)
				continue
			}
			m.Printer.Plain("%s", m.Printer.Styles.BuildRow(*event))
		}
	}
}
