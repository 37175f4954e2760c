package broker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cameio-cli/src/contracts"
	"cameio-cli/src/logger"
	"cameio-cli/src/store"
)

// BuildEvents publishes build events to a Broker and records them in a
// History. Failures are logged and never fail a build.
type BuildEvents struct {
	broker  Broker
	history store.History
	log     logger.Logger
	now     func() time.Time
}

// NewBuildEvents wires a broker and history. Either may be nil.
func NewBuildEvents(b Broker, h store.History, log logger.Logger) *BuildEvents {
	return &BuildEvents{broker: b, history: h, log: log, now: time.Now}
}

// Emit stamps event with an id and timestamp when missing and fans it out.
func (e *BuildEvents) Emit(ctx context.Context, event contracts.BuildEvent) {
	if e == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp == "" {
		event.Timestamp = e.now().UTC().Format(time.RFC3339)
	}

	if e.history != nil {
		if err := e.history.Record(ctx, &event); err != nil {
			e.log.Error("Failed to record build event %s: %v", event.ID, err)
		}
	}

	if e.broker == nil {
		return
	}
	data, err := event.Encode()
	if err != nil {
		e.log.Error("%v", err)
		return
	}
	if err := e.broker.Publish(ctx, contracts.TopicBuilds, event.Key(), data); err != nil {
		e.log.Error("Failed to publish build event %s: %v", event.ID, err)
		return
	}
	e.log.Debug("Published %s %s event for %s", event.Platform, event.Status, event.AppID)
}
