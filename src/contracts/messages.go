// Package contracts defines the build event published while packaging an app.
package contracts

import (
	"encoding/json"
	"fmt"
)

// TopicBuilds carries every build status transition.
const TopicBuilds = "cameio.builds"

// BuildEvent records one observed state of a platform build.
type BuildEvent struct {
	// Unique identifier.
	ID string `json:"id"`
	// Dashboard app id the build belongs to.
	AppID string `json:"app_id"`
	// App name as stored in the project file.
	AppName string `json:"app_name"`
	// Platform being built (ios, android).
	Platform string `json:"platform"`
	// Build mode (debug, release).
	Mode string `json:"mode"`
	// Status name (submitted, queued, building, success, failed, error).
	Status string `json:"status"`
	// Poll attempt that produced this event; 0 for submission events.
	Attempt int `json:"attempt"`
	// Progress annotation or error text.
	Message string `json:"message,omitempty"`
	// Downloaded artifact location on success.
	PackagePath string `json:"package_path,omitempty"`
	// RFC3339 time the event was observed.
	Timestamp string `json:"timestamp"`
}

// Key is the partition key: one partition per app and platform.
func (e *BuildEvent) Key() string {
	return e.AppID + "/" + e.Platform
}

// Terminal reports whether no later event follows for this build.
func (e *BuildEvent) Terminal() bool {
	switch e.Status {
	case "success", "failed", "error":
		return true
	}
	return false
}

// Encode marshals the event for publishing.
func (e *BuildEvent) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal build event: %w", err)
	}
	return data, nil
}

// DecodeBuildEvent parses a published event.
func DecodeBuildEvent(data []byte) (*BuildEvent, error) {
	var e BuildEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build event: %w", err)
	}
	return &e, nil
}
