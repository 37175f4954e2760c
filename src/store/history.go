package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cameio-cli/src/contracts"
)

// HistoryFile is the JSON lines file FileHistory appends to.
const HistoryFile = "builds.jsonl"

// FileHistory appends build events as JSON lines in the private directory.
type FileHistory struct {
	mu   sync.Mutex
	path string
}

// NewFileHistory returns a history stored at <dir>/builds.jsonl.
func NewFileHistory(dir string) *FileHistory {
	return &FileHistory{path: filepath.Join(dir, HistoryFile)}
}

func (h *FileHistory) Record(ctx context.Context, event *contracts.BuildEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal build event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.path), 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// List skips lines that do not parse.
func (h *FileHistory) List(ctx context.Context, limit int) ([]contracts.BuildEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.Open(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return []contracts.BuildEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	var events []contracts.BuildEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e contracts.BuildEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return newestFirst(events, limit), nil
}

func (h *FileHistory) Close() error {
	return nil
}
