package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"AIToolNews/internal/atomicfile"
	"AIToolNews/internal/domain"
)

// FileLedger keeps the ledger in one JSON document, channel -> key -> time.
// Every record rewrites the document through a temp file and rename.
type FileLedger struct {
	path string

	mu      sync.Mutex
	entries map[domain.Channel]map[string]time.Time
}

var _ Store = (*FileLedger)(nil)

// OpenFile loads the ledger at path; a missing file is an empty ledger.
func OpenFile(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, entries: map[domain.Channel]map[string]time.Time{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(raw) == 0 {
		return l, nil
	}
	if err := json.Unmarshal(raw, &l.entries); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", path, err)
	}
	return l, nil
}

// HasDelivered reports whether the key was recorded for the channel.
func (l *FileLedger) HasDelivered(_ context.Context, channel domain.Channel, identityKey string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.entries[channel][identityKey]
	return ok, nil
}

// RecordDelivered appends the key and persists before returning.
func (l *FileLedger) RecordDelivered(_ context.Context, channel domain.Channel, identityKey string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[channel][identityKey]; ok {
		return nil
	}
	if l.entries[channel] == nil {
		l.entries[channel] = map[string]time.Time{}
	}
	l.entries[channel][identityKey] = at.UTC()

	if err := l.flush(); err != nil {
		delete(l.entries[channel], identityKey)
		return err
	}
	return nil
}

// Close is a no-op; every record is flushed immediately.
func (l *FileLedger) Close() error {
	return nil
}

func (l *FileLedger) flush() error {
	payload, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := atomicfile.Write(l.path, payload); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Delivered lists every key recorded for a channel.
func (l *FileLedger) Delivered(_ context.Context, channel domain.Channel) (map[string]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string]bool, len(l.entries[channel]))
	for key := range l.entries[channel] {
		result[key] = true
	}
	return result, nil
}
