// Package ledger records which canonical items were delivered to which
// outbound channel so that nothing is published twice.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"AIToolNews/internal/dedup"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/ports"
)

// ErrUnknownDriver is returned by Open for unsupported backends.
var ErrUnknownDriver = errors.New("unknown ledger driver")

// Store is a ledger backend that owns resources.
type Store interface {
	ports.Ledger
	Close() error
}

// Open selects a backend: "file" (JSON document), "sqlite" or "postgres".
func Open(ctx context.Context, driver, path, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "file":
		return OpenFile(path)
	case "sqlite":
		if dsn == "" {
			dsn = path
		}
		return OpenSQL(ctx, "sqlite", dsn)
	case "postgres":
		return OpenSQL(ctx, "postgres", dsn)
	default:
		return nil, fmt.Errorf("driver %q: %w", driver, ErrUnknownDriver)
	}
}

// ImportHistory loads a legacy posted-history document (a JSON array of post
// URLs) into the given channel. Already present keys are left untouched.
func ImportHistory(ctx context.Context, l ports.Ledger, channel domain.Channel, r io.Reader, at time.Time) (int, error) {
	var urls []string
	if err := json.NewDecoder(r).Decode(&urls); err != nil {
		return 0, fmt.Errorf("decode history: %w", err)
	}

	imported := 0
	for _, raw := range urls {
		key := dedup.URLKey(raw)
		if key == "" {
			continue
		}
		done, err := l.HasDelivered(ctx, channel, key)
		if err != nil {
			return imported, fmt.Errorf("check %s: %w", key, err)
		}
		if done {
			continue
		}
		if err := l.RecordDelivered(ctx, channel, key, at); err != nil {
			return imported, fmt.Errorf("record %s: %w", key, err)
		}
		imported++
	}
	return imported, nil
}
