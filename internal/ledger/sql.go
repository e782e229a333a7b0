package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"AIToolNews/internal/domain"
)

const deliveriesTable = "deliveries"

const createDeliveries = `CREATE TABLE IF NOT EXISTS deliveries (
    channel      TEXT NOT NULL,
    identity_key TEXT NOT NULL,
    delivered_at TEXT NOT NULL,
    PRIMARY KEY (channel, identity_key)
)`

// SQLLedger persists deliveries in a SQL table, one row per channel and key.
type SQLLedger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ Store = (*SQLLedger)(nil)

// OpenSQL connects with a database/sql driver name ("sqlite" or "postgres")
// and ensures the deliveries table exists.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLLedger, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", driver, err)
	}

	l, err := NewSQLLedger(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewSQLLedger wraps an open database; placeholders follow the driver.
func NewSQLLedger(ctx context.Context, db *sql.DB, driver string) (*SQLLedger, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == "postgres" {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}

	if _, err := db.ExecContext(ctx, createDeliveries); err != nil {
		return nil, fmt.Errorf("create deliveries table: %w", err)
	}
	return &SQLLedger{db: db, builder: builder}, nil
}

// HasDelivered looks the pair up by primary key.
func (l *SQLLedger) HasDelivered(ctx context.Context, channel domain.Channel, identityKey string) (bool, error) {
	query, args, err := l.builder.
		Select("1").
		From(deliveriesTable).
		Where(sq.Eq{"channel": string(channel), "identity_key": identityKey}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build lookup: %w", err)
	}

	var one int
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query delivery: %w", err)
	}
	return true, nil
}

// RecordDelivered inserts the pair; a second insert of the same pair is ignored.
func (l *SQLLedger) RecordDelivered(ctx context.Context, channel domain.Channel, identityKey string, at time.Time) error {
	query, args, err := l.builder.
		Insert(deliveriesTable).
		Columns("channel", "identity_key", "delivered_at").
		Values(string(channel), identityKey, at.UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT (channel, identity_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Delivered lists every key recorded for a channel.
func (l *SQLLedger) Delivered(ctx context.Context, channel domain.Channel) (map[string]bool, error) {
	query, args, err := l.builder.
		Select("identity_key").
		From(deliveriesTable).
		Where(sq.Eq{"channel": string(channel)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan key: %w", err)
		}
		result[key] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Close releases the database handle.
func (l *SQLLedger) Close() error {
	return l.db.Close()
}
