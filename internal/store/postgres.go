package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/talentbase/candidate-gateway/shared/postgresql"
)

// PostgresStore backs the correlation registry with a shared table so that
// a dispatch handled by one gateway instance is visible to status reads on
// another. Schema:
//
//	CREATE TABLE correlation_records (
//	    request_id TEXT PRIMARY KEY,
//	    status     TEXT NOT NULL,
//	    message    TEXT NOT NULL DEFAULT '',
//	    data       JSONB,
//	    updated_at TIMESTAMPTZ NOT NULL
//	)
type PostgresStore struct {
	db              *sqlx.DB
	protectTerminal bool
}

// NewPostgresStore creates a store over an established PostgreSQL client.
func NewPostgresStore(pg *postgresql.Client, protectTerminal bool) *PostgresStore {
	return &PostgresStore{
		db:              pg.GetDB(),
		protectTerminal: protectTerminal,
	}
}

func (s *PostgresStore) CreatePending(ctx context.Context, id string, data json.RawMessage) error {
	query := `
		INSERT INTO correlation_records (request_id, status, message, data, updated_at)
		VALUES ($1, $2, '', $3, $4)
		ON CONFLICT (request_id) DO UPDATE
		SET status = EXCLUDED.status,
		    message = EXCLUDED.message,
		    data = EXCLUDED.data,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, id, StatusPending, nullableJSON(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to create pending record: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, upd Update) error {
	query := `
		INSERT INTO correlation_records (request_id, status, message, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_id) DO UPDATE
		SET status = EXCLUDED.status,
		    message = EXCLUDED.message,
		    data = EXCLUDED.data,
		    updated_at = EXCLUDED.updated_at
	`
	if s.protectTerminal {
		// The guarded upsert writes nothing when the existing row is
		// terminal; RowsAffected distinguishes the rejection.
		query += fmt.Sprintf(" WHERE correlation_records.status NOT IN ('%s', '%s')",
			StatusSuccess, StatusError)
	}

	res, err := s.db.ExecContext(ctx, query, id, upd.Status, upd.Message, nullableJSON(upd.Data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	if s.protectTerminal {
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check status write: %w", err)
		}
		if affected == 0 {
			return ErrTerminalState
		}
	}
	return nil
}

func (s *PostgresStore) GetStatus(ctx context.Context, id string) (Record, bool, error) {
	var row struct {
		Status    string         `db:"status"`
		Message   string         `db:"message"`
		Data      sql.NullString `db:"data"`
		UpdatedAt time.Time      `db:"updated_at"`
	}

	query := `
		SELECT status, message, data, updated_at
		FROM correlation_records
		WHERE request_id = $1
	`

	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to get record: %w", err)
	}

	rec := Record{
		Status:    row.Status,
		Message:   row.Message,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Data.Valid {
		rec.Data = json.RawMessage(row.Data.String)
	}
	return rec, true, nil
}

func (s *PostgresStore) Cleanup(ctx context.Context, ttl time.Duration) (int, error) {
	query := `DELETE FROM correlation_records WHERE updated_at < $1`

	res, err := s.db.ExecContext(ctx, query, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up records: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed records: %w", err)
	}
	return int(removed), nil
}

// nullableJSON maps an absent payload to SQL NULL instead of the empty
// string, which is not valid jsonb.
func nullableJSON(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}
