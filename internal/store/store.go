package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Correlation record status values. These are the wire values exchanged
// with the external automation service, not internal enum names.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ErrTerminalState is returned by SetStatus when terminal-state
	// protection is enabled and the write would move a record out of
	// success or error.
	ErrTerminalState = errors.New("record is already in a terminal state")
)

// IsValidStatus reports whether s is one of the recognized status values.
// The store itself never validates; callers at the inbound boundary do.
func IsValidStatus(s string) bool {
	return s == StatusPending || s == StatusSuccess || s == StatusError
}

// IsTerminalStatus reports whether s is a status the poller stops on.
func IsTerminalStatus(s string) bool {
	return s == StatusSuccess || s == StatusError
}

// Record is the latest known state for one correlation id.
type Record struct {
	Status    string          `db:"status"`
	Message   string          `db:"message"`
	Data      json.RawMessage `db:"data"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Update carries the fields of a status report. SetStatus replaces the
// record wholesale with these values plus a refreshed timestamp.
type Update struct {
	Status  string
	Message string
	Data    json.RawMessage
}

// Store is the registry of correlation records. It is the only shared
// mutable state in the gateway; all access goes through these methods.
//
// Reads for an unknown (or already swept) id return found=false, never an
// error. Writes accept ids the store has never seen, since the reporter
// channel can outrun the dispatcher.
type Store interface {
	// CreatePending inserts a pending record for id, unconditionally
	// overwriting any existing record.
	CreatePending(ctx context.Context, id string, data json.RawMessage) error

	// SetStatus replaces the record for id with the given update and a
	// fresh timestamp. Returns ErrTerminalState only when terminal-state
	// protection is enabled and the existing record is terminal.
	SetStatus(ctx context.Context, id string, upd Update) error

	// GetStatus returns the current record for id.
	GetStatus(ctx context.Context, id string) (Record, bool, error)

	// Cleanup removes every record whose last update is older than ttl
	// and reports how many were removed.
	Cleanup(ctx context.Context, ttl time.Duration) (int, error)
}
