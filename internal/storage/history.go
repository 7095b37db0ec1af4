// Package storage persists the bounded threshold history. Two backends share
// the same append/load semantics: a single-record JSON file and a Postgres
// table. The history tracks one proposal at a time; appending a snapshot for
// a different proposal identity discards the previous series.
package storage

import (
	"context"
	"errors"

	"futarchy-alerts/internal/proposal"
)

// ErrNotConfigured indicates the storage backend was not initialised.
var ErrNotConfigured = errors.New("storage: not configured")

// HistoryStore owns the persisted representation of the threshold history.
// Load treats missing or corrupt storage as an empty history, not an error.
type HistoryStore interface {
	// Load reads the persisted history. Never returns nil on success.
	Load(ctx context.Context) (*proposal.History, error)
	// Append folds a snapshot into the history (identity reset, 168-entry
	// FIFO cap), persists, and returns the resulting history.
	Append(ctx context.Context, snap proposal.Snapshot) (*proposal.History, error)
}

// AdvisoryLocker exposes single-writer arbitration for backends that can
// provide it. The read-modify-write in Append is otherwise unprotected and
// assumes a single scheduler.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}
