package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/config"
	"futarchy-alerts/internal/proposal"
)

const (
	deleteOtherProposalsSQL = `DELETE FROM threshold_history WHERE proposal_id <> $1;`

	insertEntrySQL = `INSERT INTO threshold_history (
        proposal_id,
        sampled_at,
        threshold_pct,
        pass_price,
        fail_price
    ) VALUES ($1,$2,$3,$4,$5);`

	trimHistorySQL = `DELETE FROM threshold_history
    WHERE id IN (
        SELECT id FROM threshold_history
        WHERE proposal_id = $1
        ORDER BY id DESC
        OFFSET $2
    );`

	loadHistorySQL = `SELECT proposal_id, sampled_at, threshold_pct, pass_price, fail_price
    FROM threshold_history
    ORDER BY id;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// PostgresStore keeps the history in a threshold_history table with the same
// semantics as the file store, plus advisory-lock arbitration so that two
// schedulers sharing a DSN cannot interleave their read-modify-write.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a history store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Append discards entries for other proposals, inserts the new entry, and
// trims the series to the entry cap, all in one transaction.
func (s *PostgresStore) Append(ctx context.Context, snap proposal.Snapshot) (*proposal.History, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteOtherProposalsSQL, snap.ProposalID); err != nil {
		return nil, fmt.Errorf("reset history: %w", err)
	}
	if _, err := tx.Exec(ctx, insertEntrySQL,
		snap.ProposalID,
		snap.CapturedAt,
		snap.Threshold.String(),
		snap.PassPrice.String(),
		snap.FailPrice.String(),
	); err != nil {
		return nil, fmt.Errorf("insert history entry: %w", err)
	}
	if _, err := tx.Exec(ctx, trimHistorySQL, snap.ProposalID, proposal.MaxHistoryEntries); err != nil {
		return nil, fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}

	return s.Load(ctx)
}

// Load reads the stored series in insertion order. Unparseable rows are
// treated as corrupt storage: the result is an empty history, not an error.
func (s *PostgresStore) Load(ctx context.Context) (*proposal.History, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, loadHistorySQL)
	if queryErr != nil {
		return nil, fmt.Errorf("load history: %w", queryErr)
	}
	defer rows.Close()

	hist := &proposal.History{}
	for rows.Next() {
		entry, proposalID, scanErr := scanHistoryEntry(rows)
		if scanErr != nil {
			return &proposal.History{}, nil
		}
		hist.ProposalID = proposalID
		hist.Entries = append(hist.Entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return hist, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func.
func (s *PostgresStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func scanHistoryEntry(rows pgx.Rows) (proposal.HistoryEntry, string, error) {
	var (
		proposalID   string
		sampledAt    time.Time
		thresholdStr string
		passStr      string
		failStr      string
	)

	if err := rows.Scan(&proposalID, &sampledAt, &thresholdStr, &passStr, &failStr); err != nil {
		return proposal.HistoryEntry{}, "", err
	}

	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil {
		return proposal.HistoryEntry{}, "", fmt.Errorf("parse threshold: %w", err)
	}
	passPrice, err := decimal.NewFromString(passStr)
	if err != nil {
		return proposal.HistoryEntry{}, "", fmt.Errorf("parse pass price: %w", err)
	}
	failPrice, err := decimal.NewFromString(failStr)
	if err != nil {
		return proposal.HistoryEntry{}, "", fmt.Errorf("parse fail price: %w", err)
	}

	return proposal.HistoryEntry{
		Timestamp: sampledAt,
		Threshold: threshold,
		PassPrice: passPrice,
		FailPrice: failPrice,
	}, proposalID, nil
}

var (
	_ HistoryStore   = (*PostgresStore)(nil)
	_ AdvisoryLocker = (*PostgresStore)(nil)
)
