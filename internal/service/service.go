package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"futarchy-alerts/internal/alerting"
	"futarchy-alerts/internal/proposal"
	"futarchy-alerts/internal/scheduler"
	"futarchy-alerts/internal/source"
	"futarchy-alerts/internal/storage"
)

// SnapshotFetcher produces at most one snapshot per cycle.
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*proposal.Snapshot, error)
}

// Service orchestrates one fetch cycle: acquisition cascade, history append,
// report derivation, and notification.
type Service struct {
	scheduler *scheduler.Scheduler
	fetcher   SnapshotFetcher
	store     storage.HistoryStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	proposalID        string
	locker            storage.AdvisoryLocker
	lockKey           int64
	notifyUnavailable bool
}

// Options configure the service beyond its collaborators.
type Options struct {
	ProposalID      string
	AdvisoryLockKey int64
	// NotifyUnavailable also pushes the "no data this cycle" signal to the
	// notification channel instead of only logging it.
	NotifyUnavailable bool
}

// New constructs the watcher service. The store may implement
// storage.AdvisoryLocker, in which case cycles are guarded by the lock key.
func New(sched *scheduler.Scheduler, fetcher SnapshotFetcher, store storage.HistoryStore, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:         sched,
		fetcher:           fetcher,
		store:             store,
		notifier:          notifier,
		logger:            logger.With().Str("component", "service").Logger(),
		proposalID:        opts.ProposalID,
		locker:            locker,
		lockKey:           opts.AdvisoryLockKey,
		notifyUnavailable: opts.NotifyUnavailable,
	}
}

// Run begins the scheduled fetch loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes a single fetch-and-report cycle for the given
// bucket. Cycles are assumed not to overlap; when the store offers advisory
// locking the assumption is also enforced across processes.
func (s *Service) ProcessCycle(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeCycle(ctx, bucket)
}

func (s *Service) executeCycle(ctx context.Context, bucket time.Time) error {
	cycleID := uuid.New().String()
	logger := s.logger.With().Str("cycle", cycleID).Logger()

	snap, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			logger.Warn().Time("bucket", bucket).Msg("every source exhausted, no data this cycle")
			if s.notifyUnavailable && s.notifier != nil {
				if notifyErr := s.notifier.NotifyUnavailable(ctx, s.proposalID); notifyErr != nil {
					logger.Error().Err(notifyErr).Msg("failed to dispatch unavailable signal")
				}
			}
			return nil
		}
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	var hist *proposal.History
	if s.store != nil {
		hist, err = s.store.Append(ctx, *snap)
		if err != nil {
			logger.Error().Err(err).Time("bucket", bucket).Msg("failed to append history entry")
			hist = nil
		}
	}

	report := proposal.BuildReport(*snap, hist)

	logger.Info().Time("bucket", bucket).
		Str("source", snap.Source).
		Str("status", snap.Status).
		Str("threshold_pct", snap.Threshold.StringFixed(4)).
		Bool("finalized", report.IsFinalized).
		Msg("cycle complete")

	if s.notifier != nil {
		if err := s.notifier.NotifyReport(ctx, report); err != nil {
			logger.Error().Err(err).Time("bucket", bucket).Msg("failed to dispatch report")
		}
	}

	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
