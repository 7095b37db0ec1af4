package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/proposal"
	"futarchy-alerts/internal/service"
)

// SimulateReport 以给定的通过/否决价格模拟一次报告流程。
// The history store is deliberately left out so the simulation never
// pollutes the stored series.
func (a *App) SimulateReport(ctx context.Context, passPrice, failPrice decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何通知通道")
	}

	fetcher := &staticSnapshotFetcher{
		proposalID: a.Config.Proposal.Address,
		passPrice:  passPrice,
		failPrice:  failPrice,
	}

	svc := service.New(nil, fetcher, nil, notifier, a.serviceOptions(), a.Logger)

	bucket := time.Now().UTC().Truncate(a.Config.Scheduler.Interval)
	return svc.ProcessCycle(ctx, bucket)
}

type staticSnapshotFetcher struct {
	proposalID string
	passPrice  decimal.Decimal
	failPrice  decimal.Decimal
}

func (s *staticSnapshotFetcher) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	return &proposal.Snapshot{
		ProposalID: s.proposalID,
		PassPrice:  s.passPrice,
		FailPrice:  s.failPrice,
		PassTwap:   s.passPrice,
		FailTwap:   s.failPrice,
		Threshold:  proposal.Threshold(s.passPrice, s.failPrice),
		Status:     "Pending",
		Source:     "simulated",
		CapturedAt: time.Now().UTC(),
	}, nil
}

var _ service.SnapshotFetcher = (*staticSnapshotFetcher)(nil)
