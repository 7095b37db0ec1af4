package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/proposal"
	"futarchy-alerts/internal/source"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fakeFetcher struct {
	snap *proposal.Snapshot
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	return f.snap, f.err
}

type fakeStore struct {
	hist      *proposal.History
	appendErr error
	appended  []proposal.Snapshot
}

func (f *fakeStore) Load(ctx context.Context) (*proposal.History, error) {
	return f.hist, nil
}

func (f *fakeStore) Append(ctx context.Context, snap proposal.Snapshot) (*proposal.History, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appended = append(f.appended, snap)
	if f.hist == nil {
		f.hist = &proposal.History{}
	}
	f.hist.Apply(snap)
	return f.hist, nil
}

type fakeNotifier struct {
	reports     []proposal.Report
	unavailable []string
	err         error
}

func (f *fakeNotifier) NotifyReport(ctx context.Context, report proposal.Report) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeNotifier) NotifyUnavailable(ctx context.Context, proposalID string) error {
	if f.err != nil {
		return f.err
	}
	f.unavailable = append(f.unavailable, proposalID)
	return nil
}

func testSnapshot() *proposal.Snapshot {
	return &proposal.Snapshot{
		ProposalID: "prop-1",
		PassPrice:  decimal.RequireFromString("1.5"),
		FailPrice:  decimal.RequireFromString("1.2"),
		Threshold:  decimal.RequireFromString("25"),
		Status:     "Pending",
		Source:     "query",
		CapturedAt: time.Now().UTC(),
	}
}

func TestProcessCycleAppendsAndNotifies(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	svc := New(nil, &fakeFetcher{snap: testSnapshot()}, store, notifier, Options{ProposalID: "prop-1"}, testLogger())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("正常周期不应报错: %v", err)
	}
	if len(store.appended) != 1 {
		t.Fatalf("应追加一条历史记录, 实际 %d", len(store.appended))
	}
	if len(notifier.reports) != 1 {
		t.Fatalf("应推送一份报告, 实际 %d", len(notifier.reports))
	}
	if notifier.reports[0].ProposalID != "prop-1" {
		t.Fatalf("报告提案标识不正确: %s", notifier.reports[0].ProposalID)
	}
}

func TestProcessCycleUnavailable(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	svc := New(nil, &fakeFetcher{err: source.ErrUnavailable}, store, notifier,
		Options{ProposalID: "prop-1", NotifyUnavailable: true}, testLogger())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("无数据的周期不应算失败: %v", err)
	}
	if len(store.appended) != 0 {
		t.Fatal("无数据时不应写入历史")
	}
	if len(notifier.reports) != 0 {
		t.Fatal("无数据时不应推送报告")
	}
	if len(notifier.unavailable) != 1 || notifier.unavailable[0] != "prop-1" {
		t.Fatalf("应推送无数据信号: %#v", notifier.unavailable)
	}
}

func TestProcessCycleUnavailableWithoutOptIn(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := New(nil, &fakeFetcher{err: source.ErrUnavailable}, nil, notifier,
		Options{ProposalID: "prop-1"}, testLogger())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("无数据的周期不应算失败: %v", err)
	}
	if len(notifier.unavailable) != 0 {
		t.Fatal("未开启时不应推送无数据信号")
	}
}

func TestProcessCycleAppendFailureStillNotifies(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("disk full")}
	notifier := &fakeNotifier{}
	svc := New(nil, &fakeFetcher{snap: testSnapshot()}, store, notifier, Options{ProposalID: "prop-1"}, testLogger())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("历史写入失败不应中止周期: %v", err)
	}
	if len(notifier.reports) != 1 {
		t.Fatal("历史写入失败时仍应推送报告")
	}
	if notifier.reports[0].PreviousHour != nil {
		t.Fatal("无历史时报告不应携带趋势字段")
	}
}

func TestProcessCycleNotifierFailureTolerated(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	svc := New(nil, &fakeFetcher{snap: testSnapshot()}, store, notifier, Options{ProposalID: "prop-1"}, testLogger())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("通知失败不应中止周期: %v", err)
	}
	if len(store.appended) != 1 {
		t.Fatal("通知失败不影响历史写入")
	}
}

func TestProcessCycleFetchFault(t *testing.T) {
	svc := New(nil, &fakeFetcher{err: errors.New("boom")}, nil, nil, Options{ProposalID: "prop-1"}, testLogger())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err == nil {
		t.Fatal("非 ErrUnavailable 的抓取错误应向上传递")
	}
}
