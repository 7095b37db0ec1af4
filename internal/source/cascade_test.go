package source

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"futarchy-alerts/internal/proposal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubSource struct {
	name  string
	snap  *proposal.Snapshot
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func TestCascadeShortCircuits(t *testing.T) {
	first := &stubSource{name: "a", err: ErrNoData}
	second := &stubSource{name: "b", snap: &proposal.Snapshot{ProposalID: "prop-1", Source: "b"}}
	third := &stubSource{name: "c", err: ErrNoData}

	cascade := NewCascade(noopLogger(), first, second, third)

	snap, err := cascade.Fetch(context.Background())
	if err != nil {
		t.Fatalf("第二个来源成功时不应报错: %v", err)
	}
	if snap.Source != "b" {
		t.Fatalf("应返回第二个来源的快照, 实际 %s", snap.Source)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("前两个来源应各被调用一次: %d/%d", first.calls, second.calls)
	}
	if third.calls != 0 {
		t.Fatal("成功后不应再尝试后续来源")
	}
}

func TestCascadeExhaustion(t *testing.T) {
	first := &stubSource{name: "a", err: ErrNoData}
	second := &stubSource{name: "b", err: ErrNoData}

	cascade := NewCascade(noopLogger(), first, second)

	if _, err := cascade.Fetch(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("全部失败应返回 ErrUnavailable, 实际 %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatal("每个来源都应被尝试一次")
	}
}

func TestCascadeHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &stubSource{name: "a", err: ErrNoData}
	cascade := NewCascade(noopLogger(), src)

	if _, err := cascade.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("取消的 context 应中止级联, 实际 %v", err)
	}
	if src.calls != 0 {
		t.Fatal("取消后不应再调用来源")
	}
}
