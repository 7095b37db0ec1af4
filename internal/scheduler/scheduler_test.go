package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunStopsOnContextCancel(t *testing.T) {
	sched := New(Options{Interval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sched.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		t.Fatal("取消的 context 不应触发周期")
		return nil
	}); !errors.Is(err, context.Canceled) {
		t.Fatalf("应返回 context.Canceled, 实际 %v", err)
	}
}

func TestRunExecutesAlignedCycles(t *testing.T) {
	sched := New(Options{Interval: 20 * time.Millisecond, AlignToStart: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cycles := make(chan time.Time, 4)
	go func() {
		_ = sched.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			cycles <- bucket
			return nil
		})
	}()

	select {
	case bucket := <-cycles:
		if !bucket.Equal(bucket.Truncate(20 * time.Millisecond)) {
			t.Fatalf("周期应对齐到采样间隔: %s", bucket)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("等待周期超时")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	sched := New(Options{}, zerolog.Nop())
	if sched.opts.Interval != time.Hour {
		t.Fatalf("无效间隔应回退为 1h, 实际 %s", sched.opts.Interval)
	}
}

func TestRunContinuesAfterCycleError(t *testing.T) {
	sched := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cycles := make(chan struct{}, 4)
	go func() {
		_ = sched.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			cycles <- struct{}{}
			return errors.New("boom")
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-cycles:
		case <-time.After(2 * time.Second):
			t.Fatal("周期错误后调度应继续")
		}
	}
}
