package proposal

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestThreshold(t *testing.T) {
	got := Threshold(decimal.NewFromInt(2), decimal.RequireFromString("1.5"))
	if got.StringFixed(4) != "33.3333" {
		t.Fatalf("期望阈值 33.3333, 实际 %s", got.StringFixed(4))
	}
}

func TestThresholdZeroFailPrice(t *testing.T) {
	if got := Threshold(decimal.NewFromInt(2), decimal.Zero); !got.IsZero() {
		t.Fatalf("fail 价格为 0 时阈值应为 0, 实际 %s", got.String())
	}
	if got := Threshold(decimal.NewFromInt(2), decimal.NewFromInt(-1)); !got.IsZero() {
		t.Fatalf("fail 价格为负时阈值应为 0, 实际 %s", got.String())
	}
}

func TestStateFromByte(t *testing.T) {
	cases := map[byte]State{
		0:  StatePending,
		1:  StatePassed,
		2:  StateFailed,
		3:  StateExecuted,
		42: StateUnknown,
	}
	for b, want := range cases {
		if got := StateFromByte(b); got != want {
			t.Fatalf("byte %d: 期望 %s, 实际 %s", b, want, got)
		}
	}
}

func TestHistoryApplyCapsEntries(t *testing.T) {
	hist := &History{}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxHistoryEntries+1; i++ {
		hist.Apply(Snapshot{
			ProposalID: "prop-1",
			Threshold:  decimal.NewFromInt(int64(i)),
			CapturedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	if len(hist.Entries) != MaxHistoryEntries {
		t.Fatalf("历史应被截断到 %d 条, 实际 %d", MaxHistoryEntries, len(hist.Entries))
	}
	if hist.Entries[0].Threshold.String() != "1" {
		t.Fatalf("最旧的一条应被淘汰, 首条阈值为 %s", hist.Entries[0].Threshold.String())
	}
	last := hist.Entries[len(hist.Entries)-1]
	if last.Threshold.String() != fmt.Sprint(MaxHistoryEntries) {
		t.Fatalf("末条阈值不正确: %s", last.Threshold.String())
	}
}

func TestHistoryApplyIdentityReset(t *testing.T) {
	hist := &History{}
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		hist.Apply(Snapshot{ProposalID: "prop-1", CapturedAt: now})
	}
	hist.Apply(Snapshot{ProposalID: "prop-2", CapturedAt: now})

	if hist.ProposalID != "prop-2" {
		t.Fatalf("历史应切换到新提案, 实际 %s", hist.ProposalID)
	}
	if len(hist.Entries) != 1 {
		t.Fatalf("切换提案后应只保留新条目, 实际 %d 条", len(hist.Entries))
	}
}

func TestIsFinalized(t *testing.T) {
	for _, status := range []string{"Passed", "failed", "EXECUTED", " passed "} {
		if !IsFinalized(status) {
			t.Fatalf("%q 应判定为终态", status)
		}
	}
	for _, status := range []string{"Pending", "unknown", ""} {
		if IsFinalized(status) {
			t.Fatalf("%q 不应判定为终态", status)
		}
	}
}
