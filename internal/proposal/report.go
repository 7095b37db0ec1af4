package proposal

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// trendLookback is how far back the trend comparison reaches.
	trendLookback = time.Hour
	// trendTolerance bounds how far a history entry may sit from the
	// lookback target and still count as the hour-ago sample.
	trendTolerance = 10 * time.Minute
)

// Report is the derived, read-only view handed to the notification layer.
// Trend fields are nil when no hour-ago sample qualifies or when the
// proposal is finalized.
type Report struct {
	ProposalID       string           `json:"proposal_id"`
	Threshold        decimal.Decimal  `json:"threshold_pct"`
	PreviousHour     *decimal.Decimal `json:"previous_hour_pct,omitempty"`
	Variation        *decimal.Decimal `json:"variation_pp,omitempty"`
	VariationPercent *decimal.Decimal `json:"variation_pct,omitempty"`
	PassPrice        decimal.Decimal  `json:"pass_price"`
	FailPrice        decimal.Decimal  `json:"fail_price"`
	PassTwap         decimal.Decimal  `json:"pass_twap"`
	FailTwap         decimal.Decimal  `json:"fail_twap"`
	Timestamp        time.Time        `json:"ts"`
	Status           string           `json:"status"`
	Source           string           `json:"source"`
	IsFinalized      bool             `json:"finalized"`
}

// BuildReport derives a report from the current snapshot and the stored
// history. For live proposals the hour-ago comparison sample is the history
// entry closest to snapshot time minus one hour, accepted only within ten
// minutes of that target; entries are scanned in insertion order and the
// first minimal match wins. Finalized proposals keep their live fields but
// carry no trend comparison, since closed markets make it meaningless.
func BuildReport(snap Snapshot, hist *History) Report {
	report := Report{
		ProposalID:  snap.ProposalID,
		Threshold:   snap.Threshold,
		PassPrice:   snap.PassPrice,
		FailPrice:   snap.FailPrice,
		PassTwap:    snap.PassTwap,
		FailTwap:    snap.FailTwap,
		Timestamp:   snap.CapturedAt,
		Status:      snap.Status,
		Source:      snap.Source,
		IsFinalized: IsFinalized(snap.Status),
	}

	if report.IsFinalized || hist == nil {
		return report
	}

	previous := hourAgoEntry(hist.Entries, snap.CapturedAt)
	if previous == nil {
		return report
	}

	prev := previous.Threshold
	report.PreviousHour = &prev

	variation := snap.Threshold.Sub(prev)
	report.Variation = &variation

	if !prev.IsZero() {
		pct := variation.Div(prev.Abs()).Mul(decimal.NewFromInt(100))
		report.VariationPercent = &pct
	}

	return report
}

func hourAgoEntry(entries []HistoryEntry, now time.Time) *HistoryEntry {
	target := now.Add(-trendLookback)

	var best *HistoryEntry
	var bestDiff time.Duration

	for i := range entries {
		diff := entries[i].Timestamp.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff > trendTolerance {
			continue
		}
		if best == nil || diff < bestDiff {
			best = &entries[i]
			bestDiff = diff
		}
	}

	return best
}
