// Package proposal defines the value types moved through the acquisition
// pipeline: normalized snapshots, the bounded threshold history, and the
// derived threshold report.
package proposal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// State labels a decoded on-chain proposal state.
type State string

const (
	StatePending  State = "Pending"
	StatePassed   State = "Passed"
	StateFailed   State = "Failed"
	StateExecuted State = "Executed"
	StateUnknown  State = "Unknown"
)

// StateFromByte maps the on-chain state enum to a label.
func StateFromByte(b byte) State {
	switch b {
	case 0:
		return StatePending
	case 1:
		return StatePassed
	case 2:
		return StateFailed
	case 3:
		return StateExecuted
	default:
		return StateUnknown
	}
}

// MaxHistoryEntries bounds the persisted history, approximating 7 days of
// hourly sampling.
const MaxHistoryEntries = 168

// Snapshot is one normalized reading of proposal pricing at a point in time.
// It is produced by exactly one source per fetch cycle and never mutated.
type Snapshot struct {
	ProposalID string
	PassPrice  decimal.Decimal
	FailPrice  decimal.Decimal
	PassTwap   decimal.Decimal
	FailTwap   decimal.Decimal
	Threshold  decimal.Decimal
	Status     string
	Source     string
	CapturedAt time.Time
}

// Threshold computes the percentage by which the pass price exceeds the fail
// price: (pass − fail) / fail × 100, or zero when the fail price is not
// positive.
func Threshold(passPrice, failPrice decimal.Decimal) decimal.Decimal {
	if !failPrice.IsPositive() {
		return decimal.Zero
	}
	return passPrice.Sub(failPrice).Div(failPrice).Mul(decimal.NewFromInt(100))
}

// HistoryEntry is an immutable projection of a snapshot kept in the history.
type HistoryEntry struct {
	Timestamp time.Time       `json:"ts"`
	Threshold decimal.Decimal `json:"threshold"`
	PassPrice decimal.Decimal `json:"pass_price"`
	FailPrice decimal.Decimal `json:"fail_price"`
}

// History is the bounded time series for a single proposal. Entry order is
// insertion order, which is time order under the single-scheduler assumption.
type History struct {
	ProposalID string         `json:"proposal_id"`
	Entries    []HistoryEntry `json:"entries"`
}

// Apply folds a snapshot into the history: a differing proposal identity
// discards the previous series, and the result is capped at
// MaxHistoryEntries by dropping the oldest entries.
func (h *History) Apply(snap Snapshot) {
	if h.ProposalID != snap.ProposalID {
		h.ProposalID = snap.ProposalID
		h.Entries = nil
	}

	h.Entries = append(h.Entries, HistoryEntry{
		Timestamp: snap.CapturedAt,
		Threshold: snap.Threshold,
		PassPrice: snap.PassPrice,
		FailPrice: snap.FailPrice,
	})

	if len(h.Entries) > MaxHistoryEntries {
		h.Entries = h.Entries[len(h.Entries)-MaxHistoryEntries:]
	}
}

// IsFinalized reports whether a status label describes an end state with
// closed markets.
func IsFinalized(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "passed", "failed", "executed":
		return true
	}
	return false
}
