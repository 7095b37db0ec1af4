// Package source implements the proposal data acquisition pipeline: five
// independent strategies tried in confidence order by a short-circuiting
// cascade. Every strategy absorbs its own failures (decode errors, network
// errors, timeouts) and converts them to ErrNoData; only total exhaustion is
// visible to the caller, as ErrUnavailable.
package source

import (
	"context"
	"errors"

	"futarchy-alerts/internal/proposal"
)

// Source is a single acquisition strategy. Fetch returns a normalized
// snapshot or ErrNoData; it never propagates upstream failures.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*proposal.Snapshot, error)
}

var (
	// ErrNoData signals a strategy produced nothing this cycle.
	ErrNoData = errors.New("source: no data")
	// ErrUnavailable signals every strategy was exhausted.
	ErrUnavailable = errors.New("source: all sources exhausted")

	// errDecode marks an undecodable upstream payload or account buffer.
	errDecode = errors.New("source: decode failed")
	// errNotFound marks an absent account or page.
	errNotFound = errors.New("source: not found")
	// errRateLimited marks upstream throttling.
	errRateLimited = errors.New("source: rate limited")
	// errInterstitialBlocked marks an anti-automation challenge that did
	// not clear within the bounded wait.
	errInterstitialBlocked = errors.New("source: interstitial did not clear")
)
