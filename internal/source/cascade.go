package source

import (
	"context"

	"github.com/rs/zerolog"

	"futarchy-alerts/internal/proposal"
)

// Cascade evaluates sources strictly in priority order and returns the first
// snapshot produced. The order encodes a confidence ranking: structured data
// first, browser-rendered extraction next, degraded text scraping, then
// ledger reconstruction, with the market-context probe as informational
// padding at the end.
type Cascade struct {
	sources []Source
	logger  zerolog.Logger
}

// NewCascade builds a cascade over the given sources, kept in argument order.
func NewCascade(logger zerolog.Logger, sources ...Source) *Cascade {
	return &Cascade{
		sources: sources,
		logger:  logger.With().Str("component", "cascade").Logger(),
	}
}

// Fetch short-circuits on the first source that yields a snapshot. When every
// source reports no data the result is ErrUnavailable; no strategy failure
// crosses this boundary as a fault.
func (c *Cascade) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap, err := src.Fetch(ctx)
		if err == nil && snap != nil {
			c.logger.Info().Str("source", src.Name()).
				Str("threshold", snap.Threshold.StringFixed(4)).
				Msg("snapshot acquired")
			return snap, nil
		}

		c.logger.Debug().Str("source", src.Name()).Err(err).Msg("source yielded no data")
	}

	return nil, ErrUnavailable
}
