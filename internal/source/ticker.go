package source

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"futarchy-alerts/internal/proposal"
)

// TickerOptions parameterise the market-context probe.
type TickerOptions struct {
	FeedURL string
	Symbol  string
	Timeout time.Duration
}

// Ticker probes a general spot-price feed for the governance token's own
// market. The result is contextual information only: the probe never
// produces a snapshot and exists for forward extensibility.
type Ticker struct {
	opts   TickerOptions
	client *http.Client
	logger zerolog.Logger
}

// NewTicker constructs the market-context probe.
func NewTicker(opts TickerOptions, logger zerolog.Logger) *Ticker {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Ticker{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "ticker_source").Logger(),
	}
}

// Name identifies the strategy in logs and reports.
func (t *Ticker) Name() string { return "ticker" }

type tickerEntry struct {
	Symbol    string      `json:"symbol"`
	LastPrice json.Number `json:"last_price"`
}

// Fetch logs the governance token's spot price when the feed carries it and
// always reports no data.
func (t *Ticker) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.FeedURL, nil)
	if err != nil {
		return nil, ErrNoData
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug().Err(err).Msg("ticker feed unavailable")
		return nil, ErrNoData
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrNoData
	}

	var entries []tickerEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, ErrNoData
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.Symbol, t.opts.Symbol) {
			t.logger.Info().Str("symbol", entry.Symbol).
				Str("last_price", entry.LastPrice.String()).
				Msg("governance token spot price")
			break
		}
	}

	return nil, ErrNoData
}

var _ Source = (*Ticker)(nil)
