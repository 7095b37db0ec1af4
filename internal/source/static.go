package source

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"futarchy-alerts/internal/proposal"
)

// StaticOptions parameterise the static HTML strategy.
type StaticOptions struct {
	PageURL    string
	ProposalID string
	Timeout    time.Duration
	UserAgent  string
	// PacingDelay is waited before the request to reduce rate limiting.
	PacingDelay time.Duration
}

// Static fetches the proposal page without rendering it and applies the
// shared extraction heuristics. The page populates most values client-side,
// so this is strictly a degraded fallback behind the browser strategy.
type Static struct {
	opts   StaticOptions
	client *http.Client
	logger zerolog.Logger
}

// NewStatic constructs the static HTML strategy.
func NewStatic(opts StaticOptions, logger zerolog.Logger) *Static {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PacingDelay <= 0 {
		opts.PacingDelay = 2 * time.Second
	}
	return &Static{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "static_source").Logger(),
	}
}

// Name identifies the strategy in logs and reports.
func (s *Static) Name() string { return "static" }

// Fetch waits out the pacing delay, fetches the plain page, and extracts.
// A throttled response fails cleanly with no in-strategy retry; the next
// scheduled cycle is the retry.
func (s *Static) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, ErrNoData
	case <-time.After(s.opts.PacingDelay):
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL(s.opts.PageURL, s.opts.ProposalID), nil)
	if err != nil {
		return nil, ErrNoData
	}
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Msg("page fetch failed")
		return nil, ErrNoData
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		s.logger.Debug().Err(errRateLimited).Msg("page fetch throttled")
		return nil, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().Int("status", resp.StatusCode).Msg("page fetch rejected")
		return nil, ErrNoData
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrNoData
	}

	html := string(body)
	snap, err := extractPage(html, stripTags(html)).snapshot(s.opts.ProposalID, s.Name())
	if err != nil {
		s.logger.Debug().Msg("static page carried no extractable data")
		return nil, ErrNoData
	}
	return snap, nil
}

var _ Source = (*Static)(nil)
