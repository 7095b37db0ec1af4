package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/proposal"
)

// QueryOptions parameterise the structured-query strategy.
type QueryOptions struct {
	Endpoints  []string
	ProposalID string
	Timeout    time.Duration
	UserAgent  string
}

// Query asks each known query-service endpoint for the proposal in turn and
// keeps the first well-formed answer carrying both status and price details.
type Query struct {
	opts   QueryOptions
	client *http.Client
	logger zerolog.Logger
}

// NewQuery constructs the structured-query strategy.
func NewQuery(opts QueryOptions, logger zerolog.Logger) *Query {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Query{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "query_source").Logger(),
	}
}

// Name identifies the strategy in logs and reports.
func (q *Query) Name() string { return "query" }

type queryResponse struct {
	Status    string      `json:"status"`
	PassPrice json.Number `json:"pass_price"`
	FailPrice json.Number `json:"fail_price"`
	PassTwap  json.Number `json:"pass_twap"`
	FailTwap  json.Number `json:"fail_twap"`
}

// Fetch tries the configured endpoints in order and stops at the first that
// returns status plus both prices. All failures are absorbed into ErrNoData.
func (q *Query) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	for _, endpoint := range q.opts.Endpoints {
		snap, err := q.fetchOne(ctx, endpoint)
		if err != nil {
			q.logger.Debug().Str("endpoint", endpoint).Err(err).Msg("query endpoint failed")
			continue
		}
		return snap, nil
	}
	return nil, ErrNoData
}

func (q *Query) fetchOne(ctx context.Context, endpoint string) (*proposal.Snapshot, error) {
	url := fmt.Sprintf("%s/proposals/%s", strings.TrimRight(endpoint, "/"), q.opts.ProposalID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(q.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errDecode, err)
	}

	if payload.Status == "" || payload.PassPrice == "" || payload.FailPrice == "" {
		return nil, fmt.Errorf("%w: incomplete payload", errDecode)
	}

	passPrice, err := decimal.NewFromString(payload.PassPrice.String())
	if err != nil {
		return nil, fmt.Errorf("%w: pass price: %v", errDecode, err)
	}
	failPrice, err := decimal.NewFromString(payload.FailPrice.String())
	if err != nil {
		return nil, fmt.Errorf("%w: fail price: %v", errDecode, err)
	}

	snap := &proposal.Snapshot{
		ProposalID: q.opts.ProposalID,
		PassPrice:  passPrice,
		FailPrice:  failPrice,
		Threshold:  proposal.Threshold(passPrice, failPrice),
		Status:     payload.Status,
		Source:     q.Name(),
		CapturedAt: time.Now().UTC(),
	}

	if twap, err := decimal.NewFromString(payload.PassTwap.String()); err == nil {
		snap.PassTwap = twap
	}
	if twap, err := decimal.NewFromString(payload.FailTwap.String()); err == nil {
		snap.FailTwap = twap
	}

	return snap, nil
}

var _ Source = (*Query)(nil)
