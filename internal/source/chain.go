package source

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/accounts"
	"futarchy-alerts/internal/proposal"
)

// AccountFetcher reads raw account buffers from the ledger. An absent
// account returns (nil, nil).
type AccountFetcher interface {
	AccountData(ctx context.Context, address string) ([]byte, error)
}

// Chain reconstructs the snapshot from first principles: the proposal
// account names its question account, the question account names the two
// conditional liquidity pools, and the pool reserves yield spot prices. The
// most labour-intensive strategy, but the only self-sufficient one.
type Chain struct {
	rpc        AccountFetcher
	reserves   accounts.ReserveDecoder
	proposalID string
	logger     zerolog.Logger
}

// NewChain constructs the chain-reconstruction strategy.
func NewChain(rpc AccountFetcher, reserves accounts.ReserveDecoder, proposalID string, logger zerolog.Logger) *Chain {
	return &Chain{
		rpc:        rpc,
		reserves:   reserves,
		proposalID: proposalID,
		logger:     logger.With().Str("component", "chain_source").Logger(),
	}
}

// Name identifies the strategy in logs and reports.
func (c *Chain) Name() string { return "chain" }

// Fetch walks proposal → question → pools. The two pool lookups are issued
// together and joined, since they are independent reads. A missing pool is
// expected once a proposal finalizes (pools are torn down), so the strategy
// reports no data rather than retrying the closed pools.
func (c *Chain) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	proposalData, err := c.rpc.AccountData(ctx, c.proposalID)
	if err != nil || proposalData == nil {
		c.logger.Debug().Err(err).Msg("proposal account unavailable")
		return nil, ErrNoData
	}

	record := accounts.DecodeProposal(proposalData)
	if record == nil {
		c.logger.Debug().Err(errDecode).Int("len", len(proposalData)).Msg("proposal account undecodable")
		return nil, ErrNoData
	}

	questionData, err := c.rpc.AccountData(ctx, record.Question)
	if err != nil || questionData == nil {
		c.logger.Debug().Err(err).Msg("question account unavailable")
		return nil, ErrNoData
	}

	question := accounts.DecodeQuestion(questionData)
	if question == nil {
		c.logger.Debug().Err(errDecode).Msg("question account undecodable")
		return nil, ErrNoData
	}

	passData, failData, err := c.fetchPools(ctx, question.PassPool, question.FailPool)
	if err != nil || passData == nil || failData == nil {
		c.logger.Debug().Err(err).Msg("pool accounts unavailable, markets likely closed")
		return nil, ErrNoData
	}

	passPrice, ok := c.poolPrice(passData)
	if !ok {
		return nil, ErrNoData
	}
	failPrice, ok := c.poolPrice(failData)
	if !ok {
		return nil, ErrNoData
	}

	return &proposal.Snapshot{
		ProposalID: c.proposalID,
		PassPrice:  passPrice,
		FailPrice:  failPrice,
		Threshold:  proposal.Threshold(passPrice, failPrice),
		Status:     string(record.State),
		Source:     c.Name(),
		CapturedAt: time.Now().UTC(),
	}, nil
}

// fetchPools issues both pool lookups concurrently and waits for both.
func (c *Chain) fetchPools(ctx context.Context, passPool, failPool string) ([]byte, []byte, error) {
	var (
		wg                 sync.WaitGroup
		passData, failData []byte
		passErr, failErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		passData, passErr = c.rpc.AccountData(ctx, passPool)
	}()
	go func() {
		defer wg.Done()
		failData, failErr = c.rpc.AccountData(ctx, failPool)
	}()
	wg.Wait()

	if passErr != nil {
		return nil, nil, passErr
	}
	if failErr != nil {
		return nil, nil, failErr
	}
	return passData, failData, nil
}

func (c *Chain) poolPrice(data []byte) (decimal.Decimal, bool) {
	reserves, ok := c.reserves.DecodeReserves(data)
	if !ok {
		c.logger.Debug().Err(errDecode).Msg("pool reserves undecodable")
		return decimal.Decimal{}, false
	}
	return reserves.Price()
}

var _ Source = (*Chain)(nil)
