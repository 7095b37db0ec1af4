// Package accounts interprets raw ledger account buffers into typed records.
// Decoding is pure: no network access, no side effects, and a buffer that
// cannot be interpreted yields nil rather than a panic or error.
//
// All layouts are little-endian with an 8-byte leading discriminator, and
// addresses are 32-byte values rendered as base58 strings.
package accounts

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/proposal"
)

const (
	discriminatorLen = 8
	addressLen       = 32
)

// Proposal record field offsets, in declaration order.
const (
	proposalNumberOff     = discriminatorLen
	proposalProposerOff   = proposalNumberOff + 4
	proposalEnqueuedOff   = proposalProposerOff + addressLen
	proposalStateOff      = proposalEnqueuedOff + 8
	proposalBaseVaultOff  = proposalStateOff + 1
	proposalQuoteVaultOff = proposalBaseVaultOff + addressLen
	proposalDAOOff        = proposalQuoteVaultOff + addressLen
	proposalBumpOff       = proposalDAOOff + addressLen
	proposalQuestionOff   = proposalBumpOff + 1
	proposalDurationOff   = proposalQuestionOff + addressLen
	proposalExternalOff   = proposalDurationOff + 4
	proposalPassBaseOff   = proposalExternalOff + addressLen
	proposalPassQuoteOff  = proposalPassBaseOff + addressLen
	proposalFailBaseOff   = proposalPassQuoteOff + addressLen
	proposalFailQuoteOff  = proposalFailBaseOff + addressLen
	proposalSponsoredOff  = proposalFailQuoteOff + addressLen

	// ProposalRecordSize is the minimum buffer length for a proposal account.
	ProposalRecordSize = proposalSponsoredOff + 1
)

// QuestionRecordSize is the minimum buffer length for a question account:
// two pool addresses back to back, any trailing bytes ignored.
const QuestionRecordSize = 2 * addressLen

// ProposalRecord is the decoded on-chain proposal state. Immutable once
// decoded; read fresh on every fetch.
type ProposalRecord struct {
	Number           uint32
	Proposer         string
	EnqueuedAt       int64
	State            proposal.State
	BaseVault        string
	QuoteVault       string
	DAO              string
	Bump             byte
	Question         string
	DurationSeconds  uint32
	ExternalProposal string
	PassBaseMint     string
	PassQuoteMint    string
	FailBaseMint     string
	FailQuoteMint    string
	Sponsored        bool
}

// QuestionRecord carries the two conditional-market pool addresses.
type QuestionRecord struct {
	PassPool string
	FailPool string
}

// DecodeProposal interprets a proposal account buffer. Returns nil when the
// buffer is shorter than the fixed layout.
func DecodeProposal(data []byte) *ProposalRecord {
	if len(data) < ProposalRecordSize {
		return nil
	}

	return &ProposalRecord{
		Number:           binary.LittleEndian.Uint32(data[proposalNumberOff:]),
		Proposer:         addressAt(data, proposalProposerOff),
		EnqueuedAt:       int64(binary.LittleEndian.Uint64(data[proposalEnqueuedOff:])),
		State:            proposal.StateFromByte(data[proposalStateOff]),
		BaseVault:        addressAt(data, proposalBaseVaultOff),
		QuoteVault:       addressAt(data, proposalQuoteVaultOff),
		DAO:              addressAt(data, proposalDAOOff),
		Bump:             data[proposalBumpOff],
		Question:         addressAt(data, proposalQuestionOff),
		DurationSeconds:  binary.LittleEndian.Uint32(data[proposalDurationOff:]),
		ExternalProposal: addressAt(data, proposalExternalOff),
		PassBaseMint:     addressAt(data, proposalPassBaseOff),
		PassQuoteMint:    addressAt(data, proposalPassQuoteOff),
		FailBaseMint:     addressAt(data, proposalFailBaseOff),
		FailQuoteMint:    addressAt(data, proposalFailQuoteOff),
		Sponsored:        data[proposalSponsoredOff] != 0,
	}
}

// DecodeQuestion interprets a question account buffer. Returns nil when the
// buffer cannot hold the two pool addresses.
func DecodeQuestion(data []byte) *QuestionRecord {
	if len(data) < QuestionRecordSize {
		return nil
	}
	return &QuestionRecord{
		PassPool: addressAt(data, 0),
		FailPool: addressAt(data, addressLen),
	}
}

func addressAt(data []byte, off int) string {
	return base58.Encode(data[off : off+addressLen])
}

// Reserves are the token quantities held by one liquidity pool.
type Reserves struct {
	Base  uint64
	Quote uint64
}

// Price derives the spot price quote/base. Both reserves must be non-zero
// and the resulting price positive, otherwise ok is false.
func (r Reserves) Price() (decimal.Decimal, bool) {
	if r.Base == 0 || r.Quote == 0 {
		return decimal.Decimal{}, false
	}
	price := decimal.NewFromUint64(r.Quote).Div(decimal.NewFromUint64(r.Base))
	if !price.IsPositive() {
		return decimal.Decimal{}, false
	}
	return price, true
}
