package accounts

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/proposal"
)

func filledAddress(b byte) []byte {
	return bytes.Repeat([]byte{b}, addressLen)
}

// buildProposalBuffer assembles a proposal account in declaration order.
func buildProposalBuffer(state byte, question []byte) []byte {
	buf := make([]byte, 0, ProposalRecordSize)

	buf = append(buf, make([]byte, discriminatorLen)...)
	buf = binary.LittleEndian.AppendUint32(buf, 7)          // number
	buf = append(buf, filledAddress(0x01)...)               // proposer
	buf = binary.LittleEndian.AppendUint64(buf, 1756400000) // enqueued at
	buf = append(buf, state)
	buf = append(buf, filledAddress(0x02)...) // base vault
	buf = append(buf, filledAddress(0x03)...) // quote vault
	buf = append(buf, filledAddress(0x04)...) // dao
	buf = append(buf, 0xFE)                   // bump
	buf = append(buf, question...)
	buf = binary.LittleEndian.AppendUint32(buf, 86400) // duration
	buf = append(buf, filledAddress(0x05)...)          // external proposal
	buf = append(buf, filledAddress(0x06)...)          // pass base mint
	buf = append(buf, filledAddress(0x07)...)          // pass quote mint
	buf = append(buf, filledAddress(0x08)...)          // fail base mint
	buf = append(buf, filledAddress(0x09)...)          // fail quote mint
	buf = append(buf, 0x01)                            // sponsored

	return buf
}

func TestDecodeProposal(t *testing.T) {
	question := filledAddress(0x0A)
	buf := buildProposalBuffer(1, question)

	if len(buf) != ProposalRecordSize {
		t.Fatalf("构造的缓冲区长度不正确: %d", len(buf))
	}

	record := DecodeProposal(buf)
	if record == nil {
		t.Fatal("完整缓冲区不应解码失败")
	}
	if record.Number != 7 {
		t.Fatalf("期望编号 7, 实际 %d", record.Number)
	}
	if record.EnqueuedAt != 1756400000 {
		t.Fatalf("入队时间不正确: %d", record.EnqueuedAt)
	}
	if record.State != proposal.StatePassed {
		t.Fatalf("期望状态 Passed, 实际 %s", record.State)
	}
	if record.Bump != 0xFE {
		t.Fatalf("bump 不正确: %d", record.Bump)
	}
	if record.Question != base58.Encode(question) {
		t.Fatalf("question 地址不正确: %s", record.Question)
	}
	if record.DurationSeconds != 86400 {
		t.Fatalf("时长不正确: %d", record.DurationSeconds)
	}
	if !record.Sponsored {
		t.Fatal("sponsored 标志应为真")
	}
	if record.Proposer != base58.Encode(filledAddress(0x01)) {
		t.Fatalf("proposer 地址不正确: %s", record.Proposer)
	}
}

func TestDecodeProposalShortBuffer(t *testing.T) {
	if DecodeProposal(nil) != nil {
		t.Fatal("空缓冲区应返回 nil")
	}
	if DecodeProposal(make([]byte, ProposalRecordSize-1)) != nil {
		t.Fatal("长度不足的缓冲区应返回 nil")
	}
}

func TestDecodeQuestion(t *testing.T) {
	passPool := filledAddress(0x0B)
	failPool := filledAddress(0x0C)

	buf := append(append([]byte{}, passPool...), failPool...)
	record := DecodeQuestion(buf)
	if record == nil {
		t.Fatal("完整缓冲区不应解码失败")
	}
	if record.PassPool != base58.Encode(passPool) {
		t.Fatalf("pass 池地址不正确: %s", record.PassPool)
	}
	if record.FailPool != base58.Encode(failPool) {
		t.Fatalf("fail 池地址不正确: %s", record.FailPool)
	}

	if DecodeQuestion(make([]byte, QuestionRecordSize-1)) != nil {
		t.Fatal("长度不足的缓冲区应返回 nil")
	}
}

func TestReservesPrice(t *testing.T) {
	price, ok := Reserves{Base: 1_000_000, Quote: 1_200_000}.Price()
	if !ok {
		t.Fatal("合法储备量应得出价格")
	}
	if price.Cmp(decimal.RequireFromString("1.2")) != 0 {
		t.Fatalf("期望价格 1.2, 实际 %s", price.String())
	}

	if _, ok := (Reserves{Base: 0, Quote: 1}).Price(); ok {
		t.Fatal("base 为 0 时不应得出价格")
	}
	if _, ok := (Reserves{Base: 1, Quote: 0}).Price(); ok {
		t.Fatal("quote 为 0 时不应得出价格")
	}
}
