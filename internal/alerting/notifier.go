package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"futarchy-alerts/internal/proposal"
)

// Notifier 定义报告输送接口。
type Notifier interface {
	// NotifyReport delivers a threshold report.
	NotifyReport(ctx context.Context, report proposal.Report) error
	// NotifyUnavailable delivers the "no data this cycle, will retry"
	// signal, distinct from a finalized proposal with closed markets.
	NotifyUnavailable(ctx context.Context, proposalID string) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 通知器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// NotifyReport 调用 sendMessage API 推送报告文本。
func (n *TelegramNotifier) NotifyReport(ctx context.Context, report proposal.Report) error {
	if err := n.send(ctx, renderReport(report)); err != nil {
		return err
	}
	n.logger.Info().Str("proposal", report.ProposalID).
		Bool("finalized", report.IsFinalized).
		Msg("报告已发送 (Telegram)")
	return nil
}

// NotifyUnavailable 推送"本轮无数据"提示。
func (n *TelegramNotifier) NotifyUnavailable(ctx context.Context, proposalID string) error {
	text := fmt.Sprintf("[Futarchy Watch]\nProposal: %s\nNo data this cycle; every source came up empty. Will retry on the next scheduled run.", proposalID)
	return n.send(ctx, text)
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}
	return nil
}

func renderReport(report proposal.Report) string {
	builder := strings.Builder{}
	builder.WriteString("[Futarchy Watch]\n")
	builder.WriteString(fmt.Sprintf("Proposal: %s\n", report.ProposalID))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", report.Timestamp.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Threshold: %s%%\n", report.Threshold.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Pass: %s  Fail: %s\n", report.PassPrice.StringFixed(4), report.FailPrice.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Status: %s (via %s)\n", report.Status, report.Source))

	if report.IsFinalized {
		builder.WriteString("Markets are closed; trend comparison no longer applies.\n")
		return builder.String()
	}

	if report.PreviousHour == nil {
		builder.WriteString("Trend: no sample from one hour ago\n")
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("1h ago: %s%%\n", report.PreviousHour.StringFixed(4)))
	if report.Variation != nil {
		builder.WriteString(fmt.Sprintf("Variation: %s pp", report.Variation.StringFixed(4)))
		if report.VariationPercent != nil {
			builder.WriteString(fmt.Sprintf(" (%s%%)", report.VariationPercent.StringFixed(2)))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
