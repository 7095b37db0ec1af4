package source

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"futarchy-alerts/internal/proposal"
)

// BrowserOptions parameterise the rendered-page strategy.
type BrowserOptions struct {
	PageURL          string
	ProposalID       string
	NavigateTimeout  time.Duration
	InterstitialWait time.Duration
}

// Browser renders the proposal's public page in headless Chrome and applies
// the shared extraction heuristics to the result. The strategy is skipped
// entirely when the runtime environment cannot host a browser.
type Browser struct {
	opts   BrowserOptions
	logger zerolog.Logger
}

// NewBrowser constructs the rendered-page strategy.
func NewBrowser(opts BrowserOptions, logger zerolog.Logger) *Browser {
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = 60 * time.Second
	}
	if opts.InterstitialWait <= 0 {
		opts.InterstitialWait = 30 * time.Second
	}
	return &Browser{
		opts:   opts,
		logger: logger.With().Str("component", "browser_source").Logger(),
	}
}

// Name identifies the strategy in logs and reports.
func (b *Browser) Name() string { return "browser" }

var chromeBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

func browserAvailable() bool {
	for _, bin := range chromeBinaries {
		if _, err := exec.LookPath(bin); err == nil {
			return true
		}
	}
	return false
}

// interstitial markers seen on anti-automation challenge pages.
var interstitialMarkers = []string{
	"just a moment",
	"checking your browser",
	"verify you are human",
}

// Fetch renders the page and extracts threshold and price data. Every
// failure, including an interstitial that never clears, is absorbed into
// ErrNoData.
func (b *Browser) Fetch(ctx context.Context) (*proposal.Snapshot, error) {
	if !browserAvailable() {
		b.logger.Debug().Msg("no chrome binary on PATH, skipping rendered extraction")
		return nil, ErrNoData
	}

	html, text, err := b.render(ctx)
	if err != nil {
		b.logger.Debug().Err(err).Msg("page render failed")
		return nil, ErrNoData
	}

	snap, err := extractPage(html, text).snapshot(b.opts.ProposalID, b.Name())
	if err != nil {
		b.logger.Debug().Msg("rendered page carried no extractable data")
		return nil, ErrNoData
	}
	return snap, nil
}

func (b *Browser) render(ctx context.Context) (html string, text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.NavigateTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	url := pageURL(b.opts.PageURL, b.opts.ProposalID)
	if err := chromedp.Run(browserCtx, chromedp.Navigate(url)); err != nil {
		return "", "", fmt.Errorf("navigate: %w", err)
	}

	if err := b.awaitInterstitial(browserCtx); err != nil {
		return "", "", err
	}

	err = chromedp.Run(browserCtx,
		chromedp.OuterHTML("html", &html),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", "", fmt.Errorf("read document: %w", err)
	}
	return html, text, nil
}

// awaitInterstitial polls the page body until no challenge marker remains or
// the bounded wait elapses. The wait simply gives up; there is no retry.
func (b *Browser) awaitInterstitial(ctx context.Context) error {
	deadline := time.Now().Add(b.opts.InterstitialWait)

	for {
		var body string
		if err := chromedp.Run(ctx, chromedp.Text("body", &body, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if !hasInterstitialMarker(body) {
			return nil
		}
		if time.Now().After(deadline) {
			return errInterstitialBlocked
		}

		b.logger.Debug().Msg("interstitial present, waiting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func hasInterstitialMarker(body string) bool {
	lowered := strings.ToLower(body)
	for _, marker := range interstitialMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func pageURL(base, proposalID string) string {
	return strings.TrimRight(base, "/") + "/" + proposalID
}

var _ Source = (*Browser)(nil)
