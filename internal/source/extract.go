package source

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"futarchy-alerts/internal/proposal"
)

// thresholdAgreementPct is the tolerance, in percentage points, within which
// a text-derived and a price-derived threshold are considered to agree. On
// larger disagreement the price arithmetic wins, since free-text pattern
// matching tracks upstream presentation drift. The constant is a heuristic,
// not a protocol guarantee.
var thresholdAgreementPct = decimal.RequireFromString("0.1")

var (
	scriptRe = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)
	// percentRe matches percentage-like tokens: optional sign, digits, a
	// decimal point, and at least two fractional digits.
	percentRe     = regexp.MustCompile(`[-+]?\d+\.\d{2,}%`)
	approveTwapRe = regexp.MustCompile(`Approve TWAP \$([0-9]+(?:\.[0-9]+)?)`)
	rejectTwapRe  = regexp.MustCompile(`Reject TWAP \$([0-9]+(?:\.[0-9]+)?)`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
)

// percentContextRadius is how many characters around a percentage token are
// inspected for classification.
const percentContextRadius = 150

// embedded JSON keys worth descending into.
var blobKeys = map[string]bool{
	"proposal":     true,
	"proposalData": true,
	"pageProps":    true,
}

// extraction carries whatever the page heuristics managed to recover.
type extraction struct {
	TextThreshold *decimal.Decimal
	PassPrice     *decimal.Decimal
	FailPrice     *decimal.Decimal
	PassTwap      *decimal.Decimal
	FailTwap      *decimal.Decimal
	Status        string
}

// extractPage runs all page heuristics: the embedded JSON data blob first,
// then percentage tokens with surrounding context, then the TWAP price
// proxies.
func extractPage(html, text string) extraction {
	var ex extraction

	extractEmbeddedJSON(html, &ex)

	if ex.TextThreshold == nil {
		ex.TextThreshold = contextThreshold(text)
	}

	if m := approveTwapRe.FindStringSubmatch(text); m != nil {
		if v, err := decimal.NewFromString(m[1]); err == nil {
			ex.PassTwap = &v
		}
	}
	if m := rejectTwapRe.FindStringSubmatch(text); m != nil {
		if v, err := decimal.NewFromString(m[1]); err == nil {
			ex.FailTwap = &v
		}
	}

	return ex
}

// extractEmbeddedJSON scans script bodies for a JSON blob and recursively
// searches it for "proposal", "proposalData", or "pageProps" objects carrying
// threshold and price fields.
func extractEmbeddedJSON(html string, ex *extraction) {
	for _, m := range scriptRe.FindAllStringSubmatch(html, -1) {
		body := strings.TrimSpace(m[1])
		if !strings.HasPrefix(body, "{") {
			continue
		}

		var blob any
		if err := json.Unmarshal([]byte(body), &blob); err != nil {
			continue
		}

		if searchBlob(blob, ex, false) {
			return
		}
	}
}

// searchBlob walks the decoded JSON tree. Field reads only happen inside a
// subtree rooted at one of the known blob keys.
func searchBlob(node any, ex *extraction, inScope bool) bool {
	obj, ok := node.(map[string]any)
	if !ok {
		if arr, ok := node.([]any); ok {
			for _, item := range arr {
				if searchBlob(item, ex, inScope) {
					return true
				}
			}
		}
		return false
	}

	if inScope {
		found := false
		if v := numberField(obj, "threshold", "threshold_percent"); v != nil {
			ex.TextThreshold = v
			found = true
		}
		if v := numberField(obj, "pass_price"); v != nil {
			ex.PassPrice = v
			found = true
		}
		if v := numberField(obj, "fail_price"); v != nil {
			ex.FailPrice = v
			found = true
		}
		if s, ok := obj["status"].(string); ok && s != "" && ex.Status == "" {
			ex.Status = s
		}
		if found {
			return true
		}
	}

	for key, child := range obj {
		if searchBlob(child, ex, inScope || blobKeys[key]) {
			return true
		}
	}
	return false
}

func numberField(obj map[string]any, keys ...string) *decimal.Decimal {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			d := decimal.NewFromFloat(n)
			return &d
		case string:
			if d, err := decimal.NewFromString(n); err == nil {
				return &d
			}
		case json.Number:
			if d, err := decimal.NewFromString(n.String()); err == nil {
				return &d
			}
		}
	}
	return nil
}

// contextThreshold scans rendered text for percentage tokens, annotating each
// with surrounding context. A token whose context mentions "approved" wins
// over one near "pass threshold"; anything else is ignored as noise.
func contextThreshold(text string) *decimal.Decimal {
	var passThresholdMatch *decimal.Decimal

	for _, loc := range percentRe.FindAllStringIndex(text, -1) {
		token := strings.TrimSuffix(text[loc[0]:loc[1]], "%")
		value, err := decimal.NewFromString(token)
		if err != nil {
			continue
		}

		start := loc[0] - percentContextRadius
		if start < 0 {
			start = 0
		}
		end := loc[1] + percentContextRadius
		if end > len(text) {
			end = len(text)
		}
		context := strings.ToLower(text[start:end])

		if strings.Contains(context, "approved") {
			return &value
		}
		if passThresholdMatch == nil && strings.Contains(context, "pass threshold") {
			passThresholdMatch = &value
		}
	}

	return passThresholdMatch
}

// snapshot resolves the extraction into a normalized snapshot. Prices come
// from the embedded blob when present, with the TWAP proxies as stand-ins.
// A price-derived threshold overrides the text-derived one whenever the two
// disagree by more than thresholdAgreementPct.
func (ex extraction) snapshot(proposalID, sourceName string) (*proposal.Snapshot, error) {
	passPrice := ex.PassPrice
	failPrice := ex.FailPrice
	if passPrice == nil {
		passPrice = ex.PassTwap
	}
	if failPrice == nil {
		failPrice = ex.FailTwap
	}

	var priceThreshold *decimal.Decimal
	if passPrice != nil && failPrice != nil {
		t := proposal.Threshold(*passPrice, *failPrice)
		priceThreshold = &t
	}

	threshold := ex.TextThreshold
	if priceThreshold != nil {
		if threshold == nil || threshold.Sub(*priceThreshold).Abs().GreaterThan(thresholdAgreementPct) {
			threshold = priceThreshold
		}
	}
	if threshold == nil {
		return nil, ErrNoData
	}

	status := ex.Status
	if status == "" {
		status = "unknown"
	}

	snap := &proposal.Snapshot{
		ProposalID: proposalID,
		Threshold:  *threshold,
		Status:     status,
		Source:     sourceName,
		CapturedAt: time.Now().UTC(),
	}
	if passPrice != nil {
		snap.PassPrice = *passPrice
	}
	if failPrice != nil {
		snap.FailPrice = *failPrice
	}
	if ex.PassTwap != nil {
		snap.PassTwap = *ex.PassTwap
	}
	if ex.FailTwap != nil {
		snap.FailTwap = *ex.FailTwap
	}

	return snap, nil
}

// stripTags reduces an HTML document to scannable text.
func stripTags(html string) string {
	return tagRe.ReplaceAllString(html, " ")
}
