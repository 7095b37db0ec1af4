package source

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractEmbeddedJSON(t *testing.T) {
	html := `<html><head><script type="application/json">
		{"pageProps":{"proposal":{"threshold":19.95,"pass_price":1.2,"fail_price":1.0,"status":"Pending"}}}
	</script></head><body></body></html>`

	ex := extractPage(html, stripTags(html))
	if ex.TextThreshold == nil {
		t.Fatal("应从内嵌 JSON 提取阈值")
	}
	if ex.PassPrice == nil || ex.FailPrice == nil {
		t.Fatal("应从内嵌 JSON 提取价格")
	}
	if ex.Status != "Pending" {
		t.Fatalf("状态不正确: %s", ex.Status)
	}

	snap, err := ex.snapshot("prop-1", "static")
	if err != nil {
		t.Fatalf("快照解析失败: %v", err)
	}
	// Text says 19.95, prices say 20; within tolerance the text value holds.
	if snap.Threshold.StringFixed(2) != "19.95" {
		t.Fatalf("容差内应保留文本阈值, 实际 %s", snap.Threshold.String())
	}
}

func TestExtractPriceOverridesDriftedText(t *testing.T) {
	html := `<html><script>
		{"proposal":{"threshold":12.00,"pass_price":1.2,"fail_price":1.0}}
	</script></html>`

	snap, err := extractPage(html, stripTags(html)).snapshot("prop-1", "static")
	if err != nil {
		t.Fatalf("快照解析失败: %v", err)
	}
	// Prices give 20%; a text value off by 8pp is presentation drift.
	if snap.Threshold.StringFixed(2) != "20.00" {
		t.Fatalf("价格推导的阈值应覆盖文本值, 实际 %s", snap.Threshold.String())
	}
}

func TestContextThresholdPrefersApproved(t *testing.T) {
	// The two tokens sit further apart than the context radius, so their
	// classification contexts do not bleed into each other.
	filler := strings.Repeat("market data ", 30)
	text := "the pass threshold is currently 10.00% " + filler +
		"the proposal will be approved at 15.25% based on TWAP"

	v := contextThreshold(text)
	if v == nil {
		t.Fatal("应识别上下文中的百分比")
	}
	if v.StringFixed(2) != "15.25" {
		t.Fatalf("approved 上下文应优先, 实际 %s", v.String())
	}
}

func TestContextThresholdPassThresholdFallback(t *testing.T) {
	text := "the pass threshold sits at 10.50% with no further detail"

	v := contextThreshold(text)
	if v == nil {
		t.Fatal("pass threshold 上下文应被识别")
	}
	if v.StringFixed(2) != "10.50" {
		t.Fatalf("阈值不正确: %s", v.String())
	}
}

func TestContextThresholdIgnoresNoise(t *testing.T) {
	if v := contextThreshold("volume changed by 3.50% today"); v != nil {
		t.Fatalf("无关上下文不应产生阈值: %s", v.String())
	}
}

func TestSnapshotNoData(t *testing.T) {
	var ex extraction
	if _, err := ex.snapshot("prop-1", "static"); !errors.Is(err, ErrNoData) {
		t.Fatalf("空提取结果应返回 ErrNoData, 实际 %v", err)
	}
}

func TestStripTags(t *testing.T) {
	text := stripTags("<div>Approve TWAP $1.50</div>")
	if text != " Approve TWAP $1.50 " {
		t.Fatalf("标签剥离结果不正确: %q", text)
	}
}
