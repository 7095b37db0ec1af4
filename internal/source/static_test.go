package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newStaticForTest(baseURL string) *Static {
	return NewStatic(StaticOptions{
		PageURL:     baseURL,
		ProposalID:  "prop-1",
		Timeout:     time.Second,
		PacingDelay: time.Millisecond,
	}, noopLogger())
}

func TestStaticFetchFromTwapProxies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div>Approve TWAP $1.50</div>
			<div>Reject TWAP $1.20</div>
		</body></html>`)
	}))
	defer srv.Close()

	snap, err := newStaticForTest(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("TWAP 代理价应能得出快照: %v", err)
	}
	if snap.Threshold.StringFixed(4) != "25.0000" {
		t.Fatalf("期望阈值 25.0000, 实际 %s", snap.Threshold.StringFixed(4))
	}
	if snap.Source != "static" {
		t.Fatalf("来源标签不正确: %s", snap.Source)
	}
	if snap.PassPrice.StringFixed(2) != "1.50" || snap.FailPrice.StringFixed(2) != "1.20" {
		t.Fatalf("代理价未落入价格字段: %s/%s", snap.PassPrice.String(), snap.FailPrice.String())
	}
}

func TestStaticFetchRateLimited(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := newStaticForTest(srv.URL).Fetch(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("限流应归并为 ErrNoData, 实际 %v", err)
	}
	if calls != 1 {
		t.Fatalf("限流后不应在本轮重试, 实际请求 %d 次", calls)
	}
}

func TestStaticFetchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>nothing here</body></html>")
	}))
	defer srv.Close()

	if _, err := newStaticForTest(srv.URL).Fetch(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("无可提取数据应返回 ErrNoData, 实际 %v", err)
	}
}
