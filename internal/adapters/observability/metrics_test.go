package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"review_feed/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()
	if again := observability.InitRegistry(); again != reg {
		t.Fatalf("expected InitRegistry to be idempotent")
	}

	// record one sample per family so counters are exported
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveCache("memory", "hit")
	observability.ObserveImageFetch("ok")
	observability.ObserveFeedLoad("ok")
	observability.SetImageMemoryEntries(3)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"reviews_http_requests_total",
		"reviews_cache_events_total",
		"reviews_image_fetch_total",
		"reviews_feed_loads_total",
		"reviews_image_memory_entries 3",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}
