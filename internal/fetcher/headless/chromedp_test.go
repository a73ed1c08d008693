package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/monitor"
)

func TestNewChromedpValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChromedp(Config{SettleDelay: -time.Second}, nil); err == nil {
		t.Fatal("expected error for negative settle delay")
	}
	fetcher, err := NewChromedp(Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.cfg.WindowWidth != 1920 || fetcher.cfg.WindowHeight != 1080 {
		t.Fatalf("expected default window size, got %dx%d", fetcher.cfg.WindowWidth, fetcher.cfg.WindowHeight)
	}
	if fetcher.cfg.NavigationTimeout != 45*time.Second {
		t.Fatalf("expected default nav timeout, got %v", fetcher.cfg.NavigationTimeout)
	}
}

func TestFetcherNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{}
	if got := fetcher.navTimeout(); got != 45*time.Second {
		t.Fatalf("expected default nav timeout, got %v", got)
	}
	fetcher.cfg.NavigationTimeout = time.Second
	if got := fetcher.navTimeout(); got != time.Second {
		t.Fatalf("expected override to be used, got %v", got)
	}
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 203, URL: "https://example.com/rendered"},
	})
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://example.com/iframe"},
	})
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500, URL: "https://example.com/app.js"},
	})
	status, url := meta.snapshotWithFallbacks("https://req", "")
	if status != 203 || url != "https://example.com/rendered" {
		t.Fatalf("unexpected snapshot values: status=%d url=%s", status, url)
	}

	meta = newResponseMeta()
	status, url = meta.snapshotWithFallbacks("https://req", "https://final")
	if status != http.StatusOK || url != "https://final" {
		t.Fatalf("expected fallback values, got status=%d url=%s", status, url)
	}
	status, url = meta.snapshotWithFallbacks("https://req", "")
	if status != http.StatusOK || url != "https://req" {
		t.Fatalf("expected request url fallback, got status=%d url=%s", status, url)
	}
}

func TestFetchWrapsErrors(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{ExecPath: "/nonexistent/chrome", NavigationTimeout: time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = fetcher.Fetch(context.Background(), "http://127.0.0.1:1")
	if !errors.Is(err, monitor.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestFetchRendersScriptContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body><script>
setTimeout(function () {
  document.body.innerHTML = '<label class="checkbox_container">Available to book (4)</label>';
}, 50);
</script></body></html>`)
	}))
	defer srv.Close()

	fetcher, err := NewChromedp(Config{
		UserAgent:         "availmon-test",
		NavigationTimeout: 20 * time.Second,
		SettleDelay:       500 * time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Skipf("chromedp unavailable: %v", err)
	}
	if !strings.Contains(string(page.HTML), "Available to book (4)") {
		t.Fatal("rendered body missing dynamic content")
	}
	if page.Engine != Engine || page.StatusCode != http.StatusOK {
		t.Fatalf("unexpected page metadata: %+v", page)
	}
}
