package fallback

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}))
}

func TestExtractFieldRecoversValue(t *testing.T) {
	srv := chatServer(t, "  $49.99 ")
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL, APIKey: "test-key", Logger: testLogger()})
	got, ok := g.ExtractField(context.Background(), "<html><body>$49.99</body></html>", FieldPrice)
	if !ok {
		t.Fatal("expected a recovered value")
	}
	if got != "$49.99" {
		t.Errorf("value = %q, want trimmed $49.99", got)
	}
}

func TestExtractFieldNoneSentinel(t *testing.T) {
	srv := chatServer(t, "None")
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL, APIKey: "test-key", Logger: testLogger()})
	if _, ok := g.ExtractField(context.Background(), "<html></html>", FieldTitle); ok {
		t.Error("a 'none' reply must not count as a value, whatever its case")
	}
}

func TestExtractFieldServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL, APIKey: "test-key", Logger: testLogger()})
	if _, ok := g.ExtractField(context.Background(), "<html></html>", FieldTitle); ok {
		t.Error("server errors must degrade to no value")
	}
}

func TestExtractFieldTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: 20 * time.Millisecond, Logger: testLogger()})
	if _, ok := g.ExtractField(context.Background(), "<html></html>", FieldTitle); ok {
		t.Error("a timed-out call must degrade to no value")
	}
}

func TestNewWithoutKeyDisablesGateway(t *testing.T) {
	g := New(Config{Logger: testLogger()})
	if g != nil {
		t.Fatal("no API key should disable the gateway")
	}
	// A nil gateway must still be callable.
	if _, ok := g.ExtractField(context.Background(), "<html></html>", FieldTitle); ok {
		t.Error("disabled gateway returned a value")
	}
}

func TestPrepareContextTruncatesAndCleans(t *testing.T) {
	html := "<html><head><script>evil()</script><style>p{}</style></head>" +
		"<body><h1>Product</h1><p>Great keyboard for $59.99</p></body></html>"
	out := PrepareContext(html, 100_000)
	if out == "" {
		t.Fatal("expected markdown output")
	}
	if strings.Contains(out, "evil()") || strings.Contains(out, "p{}") {
		t.Errorf("script/style content leaked into prompt context: %q", out)
	}
	if !strings.Contains(out, "$59.99") {
		t.Errorf("prose content lost: %q", out)
	}
}

func TestPrepareContextByteCeiling(t *testing.T) {
	long := "<p>" + strings.Repeat("a", 500) + "</p>"
	out := PrepareContext(long, 100)
	if len(out) > 110 {
		t.Errorf("ceiling not applied: %d bytes out", len(out))
	}
	if out == "" {
		t.Error("truncated input should still produce context")
	}
}

func TestPrepareContextEmpty(t *testing.T) {
	if out := PrepareContext("", 100_000); out != "" {
		t.Errorf("empty page should yield empty context, got %q", out)
	}
}
