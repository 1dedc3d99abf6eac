package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func logLine(t *testing.T, h http.Handler, w http.ResponseWriter, target string) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Logging(logger)(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	return line
}

func TestLoggingListingQuery(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"markets":[]}`))
	})

	line := logLine(t, h, httptest.NewRecorder(), "/api/markets?limit=10&category=Crypto&q=btc&page=2")

	if line["status"] != float64(200) || line["bytes"] != float64(14) {
		t.Errorf("unexpected status/bytes in %v", line)
	}
	query, ok := line["query"].(map[string]any)
	if !ok {
		t.Fatalf("expected a query group, got %v", line)
	}
	if query["limit"] != "10" || query["category"] != "Crypto" || query["q"] != "btc" {
		t.Errorf("unexpected query group %v", query)
	}
	if _, ok := query["page"]; ok {
		t.Error("unrelated parameters should not be logged")
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{name: "ok", path: "/api/markets", status: http.StatusOK, want: "INFO"},
		{name: "not found", path: "/api/markets/poly-9", status: http.StatusNotFound, want: "WARN"},
		{name: "server error", path: "/api/markets", status: http.StatusInternalServerError, want: "ERROR"},
		{name: "health", path: "/api/health", status: http.StatusOK, want: "DEBUG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			line := logLine(t, h, httptest.NewRecorder(), tt.path)
			if line["level"] != tt.want {
				t.Errorf("expected level %s, got %v", tt.want, line["level"])
			}
			if _, ok := line["query"]; ok && tt.path != "/api/markets" {
				t.Errorf("unexpected query group on %s", tt.path)
			}
		})
	}
}

// hijackRecorder is a ResponseRecorder that can be hijacked.
type hijackRecorder struct {
	*httptest.ResponseRecorder
}

func (hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, nil
}

func TestLoggingUpgradeAnnotated(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := w.(http.Hijacker).Hijack(); err != nil {
			t.Errorf("hijack failed: %v", err)
		}
		Annotate(r.Context(), slog.String("client_id", "c-1"))
	})

	line := logLine(t, h, hijackRecorder{httptest.NewRecorder()}, "/ws")

	if line["status"] != float64(http.StatusSwitchingProtocols) {
		t.Errorf("expected status 101, got %v", line["status"])
	}
	if line["client_id"] != "c-1" {
		t.Errorf("expected client_id annotation, got %v", line)
	}
}

func TestLoggingHijackUnsupported(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, _, err := w.(http.Hijacker).Hijack(); err == nil {
			t.Error("expected an error from a writer that cannot hijack")
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	line := logLine(t, h, httptest.NewRecorder(), "/ws")
	if line["status"] != float64(http.StatusBadRequest) {
		t.Errorf("expected status 400, got %v", line["status"])
	}
}

func TestAnnotateOutsideLogging(t *testing.T) {
	// Must not panic without the middleware.
	Annotate(httptest.NewRequest(http.MethodGet, "/", nil).Context(), slog.String("k", "v"))
}
