package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketdash/internal/cache/memory"
	"github.com/alanyoungcy/marketdash/internal/domain"
)

type frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func TestHubStatusThenSnapshots(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := memory.NewSignalBus(logger)
	hub := NewHub(bus, logger, Config{
		Status:   domain.DashboardStatus{Mode: "server", MarketsLimit: 30},
		Channels: []string{domain.ChannelMarkets},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dial(t, srv)
	first := readFrame(t, conn)
	if first.Type != "dashboard_status" {
		t.Fatalf("expected dashboard_status first, got %q", first.Type)
	}
	var status domain.DashboardStatus
	if err := json.Unmarshal(first.Payload, &status); err != nil || status.MarketsLimit != 30 {
		t.Fatalf("unexpected status payload %s (%v)", first.Payload, err)
	}

	payload, _ := json.Marshal(domain.Snapshot{Kind: "markets", Limit: 30})

	// The hub subscribes asynchronously; keep publishing until a frame lands.
	got := make(chan frame, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if json.Unmarshal(data, &f) == nil {
			got <- f
		}
	}()

	deadline := time.After(3 * time.Second)
	var snap frame
loop:
	for {
		if err := bus.Publish(ctx, domain.ChannelMarkets, payload); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case snap = <-got:
			break loop
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting for snapshot frame")
		}
	}

	if snap.Type != "snapshot" || snap.Channel != domain.ChannelMarkets {
		t.Fatalf("unexpected frame %+v", snap)
	}

	// A late joiner gets the status and the most recent snapshot immediately.
	late := dial(t, srv)
	if f := readFrame(t, late); f.Type != "dashboard_status" {
		t.Fatalf("expected dashboard_status, got %q", f.Type)
	}
	if f := readFrame(t, late); f.Type != "snapshot" || f.Channel != domain.ChannelMarkets {
		t.Fatalf("expected replayed snapshot, got %+v", f)
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", allowed: []string{"http://a.example"}, origin: "", want: true},
		{name: "empty allow-list", allowed: nil, origin: "http://any.example", want: true},
		{name: "listed", allowed: []string{"http://a.example"}, origin: "http://a.example", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://b.example", want: true},
		{name: "same host", allowed: []string{"http://a.example"}, origin: "http://dash.local", want: true},
		{name: "foreign", allowed: []string{"http://a.example"}, origin: "http://b.example", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://dash.local/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.allowed)(r); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
