package middleware

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// listingParams are the query parameters of the market listing endpoints
// that end up in the request log.
var listingParams = []string{"limit", "category", "q", "min_probability", "max_probability"}

type attrsKey struct{}

// requestAttrs collects attributes handlers attach to the request log line.
type requestAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// Annotate adds attrs to the request log line written by Logging, such as
// the client id a WebSocket upgrade was assigned. It is a no-op outside a
// request wrapped by Logging.
func Annotate(ctx context.Context, attrs ...slog.Attr) {
	ra, ok := ctx.Value(attrsKey{}).(*requestAttrs)
	if !ok {
		return
	}
	ra.mu.Lock()
	ra.attrs = append(ra.attrs, attrs...)
	ra.mu.Unlock()
}

// Logging returns middleware that writes one structured line per request.
// Listing requests carry their limit and filter parameters, WebSocket
// upgrades are logged as 101, and the level follows the status class so
// failing requests stand out. Health probes are logged at debug.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ra := &requestAttrs{}
			r = r.WithContext(context.WithValue(r.Context(), attrsKey{}, ra))

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int("bytes", rw.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if strings.HasPrefix(r.URL.Path, "/api/markets") {
				if g := queryGroup(r); g.Key != "" {
					attrs = append(attrs, g)
				}
			}
			if rw.hijacked {
				attrs = append(attrs, slog.String("origin", r.Header.Get("Origin")))
			} else {
				attrs = append(attrs, slog.String("user_agent", r.UserAgent()))
			}

			ra.mu.Lock()
			attrs = append(attrs, ra.attrs...)
			ra.mu.Unlock()

			logger.LogAttrs(r.Context(), level(r.URL.Path, rw.statusCode), "http request", attrs...)
		})
	}
}

// queryGroup returns the listing parameters present on r as a "query" group,
// or a zero Attr when none were sent.
func queryGroup(r *http.Request) slog.Attr {
	q := r.URL.Query()
	var args []any
	for _, k := range listingParams {
		if v := q.Get(k); v != "" {
			args = append(args, slog.String(k, v))
		}
	}
	if len(args) == 0 {
		return slog.Attr{}
	}
	return slog.Group("query", args...)
}

func level(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case path == "/api/health":
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// body size.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	bytes       int
	wroteHeader bool
	hijacked    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Hijack implements http.Hijacker so that WebSocket upgrades work through
// the logging middleware. The upgrade response bypasses WriteHeader, so a
// successful hijack is recorded as 101.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("middleware: %T does not support hijacking", rw.ResponseWriter)
	}
	conn, buf, err := h.Hijack()
	if err == nil {
		rw.hijacked = true
		rw.wroteHeader = true
		rw.statusCode = http.StatusSwitchingProtocols
	}
	return conn, buf, err
}
