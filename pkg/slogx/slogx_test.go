package slogx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestSecurity(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithContext(context.Background(), logger)

	Security(ctx, "replay detected", "principal_id", "p1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "WARN", entry["level"])
	require.Equal(t, "security", entry["event"])
	require.Equal(t, "replay detected", entry["msg"])
	require.Equal(t, "p1", entry["principal_id"])
}

func TestWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = With(ctx, "principal_id", "p1")

	FromContext(ctx).Info("admitted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "p1", entry["principal_id"])
}

func TestFromContext_Default(t *testing.T) {
	t.Parallel()

	require.NotNil(t, FromContext(context.Background()))
}

func TestNew_GateAttributes(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := New(Config{
		Service:  "agency-gate",
		Version:  "v1",
		Env:      "prod",
		Instance: "gate-2",
		Level:    "warn",
		Output:   &buf,
	})

	logger.Info("dropped")
	logger.Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["msg"])
	require.Equal(t, "agency-gate", entry["service"])
	require.Equal(t, "gate-2", entry["instance"])
	require.Same(t, logger, slog.Default())
}

func readLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

func TestHTTPMiddleware(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h := HTTPMiddleware(base, func(*http.Request) string { return "203.0.113.5" })(mux)

	req := httptest.NewRequest(http.MethodPost, "/v1/items/42", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	lines := readLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, "inside", lines[0]["msg"])
	require.Equal(t, "req-1", lines[0]["req_id"])
	require.Equal(t, "203.0.113.5", lines[0]["client_ip"])

	access := lines[1]
	require.Equal(t, "http_request", access["msg"])
	require.Equal(t, "POST /v1/items/{id}", access["route"])
	require.EqualValues(t, http.StatusTooManyRequests, access["status"])
	require.Equal(t, "INFO", access["level"])
}

func TestHTTPMiddleware_DefaultsToPeer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	h := HTTPMiddleware(base, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.RemoteAddr = "192.0.2.8:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	lines := readLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "192.0.2.8", lines[0]["client_ip"])
	require.Equal(t, "", lines[0]["route"])
	require.Equal(t, "ERROR", lines[0]["level"])
}
