package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cropcast/internal/log"
)

type observation struct {
	path   string
	method string
	status int
}

type fakeRecorder struct {
	got []observation
}

func (f *fakeRecorder) ObserveRequest(path, method string, status int, _ time.Duration) {
	f.got = append(f.got, observation{path, method, status})
}

func TestMiddleware_RequestIDAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	rec := &fakeRecorder{}

	var seenID string
	handler := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" }, rec, "/forecast").
		Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = GetRequestID(r.Context())
			if log.FromContext(r.Context()).Component() != log.ComponentHTTP {
				t.Errorf("request logger not stored in context")
			}
			w.WriteHeader(http.StatusBadRequest)
		}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/forecast?crop=Rice", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(seenID, "req_") || w.Header().Get(RequestIDHeader) != seenID {
		t.Errorf("request id = %q, header = %q", seenID, w.Header().Get(RequestIDHeader))
	}
	if len(rec.got) != 1 || rec.got[0] != (observation{"/forecast", "GET", 400}) {
		t.Errorf("recorded = %+v", rec.got)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want start and end log lines, got %d:\n%s", len(lines), buf.String())
	}
	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatal(err)
	}
	if end["level"] != "WARN" || end[log.FieldRequestID] != seenID {
		t.Errorf("completion log = %v", end)
	}
}

func TestMiddleware_ReusesIncomingID(t *testing.T) {
	handler := NewMiddleware(nil, nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}

	req.Header.Set(RequestIDHeader, "bad id with spaces")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); !strings.HasPrefix(got, "req_") {
		t.Errorf("malformed id should be replaced, got %q", got)
	}
}

func TestMiddleware_UnknownPathLabel(t *testing.T) {
	rec := &fakeRecorder{}
	handler := NewMiddleware(nil, nil, rec, "/forecast").Middleware(http.NotFoundHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/wp-admin", nil))

	if rec.got[0].path != "other" || rec.got[0].status != 404 {
		t.Errorf("recorded = %+v", rec.got[0])
	}
}
