package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelInfo,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	// query param ?log=debug
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	// shorthand ?log=1
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("shorthand query override failed: %v", got)
	}
	// header X-Log-Level
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := zlog
	SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	t.Cleanup(func() { zlog = prev })
	return &buf
}

func TestRequestLogger_WritesRoutePattern(t *testing.T) {
	buf := captureLogs(t)
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Get("/api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/jobs/abc", nil))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if line["route"] != "/api/v1/jobs/{id}" || line["status"] != float64(404) || line["level"] != "warn" {
		t.Fatalf("log line=%v", line)
	}
}

func TestRequestLogger_OffAndErrorLevels(t *testing.T) {
	buf := captureLogs(t)
	ok := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?log=off", nil))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?log=error", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected no access log, got %q", buf.String())
	}

	failing := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?log=error", nil))
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error access log, got %q", buf.String())
	}
}
