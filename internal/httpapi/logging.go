package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, logging is disabled.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logger() *zerolog.Logger {
	if zlog == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return zlog
}

// LogLevel controls per-request access logging.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off":
		return LevelOff
	case "error":
		return LevelError
	case "info", "":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("VISTORA_ACCESS_LOG"))

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// RequestLogger writes one access log line per request. Failed requests are
// logged at LevelError and above; everything else at LevelInfo and above.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		if lvl == LevelOff || (lvl < LevelInfo && sr.status < 400) {
			return
		}
		var ev *zerolog.Event
		switch {
		case sr.status >= 500:
			ev = logger().Error()
		case sr.status >= 400:
			ev = logger().Warn()
		case lvl >= LevelDebug:
			ev = logger().Debug()
		default:
			ev = logger().Info()
		}
		ev = ev.Str("method", r.Method).
			Str("route", routePatternOrPath(r)).
			Int("status", sr.status).
			Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		if lvl >= LevelDebug {
			ev = ev.Str("path", r.URL.Path).Str("query", r.URL.RawQuery)
		}
		ev.Msg("http request")
	})
}
