package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"trip_teaser/internal/adapters/observability"
)

// unmatchedRoute labels requests no route claimed, so 404 scans cannot
// grow the metric label set with arbitrary paths.
const unmatchedRoute = "unmatched"

// Timeout answers 503 with a problem body once d has passed.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	const body = `{"type":"about:blank","title":"Service Unavailable","status":503,"detail":"request timed out"}`
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, body) }
}

// observe runs next and reports the matched route pattern, the final status
// and the elapsed time. It must run inside the chi router so the route
// context is populated once next returns.
func observe(next http.Handler, w http.ResponseWriter, r *http.Request, report func(route string, status int, took time.Duration)) {
	start := time.Now()
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	report(routeOf(r), status, time.Since(start))
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

// Metrics counts requests and records latency per route pattern and method.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observe(next, w, r, func(route string, status int, took time.Duration) {
			observability.ObserveHTTP(route, r.Method, status, took)
		})
	})
}

// Logger writes one structured line per request. 4xx log at warn and 5xx at
// error, so a quiet info level still surfaces failures.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			observe(next, w, r, func(route string, status int, took time.Duration) {
				ev := l.Info()
				switch {
				case status >= 500:
					ev = l.Error()
				case status >= 400:
					ev = l.Warn()
				}
				ev.Str("request_id", chimw.GetReqID(r.Context())).
					Str("route", route).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Int("status", status).
					Dur("duration", took).
					Str("remote", clientIP(r)).
					Str("ua", r.UserAgent()).
					Msg("http_request")
			})
		})
	}
}

// clientIP is the host part of RemoteAddr. chimw.RealIP runs earlier in the
// chain and has already replaced RemoteAddr with the forwarded client address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
