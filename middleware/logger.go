package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ts4z/wtapicks/varz"
)

var (
	requestsServed  = varz.NewCounterVec("http_requests_total", "Requests served, by method and status code.", "method", "code")
	requestDuration = varz.NewHistogram("http_request_duration_seconds", "Time spent serving requests.")
)

type Clock interface {
	Now() time.Time
}

// RequestLogger is a middleware that logs the request and counts it.
type RequestLogger struct {
	next  http.Handler
	clock Clock
}

func NewRequestLogger(next http.Handler, clock Clock) *RequestLogger {
	return &RequestLogger{next: next, clock: clock}
}

func remoteAddr(r *http.Request) string {
	if r.Header.Get("X-Forwarded-For") != "" {
		return r.Header.Get("X-Forwarded-For")
	}
	return r.RemoteAddr
}

func (rl *RequestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := rl.clock.Now()
	ww := &codeWatcher{w: w}
	rl.next.ServeHTTP(ww, r)
	code := ww.Code()
	duration := rl.clock.Now().Sub(start)
	requestsServed.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()
	requestDuration.Observe(duration.Seconds())
	log.Printf("[access log] %d %v %s %v (%v)", code, remoteAddr(r), r.Method, r.URL.Path, duration)
}
