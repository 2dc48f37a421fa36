package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/metrics"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-ID"

// RequestID returns the request ID stored by the logging middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestLogger assigns a request ID (reusing a client-supplied one) and
// writes one access log line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("access")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

			logger.Info("request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("client_ip", clientIP(r, false)),
				zap.String("forwarded_for", r.Header.Get("X-Forwarded-For")),
			)
		})
	}
}

// Instrument records request counts and latency by route pattern.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// The mux fills in Pattern on the way through.
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RateLimitConfig configures the per-client token bucket. Clients are keyed
// by remote address; TrustProxy keys them by the first X-Forwarded-For hop
// instead and must only be set behind a proxy that overwrites that header.
type RateLimitConfig struct {
	Enabled    bool
	Requests   int
	Window     time.Duration
	TrustProxy bool
}

// RateLimiter keeps one token bucket per client IP. Each bucket holds
// Requests tokens and refills at Requests per Window.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter from cfg.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*visitor),
		limit:   rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:   cfg.Requests,
		idleTTL: cfg.Window,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastScan) > rl.idleTTL {
		for k, v := range rl.clients {
			if now.Sub(v.lastSeen) > rl.idleTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastScan = now
	}

	v, ok := rl.clients[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// RateLimit rejects requests over the per-IP budget with 429 RATE_LIMITED.
// A disabled config returns a pass-through middleware.
func RateLimit(cfg RateLimitConfig, rs *Responder) func(http.Handler) http.Handler {
	if !cfg.Enabled || cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := NewRateLimiter(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(clientIP(r, cfg.TrustProxy)) {
				rs.Error(w, r, apperr.New(apperr.KindRateLimited, apperr.CodeRateLimited,
					"too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the remote host, or the first X-Forwarded-For hop when
// trustProxy is set and the header is present.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		if hop := strings.TrimSpace(strings.Split(fwd, ",")[0]); hop != "" {
			return hop
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Chain applies middleware so that the first one listed is outermost.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
