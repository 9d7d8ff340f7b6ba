package chi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/metrics"
	"github.com/kotonoha-labs/birthdex/internal/ratelimit"
)

// ipHeaders are checked in order before falling back to the socket address.
var ipHeaders = []string{"X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP", "X-Client-IP"}

// RateLimit enforces a per-client request budget on one endpoint. A limiter
// backend failure lets the request through.
func RateLimit(limiter ratelimit.Limiter, endpoint string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := endpoint + ":" + clientIP(r)
			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable",
					zap.String("endpoint", endpoint), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !decision.OK {
				metrics.RateLimitRejectionsTotal.WithLabelValues(endpoint).Inc()
				retryAfter := decision.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP picks the caller address from proxy headers, preferring the first
// hop of X-Forwarded-For, then the socket address.
func clientIP(r *http.Request) string {
	for _, h := range ipHeaders {
		v := strings.TrimSpace(r.Header.Get(h))
		if v == "" {
			continue
		}
		if h == "X-Forwarded-For" {
			if first, _, found := strings.Cut(v, ","); found {
				v = strings.TrimSpace(first)
			}
		}
		if v != "" {
			return v
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
