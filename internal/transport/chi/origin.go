package chi

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// defaultOrigins are always allowed so local frontends work out of the box.
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// OriginConfig configures the origin allowlist.
type OriginConfig struct {
	// Allowed lists extra permitted origins beyond the local defaults.
	Allowed []string
	// AllowUnlisted lets requests with an unrecognized origin through.
	// Meant for non-production environments.
	AllowUnlisted bool
}

// OriginAllowlist rejects requests whose origin is not on the allowlist.
// The origin is taken from the Origin header, then the Referer, then the
// Host header as a last resort.
func OriginAllowlist(cfg OriginConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(cfg.Allowed)+len(defaultOrigins))
	for _, o := range defaultOrigins {
		allowed[o] = struct{}{}
	}
	for _, o := range cfg.Allowed {
		if n := normalizeOrigin(o); n != "" {
			allowed[n] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if originAllowed(r, allowed) || cfg.AllowUnlisted {
				next.ServeHTTP(w, r)
				return
			}
			logger.Warn("origin rejected",
				zap.String("origin", r.Header.Get("Origin")),
				zap.String("referer", r.Header.Get("Referer")),
				zap.String("host", r.Host),
			)
			writeError(w, http.StatusForbidden, "origin not allowed")
		})
	}
}

func originAllowed(r *http.Request, allowed map[string]struct{}) bool {
	if origin := normalizeOrigin(r.Header.Get("Origin")); origin != "" {
		_, ok := allowed[origin]
		return ok
	}
	if referer := normalizeOrigin(r.Header.Get("Referer")); referer != "" {
		_, ok := allowed[referer]
		return ok
	}
	if r.Host != "" {
		if _, ok := allowed["https://"+r.Host]; ok {
			return true
		}
		if _, ok := allowed["http://"+r.Host]; ok {
			return true
		}
	}
	return false
}

// normalizeOrigin reduces a URL or origin string to scheme://host. The
// literal "null" (sent by sandboxed frames) normalizes to empty.
func normalizeOrigin(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return ""
	}
	if u, err := url.Parse(value); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}
	return strings.TrimRight(value, "/")
}
