package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"

	"keramika/internal/config"

	"golang.org/x/time/rate"
)

const (
	PermissionRead  = "read"
	PermissionBook  = "book"
	PermissionAdmin = "admin"
)

// HTTPAuth authenticates API clients by key and enforces per-client
// permissions and rate limits.
type HTTPAuth struct {
	cfg      *config.APIConfig
	limiters sync.Map // client key -> *rate.Limiter
}

func NewHTTPAuth(cfg *config.APIConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		client, ok := a.checkAuth(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}

		if !a.checkPermissions(client, r.URL.Path) {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}

		if !a.checkRateLimit(a.clientKey(client, r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// checkAuth returns the matched client key. With auth disabled every request
// passes with full permissions.
func (a *HTTPAuth) checkAuth(r *http.Request) (*config.APIClientKey, bool) {
	if !a.cfg.Auth.Enabled {
		return &config.APIClientKey{
			Name:        "anonymous",
			Permissions: []string{PermissionRead, PermissionBook, PermissionAdmin},
		}, true
	}

	presented := r.Header.Get(a.cfg.Auth.HeaderAPIKey)
	if presented == "" {
		return nil, false
	}

	for i := range a.cfg.Auth.APIKeys {
		key := &a.cfg.Auth.APIKeys[i]
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key.Key)) == 1 {
			return key, true
		}
	}
	return nil, false
}

func (a *HTTPAuth) checkPermissions(client *config.APIClientKey, path string) bool {
	required := requiredPermission(path)
	for _, p := range client.Permissions {
		if p == required || p == PermissionAdmin {
			return true
		}
	}
	return false
}

func requiredPermission(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/admin/"):
		return PermissionAdmin
	case strings.HasPrefix(path, "/api/v1/bookings"),
		strings.HasPrefix(path, "/api/v1/giftcards"):
		return PermissionBook
	default:
		return PermissionRead
	}
}

// clientKey identifies the caller for rate limiting; unauthenticated setups
// fall back to the remote address.
func (a *HTTPAuth) clientKey(client *config.APIClientKey, r *http.Request) string {
	if client.Key != "" {
		return client.Key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *HTTPAuth) checkRateLimit(key string) bool {
	if a.cfg.RateLimit.RPS <= 0 {
		return true
	}
	limiter := a.getLimiter(key)
	return limiter.Allow()
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, _ := a.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}
