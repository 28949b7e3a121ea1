package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
	"github.com/chikamso/portfolio/internal/web/ratelimit"
)

// RateLimitConfig holds configuration for rate limiting middleware
type RateLimitConfig struct {
	Limiter ratelimit.Limiter
	// KeyFunc extracts the rate limit key from the request
	KeyFunc func(*http.Request) string
	// Methods restricts limiting to these methods. Empty means all methods.
	Methods []string
	// OnLimited writes the response for a denied request
	OnLimited func(http.ResponseWriter, *http.Request, time.Duration)
}

// RateLimit limits requests per client IP
func RateLimit(limiter ratelimit.Limiter, methods ...string) Middleware {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter: limiter,
		KeyFunc: IPKeyFunc,
		Methods: methods,
	})
}

// RateLimitWithConfig creates a rate limiting middleware with custom
// configuration. Limiter errors let the request through.
func RateLimitWithConfig(config RateLimitConfig) Middleware {
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}
	if config.OnLimited == nil {
		config.OnLimited = defaultOnLimited
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(config.Methods) > 0 && !contains(config.Methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := config.KeyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			d, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				webcontext.Logger(r.Context()).Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				config.OnLimited(w, r, d.RetryAfter(time.Now()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func defaultOnLimited(w http.ResponseWriter, _ *http.Request, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	http.Error(w, "Too many requests, please try again later.", http.StatusTooManyRequests)
}

// IPKeyFunc extracts the client IP, preferring the first X-Forwarded-For
// entry, then X-Real-IP, then RemoteAddr.
func IPKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
