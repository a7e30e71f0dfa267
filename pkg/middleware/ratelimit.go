package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/ratelimit"
)

// RateLimit throttles catalog mutations per client address. Reads
// (GET, HEAD) and health probes pass through untouched.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}
			client := clientAddr(r)
			if !limiter.Allow(client) {
				logger.FromContext(r.Context()).Warn("mutation rate limited", "client", client, "path", r.URL.Path)
				retry := int(limiter.RetryAfter().Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
