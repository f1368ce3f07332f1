// Package ratelimit throttles form submissions with a fixed window counter
// kept in redis.
package ratelimit

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inkwell/app/telemetry"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rl:"

// Limiter counts hits per key in redis.
type Limiter struct {
	rdb     redis.Cmdable
	metrics *telemetry.Metrics
}

// New creates a limiter. metrics may be nil.
func New(rdb redis.Cmdable, metrics *telemetry.Metrics) *Limiter {
	return &Limiter{rdb: rdb, metrics: metrics}
}

// Allow increments the counter for key and reports whether it is still
// within limit. The counter expires window after the last hit.
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	k := keyPrefix + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// Rule describes one limited route.
type Rule struct {
	Route  string
	Limit  int64
	Window time.Duration
	// Key names the client a request is counted against.
	Key func(*http.Request) string
	// Rejected, when set, is called for every request turned away.
	Rejected func()
}

// LimitHTTP rejects requests over the rule's limit with 429. Only POST
// requests are counted so that reading a form never uses up the budget. A
// redis failure lets the request through.
func (l *Limiter) LimitHTTP(rule Rule, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		key := rule.Route + ":" + rule.Key(r)
		ok, n, err := l.Allow(r.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Printf("rate limiter: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			if l.metrics != nil {
				l.metrics.Limited.WithLabelValues(rule.Route).Inc()
			}
			if rule.Rejected != nil {
				rule.Rejected()
			}
			log.Printf("rate limited %s (count=%d, limit=%d)", key, n, rule.Limit)
			tooMany(w, r, rule.Window)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tooMany answers 429 as JSON to API clients and as plain text otherwise.
func tooMany(w http.ResponseWriter, r *http.Request, window time.Duration) {
	w.Header().Set("Retry-After", retryAfter(window))
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		if err := json.NewEncoder(w).Encode(map[string]string{"error": "Too Many Requests"}); err != nil {
			log.Printf("encode response: %v", err)
		}
		return
	}
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
}

// ClientIP returns a key function naming the client of a request. The
// X-Forwarded-For header is client supplied, so its first hop is only used
// when trustProxy says a reverse proxy in front of the server sets it.
func ClientIP(trustProxy bool) func(*http.Request) string {
	return func(r *http.Request) string {
		if trustProxy {
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				if hop := strings.TrimSpace(strings.Split(fwd, ",")[0]); hop != "" {
					return hop
				}
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
