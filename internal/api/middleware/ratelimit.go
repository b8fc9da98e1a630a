package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/brandpulse/internal/api/response"
	"github.com/kiranshivaraju/brandpulse/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateLimitWindow          = time.Minute
)

// RateLimit counts requests per API key prefix in fixed one-minute windows
// held in the cache. Ingest and insight calls share one budget.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// Limit rejects requests over the budget with 429. It must run after
// Authenticate; requests without a key prefix pass through. A cache failure
// lets the request through.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix, ok := getKeyPrefix(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(prefix), rateLimitWindow)
		if err != nil {
			brandID, _ := GetBrandID(r)
			slog.Warn("rate limit check failed, allowing request",
				"key_prefix", prefix, "brand_id", brandID, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		rl.setHeaders(w, count)
		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
			response.Error(w, http.StatusTooManyRequests, response.CodeRateLimitExceeded,
				"Too many requests", map[string]int{"limit_per_minute": rl.requestsPerMin})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimit) setHeaders(w http.ResponseWriter, count int64) {
	remaining := rl.requestsPerMin - int(count)
	if remaining < 0 {
		remaining = 0
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateLimitWindow).Unix(), 10))
}
