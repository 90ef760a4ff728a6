package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// RateLimiter allows at most limit calls per key in any trailing window.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time // ascending per key
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter with the given limit per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Check records a call for key unless the key is already at its limit.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	res, _ := rl.check(key)
	return res
}

// check also returns how long until the oldest call in the window expires.
func (rl *RateLimiter) check(key string) (domain.GuardResult, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	hits := rl.hits[key]
	expired := sort.Search(len(hits), func(i int) bool { return hits[i].After(cutoff) })
	hits = hits[expired:]

	if len(hits) >= rl.limit {
		rl.hits[key] = hits
		wait := hits[0].Sub(cutoff)
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("rate limit exceeded: %d per %s", rl.limit, rl.window),
			Guard:   "rate_limiter",
		}, wait
	}

	if len(hits) == 0 {
		// drop the backing array of keys that went quiet
		hits = nil
	}
	rl.hits[key] = append(hits, now)
	return domain.GuardResult{Allowed: true}, 0
}

// Middleware limits requests per key, where keyFn derives the key from the
// request (typically the authenticated subject). Requests with an empty key
// pass through.
func (rl *RateLimiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			res, wait := rl.check(key)
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			appErr := domain.ErrRateLimited(res.Reason)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.WriteHeader(appErr.Status)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    appErr.Code,
				"message": appErr.Message,
			})
		})
	}
}
