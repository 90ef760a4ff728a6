package guard

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// DefaultIdempotencyCapacity bounds how many keys are remembered.
const DefaultIdempotencyCapacity = 10000

type pending struct{}

// IdempotencyGuard deduplicates requests by idempotency key. Keys live in a
// bounded LRU, so very old keys are eventually forgotten.
type IdempotencyGuard struct {
	seen *lru.Cache
}

// NewIdempotencyGuard creates an in-memory idempotency guard holding up to
// capacity keys.
func NewIdempotencyGuard(capacity int) (*IdempotencyGuard, error) {
	if capacity <= 0 {
		capacity = DefaultIdempotencyCapacity
	}
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("create idempotency cache: %w", err)
	}
	return &IdempotencyGuard{seen: cache}, nil
}

// Check claims key. A second Check for the same key is rejected until the key
// is removed or evicted.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	if found, _ := ig.seen.ContainsOrAdd(key, pending{}); found {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}
	return domain.GuardResult{Allowed: true}
}

// Complete stores the response for a claimed key so replays can return it.
func (ig *IdempotencyGuard) Complete(key string, result interface{}) {
	if key == "" {
		return
	}
	ig.seen.Add(key, result)
}

// Result returns the stored response for key. The second value is false while
// the key is unknown or still in flight.
func (ig *IdempotencyGuard) Result(key string) (interface{}, bool) {
	v, ok := ig.seen.Get(key)
	if !ok {
		return nil, false
	}
	if _, inFlight := v.(pending); inFlight {
		return nil, false
	}
	return v, true
}

// Remove deletes a key from the seen set (for retry scenarios).
func (ig *IdempotencyGuard) Remove(key string) {
	ig.seen.Remove(key)
}
