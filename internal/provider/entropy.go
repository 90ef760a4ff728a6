// Package provider holds adapters to external sources the engine depends on.
package provider

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	mrand "math/rand/v2"
)

// CryptoSource yields uniform integers from crypto/rand. Safe for concurrent use.
// If the OS entropy pool ever fails, it logs and falls back to the runtime's
// auto-seeded generator rather than failing quest selection.
type CryptoSource struct {
	logger *slog.Logger
}

// NewCryptoSource creates the production random source for quest selection.
func NewCryptoSource(logger *slog.Logger) *CryptoSource {
	return &CryptoSource{logger: logger}
}

// IntN returns a uniform integer in [0, n). Returns 0 when n <= 1.
func (s *CryptoSource) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := csprngInt(n)
	if err != nil {
		s.logger.Warn("csprng unavailable, falling back to runtime rng", "error", err)
		return mrand.IntN(n)
	}
	return v
}

func csprngInt(n int) (int, error) {
	r, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("csprng: %w", err)
	}
	return int(r.Int64()), nil
}
