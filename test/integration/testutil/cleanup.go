//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every table the progression store writes.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range []string{"event_outbox", "user_gamification"} {
		if _, err := env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			env.t.Logf("truncate %s: %v", table, err)
		}
	}
}
