//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// DecodeJSON decodes and closes a response body.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst), "decode %s response", resp.Request.URL.Path)
}

// AssertStatus checks the HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "%s %s", resp.Request.Method, resp.Request.URL.Path)
}

// AssertErrorCode decodes an error body and checks its code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &body)
	assert.Equal(t, expectedCode, body.Code, "message: %s", body.Message)
}

// LoadState reads the persisted record for userID straight from the store.
func LoadState(t *testing.T, env *TestEnv, userID string) *domain.UserGamificationState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := env.Store.Get(ctx, userID)
	require.NoError(t, err, "load %s", userID)
	return st
}

// CountOutboxEvents returns the number of pending outbox events of evtType for a user.
func CountOutboxEvents(t *testing.T, env *TestEnv, userID string, evtType domain.EventType) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM event_outbox WHERE "aggregateId" = $1 AND "eventType" = $2`,
		userID, string(evtType)).Scan(&count)
	require.NoError(t, err)
	return count
}
