//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/auth"
)

// UserToken mints a user-realm token for userID.
func (env *TestEnv) UserToken(userID string) string {
	env.t.Helper()
	tok, err := env.JWTMgr.GenerateToken(auth.RealmUser, userID, "")
	if err != nil {
		env.t.Fatalf("UserToken: %v", err)
	}
	return tok
}

// ServiceToken mints a service-realm token carrying role.
func (env *TestEnv) ServiceToken(role string) string {
	env.t.Helper()
	tok, err := env.JWTMgr.GenerateToken(auth.RealmService, "test-"+role, role)
	if err != nil {
		env.t.Fatalf("ServiceToken: %v", err)
	}
	return tok
}

// ProvisionUser creates the gamification record for userID through the
// internal API and fails the test unless it was created.
func (env *TestEnv) ProvisionUser(userID string) {
	env.t.Helper()
	resp := env.Do(http.MethodPut, "/internal/users/"+userID, nil, env.ServiceToken(auth.RoleProvision), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("ProvisionUser: expected 201, got %d", resp.StatusCode)
	}
}

// ReportEvent posts one activity event with an optional idempotency key.
func (env *TestEnv) ReportEvent(userID, trigger, idempotencyKey string) *http.Response {
	env.t.Helper()
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	return env.Do(http.MethodPost, "/internal/events",
		map[string]string{"userId": userID, "trigger": trigger},
		env.ServiceToken(auth.RoleIngest), headers)
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodGet, path, nil, "", nil)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodGet, path, nil, token, nil)
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodPost, path, body, token, nil)
}

// Do performs a request with an optional JSON body, bearer token and extra headers.
func (env *TestEnv) Do(method, path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
