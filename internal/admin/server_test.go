package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbao-tools/realmsecrets/internal/cache"
	"github.com/openbao-tools/realmsecrets/internal/enginetest"
)

// startServer exposes an admin resource over httptest.
func startServer(t *testing.T, version int, auth Authorizer) (*enginetest.Engine, *httptest.Server) {
	t.Helper()

	engine, resource, _ := startResource(t, version, cache.NewMemory(0), auth)
	srv := httptest.NewServer(NewServer(DefaultServerConfig(), resource, nil, testLogger()).Handler())
	t.Cleanup(srv.Close)
	return engine, srv
}

func do(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	doc := map[string]interface{}{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	}
	return resp, doc
}

// TestServerLifecycleKV2 walks the full admin scenario against a KV
// version 2 engine: create, read back, delete, read gone.
func TestServerLifecycleKV2(t *testing.T) {
	t.Parallel()

	_, srv := startServer(t, 2, nil)
	base := srv.URL + "/admin/realms/master/secrets"

	resp, doc := do(t, http.MethodPut, base+"/test-secret-1", map[string]string{"secret": "my-secret-value-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test-secret-1", doc["id"])
	assert.Equal(t, "${vault.test-secret-1}", doc["vault_id"])
	assert.Equal(t, "my-secret-value-1", doc["secret"])

	resp, doc = do(t, http.MethodGet, base+"/test-secret-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "my-secret-value-1", doc["secret"])

	resp, doc = do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"test-secret-1"}, doc["secret_ids"])

	resp, _ = do(t, http.MethodDelete, base+"/test-secret-1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, base+"/test-secret-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerGeneratesSecret(t *testing.T) {
	t.Parallel()

	_, srv := startServer(t, 1, nil)
	url := srv.URL + "/admin/realms/master/secrets/generated?length=32&charset=lower,digit"

	resp, doc := do(t, http.MethodPut, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	value, _ := doc["secret"].(string)
	assert.Len(t, value, 32)
}

func TestServerParameterErrors(t *testing.T) {
	t.Parallel()

	_, srv := startServer(t, 2, nil)
	base := srv.URL + "/admin/realms/master/secrets"

	cases := []struct {
		name, method, url string
	}{
		{"bad id", http.MethodPut, base + "/bad%20id"},
		{"length not a number", http.MethodPut, base + "/ok?length=sixty"},
		{"length out of range", http.MethodPut, base + "/ok?length=4096"},
		{"unknown charset", http.MethodPut, base + "/ok?charset=emoji"},
	}
	for _, c := range cases {
		resp, _ := do(t, c.method, c.url, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, c.name)
	}
}

func TestServerAuthorization(t *testing.T) {
	t.Parallel()

	engine, srv := startServer(t, 2, denyAll{})
	base := srv.URL + "/admin/realms/master/secrets"

	for _, c := range []struct{ method, url string }{
		{http.MethodGet, base},
		{http.MethodGet, base + "/smtp"},
		{http.MethodPut, base + "/smtp"},
		{http.MethodDelete, base + "/smtp"},
	} {
		resp, _ := do(t, c.method, c.url, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "%s %s", c.method, c.url)
	}
	assert.EqualValues(t, 0, engine.Logins())
}

func TestServerHealthStates(t *testing.T) {
	t.Parallel()

	_, resource, _ := startResource(t, 2, nil, nil)

	for _, engineUp := range []bool{true, false} {
		engineUp := engineUp
		s := NewServer(DefaultServerConfig(), resource, func(context.Context) bool { return engineUp }, testLogger())
		srv := httptest.NewServer(s.Handler())

		resp, doc := do(t, http.MethodGet, srv.URL+"/health", nil)
		if engineUp {
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "ready", doc["engine"])
		} else {
			assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			assert.Equal(t, "degraded", doc["status"])
		}
		srv.Close()
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	t.Parallel()

	_, srv := startServer(t, 2, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
