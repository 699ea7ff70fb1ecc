package baoclient

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/enginetest"
)

// startKV spins up a fake engine of the given version and returns an
// authenticated accessor against it.
func startKV(t *testing.T, version int) (*enginetest.Engine, KV) {
	t.Helper()

	engine := enginetest.New("secret", version)
	addr := engine.Start()
	t.Cleanup(engine.Close)

	client, err := New(addr, testLogger())
	require.NoError(t, err)
	client.WithToken(engine.Token)

	kv, err := NewKV(client, "secret", version)
	require.NoError(t, err)
	return engine, kv
}

func TestNewKVUnsupportedVersion(t *testing.T) {
	t.Parallel()

	client, err := New("http://127.0.0.1:1", testLogger())
	require.NoError(t, err)

	_, err = NewKV(client, "secret", 3)
	var ce rserrors.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "kv-version", ce.Field)
}

func TestKVRoundTrip(t *testing.T) {
	t.Parallel()

	for _, version := range []int{1, 2} {
		version := version
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			t.Parallel()

			_, kv := startKV(t, version)
			ctx := context.Background()

			record := map[string]string{"secret": "hunter2", "note": "db credentials"}
			require.NoError(t, kv.Upsert(ctx, "keycloak/master/db", record))

			got, err := kv.Get(ctx, "keycloak/master/db")
			require.NoError(t, err)
			assert.Equal(t, record, got)

			// Upsert replaces the whole record, it does not merge.
			require.NoError(t, kv.Upsert(ctx, "keycloak/master/db", map[string]string{"secret": "rotated"}))
			got, err = kv.Get(ctx, "keycloak/master/db")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"secret": "rotated"}, got)
		})
	}
}

func TestKVGetAbsentPath(t *testing.T) {
	t.Parallel()

	for _, version := range []int{1, 2} {
		version := version
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			t.Parallel()

			_, kv := startKV(t, version)
			_, err := kv.Get(context.Background(), "keycloak/master/absent")
			assert.True(t, rserrors.IsNotFound(err), "expected not-found, got %v", err)
		})
	}
}

func TestKVGetBadToken(t *testing.T) {
	t.Parallel()

	engine := enginetest.New("secret", 1)
	addr := engine.Start()
	t.Cleanup(engine.Close)
	engine.Put("app/db", map[string]string{"secret": "hunter2"})

	client, err := New(addr, testLogger())
	require.NoError(t, err)
	client.WithToken("wrong-token")

	kv, err := NewKV(client, "secret", 1)
	require.NoError(t, err)

	_, err = kv.Get(context.Background(), "app/db")
	var ae rserrors.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 403, ae.StatusCode)
}

func TestKVList(t *testing.T) {
	t.Parallel()

	for _, version := range []int{1, 2} {
		version := version
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			t.Parallel()

			_, kv := startKV(t, version)
			ctx := context.Background()

			require.NoError(t, kv.Upsert(ctx, "keycloak/master/db", map[string]string{"secret": "a"}))
			require.NoError(t, kv.Upsert(ctx, "keycloak/master/smtp", map[string]string{"secret": "b"}))
			require.NoError(t, kv.Upsert(ctx, "keycloak/other/ldap", map[string]string{"secret": "c"}))

			keys, err := kv.List(ctx, "keycloak/master")
			require.NoError(t, err)
			assert.Equal(t, []string{"db", "smtp"}, keys)

			// Directory children carry the trailing-slash marker.
			keys, err = kv.List(ctx, "keycloak")
			require.NoError(t, err)
			assert.Equal(t, []string{"master/", "other/"}, keys)
		})
	}
}

func TestKVListEmptyPrefix(t *testing.T) {
	t.Parallel()

	_, kv := startKV(t, 2)
	keys, err := kv.List(context.Background(), "keycloak/empty-realm")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NotNil(t, keys)
}

func TestKVDeleteIdempotent(t *testing.T) {
	t.Parallel()

	for _, version := range []int{1, 2} {
		version := version
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			t.Parallel()

			engine, kv := startKV(t, version)
			ctx := context.Background()

			require.NoError(t, kv.Upsert(ctx, "keycloak/master/db", map[string]string{"secret": "a"}))
			require.NoError(t, kv.Delete(ctx, "keycloak/master/db"))
			assert.Nil(t, engine.Record("keycloak/master/db"))

			// Deleting again must not fail.
			require.NoError(t, kv.Delete(ctx, "keycloak/master/db"))
		})
	}
}
