// Package admin is the realm-scoped management surface for engine
// secrets: list, read, create-or-replace with optional random
// generation, and delete. Every mutation synchronously evicts the
// resolver cache entry so no replica serves a stale value afterwards.
package admin

import (
	"context"
	"regexp"
	"strings"

	"github.com/openbao-tools/realmsecrets/internal/baoclient"
	"github.com/openbao-tools/realmsecrets/internal/cache"
	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/logging"
	"github.com/openbao-tools/realmsecrets/internal/metrics"
	"github.com/openbao-tools/realmsecrets/internal/resolver"
)

// secretField is the record field the admin surface manages.
const secretField = "secret"

// idPattern is checked before any network traffic happens for an id.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Authorizer decides whether the caller may manage a realm's secrets.
// The resource itself never implements authorization; the platform
// injects its own policy here.
type Authorizer interface {
	// RequireManageRealm returns AuthorizationError when the caller
	// must not manage secrets of the realm.
	RequireManageRealm(ctx context.Context, realm string) error
}

// AllowAll authorizes every caller. For tests and single-tenant use.
type AllowAll struct{}

func (AllowAll) RequireManageRealm(context.Context, string) error { return nil }

// Secret is the admin view of a stored secret.
type Secret struct {
	ID string `json:"id"`
	// VaultID is the full reference token realm configuration embeds.
	VaultID string `json:"vault_id"`
	Value   string `json:"secret"`
}

// Resource implements the realm secret CRUD operations. Like the
// resolver it is stateless against the engine: every operation logs in
// with a fresh client and discards it.
type Resource struct {
	cfg     resolver.Config
	cache   cache.Cache
	auth    Authorizer
	logger  *logging.Logger
	metrics *metrics.Recorder

	newKV func(ctx context.Context) (baoclient.KV, error)
}

// New creates the admin resource. A nil cache skips eviction; a nil
// authorizer denies nothing.
func New(cfg resolver.Config, c cache.Cache, auth Authorizer, logger *logging.Logger) *Resource {
	if auth == nil {
		auth = AllowAll{}
	}
	r := &Resource{
		cfg:     cfg,
		cache:   c,
		auth:    auth,
		logger:  logger.Named("admin"),
		metrics: metrics.NewRecorder(),
	}
	r.newKV = r.loginKV
	return r
}

func (r *Resource) loginKV(ctx context.Context) (baoclient.KV, error) {
	client, err := baoclient.New(r.cfg.Address, r.logger)
	if err != nil {
		return nil, err
	}
	if r.cfg.CACertificateFile != "" {
		client.WithCACertificateFile(r.cfg.CACertificateFile)
	}
	if err := client.LoginWithKubernetes(ctx, r.cfg.ServiceAccountFile, r.cfg.Role); err != nil {
		return nil, err
	}
	return baoclient.NewKV(client, r.cfg.KVMount, r.cfg.KVVersion)
}

// realmPrefix resolves the configured prefix template for a realm.
func (r *Resource) realmPrefix(realm string) string {
	return strings.TrimRight(resolver.SubstituteRealm(r.cfg.PathPrefix, realm), "/")
}

func (r *Resource) fullPath(realm, id string) string {
	return r.realmPrefix(realm) + "/" + id
}

func checkID(id string) error {
	if !idPattern.MatchString(id) {
		return rserrors.InvalidReferenceError{
			Reference: id,
			Message:   "secret id may only contain letters, digits, '_', '.' and '-'",
		}
	}
	return nil
}

// VaultID returns the reference token for a secret id.
func VaultID(id string) string {
	return "${vault." + id + "}"
}

// ListSecretIDs enumerates the secret ids stored for a realm. Nested
// directories under the realm prefix are not ids and are skipped.
func (r *Resource) ListSecretIDs(ctx context.Context, realm string) ([]string, error) {
	if err := r.auth.RequireManageRealm(ctx, realm); err != nil {
		return nil, err
	}

	kv, err := r.newKV(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := kv.List(ctx, r.realmPrefix(realm))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, "/") {
			continue
		}
		ids = append(ids, k)
	}
	return ids, nil
}

// GetSecret reads the secret stored under id for a realm.
func (r *Resource) GetSecret(ctx context.Context, realm, id string) (Secret, error) {
	if err := checkID(id); err != nil {
		return Secret{}, err
	}
	if err := r.auth.RequireManageRealm(ctx, realm); err != nil {
		return Secret{}, err
	}

	kv, err := r.newKV(ctx)
	if err != nil {
		return Secret{}, err
	}

	path := r.fullPath(realm, id)
	record, err := kv.Get(ctx, path)
	if err != nil {
		return Secret{}, err
	}
	value, ok := record[secretField]
	if !ok || value == "" {
		return Secret{}, rserrors.SecretNotFoundError{Path: path, Field: secretField}
	}
	return Secret{ID: id, VaultID: VaultID(id), Value: value}, nil
}

// PutSecret creates or replaces the secret under id. An empty value
// asks for a generated one with the given length and charsets. The
// stored triple is returned either way.
func (r *Resource) PutSecret(ctx context.Context, realm, id, value string, length int, charsets []string) (Secret, error) {
	if err := checkID(id); err != nil {
		return Secret{}, err
	}
	if err := r.auth.RequireManageRealm(ctx, realm); err != nil {
		return Secret{}, err
	}

	if value == "" {
		generated, err := GenerateSecret(length, charsets)
		if err != nil {
			return Secret{}, err
		}
		value = generated
	}

	kv, err := r.newKV(ctx)
	if err != nil {
		return Secret{}, err
	}

	path := r.fullPath(realm, id)
	if err := kv.Upsert(ctx, path, map[string]string{secretField: value}); err != nil {
		return Secret{}, err
	}
	r.logger.Info("stored secret %s for realm %s", id, realm)
	r.evict(ctx, path)

	return Secret{ID: id, VaultID: VaultID(id), Value: value}, nil
}

// DeleteSecret removes the secret under id. Deleting an absent id is
// idempotent.
func (r *Resource) DeleteSecret(ctx context.Context, realm, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := r.auth.RequireManageRealm(ctx, realm); err != nil {
		return err
	}

	kv, err := r.newKV(ctx)
	if err != nil {
		return err
	}

	path := r.fullPath(realm, id)
	if err := kv.Delete(ctx, path); err != nil {
		return err
	}
	r.logger.Info("deleted secret %s for realm %s", id, realm)
	r.evict(ctx, path)
	return nil
}

// evict drops the resolver cache entry for a mutated path. The eviction
// is synchronous: when a mutation returns, no replica can serve the
// pre-mutation value from cache anymore.
func (r *Resource) evict(ctx context.Context, fullPath string) {
	if r.cache == nil {
		return
	}
	key := fullPath + ":" + secretField
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.Warn("cache eviction failed for %s: %v", key, err)
	}
}
