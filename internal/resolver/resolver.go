package resolver

import (
	"context"
	"strings"

	"github.com/openbao-tools/realmsecrets/internal/baoclient"
	"github.com/openbao-tools/realmsecrets/internal/cache"
	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/logging"
	"github.com/openbao-tools/realmsecrets/internal/metrics"
)

// Config carries everything a resolution needs to reach the engine.
type Config struct {
	// Address is the engine base address.
	Address string
	// CACertificateFile optionally pins the trust anchors.
	CACertificateFile string
	// ServiceAccountFile is the Kubernetes service account token path.
	ServiceAccountFile string
	// Role is the Kubernetes auth role to log in with.
	Role string
	// KVMount is the KV mount name.
	KVMount string
	// KVVersion is 1 or 2.
	KVVersion int
	// PathPrefix is the prefix template, usually "keycloak/%realm%".
	PathPrefix string
	// Grammar selects the reference syntax. Empty means standard.
	Grammar Grammar
}

// Resolver resolves secret references for realms. It is stateless:
// every cache miss builds a fresh client, logs in, reads and discards
// the client, so instances are safe for concurrent use.
type Resolver struct {
	cfg     Config
	cache   cache.Cache
	logger  *logging.Logger
	metrics *metrics.Recorder

	// newKV is swapped in tests that need to gate the engine path.
	newKV func(ctx context.Context) (baoclient.KV, error)
}

// New creates a resolver. A nil cache disables caching and every
// resolution fetches from the engine.
func New(cfg Config, c cache.Cache, logger *logging.Logger) *Resolver {
	r := &Resolver{
		cfg:     cfg,
		cache:   c,
		logger:  logger.Named("resolver"),
		metrics: metrics.NewRecorder(),
	}
	r.newKV = r.loginKV
	return r
}

// loginKV builds an authenticated accessor for a single resolution.
func (r *Resolver) loginKV(ctx context.Context) (baoclient.KV, error) {
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

// CacheKey returns the cache key a resolution of rawReference for the
// realm would use. The admin surface evicts through this after every
// mutation.
func (r *Resolver) CacheKey(rawReference, realm string) (string, error) {
	fullPath, field, err := r.locate(rawReference, realm)
	if err != nil {
		return "", err
	}
	return fullPath + ":" + field, nil
}

// locate turns a raw reference and realm into the engine path and field.
func (r *Resolver) locate(rawReference, realm string) (fullPath, field string, err error) {
	ref := SubstituteRealm(StripToken(rawReference), realm)
	prefix := strings.TrimRight(SubstituteRealm(r.cfg.PathPrefix, realm), "/")

	var suffix string
	if r.cfg.Grammar == GrammarLegacy {
		suffix, field, err = ParseLegacyReference(ref)
	} else {
		suffix, field, err = ParseReference(ref)
	}
	if err != nil {
		return "", "", err
	}

	if suffix == "" {
		// Only the legacy no-separator form reads the bare prefix.
		if r.cfg.Grammar != GrammarLegacy {
			return "", "", rserrors.InvalidReferenceError{
				Reference: rawReference,
				Message:   "path suffix is empty after realm substitution",
			}
		}
		return prefix, field, nil
	}
	return prefix + "/" + suffix, field, nil
}

// Resolve returns the secret value the reference points at for the
// given realm. The cache is consulted first when configured; there is
// intentionally no locking around the get/fetch/put sequence, so two
// concurrent resolutions of the same key may both fetch. They store the
// same value and the cache converges.
func (r *Resolver) Resolve(ctx context.Context, rawReference, realm string) (string, error) {
	fullPath, field, err := r.locate(rawReference, realm)
	if err != nil {
		return "", err
	}
	key := fullPath + ":" + field

	if r.cache != nil {
		value, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			// A broken cache degrades to a fetch, it never fails the
			// resolution.
			r.logger.Debug("cache read failed for %s: %v", key, err)
		} else if ok {
			r.metrics.RecordCacheLookup("hit")
			r.logger.Debug("cache hit for %s", key)
			return value, nil
		}
		r.metrics.RecordCacheLookup("miss")
	}

	value, err := r.fetch(ctx, fullPath, field)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, key, value); err != nil {
			r.logger.Debug("cache write failed for %s: %v", key, err)
		}
	}
	return value, nil
}

// fetch reads the field straight from the engine with a fresh login.
func (r *Resolver) fetch(ctx context.Context, fullPath, field string) (string, error) {
	r.logger.Debug("fetching %s field %s from engine", fullPath, field)

	kv, err := r.newKV(ctx)
	if err != nil {
		r.metrics.RecordEngineFetch("error")
		return "", err
	}

	record, err := kv.Get(ctx, fullPath)
	if err != nil {
		if rserrors.IsNotFound(err) {
			r.metrics.RecordEngineFetch("not_found")
			return "", rserrors.SecretNotFoundError{Path: fullPath, Field: field}
		}
		r.metrics.RecordEngineFetch("error")
		return "", err
	}

	value, ok := record[field]
	if !ok || value == "" {
		r.metrics.RecordEngineFetch("not_found")
		return "", rserrors.SecretNotFoundError{Path: fullPath, Field: field}
	}
	r.metrics.RecordEngineFetch("success")
	return value, nil
}
