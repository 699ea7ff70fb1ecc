// Package commands implements the realmsecrets CLI commands.
package commands

import (
	"github.com/openbao-tools/realmsecrets/internal/admin"
	"github.com/openbao-tools/realmsecrets/internal/cache"
	"github.com/openbao-tools/realmsecrets/internal/config"
	"github.com/openbao-tools/realmsecrets/internal/logging"
	"github.com/openbao-tools/realmsecrets/internal/resolver"
)

// Options carries the global flags into every command.
type Options struct {
	ConfigFile string
	Logger     *logging.Logger
}

func (o *Options) loadConfig() (*config.Config, error) {
	return config.Load(o.ConfigFile, o.Logger)
}

// buildCache constructs the configured cache, or nil when caching is
// disabled.
func buildCache(cfg *config.Config) (cache.Cache, error) {
	if !cfg.Cache.Enabled() {
		return nil, nil
	}
	ttl, err := cfg.Cache.TTLDuration()
	if err != nil {
		return nil, err
	}
	return cache.New(cfg.Cache.Name, cfg.Cache.Address, ttl)
}

func buildResolver(o *Options, cfg *config.Config) (*resolver.Resolver, error) {
	c, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}
	return resolver.New(cfg.ResolverConfig(), c, o.Logger), nil
}

func buildResource(o *Options, cfg *config.Config) (*admin.Resource, error) {
	c, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}
	return admin.New(cfg.ResolverConfig(), c, nil, o.Logger), nil
}
