// Package config loads and validates the service configuration: YAML
// decoded into a typed struct, checked against an embedded JSON schema
// and then semantically validated.
package config

import (
	_ "embed"
	"encoding/json"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/logging"
	"github.com/openbao-tools/realmsecrets/internal/resolver"
)

//go:embed schema.json
var schemaJSON []byte

// Defaults applied after decoding.
const (
	DefaultAuthMethod         = "kubernetes"
	DefaultServiceAccountFile = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	DefaultKVMount            = "secret"
	DefaultKVPathPrefix       = "keycloak/%realm%"
	DefaultKVVersion          = 2
	DefaultReferenceGrammar   = "standard"
	DefaultListen             = ":8201"
	DefaultCacheTTL           = 5 * time.Minute
)

// Config is the full service configuration.
type Config struct {
	Address            string      `yaml:"address" json:"address"`
	AuthMethod         string      `yaml:"auth-method" json:"auth-method,omitempty"`
	ServiceAccountFile string      `yaml:"service-account-file" json:"service-account-file,omitempty"`
	CACertificateFile  string      `yaml:"ca-certificate-file" json:"ca-certificate-file,omitempty"`
	Role               string      `yaml:"role" json:"role,omitempty"`
	KVMount            string      `yaml:"kv-mount" json:"kv-mount,omitempty"`
	KVPathPrefix       string      `yaml:"kv-path-prefix" json:"kv-path-prefix,omitempty"`
	KVVersion          int         `yaml:"kv-version" json:"kv-version,omitempty"`
	ReferenceGrammar   string      `yaml:"reference-grammar" json:"reference-grammar,omitempty"`
	Listen             string      `yaml:"listen" json:"listen,omitempty"`
	Cache              CacheConfig `yaml:"cache" json:"cache,omitempty"`
}

// CacheConfig configures the resolved-value cache. Caching is enabled
// by setting Name; an absent block disables it.
type CacheConfig struct {
	Name    string `yaml:"name" json:"name,omitempty"`
	Address string `yaml:"address" json:"address,omitempty"`
	TTL     string `yaml:"ttl" json:"ttl,omitempty"`
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool { return c.Name != "" }

// TTLDuration parses the configured entry lifetime.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return DefaultCacheTTL, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0, rserrors.ConfigError{
			Field:      "cache.ttl",
			Value:      c.TTL,
			Message:    "must be a non-negative Go duration",
			Suggestion: "use a value like 30s or 5m",
		}
	}
	return d, nil
}

// Load reads, decodes and validates the configuration at path.
func Load(path string, logger *logging.Logger) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, rserrors.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "reading configuration file: " + err.Error(),
		}
	}
	return Parse(raw, logger)
}

// Parse decodes and validates raw YAML configuration.
func Parse(raw []byte, logger *logging.Logger) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(strings.NewReader(string(raw)))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, rserrors.ConfigError{
			Field:   "config",
			Message: "parsing YAML: " + err.Error(),
		}
	}

	cfg.applyDefaults()
	if err := cfg.validateSchema(); err != nil {
		return nil, err
	}
	if err := cfg.validate(logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AuthMethod == "" {
		c.AuthMethod = DefaultAuthMethod
	}
	if c.ServiceAccountFile == "" {
		c.ServiceAccountFile = DefaultServiceAccountFile
	}
	if c.KVMount == "" {
		c.KVMount = DefaultKVMount
	}
	if c.KVPathPrefix == "" {
		c.KVPathPrefix = DefaultKVPathPrefix
	}
	if c.KVVersion == 0 {
		c.KVVersion = DefaultKVVersion
	}
	if c.ReferenceGrammar == "" {
		c.ReferenceGrammar = DefaultReferenceGrammar
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
}

// validateSchema checks the decoded document against the embedded JSON
// schema. Structural problems surface here with the schema's wording.
func (c *Config) validateSchema() error {
	doc, err := json.Marshal(c)
	if err != nil {
		return rserrors.ConfigError{Field: "config", Message: "marshaling for validation: " + err.Error()}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return rserrors.ConfigError{Field: "config", Message: "schema validation: " + err.Error()}
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return rserrors.ConfigError{
			Field:   "config",
			Message: "schema validation failed: " + strings.Join(messages, "; "),
		}
	}
	return nil
}

// validate applies the semantic rules the schema cannot express.
func (c *Config) validate(logger *logging.Logger) error {
	parsed, err := url.Parse(c.Address)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rserrors.ConfigError{
			Field:      "address",
			Value:      c.Address,
			Message:    "must be an absolute http(s) URL",
			Suggestion: "e.g. https://openbao.vault.svc:8200",
		}
	}

	if parsed.Scheme == "https" && c.CACertificateFile == "" && logger != nil {
		logger.Warn("address uses HTTPS but no ca-certificate-file is set; the system trust store must cover the engine certificate")
	}

	if c.CACertificateFile != "" {
		if _, err := os.Stat(c.CACertificateFile); err != nil {
			return rserrors.ConfigError{
				Field:   "ca-certificate-file",
				Value:   c.CACertificateFile,
				Message: "file is not readable: " + err.Error(),
			}
		}
	}

	if c.Cache.Enabled() {
		if _, err := c.Cache.TTLDuration(); err != nil {
			return err
		}
		if c.Cache.Name == "redis" && c.Cache.Address == "" {
			return rserrors.ConfigError{
				Field:      "cache.address",
				Message:    "required when cache.name is redis",
				Suggestion: "e.g. redis://cache.svc:6379/0",
			}
		}
	}
	return nil
}

// ResolverConfig converts the file configuration into the resolver's
// engine settings.
func (c *Config) ResolverConfig() resolver.Config {
	grammar := resolver.GrammarStandard
	if c.ReferenceGrammar == "legacy" {
		grammar = resolver.GrammarLegacy
	}
	return resolver.Config{
		Address:            c.Address,
		CACertificateFile:  c.CACertificateFile,
		ServiceAccountFile: c.ServiceAccountFile,
		Role:               c.Role,
		KVMount:            c.KVMount,
		KVVersion:          c.KVVersion,
		PathPrefix:         c.KVPathPrefix,
		Grammar:            grammar,
	}
}
