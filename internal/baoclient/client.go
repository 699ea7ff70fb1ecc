// Package baoclient is a minimal client for the OpenBao / HashiCorp
// Vault HTTP API: Kubernetes workload login, health probing and
// version-polymorphic KV access. It deliberately does not use the
// vendor SDK; the wire surface it needs is four endpoints.
package baoclient

import (
	"context"
	"net/http"
	"os"
	"strings"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/logging"
)

const kubernetesLoginPath = "/v1/auth/kubernetes/login"

// tokenHeader carries the caller token on every KV operation.
const tokenHeader = "X-Vault-Token"

// Client wraps a RestClient with the engine's auth and health endpoints.
// A Client is intended for a single logical operation scope: construct,
// log in, perform KV calls, discard. The caller token obtained by login
// is owned by this instance and never shared.
type Client struct {
	rest   *RestClient
	logger *logging.Logger
}

// New creates a client for the engine at baseAddress.
func New(baseAddress string, logger *logging.Logger) (*Client, error) {
	rest, err := NewRestClient(baseAddress, logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		rest:   rest,
		logger: logger.Named("baoclient"),
	}, nil
}

// WithCACertificateFile configures a custom trust anchor bundle.
func (c *Client) WithCACertificateFile(path string) *Client {
	c.rest.WithCACertificateFile(path)
	return c
}

// WithToken attaches a pre-obtained caller token, bypassing login.
func (c *Client) WithToken(token string) *Client {
	c.rest.SetHeader(tokenHeader, token)
	return c
}

// LoginWithKubernetes exchanges a service-account JWT and a role for a
// caller token and attaches it to the transport. The token file is read
// fresh on every login since the underlying credential may rotate.
func (c *Client) LoginWithKubernetes(ctx context.Context, tokenFile, role string) error {
	c.logger.Debug("logging in with Kubernetes auth, role %s", role)

	jwt, err := os.ReadFile(tokenFile)
	if err != nil {
		return rserrors.ConfigError{
			Field:   "service-account-file",
			Value:   tokenFile,
			Message: "reading service account token: " + err.Error(),
		}
	}
	if len(strings.TrimSpace(string(jwt))) == 0 {
		return rserrors.ConfigError{
			Field:   "service-account-file",
			Value:   tokenFile,
			Message: "service account token is empty",
		}
	}

	resp, err := c.rest.Send(ctx, kubernetesLoginPath, http.MethodPost, map[string]string{
		"role": role,
		"jwt":  string(jwt),
	})
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		// The body is the engine's own error output, safe to log.
		return rserrors.AuthError{
			StatusCode: resp.StatusCode,
			Message:    "login rejected by " + c.rest.BaseURL() + ": " + docString(resp.Doc),
		}
	}

	token, _ := lookupString(resp.Doc, "auth", "client_token")
	if token == "" {
		return rserrors.AuthError{
			StatusCode: resp.StatusCode,
			Message:    "login response missing auth.client_token",
		}
	}

	c.logger.Debug("login successful, token obtained")
	c.rest.SetHeader(tokenHeader, token)
	return nil
}

// Ready probes the engine health endpoint.
func (c *Client) Ready(ctx context.Context) bool {
	resp, err := c.rest.Send(ctx, "v1/sys/health", http.MethodGet, nil)
	return err == nil && resp.IsSuccess()
}

// lookupString walks nested JSON objects and returns the string at the
// given key path.
func lookupString(doc map[string]interface{}, path ...string) (string, bool) {
	var current interface{} = doc
	for _, key := range path {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = obj[key]
		if !ok {
			return "", false
		}
	}
	s, ok := current.(string)
	return s, ok
}

// lookupObject walks nested JSON objects and returns the object at the
// given key path.
func lookupObject(doc map[string]interface{}, path ...string) (map[string]interface{}, bool) {
	var current interface{} = doc
	for _, key := range path {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	obj, ok := current.(map[string]interface{})
	return obj, ok
}

// docString renders a response document for error messages. Engine error
// documents contain only the engine's own diagnostics.
func docString(doc map[string]interface{}) string {
	if len(doc) == 0 {
		return "(empty body)"
	}
	if errs, ok := doc["errors"].([]interface{}); ok {
		parts := make([]string, 0, len(errs))
		for _, e := range errs {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return "(unrecognized error body)"
}
