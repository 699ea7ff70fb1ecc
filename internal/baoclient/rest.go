package baoclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/logging"
	"github.com/openbao-tools/realmsecrets/internal/pemtrust"
)

const (
	// DefaultConnectTimeout bounds TCP connection establishment.
	DefaultConnectTimeout = 3 * time.Second
	// DefaultRequestTimeout bounds the whole request including body read.
	DefaultRequestTimeout = 10 * time.Second

	// maxBodyPreview limits how much of a non-JSON error body is carried
	// in error messages. Full bodies are never included.
	maxBodyPreview = 200
)

// Methods accepted by the transport. LIST is the engine's own extension
// method for enumerating keys under a path.
var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	"LIST":            true,
}

// Response is a decoded engine response: the HTTP status and the parsed
// JSON document. Doc is never nil for successful decodes; a 2xx response
// with an empty or non-JSON body decodes to an empty document.
type Response struct {
	StatusCode int
	Doc        map[string]interface{}
}

// IsSuccess reports whether the response status is in the 2xx class.
func (r *Response) IsSuccess() bool {
	return r.StatusCode/100 == 2
}

// IsError reports whether the response status is in the 4xx or 5xx class.
func (r *Response) IsError() bool {
	class := r.StatusCode / 100
	return class == 4 || class == 5
}

// RestClient issues JSON requests against the secret engine's base
// address. Headers set by the caller (for example X-Vault-Token) are
// attached to every request until cleared, supporting reuse of one
// transport across re-authentications as different principals.
//
// The client performs no retries; retry policy, if any, belongs to the
// caller.
type RestClient struct {
	baseURL    *url.URL
	caCertFile string
	headers    map[string]string
	logger     *logging.Logger
	httpClient *http.Client
}

// NewRestClient creates a transport for the given base address.
func NewRestClient(baseAddress string, logger *logging.Logger) (*RestClient, error) {
	base, err := url.Parse(baseAddress)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, rserrors.ConfigError{
			Field:      "address",
			Value:      baseAddress,
			Message:    "not a valid base URL",
			Suggestion: "use the form https://host:port",
		}
	}
	return &RestClient{
		baseURL: base,
		headers: make(map[string]string),
		logger:  logger.Named("rest"),
	}, nil
}

// WithCACertificateFile configures a custom trust anchor bundle for TLS.
// The file content is read and validated on the first request.
func (c *RestClient) WithCACertificateFile(path string) *RestClient {
	c.caCertFile = path
	c.httpClient = nil
	return c
}

// SetHeader attaches a header to all subsequent requests.
func (c *RestClient) SetHeader(key, value string) *RestClient {
	c.headers[key] = value
	return c
}

// ClearHeaders removes every caller-set header.
func (c *RestClient) ClearHeaders() *RestClient {
	c.headers = make(map[string]string)
	return c
}

// BaseURL returns the configured base address.
func (c *RestClient) BaseURL() string {
	return c.baseURL.String()
}

// Send issues a request against the engine. GET, DELETE and LIST carry
// no body; POST and PUT serialize body to JSON unless it is already a
// string. The response document is decoded per the engine's JSON
// conventions.
func (c *RestClient) Send(ctx context.Context, endpoint, method string, body interface{}) (*Response, error) {
	if !allowedMethods[method] {
		return nil, rserrors.TransportError{
			Message: fmt.Sprintf("unsupported HTTP method %q", method),
		}
	}

	var reader io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete, "LIST":
		if body != nil {
			return nil, rserrors.TransportError{
				Message: fmt.Sprintf("%s requests must not carry a body", method),
			}
		}
	default:
		if body == nil {
			return nil, rserrors.TransportError{
				Message: fmt.Sprintf("%s requests require a body", method),
			}
		}
		switch v := body.(type) {
		case string:
			reader = strings.NewReader(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, rserrors.TransportError{Message: "serializing request body to JSON", Err: err}
			}
			reader = bytes.NewReader(encoded)
		}
	}

	target := c.baseURL.JoinPath(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, rserrors.TransportError{Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	client, err := c.getHTTPClient()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending %s request to %s", method, target.Redacted())

	resp, err := client.Do(req)
	if err != nil {
		return nil, rserrors.TransportError{
			Message: fmt.Sprintf("sending %s to %s", method, target.Redacted()),
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (*Response, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rserrors.TransportError{
			StatusCode: resp.StatusCode,
			Message:    "reading response body",
			Err:        err,
		}
	}

	out := &Response{StatusCode: resp.StatusCode, Doc: map[string]interface{}{}}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	if isJSON && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out.Doc); err == nil {
			return out, nil
		}
	}

	// A successful call with an empty or non-JSON body synthesizes an
	// empty document rather than failing.
	if out.IsSuccess() || len(bytes.TrimSpace(raw)) == 0 {
		out.Doc = map[string]interface{}{}
		return out, nil
	}

	preview := string(raw)
	if len(preview) > maxBodyPreview {
		preview = preview[:maxBodyPreview]
	}
	return nil, rserrors.TransportError{
		StatusCode:  resp.StatusCode,
		Message:     "engine returned a non-JSON error body",
		BodyPreview: preview,
	}
}

func (c *RestClient) getHTTPClient() (*http.Client, error) {
	if c.httpClient != nil {
		return c.httpClient, nil
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: DefaultConnectTimeout,
		}).DialContext,
	}

	if c.caCertFile != "" {
		pemBundle, err := os.ReadFile(c.caCertFile)
		if err != nil {
			return nil, rserrors.ConfigError{
				Field:   "ca-certificate-file",
				Value:   c.caCertFile,
				Message: "reading CA certificate file: " + err.Error(),
			}
		}
		pool, err := pemtrust.PoolFromPEM(string(pemBundle))
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}
	}

	c.httpClient = &http.Client{
		Timeout:   DefaultRequestTimeout,
		Transport: transport,
	}
	return c.httpClient, nil
}
