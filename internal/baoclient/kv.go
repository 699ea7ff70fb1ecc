package baoclient

import (
	"context"
	"net/http"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// KV is a version-polymorphic key/value accessor against a single
// mount. The backend version is fixed at construction; there is no
// per-call version dispatch.
//
// Every operation requires that a caller token is already attached to
// the underlying client (via LoginWithKubernetes or WithToken).
type KV interface {
	// List enumerates the keys directly under pathPrefix. A prefix with
	// no children is a normal state and yields an empty slice, not an
	// error.
	List(ctx context.Context, pathPrefix string) ([]string, error)

	// Get reads all fields stored at path. An absent path or record
	// yields SecretNotFoundError.
	Get(ctx context.Context, path string) (map[string]string, error)

	// Upsert creates or replaces the record at path.
	Upsert(ctx context.Context, path string, data map[string]string) error

	// Delete removes the record at path. Deleting an absent path is
	// idempotent and not an error.
	Delete(ctx context.Context, path string) error
}

// NewKV returns a KV accessor for the given mount and engine version.
// Only versions 1 and 2 exist; anything else fails at construction.
func NewKV(client *Client, mount string, version int) (KV, error) {
	switch version {
	case 1:
		return &kv1{client: client, mount: mount}, nil
	case 2:
		return &kv2{client: client, mount: mount}, nil
	default:
		return nil, rserrors.ConfigError{
			Field:      "kv-version",
			Value:      version,
			Message:    "must be either 1 or 2",
			Suggestion: "set kv-version to match the engine's KV mount version",
		}
	}
}

// kv1 speaks the flat KV version 1 wire shape: record fields live in the
// top-level data object.
type kv1 struct {
	client *Client
	mount  string
}

func (k *kv1) List(ctx context.Context, pathPrefix string) ([]string, error) {
	return listKeys(ctx, k.client, listPath(k.mount, "", pathPrefix))
}

func (k *kv1) Get(ctx context.Context, path string) (map[string]string, error) {
	resp, err := k.client.rest.Send(ctx, "v1/"+k.mount+"/"+path, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, rserrors.SecretNotFoundError{Path: path}
	}
	if !resp.IsSuccess() {
		return nil, readFailure(resp, path)
	}
	record, ok := lookupObject(resp.Doc, "data")
	if !ok {
		return nil, rserrors.SecretNotFoundError{Path: path}
	}
	return toStringMap(record), nil
}

func (k *kv1) Upsert(ctx context.Context, path string, data map[string]string) error {
	return writeRecord(ctx, k.client, "v1/"+k.mount+"/"+path, data)
}

func (k *kv1) Delete(ctx context.Context, path string) error {
	return deleteRecord(ctx, k.client, "v1/"+k.mount+"/"+path, path)
}

// kv2 speaks the versioned KV version 2 wire shape: data operations go
// through the data/ segment with records nested under data.data, and
// listing goes through metadata/.
type kv2 struct {
	client *Client
	mount  string
}

func (k *kv2) List(ctx context.Context, pathPrefix string) ([]string, error) {
	return listKeys(ctx, k.client, listPath(k.mount, "metadata", pathPrefix))
}

func (k *kv2) Get(ctx context.Context, path string) (map[string]string, error) {
	resp, err := k.client.rest.Send(ctx, "v1/"+k.mount+"/data/"+path, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, rserrors.SecretNotFoundError{Path: path}
	}
	if !resp.IsSuccess() {
		return nil, readFailure(resp, path)
	}
	record, ok := lookupObject(resp.Doc, "data", "data")
	if !ok {
		return nil, rserrors.SecretNotFoundError{Path: path}
	}
	return toStringMap(record), nil
}

func (k *kv2) Upsert(ctx context.Context, path string, data map[string]string) error {
	return writeRecord(ctx, k.client, "v1/"+k.mount+"/data/"+path, map[string]interface{}{
		"data": data,
	})
}

func (k *kv2) Delete(ctx context.Context, path string) error {
	return deleteRecord(ctx, k.client, "v1/"+k.mount+"/data/"+path, path)
}

// listPath builds the LIST endpoint. The prefix segment keeps its
// trailing slash so the engine treats it as a directory listing.
func listPath(mount, segment, pathPrefix string) string {
	p := "v1/" + mount + "/"
	if segment != "" {
		p += segment + "/"
	}
	if pathPrefix != "" {
		p += pathPrefix + "/"
	}
	return p
}

func listKeys(ctx context.Context, client *Client, endpoint string) ([]string, error) {
	resp, err := client.rest.Send(ctx, endpoint, "LIST", nil)
	if err != nil {
		return nil, err
	}
	// An unconfigured or empty namespace is a normal state.
	if resp.StatusCode == http.StatusNotFound {
		client.logger.Debug("no keys found at %s", endpoint)
		return []string{}, nil
	}
	if !resp.IsSuccess() {
		return nil, rserrors.TransportError{
			StatusCode: resp.StatusCode,
			Message:    "listing keys under " + endpoint,
		}
	}

	keysNode, _ := lookupObject(resp.Doc, "data")
	keys := []string{}
	if arr, ok := keysNode["keys"].([]interface{}); ok {
		for _, k := range arr {
			if s, ok := k.(string); ok {
				keys = append(keys, s)
			}
		}
	}
	return keys, nil
}

func writeRecord(ctx context.Context, client *Client, endpoint string, body interface{}) error {
	resp, err := client.rest.Send(ctx, endpoint, http.MethodPost, body)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return rserrors.TransportError{
			StatusCode: resp.StatusCode,
			Message:    "writing record to " + endpoint,
		}
	}
	client.logger.Debug("wrote record to %s", endpoint)
	return nil
}

func deleteRecord(ctx context.Context, client *Client, endpoint, path string) error {
	resp, err := client.rest.Send(ctx, endpoint, http.MethodDelete, nil)
	if err != nil {
		return err
	}
	// REST DELETE semantics: removing an absent record is not an error.
	if !resp.IsSuccess() && resp.StatusCode != http.StatusNotFound {
		return rserrors.TransportError{
			StatusCode: resp.StatusCode,
			Message:    "deleting record at " + path,
		}
	}
	client.logger.Debug("deleted record at %s", path)
	return nil
}

func toStringMap(record map[string]interface{}) map[string]string {
	out := make(map[string]string, len(record))
	for k, v := range record {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// readFailure classifies a failed read: permission problems surface as
// auth errors so callers can distinguish them from missing records.
func readFailure(resp *Response, path string) error {
	if resp.StatusCode == http.StatusForbidden {
		return rserrors.AuthError{
			StatusCode: resp.StatusCode,
			Message:    "permission denied reading " + path,
		}
	}
	return rserrors.TransportError{
		StatusCode: resp.StatusCode,
		Message:    "reading record at " + path,
	}
}
