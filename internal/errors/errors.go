// Package errors defines the typed error taxonomy shared across the
// secret engine client, the resolver and the admin surface. Callers
// branch on error kind with errors.As, never by parsing messages.
package errors

import (
	"errors"
	"fmt"
)

// ConfigError reports bad or missing configuration. It is fatal at
// construction time and never retried.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message
	if e.Suggestion != "" {
		msg += "\n  Try: " + e.Suggestion
	}
	return msg
}

// DecodeError reports malformed PEM or certificate material. Fatal for
// the transport instance that was being built.
type DecodeError struct {
	Message string
	Err     error
}

func (e DecodeError) Error() string {
	if e.Err != nil {
		return "decode error: " + e.Message + ": " + e.Err.Error()
	}
	return "decode error: " + e.Message
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

// AuthError reports a rejected login or a malformed login response.
// The body is the engine's own error output and is safe to log.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return "authentication failed: " + e.Message
}

// TransportError reports a network failure, an interrupted call or an
// unexpected response shape. BodyPreview carries at most the first 200
// characters of a non-JSON error body; full bodies are never included
// so secret material cannot leak into logs.
type TransportError struct {
	StatusCode  int
	Message     string
	BodyPreview string
	Err         error
}

func (e TransportError) Error() string {
	msg := "transport error"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	msg += ": " + e.Message
	if e.BodyPreview != "" {
		msg += ": " + e.BodyPreview
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// SecretNotFoundError reports an absent secret path or field. It is
// distinguished from transport failures so the admin boundary can map
// it to a 404.
type SecretNotFoundError struct {
	Path  string
	Field string
}

func (e SecretNotFoundError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("secret not found at path '%s' field '%s'", e.Path, e.Field)
	}
	return fmt.Sprintf("secret not found at path '%s'", e.Path)
}

// InvalidReferenceError reports a malformed reference token or an id
// that fails the character-class check. Mapped to 400 at the admin
// boundary.
type InvalidReferenceError struct {
	Reference string
	Message   string
}

func (e InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid secret reference '%s': %s", e.Reference, e.Message)
}

// AuthorizationError reports that the caller lacks the permission to
// manage realm secrets. Mapped to 403 at the admin boundary. The core
// never performs authorization itself; this is raised by the injected
// Authorizer collaborator.
type AuthorizationError struct {
	Realm   string
	Message string
}

func (e AuthorizationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("not authorized to manage secrets for realm '%s': %s", e.Realm, e.Message)
	}
	return fmt.Sprintf("not authorized to manage secrets for realm '%s'", e.Realm)
}

// IsNotFound reports whether err is a SecretNotFoundError.
func IsNotFound(err error) bool {
	var nf SecretNotFoundError
	return errors.As(err, &nf)
}

// IsInvalidReference reports whether err is an InvalidReferenceError.
func IsInvalidReference(err error) bool {
	var ir InvalidReferenceError
	return errors.As(err, &ir)
}

// StatusCode extracts the HTTP status carried by a transport or auth
// error, or 0 when the error carries none.
func StatusCode(err error) int {
	var te TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	var ae AuthError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}
