// Package secure keeps resolved secret values in protected memory
// between resolution and output. Values are held encrypted at rest in a
// memguard enclave, mlocked where the platform allows it, and wiped on
// destruction. Call Purge at process exit to drop everything at once.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// Value is a secret held in protected memory. The plaintext only exists
// while Reveal copies it out; the enclave keeps it encrypted otherwise.
type Value struct {
	enclave *memguard.Enclave
	mu      sync.Mutex
	// destroyed allows idempotent Destroy and blocks use after it.
	destroyed bool
}

// NewValue seals a secret into protected memory. The input string stays
// untouched; callers should not hold onto it.
func NewValue(secret string) *Value {
	if secret == "" {
		// memguard rejects zero-length buffers; nothing to protect.
		return &Value{}
	}
	return &Value{enclave: memguard.NewEnclave([]byte(secret))}
}

// Reveal decrypts and returns the secret. The returned string is an
// ordinary Go string; use it promptly and let it go out of scope.
func (v *Value) Reveal() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return "", rserrors.DecodeError{Message: "secret value already destroyed"}
	}
	if v.enclave == nil {
		return "", nil
	}
	locked, err := v.enclave.Open()
	if err != nil {
		return "", rserrors.DecodeError{Message: "opening protected memory", Err: err}
	}
	defer locked.Destroy()
	// The conversion copies; the locked buffer itself is wiped.
	return string(locked.Bytes()), nil
}

// Destroy drops the enclave. Idempotent; Reveal fails afterwards.
func (v *Value) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enclave = nil
	v.destroyed = true
}

// Purge wipes every enclave the process holds. Deferred in main so no
// secret survives in memory past exit.
func Purge() {
	memguard.Purge()
}
