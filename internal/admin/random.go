package admin

import (
	"crypto/rand"
	"math/big"
	"strings"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// Generation bounds for random secret values.
const (
	DefaultSecretLength = 60
	MinSecretLength     = 1
	MaxSecretLength     = 2048
)

// Character classes selectable through the charset parameter.
const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "@#%^-_=+.:"
)

var charClasses = map[string]string{
	"upper":   upperChars,
	"lower":   lowerChars,
	"digit":   digitChars,
	"special": specialChars,
}

// GenerateSecret produces a random secret value. A zero length means
// DefaultSecretLength; empty charsets means all character classes.
func GenerateSecret(length int, charsets []string) (string, error) {
	if length == 0 {
		length = DefaultSecretLength
	}
	if length < MinSecretLength || length > MaxSecretLength {
		return "", rserrors.ConfigError{
			Field:   "length",
			Value:   length,
			Message: "generated secret length must be between 1 and 2048",
		}
	}

	alphabet, err := buildAlphabet(charsets)
	if err != nil {
		return "", err
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", rserrors.TransportError{Message: "reading random source", Err: err}
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

func buildAlphabet(charsets []string) (string, error) {
	if len(charsets) == 0 {
		return upperChars + lowerChars + digitChars + specialChars, nil
	}
	var b strings.Builder
	for _, name := range charsets {
		class, ok := charClasses[strings.TrimSpace(name)]
		if !ok {
			return "", rserrors.ConfigError{
				Field:      "charset",
				Value:      name,
				Message:    "unknown character class",
				Suggestion: "use a comma-separated list of upper, lower, digit, special",
			}
		}
		b.WriteString(class)
	}
	return b.String(), nil
}
