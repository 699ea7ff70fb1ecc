// Package resolver turns secret references from realm configuration
// into secret values, going through the distributed cache when one is
// configured and the engine otherwise.
package resolver

import (
	"regexp"
	"strings"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// DefaultField is the record field read when a reference names none.
const DefaultField = "secret"

// RealmPlaceholder is replaced by the realm name in references and in
// the configured path prefix template.
const RealmPlaceholder = "%realm%"

// Grammar selects how a reference splits into path suffix and field.
type Grammar string

const (
	// GrammarStandard splits on the last ':'.
	GrammarStandard Grammar = "standard"
	// GrammarLegacy splits on the last '.'; without a separator the
	// whole reference names the field and the path is the bare prefix.
	GrammarLegacy Grammar = "legacy"
)

var tokenPattern = regexp.MustCompile(`^\$\{vault\.(.+)\}$`)

// StripToken unwraps a full ${vault.<reference>} token. Anything that is
// not a token passes through unchanged.
func StripToken(raw string) string {
	if m := tokenPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// SubstituteRealm replaces every realm placeholder in s.
func SubstituteRealm(s, realm string) string {
	return strings.ReplaceAll(s, RealmPlaceholder, realm)
}

// ParseReference splits a reference of the form <suffix>[:<field>]. The
// separator is the last ':' and only counts at index > 0, so a leading
// colon belongs to the suffix. Without a separator the field defaults
// to DefaultField.
func ParseReference(ref string) (suffix, field string, err error) {
	if ref == "" {
		return "", "", rserrors.InvalidReferenceError{Reference: ref, Message: "reference is empty"}
	}
	idx := strings.LastIndex(ref, ":")
	if idx <= 0 {
		return ref, DefaultField, nil
	}
	suffix, field = ref[:idx], ref[idx+1:]
	if field == "" {
		return "", "", rserrors.InvalidReferenceError{Reference: ref, Message: "field name after ':' is empty"}
	}
	return suffix, field, nil
}

// ParseLegacyReference splits a reference of the form <suffix>[.<field>]
// on the last '.' at index > 0. Without a separator the whole reference
// is the FIELD and the path suffix is empty, meaning the record lives
// directly at the configured prefix.
func ParseLegacyReference(ref string) (suffix, field string, err error) {
	if ref == "" {
		return "", "", rserrors.InvalidReferenceError{Reference: ref, Message: "reference is empty"}
	}
	idx := strings.LastIndex(ref, ".")
	if idx <= 0 {
		return "", ref, nil
	}
	suffix, field = ref[:idx], ref[idx+1:]
	if field == "" {
		return "", "", rserrors.InvalidReferenceError{Reference: ref, Message: "field name after '.' is empty"}
	}
	return suffix, field, nil
}
