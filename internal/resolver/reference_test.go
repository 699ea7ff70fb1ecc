package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

func TestStripToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, out string
	}{
		{"${vault.smtp:password}", "smtp:password"},
		{"${vault.db-secret}", "db-secret"},
		{"smtp:password", "smtp:password"},
		{"${vault.}", "${vault.}"},
		{"${vault.x} trailing", "${vault.x} trailing"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.out, StripToken(c.in), "input %q", c.in)
	}
}

func TestSubstituteRealm(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "keycloak/master", SubstituteRealm("keycloak/%realm%", "master"))
	assert.Equal(t, "a/b/a", SubstituteRealm("%realm%/b/%realm%", "a"))
	assert.Equal(t, "no placeholder", SubstituteRealm("no placeholder", "master"))
}

func TestParseReference(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ref, suffix, field string
	}{
		{"smtp:password", "smtp", "password"},
		{"smtp", "smtp", "secret"},
		{"a:b:c", "a:b", "c"},
		{":leading", ":leading", "secret"},
		{"%realm%-db:token", "%realm%-db", "token"},
	}
	for _, c := range cases {
		suffix, field, err := ParseReference(c.ref)
		require.NoError(t, err, "ref %q", c.ref)
		assert.Equal(t, c.suffix, suffix, "ref %q", c.ref)
		assert.Equal(t, c.field, field, "ref %q", c.ref)
	}
}

func TestParseReferenceInvalid(t *testing.T) {
	t.Parallel()

	for _, ref := range []string{"", "smtp:"} {
		_, _, err := ParseReference(ref)
		assert.True(t, rserrors.IsInvalidReference(err), "ref %q should be invalid", ref)
	}
}

func TestParseLegacyReference(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ref, suffix, field string
	}{
		{"smtp.password", "smtp", "password"},
		{"a.b.c", "a.b", "c"},
		// No separator: the whole reference is the field, the record
		// lives at the bare prefix.
		{"smtp-password", "", "smtp-password"},
		{".hidden", "", ".hidden"},
	}
	for _, c := range cases {
		suffix, field, err := ParseLegacyReference(c.ref)
		require.NoError(t, err, "ref %q", c.ref)
		assert.Equal(t, c.suffix, suffix, "ref %q", c.ref)
		assert.Equal(t, c.field, field, "ref %q", c.ref)
	}
}

func TestParseLegacyReferenceInvalid(t *testing.T) {
	t.Parallel()

	for _, ref := range []string{"", "smtp."} {
		_, _, err := ParseLegacyReference(ref)
		assert.True(t, rserrors.IsInvalidReference(err), "ref %q should be invalid", ref)
	}
}
