package pemtrust

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

func selfSignedPEM(t *testing.T, cn string) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IsCA:         true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func TestDecodeSingleCertificate(t *testing.T) {
	t.Parallel()

	certs, err := DecodeCertificates(selfSignedPEM(t, "ca-one"))
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "ca-one", certs[0].Subject.CommonName)
}

func TestDecodeConcatenatedBundle(t *testing.T) {
	t.Parallel()

	bundle := selfSignedPEM(t, "ca-one") + "\n" + selfSignedPEM(t, "ca-two")
	certs, err := DecodeCertificates(bundle)
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, "ca-one", certs[0].Subject.CommonName)
	assert.Equal(t, "ca-two", certs[1].Subject.CommonName)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeCertificates("this is not pem at all")
	var de rserrors.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDecodeRejectsCorruptBlock(t *testing.T) {
	t.Parallel()

	corrupt := "-----BEGIN CERTIFICATE-----\nAAAA////not-base64!!\n-----END CERTIFICATE-----\n"
	_, err := DecodeCertificates(corrupt)
	var de rserrors.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDecodeRejectsEmptyBundle(t *testing.T) {
	t.Parallel()

	_, err := DecodeCertificates("   \n  ")
	var de rserrors.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestPoolFromPEM(t *testing.T) {
	t.Parallel()

	pool, err := PoolFromPEM(selfSignedPEM(t, "ca-one") + selfSignedPEM(t, "ca-two"))
	require.NoError(t, err)
	assert.NotNil(t, pool)
}
