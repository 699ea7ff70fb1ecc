// Package pemtrust builds TLS trust anchors from PEM certificate bundles.
package pemtrust

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

const endCertMarker = "-----END CERTIFICATE-----"

// DecodeCertificates parses one or more X.509 certificates out of a PEM
// bundle. Blocks are split on the certificate end marker so concatenated
// bundles with arbitrary whitespace between certificates are accepted.
func DecodeCertificates(pemBundle string) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	for i, block := range strings.Split(pemBundle, endCertMarker) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		der, _ := pem.Decode([]byte(block + endCertMarker + "\n"))
		if der == nil {
			return nil, rserrors.DecodeError{
				Message: fmt.Sprintf("PEM block %d is not a valid certificate block", i),
			}
		}
		cert, err := x509.ParseCertificate(der.Bytes)
		if err != nil {
			return nil, rserrors.DecodeError{
				Message: fmt.Sprintf("parsing certificate %d", i),
				Err:     err,
			}
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, rserrors.DecodeError{Message: "no certificates found in PEM bundle"}
	}

	return certs, nil
}

// PoolFromPEM builds a certificate pool containing every certificate in
// the bundle. Ordering is not significant.
func PoolFromPEM(pemBundle string) (*x509.CertPool, error) {
	certs, err := DecodeCertificates(pemBundle)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool, nil
}
