package ftpservice

import (
	"crypto/tls"
	"fmt"
	"os"

	"ftpvault/internal/schema"
)

// LoadTLS reads a PEM file holding both the certificate chain and its
// private key. An empty path returns nil, which serves plain FTP.
func LoadTLS(path string) (*tls.Config, error) {
	if path == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: reading TLS certificate: %w: %w", schema.KeyTLSCert, err, schema.ErrInvalidValue)
	}
	cert, err := tls.X509KeyPair(pem, pem)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing TLS certificate %s: %w: %w", schema.KeyTLSCert, path, err, schema.ErrInvalidValue)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
