package ftpservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ftpvault/internal/schema"
)

// Settings is everything the service reads from the store at startup.
type Settings struct {
	Username       string
	PasswordDigest string
	LocalRoot      string
	TLSCertPath    string // absolute; empty serves plain FTP
	Port           int
	PasvMinPort    int
	PasvMaxPort    int
}

// LoadSettings reads the service settings through s. Every missing
// required key is reported together, before anything binds a port.
// A relative tls_cert is resolved under certDir.
func LoadSettings(ctx context.Context, s *schema.Schema, certDir string) (Settings, error) {
	var (
		st   Settings
		errs []error
		err  error
	)

	if st.Username, err = s.RequiredSetting(ctx, schema.KeyUsername); err != nil {
		errs = append(errs, err)
	}
	if st.PasswordDigest, err = s.SecretHash(ctx, schema.KeyPassword); err != nil {
		errs = append(errs, err)
	}
	if st.LocalRoot, err = s.RequiredSetting(ctx, schema.KeyLocalRoot); err != nil {
		errs = append(errs, err)
	} else if err := checkDir(st.LocalRoot); err != nil {
		errs = append(errs, err)
	}

	cert, err := s.Setting(ctx, schema.KeyTLSCert)
	if err != nil {
		errs = append(errs, err)
	} else if cert != "" {
		if !filepath.IsAbs(cert) {
			cert = filepath.Join(certDir, cert)
		}
		st.TLSCertPath = cert
	}

	if port, err := s.Setting(ctx, schema.KeyPort); err != nil {
		errs = append(errs, err)
	} else if st.Port, err = schema.ParsePort(port); err != nil {
		errs = append(errs, fmt.Errorf("%s: %v: %w", schema.KeyPort, err, schema.ErrInvalidValue))
	}

	if pasv, err := s.Setting(ctx, schema.KeyPassivePorts); err != nil {
		errs = append(errs, err)
	} else if pasv != "" {
		if st.PasvMinPort, st.PasvMaxPort, err = schema.ParsePortRange(pasv); err != nil {
			errs = append(errs, fmt.Errorf("%s: %v: %w", schema.KeyPassivePorts, err, schema.ErrInvalidValue))
		}
	}

	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	return st, nil
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", schema.KeyLocalRoot, err, schema.ErrInvalidValue)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %s is not a directory: %w", schema.KeyLocalRoot, path, schema.ErrInvalidValue)
	}
	return nil
}
