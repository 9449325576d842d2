// Package ftpservice runs the FTP server for the single configured user.
// It reads its settings from the shared store, checks logins against the
// stored password digest, and records its running state for the duration
// of Serve.
package ftpservice

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/gonzalop/ftp/server"

	"ftpvault/internal/auth"
	"ftpvault/internal/lifecycle"
)

// ErrListenBind is returned when the service port cannot be acquired.
var ErrListenBind = errors.New("cannot bind service port")

// Service serves one configured user from one local directory.
type Service struct {
	settings  Settings
	recorder  *lifecycle.Recorder
	log       *slog.Logger
	tlsConfig *tls.Config
	host      string
	onListen  func(net.Addr)
}

// Option configures a Service.
type Option func(*Service)

// WithHost binds to host instead of all interfaces.
func WithHost(host string) Option {
	return func(s *Service) { s.host = host }
}

// WithOnListen registers fn to be called with the bound address before
// connections are accepted.
func WithOnListen(fn func(net.Addr)) Option {
	return func(s *Service) { s.onListen = fn }
}

// New prepares a Service. The TLS certificate, if configured, is loaded
// here so that a bad certificate fails before anything is recorded.
func New(st Settings, rec *lifecycle.Recorder, log *slog.Logger, opts ...Option) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	tlsConfig, err := LoadTLS(st.TLSCertPath)
	if err != nil {
		return nil, err
	}
	s := &Service{
		settings:  st,
		recorder:  rec,
		log:       log,
		tlsConfig: tlsConfig,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr is the configured listen address.
func (s *Service) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.settings.Port))
}

// Serve marks the service running, binds the port and serves until ctx is
// cancelled. The service is marked stopped on every return path.
func (s *Service) Serve(ctx context.Context) error {
	return s.recorder.Run(ctx, s.serve)
}

func (s *Service) serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		s.log.Error("listen_failed", "addr", s.Addr(), "error", err)
		return fmt.Errorf("%w: %w", ErrListenBind, err)
	}

	srv, err := s.newServer(ln.Addr().String())
	if err != nil {
		ln.Close()
		return err
	}

	s.log.Info("ftp_listening", "addr", ln.Addr().String(), "user", s.settings.Username, "root", s.settings.LocalRoot, "tls", s.tlsConfig != nil)
	if s.onListen != nil {
		s.onListen(ln.Addr())
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		srv.Shutdown()
		if err := <-errc; err != nil && !errors.Is(err, server.ErrServerClosed) {
			return err
		}
		s.log.Info("ftp_shutdown", "addr", ln.Addr().String())
		return nil
	case err := <-errc:
		return fmt.Errorf("%w: ftp server stopped: %w", lifecycle.ErrUnexpectedFault, err)
	}
}

func (s *Service) newServer(addr string) (*server.Server, error) {
	validator := auth.NewValidator(map[string]string{
		s.settings.Username: s.settings.PasswordDigest,
	})
	root := s.settings.LocalRoot

	driverOpts := []server.FSDriverOption{
		server.WithDisableAnonymous(true),
		server.WithAuthenticator(validator.Authenticator(func(string) string { return root }, s.log)),
	}
	if s.settings.PasvMinPort > 0 {
		driverOpts = append(driverOpts, server.WithSettings(&server.Settings{
			PasvMinPort: s.settings.PasvMinPort,
			PasvMaxPort: s.settings.PasvMaxPort,
		}))
	}
	driver, err := server.NewFSDriver(root, driverOpts...)
	if err != nil {
		return nil, fmt.Errorf("preparing %s: %w", root, err)
	}

	opts := []server.Option{
		server.WithDriver(driver),
		server.WithLogger(s.log),
	}
	if s.tlsConfig != nil {
		opts = append(opts, server.WithTLS(s.tlsConfig))
	}
	return server.NewServer(addr, opts...)
}
