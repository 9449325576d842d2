// Package cmd implements the ftpvault command-line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"ftpvault/internal/config"
	"ftpvault/internal/configservice"
	"ftpvault/internal/kvstorage"
	"ftpvault/internal/schema"
)

// App holds application state shared across commands.
type App struct {
	Options config.Options
	Paths   config.Paths
	Store   kvstorage.KVStore
	Schema  *schema.Schema
	Log     *slog.Logger
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	JSON    bool // output in JSON format

	closer io.Closer
}

// Close releases the store.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// SuccessColor returns the string wrapped in green ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) SuccessColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

// WarnColor returns the string wrapped in orange ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) WarnColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[38;5;214m" + s + "\033[0m"
	}
	return s
}

// AppProvider lazily initializes the App on first use.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// Config captured from flags before Execute()
	DataDir    string
	StoreFile  string
	Backend    string
	Helper     string
	LogLevel   string
	JSONOutput bool
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
}

// Get returns the App, initializing it on first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// Close releases the App if it was initialized.
func (p *AppProvider) Close() error {
	if p.app == nil {
		return nil
	}
	return p.app.Close()
}

// NewTestProvider creates a provider pre-initialized with the given App.
// Used for testing commands with a mock/test App.
func NewTestProvider(app *App) *AppProvider {
	if app.Schema == nil && app.Store != nil {
		app.Schema = schema.New(app.Store)
	}
	if app.Log == nil {
		app.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if app.Err == nil {
		app.Err = io.Discard
	}
	return &AppProvider{
		app: app,
		In:  app.In,
		Out: app.Out,
		Err: app.Err,
	}
}

// flagOverrides applies the global flags that were set on top of the
// environment.
func (p *AppProvider) flagOverrides(o *config.Options) {
	if p.DataDir != "" {
		o.DataDir = p.DataDir
	}
	if p.StoreFile != "" {
		o.StoreFile = p.StoreFile
	}
	if p.Backend != "" {
		o.Backend = p.Backend
	}
	if p.Helper != "" {
		o.HelperCommand = strings.Fields(p.Helper)
	}
	if p.LogLevel != "" {
		o.LogLevel = p.LogLevel
	}
}

func (p *AppProvider) init() (*App, error) {
	opts, paths, err := configservice.Resolve(config.Default(), p.flagOverrides)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	errOut := p.Err
	if errOut == nil {
		errOut = os.Stderr
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	log := newLogger(errOut, opts.LogLevel)

	store, closer, err := configservice.OpenStore(context.Background(), opts, paths)
	if err != nil {
		return nil, err
	}
	log.Debug("store_opened", "backend", opts.Backend, "path", paths.StoreFile)

	return &App{
		Options: opts,
		Paths:   paths,
		Store:   store,
		Schema:  schema.New(store),
		Log:     log,
		In:      in,
		Out:     out,
		Err:     errOut,
		JSON:    p.JSONOutput,
		closer:  closer,
	}, nil
}

// newLogger returns a text slog logger at the named level. Unknown levels
// were rejected by config validation and fall back to info.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
