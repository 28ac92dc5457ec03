// Package app wires configuration, logging, the HTTP client and the
// endpoint registry for the CLI commands.
package app

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kestrelquant/kestrel"
	"github.com/kestrelquant/kestrel/ibkr"
	"github.com/kestrelquant/kestrel/internal/config"
	"github.com/kestrelquant/kestrel/internal/logging"
	"github.com/kestrelquant/kestrel/middleware"
)

// Globals are the flags shared by every command.
type Globals struct {
	EnvFile string `help:"Path to the .env file." default:".env" name:"env-file" type:"path"`
}

// App holds the wired components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registry   *kestrel.Registry
	Dispatcher *kestrel.Dispatcher
}

// Load reads the configuration and builds the logger. Logs go to stderr.
func (g *Globals) Load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.EnvFile)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(nil, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// Open loads the configuration and wires a dispatcher against the
// configured gateway.
func (g *Globals) Open() (*App, error) {
	cfg, logger, err := g.Load()
	if err != nil {
		return nil, err
	}

	client := kestrel.NewClient(cfg.BaseURL, HTTPClient(cfg)).
		WithInterceptor(middleware.LoggingInterceptor(logger))
	reg := NewRegistry(logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Registry:   reg,
		Dispatcher: kestrel.NewDispatcher(client).WithRegistry(reg).WithLogger(logger),
	}, nil
}

// NewRegistry returns a sealed registry holding every provider.
func NewRegistry(logger *slog.Logger) *kestrel.Registry {
	reg := kestrel.NewRegistry().WithLogger(logger)
	ibkr.Register(reg)
	reg.Seal()
	return reg
}

// HTTPClient returns the client shared by all calls. The timeout bounds
// each request.
func HTTPClient(cfg *config.Config) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local gateway certificate
	}
	return &http.Client{Transport: tr, Timeout: cfg.Timeout}
}

// SplitEndpoint splits "provider.name". A bare name belongs to
// defaultProvider.
func SplitEndpoint(endpoint, defaultProvider string) (provider, name string) {
	if p, n, ok := strings.Cut(endpoint, "."); ok {
		return p, n
	}
	return defaultProvider, endpoint
}
