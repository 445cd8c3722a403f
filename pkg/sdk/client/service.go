// Package client executes SDK requests against a conduit backend: it builds
// the URL from a query, sends it with auth and retries, classifies the
// response and materialises the returned records into registered entities.
//
//	svc, err := client.New(cfg, client.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	articles, err := client.NewQuery(svc, &Article{}).
//	    Where("title", query.OpLike, "go").
//	    Get(ctx)
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"go.uber.org/zap"

	"github.com/conduit-lang/conduit-sdk/internal/cache"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/config"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/entity"
)

// Service is a configured connection to one backend. It is safe for
// concurrent use; every request owns its own retry counter and cancellation.
type Service struct {
	cfg      config.Config
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	metrics  *Metrics
	cache    cache.Cache
	registry *entity.Registry
	policy   *apierr.Policy
	listener apierr.Listener
	resolver *Resolver
	backoff  Backoff
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger used for request tracing and log dispositions
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics attaches prometheus collectors
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithHTTPClient replaces the transport built from the auth configuration
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.http = c
	}
}

// WithCache sets the response cache, overriding the configured backend
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithRegistry sets the type registry used for materialisation
func WithRegistry(r *entity.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithPolicy replaces the error policy derived from configuration
func WithPolicy(p apierr.Policy) Option {
	return func(s *Service) {
		s.policy = &p
	}
}

// WithListener sets the callback invoked for every handled error
func WithListener(l apierr.Listener) Option {
	return func(s *Service) {
		s.listener = l
	}
}

// WithResolver sets the host resolution cache
func WithResolver(r *Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// New creates a Service. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := *cfg
	if err := c.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if c.URL == "" {
		return nil, fmt.Errorf("invalid config: url is required")
	}

	s := &Service{cfg: c}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.registry == nil {
		s.registry = entity.DefaultRegistry
	}
	if s.resolver == nil {
		s.resolver = NewResolver()
	}
	if s.policy == nil {
		s.policy = &apierr.Policy{
			Listener:    s.listener,
			Disposition: c.Disposition(),
			Logger:      s.logger,
		}
	}
	if s.http == nil {
		hc, err := newHTTPClient(c.Auth)
		if err != nil {
			return nil, err
		}
		s.http = hc
	}
	if s.cache == nil {
		store, err := cache.New(context.Background(), c.Cache)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		s.cache = store
	}
	s.backoff = Backoff{Base: c.Retry.BaseDelay, Max: c.Retry.MaxDelay}

	base := c.URL
	if c.DNS.ResolveLocalhost {
		base = s.resolver.ResolveLocalhost(base)
	}
	s.baseURL = base
	if c.Version != "" {
		s.baseURL = base + "/" + c.Version
	}

	s.logger.Debug("service configured",
		zap.String("url", s.baseURL),
		zap.String("auth", c.Auth.Scheme),
		zap.Int("max_attempts", c.Retry.MaxAttempts),
		zap.String("cache", c.Cache.Backend),
	)
	return s, nil
}

// URL returns the base URL with the API version appended
func (s *Service) URL() string {
	return s.baseURL
}

// Config returns a copy of the normalised configuration
func (s *Service) Config() config.Config {
	return s.cfg
}

// Registry returns the type registry used for materialisation
func (s *Service) Registry() *entity.Registry {
	return s.registry
}

// Logger returns the service logger
func (s *Service) Logger() *zap.Logger {
	return s.logger
}

// Close releases the response cache
func (s *Service) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}

func newHTTPClient(auth config.AuthConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = !auth.Gzip
	if auth.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	hc := &http.Client{Transport: transport}
	if auth.Scheme == config.SchemeCookie {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	return hc, nil
}
