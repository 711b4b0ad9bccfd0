package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/elearn-web/internal/config"
	"github.com/jrsteele09/elearn-web/internal/metrics"
	"github.com/jrsteele09/elearn-web/proxy"
	"github.com/jrsteele09/elearn-web/server/browsersession"
	"github.com/jrsteele09/elearn-web/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	api      session.API
	proxy    *proxy.Proxy
	browsers browsersession.Repo
	storage  StorageFactory
	registry *prometheus.Registry
	logger   zerolog.Logger
}

type Option func(*Server)

// WithStorageFactory overrides the token storage chosen from config.
func WithStorageFactory(f StorageFactory) Option {
	return func(s *Server) {
		s.storage = f
	}
}

func WithBrowserSessions(repo browsersession.Repo) Option {
	return func(s *Server) {
		s.browsers = repo
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New builds the browser-facing server. api is the backend authentication API.
func New(cfg config.Config, api session.API, options ...Option) (*Server, error) {
	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		api:      api,
		registry: prometheus.NewRegistry(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	p, err := proxy.New(cfg.GetAPIURL(), proxy.WithTimeout(cfg.GetAPITimeout()), proxy.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create api proxy: %w", err)
	}
	s.proxy = p

	if s.storage == nil {
		factory, err := NewStorageFactory(cfg, cfg.GetSessionIdleTTL())
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to create token storage: %w", err)
		}
		s.storage = factory
	}
	if s.browsers == nil {
		s.browsers = browsersession.NewTTLRepo(cfg.GetSessionIdleTTL())
	}

	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(s.registry)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close tears down every browser session and releases token storage.
func (s *Server) Close() error {
	s.browsers.Close()
	return s.storage.Close()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = gray
	}
	s.logger.Info().Msgf("[%-19s] %s", color+paddedMethod+resetColor, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
