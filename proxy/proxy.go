// Package proxy forwards /api requests to the backend origin and relays the response unchanged.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/internal/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPrefix  = "/api"
	DefaultTimeout = 30 * time.Second

	tracerName = "github.com/jrsteele09/elearn-web/proxy"
)

type Proxy struct {
	target    *url.URL
	prefix    string
	timeout   time.Duration
	transport http.RoundTripper
	logger    zerolog.Logger
	rp        *httputil.ReverseProxy
}

type Option func(*Proxy)

// WithPrefix sets the path prefix removed before forwarding.
func WithPrefix(prefix string) Option {
	return func(p *Proxy) {
		p.prefix = strings.TrimRight(prefix, "/")
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *Proxy) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(p *Proxy) {
		p.transport = rt
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Proxy) {
		p.logger = logger
	}
}

// New returns a proxy to origin, for example http://localhost:4000.
func New(origin string, options ...Option) (*Proxy, error) {
	target, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend origin %q: %w", origin, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend origin %q: scheme and host are required", origin)
	}

	p := &Proxy{
		target:  target,
		prefix:  DefaultPrefix,
		timeout: DefaultTimeout,
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
			ForceAttemptHTTP2:     true,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.Transport = p.transport
	director := rp.Director
	rp.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
	}
	rp.ModifyResponse = func(resp *http.Response) error {
		metrics.ProxiedRequestsTotal.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()
		return nil
	}
	rp.ErrorHandler = p.handleError
	p.rp = rp
	return p, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "proxy "+r.Method)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.path", r.URL.Path),
		attribute.Bool("http.authorized", r.Header.Get("Authorization") != ""),
	)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out := r.Clone(ctx)
	out.URL.Path = p.stripPrefix(r.URL.Path)
	out.URL.RawPath = ""
	out.RequestURI = ""
	span.SetAttributes(attribute.String("proxy.target_path", out.URL.Path))

	p.rp.ServeHTTP(w, out)
}

func (p *Proxy) stripPrefix(path string) string {
	if p.prefix == "" {
		return path
	}
	if path == p.prefix {
		return "/"
	}
	if strings.HasPrefix(path, p.prefix+"/") {
		return strings.TrimPrefix(path, p.prefix)
	}
	return path
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := http.StatusBadGateway, errors.CodeBadGateway, "Backend service unavailable"
	if isTimeoutError(err) {
		status, code, message = http.StatusGatewayTimeout, errors.CodeGatewayTimeout, "Backend service timed out"
	}
	metrics.ProxiedRequestsTotal.WithLabelValues(metrics.StatusClass(status)).Inc()

	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
	p.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Proxy request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errors.APIError{Status: status, Code: code, Message: message})
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
