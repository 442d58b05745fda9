// Package transport builds the HTTP clients used to fetch pages, either
// directly or through a SOCKS5 proxy.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake performed by CheckProxy.
const checkProxyTimeout = 2 * time.Second

// DefaultMaxRedirects is the number of redirects followed before the last
// response is returned as is.
const DefaultMaxRedirects = 10

// SOCKS5 protocol constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
)

// clientConfig collects the options of NewHTTPClient.
type clientConfig struct {
	// proxyAddress routes connections through a SOCKS5 proxy when set.
	proxyAddress string

	// timeout is the overall client timeout. 0 leaves it to the caller's
	// request context.
	timeout time.Duration

	// maxRedirects limits redirect chains.
	maxRedirects int

	// headers are added to every request.
	headers http.Header
}

// Option configures NewHTTPClient.
type Option func(*clientConfig)

// WithProxy routes every connection through the SOCKS5 proxy at address.
// An empty address means direct connections.
func WithProxy(address string) Option {
	return func(c *clientConfig) {
		c.proxyAddress = address
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRedirects sets how many redirects are followed.
func WithMaxRedirects(n int) Option {
	return func(c *clientConfig) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithHeaders adds headers to every request, including redirects.
func WithHeaders(h http.Header) Option {
	return func(c *clientConfig) {
		for key, values := range h {
			for _, v := range values {
				c.headers.Add(key, v)
			}
		}
	}
}

// NewHTTPClient creates an HTTP client for crawling.
// Connections go through the SOCKS5 proxy set with WithProxy, if any.
// The proxy is not contacted here; use CheckProxy to verify it.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	cfg := &clientConfig{
		maxRedirects: DefaultMaxRedirects,
		headers:      make(http.Header),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second

	if cfg.proxyAddress != "" {
		if !isValidProxyAddress(cfg.proxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, cfg.proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", cfg.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	// cookiejar.New only fails with invalid options
	jar, _ := cookiejar.New(nil) //nolint:errcheck

	var rt http.RoundTripper = transport
	if len(cfg.headers) > 0 {
		rt = &headerInjectingTransport{base: transport, headers: cfg.headers}
	}

	maxRedirects := cfg.maxRedirects
	return &http.Client{
		Transport: rt,
		Timeout:   cfg.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// ParseHeaders converts "Name: value" strings into an http.Header.
func ParseHeaders(lines []string) (http.Header, error) {
	h := make(http.Header, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

// isValidProxyAddress reports whether address is host:port with a port
// between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// CheckProxy verifies that address is a SOCKS5 proxy accepting
// unauthenticated clients by performing the method negotiation.
func CheckProxy(ctx context.Context, address string) ProxyStatus {
	if !isValidProxyAddress(address) {
		return ProxyStatusCannotConnect
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// version, one method, no authentication
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// headerInjectingTransport adds fixed headers to every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, values := range t.headers {
		clone.Header.Del(key)
		for _, v := range values {
			clone.Header.Add(key, v)
		}
	}
	return t.base.RoundTrip(clone)
}
