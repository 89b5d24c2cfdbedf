package dataplane

import (
	"net"
	"net/http"
	"time"
)

// TransportConfig tunes the outbound HTTP transport.
type TransportConfig struct {
	// ConnectTimeout bounds TCP connection establishment.
	ConnectTimeout time.Duration
	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	// Body streaming afterwards has no deadline.
	ResponseHeaderTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
}

// Default pipeline timeouts.
const (
	DefaultConnectTimeout        = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
)

// DefaultTransportConfig provides the default transport settings.
var DefaultTransportConfig = TransportConfig{
	ConnectTimeout:        DefaultConnectTimeout,
	ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
}

// newTransport creates the outbound transport. There is deliberately no
// overall request timeout: streaming responses run indefinitely.
func newTransport(cfg TransportConfig) *http.Transport {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ResponseHeaderTimeout == 0 {
		cfg.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = DefaultTransportConfig.TLSHandshakeTimeout
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}
}
