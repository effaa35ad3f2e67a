package provider

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds a single gateway round trip.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPClientConfig represents configuration for the gateway HTTP client
type HTTPClientConfig struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// NewHTTPClient returns the *http.Client gateway SDKs are handed. TLS 1.2 is
// the floor; InsecureSkipVerify exists for local gateway stubs only.
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultHTTPTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}
