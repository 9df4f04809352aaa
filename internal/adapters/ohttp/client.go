package ohttp

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const (
	defaultMaxIdleConns        = 50
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultDialTimeout         = 10 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultRequestTimeout      = 30 * time.Second
)

// Client is a pooled HTTP client shared by the outbound adapters.
type Client struct {
	hc *http.Client
}

// New returns a client with connection pooling and sane timeouts. A zero
// timeout falls back to the default request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2: true,
	}

	return &Client{
		hc: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.hc.Do(req)
}
