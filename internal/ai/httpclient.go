package ai

import (
	"net"
	"net/http"
	"time"
)

// Per-collaborator timeout presets. Lookups (auth, profile) are small JSON
// exchanges that should fail fast; model calls upload media or wait on
// generation and get the full stage budget.
const (
	lookupTimeout = 10 * time.Second
	modelTimeout  = 30 * time.Second

	defaultPoolSize = 10
)

// NewLookupHTTPClient pools connections for quick JSON lookups against
// internal services.
func NewLookupHTTPClient(poolSize int) *http.Client {
	return newPooledHTTPClient(poolSize, lookupTimeout)
}

// NewModelHTTPClient pools connections for transcription, analysis and
// image-generation calls.
func NewModelHTTPClient(poolSize int) *http.Client {
	return newPooledHTTPClient(poolSize, modelTimeout)
}

func newPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: timeout,
			ForceAttemptHTTP2:     true,
		},
	}
}
