package httpclient

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewTokenHTTPClient creates an HTTP client that sends token as a bearer
// credential on every request. An empty token yields an anonymous client.
func NewTokenHTTPClient(timeout time.Duration, token string) *http.Client {
	if token == "" {
		return NewDefaultHTTPClient(timeout)
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	})

	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: source,
			Base:   http.DefaultTransport,
		},
	}
}
