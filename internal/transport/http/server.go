// Package httptransport builds the HTTP server fronting the attendance
// API.
package httptransport

import (
	"net/http"
	"time"
)

// Timeouts sized for the chat gateway: requests are small JSON commands,
// so anything slow is a stuck client, while keep-alive connections from
// the gateway are allowed to idle between user interactions.
const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Option overrides a server tunable.
type Option func(*http.Server)

// WithTimeouts replaces the default read, write, and idle timeouts.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *http.Server) {
		s.ReadTimeout = read
		s.WriteTimeout = write
		s.IdleTimeout = idle
	}
}

// NewServer returns an *http.Server for the attendance API listening on
// address, with gateway-appropriate timeouts unless overridden.
func NewServer(address string, handler http.Handler, opts ...Option) *http.Server {
	server := &http.Server{
		Addr:         address,
		Handler:      handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(server)
	}
	return server
}
