package test

import (
	"context"
	"time"
)

// Option represents a configuration option for a test suite.
type Option func(*Suite)

// WithTimeout returns an option that sets the suite context timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Suite) {
		if s.cancelFunc != nil {
			s.cancelFunc()
		}
		s.ctx, s.cancelFunc = context.WithTimeout(context.Background(), timeout)
	}
}

// WithCleanupFunc returns an option that adds a cleanup function to be
// called when the suite is cleaned up.
func WithCleanupFunc(cleanup func()) Option {
	return func(s *Suite) {
		if cleanup != nil {
			s.addCleanup(cleanup)
		}
	}
}

// WithBackend returns an option that serves a preloaded backend instead of an empty one.
func WithBackend(b *Backend) Option {
	return func(s *Suite) {
		s.Backend = b
	}
}
