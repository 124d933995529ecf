package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/avoronin/authd/internal/model"
)

// HTTPServer wraps net/http with the listener abstraction so the same
// server runs plain or behind TLS.
type HTTPServer struct {
	srv  *http.Server
	addr string
}

var _ model.Server = (*HTTPServer)(nil)

// NewHTTPServer creates a server for the given handler and address.
func NewHTTPServer(handler http.Handler, addr string) *HTTPServer {
	return &HTTPServer{
		srv:  &http.Server{Handler: handler},
		addr: addr,
	}
}

// Start opens the listener through the security layer and serves until
// Stop is called. A graceful stop is not reported as an error.
func (s *HTTPServer) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully, waiting for in-flight
// requests up to the context deadline.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *HTTPServer) Address() string {
	return s.addr
}
