package api

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
)

// Server is the admin HTTP surface over a running engine's Control
// Surface: status, active/inactive, and stop, reachable from outside
// the engine's own read-loop goroutine, which the engine's mutex-guarded
// Control Surface methods allow.
type Server struct {
	echo *echo.Echo
	addr string
}

// NewServer builds a Server bound to host:port.
func NewServer(host, port string) *Server {
	return &Server{echo: echo.New(), addr: fmt.Sprintf("%s:%s", host, port)}
}

// Start blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// GetEcho exposes the underlying echo instance for tests that want to
// issue requests directly without binding a real listener.
func (s *Server) GetEcho() *echo.Echo {
	return s.echo
}

// RegisterControlService wires a ControlService's routes onto the
// server.
func (s *Server) RegisterControlService(cs *ControlService) {
	s.echo.GET("/status", cs.GetStatus)
	s.echo.POST("/active", cs.SetActive)
	s.echo.POST("/stop", cs.Stop)
}
