// Package server wires configuration, routing, CGI, and the event loop
// into one runnable unit: load config, open one listener per virtual
// server port, and hand control to the loop until asked to stop.
package server

import (
	"fmt"
	"log"

	"github.com/ValGSgit/webserv-sub000/internal/cgi"
	"github.com/ValGSgit/webserv-sub000/internal/config"
	"github.com/ValGSgit/webserv-sub000/internal/eventloop"
)

// Server owns the loaded configuration and the running event loop.
type Server struct {
	servers []*config.ServerConfig
	loop    *eventloop.Loop
	logger  *log.Logger
}

// New loads configPath and prepares a Server, opening one listener per
// distinct port declared across all virtual servers. No connections are
// accepted until Run is called.
func New(configPath string, logger *log.Logger) (*Server, error) {
	servers, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("server: loading config: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	executor := cgi.NewExecutor(logger)
	loop, err := eventloop.NewLoop(servers, executor, logger)
	if err != nil {
		return nil, fmt.Errorf("server: creating event loop: %w", err)
	}

	ports := map[int]bool{}
	for _, srv := range servers {
		if ports[srv.Port] {
			continue
		}
		ports[srv.Port] = true
		if err := loop.Listen(srv.Port); err != nil {
			return nil, fmt.Errorf("server: binding port %d: %w", srv.Port, err)
		}
	}

	return &Server{servers: servers, loop: loop, logger: logger}, nil
}

// Run blocks until Stop is called or the loop hits a fatal error.
func (s *Server) Run() error {
	return s.loop.Run()
}

// Stop requests a clean shutdown: the loop finishes its current
// iteration, closes every live connection, and Run returns.
func (s *Server) Stop() {
	s.loop.Stop()
}

// Stats returns the loop's live counters.
func (s *Server) Stats() *eventloop.Stats {
	return &s.loop.Stats
}
