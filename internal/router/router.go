// Package router implements virtual-server selection, longest-prefix
// location matching, method authorization, and the handler dispatch
// priority chain that turns a parsed request into a response.
package router

import (
	"strings"

	"github.com/ValGSgit/webserv-sub000/internal/config"
)

// SelectServer finds the ServerConfig listening on port. Callers resolve
// this once, at accept time, and keep the result on the Connection.
func SelectServer(servers []*config.ServerConfig, port int) *config.ServerConfig {
	for _, s := range servers {
		if s.Port == port {
			return s
		}
	}
	return nil
}

// MatchRoute finds the longest-prefix route for uri within srv by
// repeatedly stripping the last path segment until a key hits or the
// prefix is "/". srv always has a "/" route after config.Load, so this
// never returns nil for a non-nil srv.
func MatchRoute(srv *config.ServerConfig, uri string) *config.RouteConfig {
	prefix := uri
	for {
		if route, ok := srv.Routes[prefix]; ok {
			return route
		}
		if prefix == "/" || prefix == "" {
			break
		}
		prefix = stripLastSegment(prefix)
	}
	return srv.Routes["/"]
}

// stripLastSegment removes the final "/segment" from p, collapsing to "/"
// once nothing is left. "/a/b/c" -> "/a/b", "/a" -> "/", "/" -> "/".
func stripLastSegment(p string) string {
	trimmed := strings.TrimSuffix(p, "/")
	if trimmed == "" {
		return "/"
	}
	i := strings.LastIndexByte(trimmed, '/')
	if i <= 0 {
		return "/"
	}
	return trimmed[:i]
}

// MaxBodySizeFor is the resolver installed on the parser: it looks up the
// route that would match path and returns its effective max body size.
// Returns config.DefaultMaxBodySize if srv is nil (no virtual server
// matched the accept-port, which the connection layer treats as a 400
// later — the parser still needs a finite bound in the meantime).
func MaxBodySizeFor(srv *config.ServerConfig, path string) int64 {
	if srv == nil {
		return config.DefaultMaxBodySize
	}
	return MatchRoute(srv, path).MaxBodySize
}
