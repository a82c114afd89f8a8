package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// document is the top-level YAML shape: a list of virtual servers.
type document struct {
	Servers []*ServerConfig `yaml:"servers"`
}

// Load reads and validates a configuration file at path, returning the
// fully inherited set of virtual servers. Any error here is meant to be
// fatal to process startup.
func Load(path string) ([]*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if len(doc.Servers) == 0 {
		return nil, fmt.Errorf("config: %s declares no servers", path)
	}
	for _, srv := range doc.Servers {
		if err := applyDefaults(srv); err != nil {
			return nil, fmt.Errorf("config: server on port %d: %w", srv.Port, err)
		}
	}
	return doc.Servers, nil
}

// applyDefaults performs the single load-time inheritance pass the data
// model requires: server-level root/index/max-body-size flow down into
// every route that doesn't set its own. After this call no route field is
// empty except the optional ones (redirect, upload path, CGI extensions).
func applyDefaults(srv *ServerConfig) error {
	if srv.Port < 1 || srv.Port > 65535 {
		return fmt.Errorf("invalid port %d", srv.Port)
	}
	if srv.Root == "" {
		return fmt.Errorf("server has no root")
	}
	if srv.Index == "" {
		srv.Index = DefaultIndex
	}
	if srv.MaxBodySize == 0 {
		srv.MaxBodySize = DefaultMaxBodySize
	}
	if srv.ErrorPages == nil {
		srv.ErrorPages = map[int]string{}
	}
	if srv.Routes == nil {
		srv.Routes = map[string]*RouteConfig{}
	}

	for prefix, route := range srv.Routes {
		route.Prefix = prefix
		if route.Root == "" {
			route.Root = srv.Root
		}
		if route.Index == "" {
			route.Index = srv.Index
		}
		if route.MaxBodySize == 0 {
			route.MaxBodySize = srv.MaxBodySize
		}
		if len(route.AllowedMethods) == 0 {
			route.AllowedMethods = []string{"GET", "HEAD", "OPTIONS"}
		}
	}

	if _, ok := srv.Routes["/"]; !ok {
		srv.Routes["/"] = defaultRoute(srv)
	}
	return nil
}
