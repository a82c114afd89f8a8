// Package config holds the structural contract this server requires from
// its configuration source: the in-memory shape, a YAML loader (Load), and
// the one load-time inheritance pass the data model requires.
package config

// ServerConfig describes one virtual server: everything reachable by
// connections accepted on Port.
type ServerConfig struct {
	Port        int                `yaml:"port"`
	ServerName  string             `yaml:"server_name"`
	Root        string             `yaml:"root"`
	Index       string             `yaml:"index"`
	MaxBodySize int64              `yaml:"client_max_body_size"`
	Autoindex   bool               `yaml:"autoindex"`
	ErrorPages  map[int]string     `yaml:"error_pages"`
	Routes      map[string]*RouteConfig `yaml:"locations"`
}

// RouteConfig is one location block. Prefix is the map key under which it
// was declared (set by the loader after unmarshal, since a map key isn't
// otherwise visible to the value).
type RouteConfig struct {
	Prefix         string   `yaml:"-"`
	AllowedMethods []string `yaml:"allowed_methods"`
	Root           string   `yaml:"root"`
	Index          string   `yaml:"index"`
	Autoindex      bool     `yaml:"autoindex"`
	UploadPath     string   `yaml:"upload_path"`
	CGIExtensions  []string `yaml:"cgi_extensions"`
	RedirectCode   int      `yaml:"redirect_code"`
	RedirectTarget string   `yaml:"redirect_target"`
	MaxBodySize    int64    `yaml:"client_max_body_size"`
}

// DefaultMaxBodySize is applied to a ServerConfig that doesn't set one.
const DefaultMaxBodySize = 1 << 20 // 1 MiB

// DefaultIndex is applied to a ServerConfig that doesn't set one.
const DefaultIndex = "index.html"

// HasRedirect reports whether r is a redirect location.
func (r *RouteConfig) HasRedirect() bool {
	return r.RedirectCode >= 300 && r.RedirectCode <= 399 && r.RedirectTarget != ""
}

// AllowsMethod reports whether method is in the route's allowed set,
// comparing case-sensitively against the uppercased method name.
func (r *RouteConfig) AllowsMethod(method string) bool {
	for _, m := range r.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// EffectiveUploadPath returns the configured upload directory, defaulting
// to "<root>/uploads".
func (r *RouteConfig) EffectiveUploadPath() string {
	if r.UploadPath != "" {
		return r.UploadPath
	}
	return r.Root + "/uploads"
}

// defaultRoute is served when a ServerConfig has no route matching "/" at
// all: GET, HEAD, OPTIONS only, rooted at the server's own root.
func defaultRoute(server *ServerConfig) *RouteConfig {
	return &RouteConfig{
		Prefix:         "/",
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		Root:           server.Root,
		Index:          server.Index,
		Autoindex:      server.Autoindex,
		MaxBodySize:    server.MaxBodySize,
	}
}
