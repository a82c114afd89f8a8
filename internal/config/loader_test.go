package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "webserv.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesInheritance(t *testing.T) {
	path := writeTempConfig(t, `
servers:
  - port: 8080
    server_name: example.test
    root: /srv/www
    locations:
      /:
        allowed_methods: [GET, HEAD]
      /upload:
        allowed_methods: [POST]
        upload_path: /srv/www/uploads
`)
	servers, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(servers))
	}
	srv := servers[0]
	if srv.Index != DefaultIndex {
		t.Fatalf("index not defaulted: %q", srv.Index)
	}
	if srv.MaxBodySize != DefaultMaxBodySize {
		t.Fatalf("max body size not defaulted: %d", srv.MaxBodySize)
	}
	root := srv.Routes["/"]
	if root.Root != "/srv/www" {
		t.Fatalf("route root not inherited: %q", root.Root)
	}
	upload := srv.Routes["/upload"]
	if upload.Root != "/srv/www" {
		t.Fatalf("upload route root not inherited: %q", upload.Root)
	}
	if upload.MaxBodySize != DefaultMaxBodySize {
		t.Fatalf("upload route max body not inherited: %d", upload.MaxBodySize)
	}
}

func TestLoadRejectsMissingRoot(t *testing.T) {
	path := writeTempConfig(t, "servers:\n  - port: 8080\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestLoadInsertsDefaultRoute(t *testing.T) {
	path := writeTempConfig(t, `
servers:
  - port: 8080
    root: /srv/www
`)
	servers, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	root, ok := servers[0].Routes["/"]
	if !ok {
		t.Fatal("expected a default / route")
	}
	if !root.AllowsMethod("GET") || !root.AllowsMethod("HEAD") || !root.AllowsMethod("OPTIONS") {
		t.Fatalf("default route methods = %v", root.AllowedMethods)
	}
}
