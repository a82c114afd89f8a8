package eventloop

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ValGSgit/webserv-sub000/internal/cgi"
	"github.com/ValGSgit/webserv-sub000/internal/config"
)

func testServers(t *testing.T, port int) []*config.ServerConfig {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("loop test body"), 0o644); err != nil {
		t.Fatalf("writing index: %v", err)
	}
	return []*config.ServerConfig{
		{
			Port:        port,
			ServerName:  "loop-test",
			Root:        root,
			Index:       "index.html",
			MaxBodySize: 1 << 20,
			ErrorPages:  map[int]string{},
			Routes: map[string]*config.RouteConfig{
				"/": {
					Prefix:         "/",
					AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
					Root:           root,
					Index:          "index.html",
					MaxBodySize:    1 << 20,
				},
			},
		},
	}
}

// freePort asks the OS for an unused TCP port by briefly binding one with
// the standard library, then releasing it before the loop binds its own
// raw socket to the same number.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestLoopServesRequestEndToEnd(t *testing.T) {
	port := freePort(t)
	servers := testServers(t, port)
	executor := cgi.NewExecutor(nil)

	loop, err := NewLoop(servers, executor, nil)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	if err := loop.Listen(port); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	defer func() {
		loop.Stop()
		<-done
	}()

	var conn net.Conn
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err = net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\nHost: loop-test\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	out, err := io.ReadAll(conn)
	if err != nil && len(out) == 0 {
		t.Fatalf("read: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty response")
	}
}
