package conn

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ValGSgit/webserv-sub000/internal/cgi"
	"github.com/ValGSgit/webserv-sub000/internal/config"
)

// socketPair returns two connected, non-blocking fds standing in for a
// client and server socket, so the state machine can be driven through
// real non-blocking reads and writes without an actual TCP listener.
func socketPair(t *testing.T) (server, client int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("set nonblock: %v", err)
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		t.Fatalf("set nonblock: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func testServers(t *testing.T) []*config.ServerConfig {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("hello from test root"), 0o644); err != nil {
		t.Fatalf("writing index: %v", err)
	}
	return []*config.ServerConfig{
		{
			Port:        8080,
			ServerName:  "test",
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

// drain reads everything currently available on fd, retrying briefly to
// let a non-blocking write on the other end actually land.
func drain(t *testing.T, fd int) []byte {
	t.Helper()
	var out []byte
	deadline := time.Now().Add(time.Second)
	buf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			if len(out) > 0 {
				return out
			}
			time.Sleep(time.Millisecond)
			continue
		}
		return out
	}
	return out
}

func TestConnectionServesSimpleGet(t *testing.T) {
	serverFd, clientFd := socketPair(t)
	servers := testServers(t)
	executor := cgi.NewExecutor(nil)

	c := NewConnection(serverFd, "127.0.0.1:1234", 8080, servers, executor, nil)

	if _, err := unix.Write(clientFd, []byte("GET / HTTP/1.1\r\nHost: test\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	disp := c.HandleReadable()
	if disp != DispositionWantWrite {
		t.Fatalf("disposition after request = %v, want WantWrite", disp)
	}
	if c.State() != StateWritingResponse {
		t.Fatalf("state = %v, want writing-response", c.State())
	}

	disp = c.HandleWritable()
	if disp != DispositionClose {
		t.Fatalf("disposition after write = %v, want Close (Connection: close)", disp)
	}

	out := drain(t, clientFd)
	if len(out) == 0 {
		t.Fatal("no response bytes observed on client side")
	}
	body := string(out)
	if !strings.Contains(body, "200") || !strings.Contains(body, "hello from test root") {
		t.Fatalf("unexpected response: %q", body)
	}
}

func TestConnectionSplitFeedAcrossReads(t *testing.T) {
	serverFd, clientFd := socketPair(t)
	servers := testServers(t)
	executor := cgi.NewExecutor(nil)

	c := NewConnection(serverFd, "127.0.0.1:1234", 8080, servers, executor, nil)

	full := "GET / HTTP/1.1\r\nHost: test\r\nConnection: close\r\n\r\n"
	first := full[:10]
	second := full[10:]

	if _, err := unix.Write(clientFd, []byte(first)); err != nil {
		t.Fatalf("write part 1: %v", err)
	}
	if disp := c.HandleReadable(); disp != DispositionNone {
		t.Fatalf("disposition after partial request = %v, want None", disp)
	}
	if c.State() != StateReadingHeaders {
		t.Fatalf("state after partial read = %v, want reading-headers", c.State())
	}

	if _, err := unix.Write(clientFd, []byte(second)); err != nil {
		t.Fatalf("write part 2: %v", err)
	}
	if disp := c.HandleReadable(); disp != DispositionWantWrite {
		t.Fatalf("disposition after completing request = %v, want WantWrite", disp)
	}
}

func TestConnectionReportsParseErrorReason(t *testing.T) {
	serverFd, clientFd := socketPair(t)
	servers := testServers(t)
	executor := cgi.NewExecutor(nil)

	c := NewConnection(serverFd, "127.0.0.1:1234", 8080, servers, executor, nil)

	// HTTP/1.1 request missing the mandatory Host header.
	if _, err := unix.Write(clientFd, []byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	if disp := c.HandleReadable(); disp != DispositionWantWrite {
		t.Fatalf("disposition = %v, want WantWrite", disp)
	}
	c.HandleWritable()

	out := drain(t, clientFd)
	body := string(out)
	if !strings.Contains(body, "400") {
		t.Fatalf("expected 400 response, got: %q", body)
	}
	if !strings.Contains(body, "Host header") {
		t.Fatalf("expected the missing-Host-specific reason, got: %q", body)
	}
}

func TestConnectionExpiredByClientTimeout(t *testing.T) {
	serverFd, _ := socketPair(t)
	servers := testServers(t)
	executor := cgi.NewExecutor(nil)

	c := NewConnection(serverFd, "127.0.0.1:1234", 8080, servers, executor, nil)
	c.lastActivity = time.Now().Add(-ClientTimeout - time.Second)

	if !c.Expired(time.Now()) {
		t.Fatal("connection idle past ClientTimeout should be expired")
	}
}
