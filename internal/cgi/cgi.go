// Package cgi implements the server side of the CGI/1.1 protocol: resolve
// an interpreter, assemble an environment, fork/exec the script with
// stdin/stdout pipes, enforce a wall-clock timeout, and parse the output
// into a Response.
//
// Fork/exec and pipe plumbing go through os/exec.Cmd rather than raw
// syscalls — the same choice the standard library's own CGI host makes —
// but the read side still drives its own bounded readiness wait (via
// unix.Poll) rather than a blocking io.Copy, so a hung script can never
// stall longer than Timeout.
package cgi

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ValGSgit/webserv-sub000/internal/config"
	"github.com/ValGSgit/webserv-sub000/internal/http11"
)

// RequestMeta carries per-connection facts the router doesn't own but
// that a CGI invocation needs for its environment: the virtual server's
// name and listening port (SERVER_NAME, SERVER_PORT). The client's address
// is carried too but is not placed in the environment.
type RequestMeta struct {
	ServerName string
	Port       int
	RemoteAddr string
}

// DefaultTimeout is CGI_TIMEOUT from the concurrency model.
const DefaultTimeout = 30 * time.Second

// interpreters is the fixed fallback table: extension -> candidate
// binaries tried in order via exec.LookPath.
var interpreters = map[string][]string{
	".php": {"php-cgi", "php"},
	".py":  {"python3", "python"},
	".pl":  {"perl"},
	".rb":  {"ruby"},
	".sh":  {"bash"},
}

// Executor runs CGI scripts on behalf of the router.
type Executor struct {
	Timeout time.Duration
	Logger  *log.Logger
}

// NewExecutor returns an Executor with DefaultTimeout.
func NewExecutor(logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{Timeout: DefaultTimeout, Logger: logger}
}

// Execute runs the script at scriptPath for req and returns the response
// built from its output, per spec §4.5 steps 1-6.
func (e *Executor) Execute(req *http11.Request, scriptPath, pathInfo string, route *config.RouteConfig, meta RequestMeta) *http11.Response {
	info, err := os.Stat(scriptPath)
	if err != nil || info.IsDir() {
		return http11.ErrorResponse(http11.StatusNotFound, "The requested resource was not found.")
	}

	interpreter, ok := e.resolveInterpreter(scriptPath)
	if !ok {
		return http11.ErrorResponse(http11.StatusNotImplemented, "No CGI interpreter configured for this file type.")
	}

	env := buildEnv(req, scriptPath, pathInfo, route, meta)

	cmd := exec.Command(interpreter, scriptPath)
	cmd.Env = env
	cmd.Dir = filepath.Dir(scriptPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not start CGI process.")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not start CGI process.")
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not start CGI process.")
	}

	if len(req.Body) > 0 {
		_, _ = stdin.Write(req.Body)
	}
	stdin.Close()

	output, timedOut := e.readWithTimeout(cmd, stdout)
	if timedOut {
		if e.Logger != nil {
			e.Logger.Printf("cgi: %s exceeded timeout, terminated", scriptPath)
		}
		if len(output) == 0 {
			return http11.ErrorResponse(http11.StatusInternalServerError, "CGI script timed out.")
		}
	}
	if len(output) == 0 && !timedOut {
		return http11.ErrorResponse(http11.StatusInternalServerError, "CGI script produced no output.")
	}

	return parseOutput(output)
}

// resolveInterpreter picks the first available binary for scriptPath's
// extension from the fixed fallback table.
func (e *Executor) resolveInterpreter(scriptPath string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(scriptPath))
	candidates, ok := interpreters[ext]
	if !ok {
		return "", false
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, true
		}
	}
	return "", false
}

// readWithTimeout polls the CGI's stdout pipe for readiness, accumulating
// bytes, until EOF or Timeout elapses. On timeout it sends SIGTERM and
// waits (reaps) the child so no zombie remains. Returns whatever output
// was collected and whether a timeout occurred.
func (e *Executor) readWithTimeout(cmd *exec.Cmd, stdout interface{ Read([]byte) (int, error) }) (output []byte, timedOut bool) {
	type fdReader interface {
		Fd() uintptr
	}
	f, ok := stdout.(fdReader)
	var pollFd int = -1
	if ok {
		pollFd = int(f.Fd())
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)

	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			e.terminateAndReap(cmd)
			return buf.Bytes(), true
		}

		if pollFd >= 0 {
			fds := []unix.PollFd{{Fd: int32(pollFd), Events: unix.POLLIN}}
			ms := int(remaining / time.Millisecond)
			if ms <= 0 {
				ms = 1
			}
			n, err := unix.Poll(fds, ms)
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				break
			}
			if n == 0 {
				continue // timed out this iteration, loop re-checks deadline
			}
		}

		nr, err := stdout.Read(chunk)
		if nr > 0 {
			buf.Write(chunk[:nr])
		}
		if err != nil {
			break // EOF or pipe closed: process finished
		}
	}

	_ = cmd.Wait()
	return buf.Bytes(), false
}

func (e *Executor) terminateAndReap(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	}
}

// parseOutput splits the collected bytes at the first blank line into a
// header block and a body. A Status: header overrides the response
// status; absent any header block at all, the whole output becomes the
// body with a default Content-Type and 200.
func parseOutput(output []byte) *http11.Response {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(output, sep)
	sepLen := 4
	if idx < 0 {
		sep = []byte("\n\n")
		idx = bytes.Index(output, sep)
		sepLen = 2
	}
	if idx < 0 {
		r := http11.NewResponse()
		r.SetStatus(http11.StatusOK)
		r.Header.Set("Content-Type", "text/html")
		r.SetBody(output)
		return r
	}

	headerBlock := output[:idx]
	body := output[idx+sepLen:]

	r := http11.NewResponse()
	status := http11.StatusOK
	for _, line := range strings.Split(string(headerBlock), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if strings.EqualFold(name, "Status") {
			if len(value) >= 3 {
				if code, err := strconv.Atoi(value[:3]); err == nil {
					status = code
				}
			}
			continue
		}
		r.Header.Set(name, value)
	}
	r.SetStatus(status)
	r.SetBody(body)
	return r
}

// sanitizeEnvValue strips any byte not in [A-Za-z0-9 _-./:=,], per the
// environment-assembly rule in spec §4.5.
func sanitizeEnvValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == ' ' || c == '_' || c == '-' || c == '.' || c == '/' || c == ':' || c == '=' || c == ',':
			b.WriteByte(c)
		}
	}
	return b.String()
}

func headerEnvName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 5)
	b.WriteString("HTTP_")
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - ('a' - 'A'))
		case c == '-':
			b.WriteByte('_')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func buildEnv(req *http11.Request, scriptPath, pathInfo string, route *config.RouteConfig, meta RequestMeta) []string {
	scriptName := strings.TrimPrefix(scriptPath, route.Root)
	if !strings.HasPrefix(scriptName, "/") {
		scriptName = "/" + scriptName
	}

	env := []string{
		"REQUEST_METHOD=" + sanitizeEnvValue(req.Method.String()),
		"REQUEST_URI=" + sanitizeEnvValue(req.Path),
		"QUERY_STRING=" + sanitizeEnvValue(req.RawQuery),
		"SERVER_NAME=" + sanitizeEnvValue(meta.ServerName),
		"SERVER_PORT=" + sanitizeEnvValue(strconv.Itoa(meta.Port)),
		"SERVER_PROTOCOL=HTTP/1.1",
		"SERVER_SOFTWARE=" + sanitizeEnvValue(http11.ServerSoftware),
		"GATEWAY_INTERFACE=CGI/1.1",
		"SCRIPT_NAME=" + sanitizeEnvValue(scriptName),
		"SCRIPT_FILENAME=" + sanitizeEnvValue(scriptPath),
		"PATH_INFO=" + sanitizeEnvValue(pathInfo),
		"PATH_TRANSLATED=" + sanitizeEnvValue(filepath.Join(route.Root, pathInfo)),
		"DOCUMENT_ROOT=" + sanitizeEnvValue(route.Root),
		"REDIRECT_STATUS=200",
	}

	if ct := req.Header.Get("content-type"); ct != "" {
		env = append(env, "CONTENT_TYPE="+sanitizeEnvValue(ct))
	}
	if req.ContentLength > 0 {
		env = append(env, fmt.Sprintf("CONTENT_LENGTH=%d", req.ContentLength))
	}

	for name, value := range req.Header {
		if name == "content-type" || name == "content-length" {
			continue
		}
		env = append(env, headerEnvName(name)+"="+sanitizeEnvValue(value))
	}

	return env
}
