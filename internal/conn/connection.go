// Package conn implements the per-connection state machine: the explicit
// ReadingHeaders -> ReadingBody -> Processing -> WritingResponse ->
// Done/Error progression that one accepted socket moves through. All
// reads and writes are non-blocking; Connection never calls anything
// that can stall the event loop it's driven by.
package conn

import (
	"errors"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ValGSgit/webserv-sub000/internal/cgi"
	"github.com/ValGSgit/webserv-sub000/internal/config"
	"github.com/ValGSgit/webserv-sub000/internal/http11"
	"github.com/ValGSgit/webserv-sub000/internal/router"
	"github.com/ValGSgit/webserv-sub000/internal/wire"
)

// Disposition tells the loop what to do with a connection's poller
// registration after a readable or writable event has been handled.
type Disposition uint8

const (
	// DispositionNone means keep the current registration as-is.
	DispositionNone Disposition = iota
	// DispositionWantWrite means register (or keep registered) for write
	// readiness — a response is buffered and waiting to drain.
	DispositionWantWrite
	// DispositionClose means the connection is finished; the loop should
	// deregister it from the poller and call Close.
	DispositionClose
)

const readChunk = 16 * 1024

// Connection is one accepted socket plus everything needed to carry it
// through however many keep-alive requests it serves.
type Connection struct {
	fd         int
	remoteAddr string
	acceptPort int
	server     *config.ServerConfig
	executor   *cgi.Executor
	logger     *log.Logger

	state State

	req      *http11.Request
	parser   *http11.Parser
	resp     *http11.Response
	parseErr error // sentinel from the parser's Outcome when req.Status != 0

	writeOff int

	closeAfterResponse bool
	requestsServed     int

	createdAt    time.Time
	lastActivity time.Time
	reqStart     time.Time // accept time, or when the previous response finished draining

	readBuf []byte
}

// NewConnection wraps fd, resolving which virtual server owns it from the
// listening port it was accepted on.
func NewConnection(fd int, remoteAddr string, acceptPort int, servers []*config.ServerConfig, executor *cgi.Executor, logger *log.Logger) *Connection {
	srv := router.SelectServer(servers, acceptPort)
	req := http11.NewRequest()
	parser := http11.NewParser(req, router.MaxBodySizeFor(srv, ""))
	parser.SetMaxBodySizeResolver(func(path string) int64 {
		return router.MaxBodySizeFor(srv, path)
	})

	now := time.Now()
	return &Connection{
		fd:           fd,
		remoteAddr:   remoteAddr,
		acceptPort:   acceptPort,
		server:       srv,
		executor:     executor,
		logger:       logger,
		state:        StateReadingHeaders,
		req:          req,
		parser:       parser,
		createdAt:    now,
		lastActivity: now,
		reqStart:     now,
		readBuf:      make([]byte, readChunk),
	}
}

// Fd returns the connection's file descriptor.
func (c *Connection) Fd() int { return c.fd }

// State reports the current lifecycle stage.
func (c *Connection) State() State { return c.state }

// Expired reports whether now has pushed the connection past one of the
// timeout or lifetime limits and it should be closed by the sweep.
func (c *Connection) Expired(now time.Time) bool {
	if now.Sub(c.createdAt) > MaxConnectionTime {
		return true
	}
	if c.state == StateReadingHeaders && c.requestsServed > 0 {
		// Idle between keep-alive requests: the longer budget applies.
		return now.Sub(c.lastActivity) > KeepaliveTimeout
	}
	return now.Sub(c.lastActivity) > ClientTimeout
}

// HandleReadable drains whatever is currently available on fd into the
// parser and advances the state machine as far as it will go.
func (c *Connection) HandleReadable() Disposition {
	if c.state != StateReadingHeaders && c.state != StateReadingBody {
		return DispositionNone
	}
	for {
		n, wouldBlock, peerClosed, fatal := wire.Read(c.fd, c.readBuf)
		if n > 0 {
			c.lastActivity = time.Now()
			c.parser.Feed(c.readBuf[:n])
		}
		if wouldBlock {
			break
		}
		if peerClosed {
			c.state = StateDone
			return DispositionClose
		}
		if fatal {
			c.state = StateError
			return DispositionClose
		}
	}
	return c.advance()
}

// advance runs the parser over whatever has been fed so far and, once a
// request is complete (successfully or not), dispatches it.
func (c *Connection) advance() Disposition {
	outcome := c.parser.Parse()
	c.parseErr = outcome.Err
	switch outcome.Result {
	case http11.NeedMore:
		if c.req.HeadersComplete {
			c.state = StateReadingBody
		} else {
			c.state = StateReadingHeaders
		}
		return DispositionNone
	default: // Complete or ParseErr
		c.state = StateProcessing
		c.handleRequest()
		c.state = StateWritingResponse
		c.writeOff = 0
		return DispositionWantWrite
	}
}

// handleRequest routes the completed (or failed) request to a response,
// with a single recover boundary so a handler-side panic degrades to a
// 500 instead of taking the whole loop down.
func (c *Connection) handleRequest() {
	defer func() {
		if r := recover(); r != nil {
			c.resp = http11.ErrorResponse(http11.StatusInternalServerError, "Internal server error.")
			c.closeAfterResponse = true
			if c.logger != nil {
				c.logger.Printf("conn: recovered handling request from %s: %v\n%s", c.remoteAddr, r, debug.Stack())
			}
		}
	}()

	if c.req.Status != 0 {
		c.resp = http11.ErrorResponse(c.req.Status, reasonForParseError(c.parseErr))
		c.closeAfterResponse = true
		return
	}

	if c.server == nil {
		c.resp = http11.ErrorResponse(http11.StatusBadRequest, "No virtual server is configured for this port.")
		c.closeAfterResponse = true
		return
	}

	meta := cgi.RequestMeta{Port: c.acceptPort, RemoteAddr: c.remoteAddr}
	if c.server != nil {
		meta.ServerName = c.server.ServerName
	}
	c.resp = router.Dispatch(c.req, c.server, meta, c.executor)

	keepAliveRequested := c.req.IsHTTP11() && !c.req.Close
	if !c.req.IsHTTP11() {
		keepAliveRequested = strings.EqualFold(c.req.Header.Get("connection"), "keep-alive")
	}
	// An error response always closes the connection: the state that
	// produced it (a malformed request, an unroutable path) isn't one a
	// parser reset can safely recover from mid-stream.
	c.closeAfterResponse = c.resp.Status >= 400 || !keepAliveRequested || c.requestsServed+1 >= MaxRequestsPerConnection

	if c.closeAfterResponse {
		c.resp.Header.Set("Connection", "close")
	} else if !c.req.IsHTTP11() {
		c.resp.Header.Set("Connection", "keep-alive")
	}
}

// reasonForParseError turns the parser's sentinel into the message shown
// on the resulting error page. Several sentinels share a status code but
// describe distinct faults, so the code alone isn't enough to pick a
// useful message.
func reasonForParseError(err error) string {
	switch {
	case errors.Is(err, http11.ErrBodyTooLarge):
		return "The request body exceeds the maximum size allowed for this route."
	case errors.Is(err, http11.ErrHeadersTooLarge):
		return "The cumulative size of the request headers is too large."
	case errors.Is(err, http11.ErrFieldTooLong):
		return "A request header line is too long."
	case errors.Is(err, http11.ErrURITooLong):
		return "The request target is too long."
	case errors.Is(err, http11.ErrMissingHost):
		return "An HTTP/1.1 request must carry a Host header."
	case errors.Is(err, http11.ErrUnsupportedVersion):
		return "The declared HTTP version is not supported."
	case errors.Is(err, http11.ErrUnknownMethod):
		return "The request method is not recognized."
	case errors.Is(err, http11.ErrPathTraversal):
		return "The request target is not a valid path."
	case errors.Is(err, http11.ErrLengthAndChunked):
		return "Content-Length and Transfer-Encoding must not both be present."
	case errors.Is(err, http11.ErrBadTransferEncoding):
		return "The declared transfer encoding is not supported."
	case errors.Is(err, http11.ErrExpectationFailed):
		return "The declared expectation is not supported."
	case errors.Is(err, http11.ErrDuplicateHeader):
		return "A header that must not repeat was sent more than once."
	case errors.Is(err, http11.ErrBadChunkSize), errors.Is(err, http11.ErrChunkSizeMismatch):
		return "The chunked request body is malformed."
	case errors.Is(err, http11.ErrInvalidHeaderLine):
		return "A request header line is malformed."
	case errors.Is(err, http11.ErrInvalidRequestLine):
		return "The request line is malformed."
	default:
		return "The request could not be parsed."
	}
}

// HandleWritable drains the buffered response to fd, and either resets
// for the next request or signals the loop to close the connection.
func (c *Connection) HandleWritable() Disposition {
	if c.state != StateWritingResponse {
		return DispositionNone
	}
	out := c.resp.Bytes()
	for c.writeOff < len(out) {
		n, wouldBlock, fatal := wire.Write(c.fd, out, c.writeOff)
		if n > 0 {
			c.writeOff += n
			c.lastActivity = time.Now()
		}
		if wouldBlock {
			return DispositionWantWrite
		}
		if fatal {
			c.state = StateError
			return DispositionClose
		}
	}

	c.logAccess(len(out))
	c.resp.Release()
	c.requestsServed++
	if c.closeAfterResponse {
		c.state = StateDone
		return DispositionClose
	}
	return c.beginNextRequest()
}

// logAccess writes one access-log line for the request just drained:
// method, path, status, response bytes, and the time from when the
// connection began waiting for this request (accept, or the end of the
// previous response) to the response fully written. On a keep-alive
// connection that span includes any idle time before the request arrived.
func (c *Connection) logAccess(bytes int) {
	if c.logger == nil {
		return
	}
	method := c.req.Method.String()
	if method == "" {
		method = c.req.MethodToken
	}
	c.logger.Printf("%s %s %s %d %d %s", c.remoteAddr, method, c.req.Path, c.resp.Status, bytes, time.Since(c.reqStart))
}

// beginNextRequest resets the request/parser pair for the next
// pipelined or keep-alive request, preserving any bytes already read
// past the current request's end. If those leftover bytes already form
// a complete next request, it's dispatched immediately rather than
// waiting for another readiness notification.
func (c *Connection) beginNextRequest() Disposition {
	leftover := append([]byte(nil), c.parser.Leftover()...)
	c.req.Reset()
	c.parser.Reset(c.req, router.MaxBodySizeFor(c.server, ""))
	c.parser.SetMaxBodySizeResolver(func(path string) int64 {
		return router.MaxBodySizeFor(c.server, path)
	})
	c.state = StateReadingHeaders
	c.reqStart = time.Now()
	if len(leftover) == 0 {
		return DispositionNone
	}
	c.parser.Feed(leftover)
	return c.advance()
}

// Close releases the response buffer, if any, and closes the socket.
func (c *Connection) Close() {
	if c.resp != nil {
		c.resp.Release()
	}
	_ = unix.Close(c.fd)
}
