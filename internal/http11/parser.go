package http11

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/ValGSgit/webserv-sub000/internal/wire"
)

// Result is the outcome of one Parser.Parse call.
type Result uint8

const (
	NeedMore Result = iota
	Complete
	ParseErr
)

// Outcome bundles a Result with the status code and sentinel error
// recorded when Result is ParseErr.
type Outcome struct {
	Result Result
	Status int
	Err    error
}

type stage uint8

const (
	stageRequestLine stage = iota
	stageHeaders
	stageBodyFixed
	stageBodyChunked
	stageDone
	stageError
)

// Parser is an incremental, resumable HTTP/1.1 request parser. It is fed
// bytes as they arrive and may be invoked any number of times; the result
// depends only on the cumulative bytes fed, never on how they were split
// across calls.
type Parser struct {
	req         *Request
	maxBodySize int64

	buf   []byte // unconsumed tail of everything fed so far
	st    stage
	error int   // recorded status, 0 until an error stage is entered
	err   error // sentinel paired with error, nil until an error stage is entered

	headerBytes int // cumulative bytes consumed by the header block

	// chunked-decoding sub-state
	chunkRemaining   int64
	chunkAwaitingEnd bool // read exactly size bytes, now expect trailing CRLF
	chunkFinal       bool // saw the zero-size chunk, now expect the closing CRLF

	// resolveMaxBodySize, when set, is invoked once the request line has
	// been parsed (so req.Path is known) to refine maxBodySize to the
	// effective limit of whatever route that path will match — routing
	// itself happens later, in Processing, but the parser needs the limit
	// immediately to bound body buffering per the data model invariant.
	resolveMaxBodySize func(path string) int64
}

// SetMaxBodySizeResolver installs the callback used to refine maxBodySize
// once the request path is known. Call before the first Parse.
func (p *Parser) SetMaxBodySizeResolver(f func(path string) int64) {
	p.resolveMaxBodySize = f
}

// NewParser returns a Parser bound to req, enforcing maxBodySize on
// whichever body framing the request declares.
func NewParser(req *Request, maxBodySize int64) *Parser {
	return &Parser{req: req, maxBodySize: maxBodySize}
}

// Reset rebinds the parser to a fresh request, discarding any
// partially-consumed buffer — used between requests on a persistent
// connection, never mid-request.
func (p *Parser) Reset(req *Request, maxBodySize int64) {
	p.req = req
	p.maxBodySize = maxBodySize
	p.buf = p.buf[:0]
	p.st = stageRequestLine
	p.error = 0
	p.err = nil
	p.headerBytes = 0
	p.chunkRemaining = 0
	p.chunkAwaitingEnd = false
	p.chunkFinal = false
}

// Feed appends newly-read bytes to the parser's internal buffer.
func (p *Parser) Feed(data []byte) {
	p.buf = append(p.buf, data...)
}

// Leftover returns bytes fed but not yet consumed — either the start of
// the next pipelined request once Complete, or trailing body bytes to be
// discarded once ParseErr.
func (p *Parser) Leftover() []byte {
	return p.buf
}

// Parse advances the state machine as far as the buffered bytes allow and
// reports NeedMore, Complete, or ParseErr(status). It is safe to call
// again after NeedMore once more bytes have been Fed.
func (p *Parser) Parse() Outcome {
	for {
		switch p.st {
		case stageRequestLine:
			if !p.parseRequestLine() {
				if p.st == stageError {
					return Outcome{Result: ParseErr, Status: p.error, Err: p.err}
				}
				return Outcome{Result: NeedMore}
			}
		case stageHeaders:
			done, more := p.parseHeaderLines()
			if p.st == stageError {
				return Outcome{Result: ParseErr, Status: p.error, Err: p.err}
			}
			if !done {
				if more {
					continue
				}
				return Outcome{Result: NeedMore}
			}
		case stageBodyFixed:
			if !p.consumeFixedBody() {
				if p.st == stageError {
					return Outcome{Result: ParseErr, Status: p.error, Err: p.err}
				}
				return Outcome{Result: NeedMore}
			}
		case stageBodyChunked:
			done, more := p.consumeChunkedBody()
			if p.st == stageError {
				return Outcome{Result: ParseErr, Status: p.error, Err: p.err}
			}
			if !done {
				if more {
					continue
				}
				return Outcome{Result: NeedMore}
			}
		case stageDone:
			return Outcome{Result: Complete}
		case stageError:
			return Outcome{Result: ParseErr, Status: p.error, Err: p.err}
		}
	}
}

func (p *Parser) fail(status int, err error) {
	p.error = status
	p.err = err
	p.req.Status = status
	p.st = stageError
}

// parseRequestLine returns true once the request line has been fully
// consumed (success or recorded failure); false means "need more bytes".
func (p *Parser) parseRequestLine() bool {
	idx := bytes.Index(p.buf, []byte("\r\n"))
	if idx < 0 {
		if len(p.buf) > maxRequestLine {
			p.fail(StatusURITooLong, ErrURITooLong)
			return true
		}
		return false
	}
	line := p.buf[:idx]
	p.buf = p.buf[idx+2:]

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		p.fail(StatusBadRequest, ErrInvalidRequestLine)
		return true
	}
	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 < 0 {
		p.fail(StatusBadRequest, ErrInvalidRequestLine)
		return true
	}
	version := rest[sp2+1:]
	if bytes.IndexByte(version, ' ') >= 0 {
		p.fail(StatusBadRequest, ErrInvalidRequestLine) // more than two spaces
		return true
	}
	methodTok := line[:sp1]
	target := rest[:sp2]

	if len(target) == 0 {
		p.fail(StatusBadRequest, ErrInvalidRequestLine)
		return true
	}
	if len(target) > MaxURI {
		p.fail(StatusURITooLong, ErrURITooLong)
		return true
	}

	p.req.MethodToken = string(methodTok)
	m := ParseMethod(methodTok)
	if m == MethodUnknown {
		if IsToken(methodTok) {
			p.fail(StatusMethodNotAllowed, ErrUnknownMethod)
		} else {
			p.fail(StatusBadRequest, ErrInvalidRequestLine)
		}
		return true
	}
	p.req.Method = m

	major, minor, ok := parseVersion(version)
	if !ok {
		p.fail(StatusHTTPVersionNotSup, ErrUnsupportedVersion)
		return true
	}
	p.req.ProtoMajor, p.req.ProtoMinor = major, minor

	if !parseTarget(p.req, string(target)) {
		p.fail(StatusBadRequest, ErrPathTraversal)
		return true
	}
	if p.resolveMaxBodySize != nil {
		p.maxBodySize = p.resolveMaxBodySize(p.req.Path)
	}

	p.st = stageHeaders
	return true
}

func parseVersion(v []byte) (major, minor int, ok bool) {
	if len(v) != 8 || string(v[:5]) != "HTTP/" || v[6] != '.' {
		return 0, 0, false
	}
	if v[5] < '0' || v[5] > '9' || v[7] < '0' || v[7] > '9' {
		return 0, 0, false
	}
	return int(v[5] - '0'), int(v[7] - '0'), true
}

func parseTarget(req *Request, target string) bool {
	rawPath, rawQuery := wire.SplitTarget(target)
	decoded := wire.PercentDecode(rawPath)
	if wire.HasTraversal(decoded) {
		return false
	}
	req.Path = decoded
	req.RawQuery = rawQuery
	req.Query = wire.ParseQuery(rawQuery)
	return true
}

// parseHeaderLines consumes as many complete header lines as are
// buffered. done=true means the header block (and Host check) finished,
// successfully or with a recorded error; done=false means more bytes are
// needed. more is always false: lines are consumed in an internal loop
// rather than by returning to the caller.
func (p *Parser) parseHeaderLines() (done bool, more bool) {
	for {
		idx := bytes.Index(p.buf, []byte("\r\n"))
		if idx < 0 {
			if len(p.buf) > MaxFieldBytes {
				p.fail(StatusBadRequest, ErrFieldTooLong)
				return true, false
			}
			return false, false
		}
		line := p.buf[:idx]
		p.buf = p.buf[idx+2:]
		p.headerBytes += idx + 2
		if p.headerBytes > MaxHeaderBytes {
			p.fail(StatusRequestHeaderFields, ErrHeadersTooLarge)
			return true, false
		}

		if len(line) == 0 {
			// End of header block.
			if p.req.IsHTTP11() && p.req.Host() == "" {
				p.fail(StatusBadRequest, ErrMissingHost)
				return true, false
			}
			p.req.Close = strings.EqualFold(p.req.Header.Get("connection"), "close")
			p.req.HeadersComplete = true
			p.enterBodyStage()
			return true, false
		}

		if len(line) > MaxFieldBytes {
			p.fail(StatusBadRequest, ErrFieldTooLong)
			return true, false
		}
		if !p.processHeaderLine(line) {
			return true, false
		}
		// keep consuming lines without returning to the outer Parse loop
	}
}

func (p *Parser) processHeaderLine(line []byte) bool {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		p.fail(StatusBadRequest, ErrInvalidHeaderLine)
		return false
	}
	name := strings.ToLower(strings.TrimSpace(string(line[:colon])))
	value := strings.TrimSpace(string(line[colon+1:]))
	if name == "" {
		p.fail(StatusBadRequest, ErrInvalidHeaderLine)
		return false
	}

	switch name {
	case "content-length":
		if p.req.Header.Has("content-length") {
			p.fail(StatusBadRequest, ErrDuplicateHeader)
			return false
		}
		if p.req.Chunked {
			p.fail(StatusBadRequest, ErrLengthAndChunked)
			return false
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			p.fail(StatusBadRequest, ErrInvalidHeaderLine)
			return false
		}
		p.req.ContentLength = n
	case "transfer-encoding":
		if p.req.Header.Has("transfer-encoding") {
			p.fail(StatusBadRequest, ErrDuplicateHeader)
			return false
		}
		if p.req.ContentLength >= 0 {
			p.fail(StatusBadRequest, ErrLengthAndChunked)
			return false
		}
		if !strings.EqualFold(value, "chunked") {
			p.fail(StatusBadRequest, ErrBadTransferEncoding)
			return false
		}
		p.req.Chunked = true
	case "host":
		if p.req.Header.Has("host") {
			p.fail(StatusBadRequest, ErrDuplicateHeader)
			return false
		}
	case "expect":
		if !strings.EqualFold(value, "100-continue") {
			p.fail(StatusExpectationFailed, ErrExpectationFailed)
			return false
		}
	}

	p.req.Header.Set(name, value)
	return true
}

func (p *Parser) enterBodyStage() {
	switch {
	case p.req.Chunked:
		p.st = stageBodyChunked
	case p.req.ContentLength > 0:
		if p.req.ContentLength > p.maxBodySize {
			p.fail(StatusPayloadTooLarge, ErrBodyTooLarge)
			return
		}
		p.st = stageBodyFixed
	default:
		p.req.BodyComplete = true
		p.st = stageDone
	}
}

func (p *Parser) consumeFixedBody() bool {
	needed := p.req.ContentLength - int64(len(p.req.Body))
	if needed <= 0 {
		p.req.BodyComplete = true
		p.st = stageDone
		return true
	}
	avail := int64(len(p.buf))
	if avail == 0 {
		return false
	}
	take := needed
	if avail < take {
		take = avail
	}
	p.req.Body = append(p.req.Body, p.buf[:take]...)
	p.buf = p.buf[take:]
	if int64(len(p.req.Body)) >= p.req.ContentLength {
		p.req.BodyComplete = true
		p.st = stageDone
	}
	return true
}
