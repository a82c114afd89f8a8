package http11

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/ValGSgit/webserv-sub000/internal/wire"
)

// Response carries a status, a header map, and a body. Handlers use the
// mutators below rather than touching fields directly so Content-Length
// always tracks the body.
type Response struct {
	Status int
	Header Header
	Body   []byte

	wire *bytebufferpool.ByteBuffer // lazily built, cached serialization
}

// NewResponse returns a Response with default headers set.
func NewResponse() *Response {
	r := &Response{Header: NewHeader()}
	r.Header.Set("Server", ServerSoftware)
	r.Header.Set("Date", time.Now().UTC().Format(httpTimeFormat))
	return r
}

// ServerSoftware is the token advertised in the Server response header and
// passed to CGI scripts as SERVER_SOFTWARE.
const ServerSoftware = "webserv/1.0"

// httpTimeFormat is RFC 1123 with a literal GMT zone, the form the Date
// header must take regardless of the host's local zone.
const httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

func (r *Response) setWire(dirty bool) {
	if dirty {
		r.wire = nil
	}
}

// SetStatus sets the status code.
func (r *Response) SetStatus(code int) {
	r.Status = code
	r.setWire(true)
}

// SetHeader sets a header, overwriting any prior value.
func (r *Response) SetHeader(name, value string) {
	r.Header.Set(name, value)
	r.setWire(true)
}

// SetBody replaces the body and updates Content-Length to match.
func (r *Response) SetBody(body []byte) {
	r.Body = body
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	r.setWire(true)
}

// AppendBody appends to the body and refreshes Content-Length.
func (r *Response) AppendBody(p []byte) {
	r.Body = append(r.Body, p...)
	r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	r.setWire(true)
}

// RemoveBody clears the body while keeping all headers — including
// Content-Length — intact, for HEAD responses.
func (r *Response) RemoveBody() {
	r.Body = nil
	r.setWire(true)
}

// Bytes serializes the response to wire form, caching the result until the
// next mutation. Format: status line, headers, blank line, body.
func (r *Response) Bytes() []byte {
	if r.wire != nil {
		return r.wire.B
	}
	buf := bytebufferpool.Get()
	fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\n", r.Status, reasonPhrase(r.Status))
	for name, value := range r.Header {
		fmt.Fprintf(buf, "%s: %s\r\n", canonicalHeaderName(name), value)
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	r.wire = buf
	return buf.B
}

// Release returns the cached wire buffer to the pool. Call once the bytes
// have been fully written to the connection.
func (r *Response) Release() {
	if r.wire != nil {
		bytebufferpool.Put(r.wire)
		r.wire = nil
	}
}

func canonicalHeaderName(lower string) string {
	parts := strings.Split(lower, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}

// ErrorResponse builds an HTML error page for code. The page template is a
// minimal stand-in for the out-of-scope templating collaborator.
func ErrorResponse(code int, msg string) *Response {
	r := NewResponse()
	r.SetStatus(code)
	body := fmt.Sprintf("<!doctype html><html><head><title>%d %s</title></head>"+
		"<body><h1>%d %s</h1><p>%s</p></body></html>",
		code, reasonPhrase(code), code, reasonPhrase(code), htmlEscape(msg))
	r.Header.Set("Content-Type", "text/html")
	r.SetBody([]byte(body))
	return r
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// FileResponse reads path from disk and returns 200 with a MIME-typed
// Content-Type, or 404 if the file is missing or unreadable.
func FileResponse(filePath string) *Response {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return ErrorResponse(StatusNotFound, "The requested resource was not found.")
	}
	r := NewResponse()
	r.SetStatus(StatusOK)
	r.Header.Set("Content-Type", wire.MimeType(filePath))
	r.SetBody(data)
	return r
}

// DirectoryListingResponse renders an HTML index of dirPath's entries in
// alphabetical order, with a parent link unless uri is the root.
func DirectoryListingResponse(dirPath, uri string) *Response {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return ErrorResponse(StatusNotFound, "The requested resource was not found.")
	}
	names := make([]string, 0, len(entries))
	sizes := make(map[string]int64, len(entries))
	isDir := make(map[string]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		names = append(names, name)
		isDir[name] = e.IsDir()
		if info, err := e.Info(); err == nil {
			sizes[name] = info.Size()
		}
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "<!doctype html><html><head><title>Index of %s</title></head><body>", htmlEscape(uri))
	fmt.Fprintf(&b, "<h1>Index of %s</h1><ul>", htmlEscape(uri))
	if uri != "/" {
		parent := path.Dir(strings.TrimSuffix(uri, "/"))
		if !strings.HasSuffix(parent, "/") {
			parent += "/"
		}
		fmt.Fprintf(&b, `<li><a href="%s">../</a></li>`, htmlEscape(parent))
	}
	for _, name := range names {
		display := name
		href := name
		if isDir[name] {
			display += "/"
			href += "/"
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, htmlEscape(href), htmlEscape(display))
			continue
		}
		fmt.Fprintf(&b, `<li><a href="%s">%s</a> (%d bytes)</li>`, htmlEscape(href), htmlEscape(display), sizes[name])
	}
	b.WriteString("</ul></body></html>")

	r := NewResponse()
	r.SetStatus(StatusOK)
	r.Header.Set("Content-Type", "text/html")
	r.SetBody([]byte(b.String()))
	return r
}

// RedirectResponse returns code (300-399) with Location set and an empty
// body.
func RedirectResponse(location string, code int) *Response {
	r := NewResponse()
	r.SetStatus(code)
	r.Header.Set("Location", location)
	r.SetBody(nil)
	return r
}

// OptionsResponse advertises the allowed method set via Allow.
func OptionsResponse(methods []string) *Response {
	r := NewResponse()
	r.SetStatus(StatusNoContent)
	r.Header.Set("Allow", strings.Join(methods, ", "))
	r.SetBody(nil)
	return r
}
