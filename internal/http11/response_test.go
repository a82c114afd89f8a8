package http11

import (
	"strconv"
	"strings"
	"testing"
)

func TestResponseSetBodyUpdatesContentLength(t *testing.T) {
	r := NewResponse()
	r.SetBody([]byte("hello"))
	if got := r.Header.Get("Content-Length"); got != "5" {
		t.Fatalf("Content-Length = %q, want 5", got)
	}
}

func TestResponseRemoveBodyKeepsContentLength(t *testing.T) {
	r := NewResponse()
	r.SetBody([]byte("hello"))
	r.RemoveBody()
	if got := r.Header.Get("Content-Length"); got != "5" {
		t.Fatalf("Content-Length after RemoveBody = %q, want 5", got)
	}
	if len(r.Body) != 0 {
		t.Fatalf("expected empty body after RemoveBody")
	}
}

func TestResponseBytesWireForm(t *testing.T) {
	r := NewResponse()
	r.SetStatus(StatusOK)
	r.Header.Set("Content-Type", "text/plain")
	r.SetBody([]byte("ok"))
	wire := string(r.Bytes())
	if !strings.HasPrefix(wire, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", wire)
	}
	if !strings.HasSuffix(wire, "\r\n\r\nok") {
		t.Fatalf("unexpected body framing: %q", wire)
	}
}

func TestResponseDateHeaderIsGMT(t *testing.T) {
	r := NewResponse()
	date := r.Header.Get("Date")
	if !strings.HasSuffix(date, "GMT") {
		t.Fatalf("Date = %q, want a GMT-suffixed RFC 1123 date", date)
	}
}

func TestRedirectResponse(t *testing.T) {
	r := RedirectResponse("/new", StatusMovedPermanently)
	if r.Status != StatusMovedPermanently {
		t.Fatalf("status = %d", r.Status)
	}
	if r.Header.Get("Location") != "/new" {
		t.Fatalf("Location = %q", r.Header.Get("Location"))
	}
	if len(r.Body) != 0 {
		t.Fatalf("expected empty body")
	}
}

func TestOptionsResponse(t *testing.T) {
	r := OptionsResponse([]string{"GET", "HEAD", "OPTIONS"})
	if r.Status != StatusNoContent {
		t.Fatalf("status = %d", r.Status)
	}
	if got := r.Header.Get("Allow"); got != "GET, HEAD, OPTIONS" {
		t.Fatalf("Allow = %q", got)
	}
}

func TestFileResponseMissing(t *testing.T) {
	r := FileResponse("/does/not/exist/" + strconv.Itoa(1))
	if r.Status != StatusNotFound {
		t.Fatalf("status = %d, want 404", r.Status)
	}
}
