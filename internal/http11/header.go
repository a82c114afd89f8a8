package http11

import "strings"

// Header is a case-insensitive header map. Names are stored lowercased;
// values are preserved verbatim. This trades the teacher engine's
// fixed-array, zero-allocation Header type for a plain map — the size of
// this server's header set (a handful of request headers, a handful of
// response headers) never approaches the scale that design was built to
// amortize, and a map keeps the parser and response builder simple.
type Header map[string]string

// NewHeader returns an empty, ready-to-use Header.
func NewHeader() Header {
	return make(Header, 8)
}

func lowerHeaderName(name string) string {
	return strings.ToLower(name)
}

// Get returns the value for name, or "" if absent.
func (h Header) Get(name string) string {
	if h == nil {
		return ""
	}
	return h[lowerHeaderName(name)]
}

// Set stores value under name, overwriting any prior value.
func (h Header) Set(name, value string) {
	h[lowerHeaderName(name)] = value
}

// Has reports whether name is present, regardless of value.
func (h Header) Has(name string) bool {
	_, ok := h[lowerHeaderName(name)]
	return ok
}

// Del removes name.
func (h Header) Del(name string) {
	delete(h, lowerHeaderName(name))
}
