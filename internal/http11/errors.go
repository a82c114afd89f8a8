package http11

import "errors"

// Sentinel errors recorded by the parser alongside the status code it
// fails a request with. Outcome.Err carries one of these on ParseErr;
// callers compare against them with errors.Is rather than re-deriving the
// failure reason from the status code alone (several of these share a
// status code but mean distinct things).
var (
	ErrInvalidRequestLine  = errors.New("http11: invalid request line")
	ErrURITooLong          = errors.New("http11: uri too long")
	ErrPathTraversal       = errors.New("http11: path traversal in target")
	ErrUnsupportedVersion  = errors.New("http11: unsupported http version")
	ErrUnknownMethod       = errors.New("http11: unknown method")
	ErrFieldTooLong        = errors.New("http11: header field too long")
	ErrHeadersTooLarge     = errors.New("http11: cumulative header size too large")
	ErrInvalidHeaderLine   = errors.New("http11: malformed header line")
	ErrDuplicateHeader     = errors.New("http11: header must not repeat")
	ErrLengthAndChunked    = errors.New("http11: content-length and transfer-encoding both present")
	ErrBadTransferEncoding = errors.New("http11: unsupported transfer-encoding")
	ErrExpectationFailed   = errors.New("http11: unsupported expectation")
	ErrMissingHost         = errors.New("http11: missing or empty host header")
	ErrBodyTooLarge        = errors.New("http11: body exceeds max body size")
	ErrBadChunkSize        = errors.New("http11: malformed chunk size")
	ErrChunkSizeMismatch   = errors.New("http11: chunk size does not match data observed")
)
