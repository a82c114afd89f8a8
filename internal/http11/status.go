package http11

// Status codes named by the router, parser, and CGI executor. Not
// exhaustive — only the codes this engine ever emits.
const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusNoContent           = 204
	StatusMovedPermanently    = 301
	StatusFound               = 302
	StatusSeeOther            = 303
	StatusTemporaryRedirect   = 307
	StatusPermanentRedirect   = 308
	StatusBadRequest          = 400
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusConflict            = 409
	StatusExpectationFailed   = 417
	StatusPayloadTooLarge     = 413
	StatusURITooLong          = 414
	StatusRequestHeaderFields = 431
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
	StatusHTTPVersionNotSup   = 505
)

var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	409: "Conflict",
	413: "Payload Too Large",
	414: "URI Too Long",
	417: "Expectation Failed",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// reasonPhrase returns the standard reason phrase for code, or a generic
// placeholder for anything not in the table above.
func reasonPhrase(code int) string {
	if p, ok := reasonPhrases[code]; ok {
		return p
	}
	return "Status"
}
