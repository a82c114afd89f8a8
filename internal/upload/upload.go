// Package upload implements the multipart/form-data upload handler for
// POST requests against an upload-capable route.
package upload

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValGSgit/webserv-sub000/internal/config"
	"github.com/ValGSgit/webserv-sub000/internal/http11"
)

// Handle extracts the first part of a multipart/form-data body, sanitizes
// its filename, and writes its content into route's upload directory.
func Handle(req *http11.Request, route *config.RouteConfig) *http11.Response {
	ct := req.Header.Get("content-type")
	boundary, ok := extractBoundary(ct)
	if !ok {
		return http11.ErrorResponse(http11.StatusBadRequest, "Missing or malformed multipart boundary.")
	}

	filename, content, ok := firstPart(req.Body, boundary)
	if !ok {
		return http11.ErrorResponse(http11.StatusBadRequest, "No file part found in upload.")
	}

	filename = sanitizeFilename(filename)
	if filename == "" {
		return http11.ErrorResponse(http11.StatusBadRequest, "Invalid or unsafe filename.")
	}

	uploadDir := route.EffectiveUploadPath()
	target := filepath.Join(uploadDir, filename)
	if !withinDir(uploadDir, target) {
		return http11.ErrorResponse(http11.StatusBadRequest, "Invalid or unsafe filename.")
	}

	if len(content) == 0 {
		return http11.ErrorResponse(http11.StatusBadRequest, "Upload contained no data.")
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not create upload directory.")
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		_ = os.Remove(target)
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not store uploaded file.")
	}

	resp := http11.NewResponse()
	resp.SetStatus(http11.StatusCreated)
	resp.Header.Set("Location", filepath.ToSlash(filepath.Join(route.Prefix, filename)))
	resp.SetBody(nil)
	return resp
}

// extractBoundary pulls the boundary= parameter out of a Content-Type
// header value.
func extractBoundary(contentType string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data") {
		return "", false
	}
	idx := strings.Index(contentType, "boundary=")
	if idx < 0 {
		return "", false
	}
	b := contentType[idx+len("boundary="):]
	if i := strings.IndexByte(b, ';'); i >= 0 {
		b = b[:i]
	}
	b = strings.Trim(b, `" `)
	if b == "" {
		return "", false
	}
	return b, true
}

// firstPart locates the first part's header block, extracts its
// Content-Disposition filename, and returns the raw bytes up to the
// closing boundary.
func firstPart(body []byte, boundary string) (filename string, content []byte, ok bool) {
	delim := []byte("--" + boundary)
	start := bytes.Index(body, delim)
	if start < 0 {
		return "", nil, false
	}
	rest := body[start+len(delim):]
	rest = bytes.TrimPrefix(rest, []byte("\r\n"))

	headerEnd := bytes.Index(rest, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		return "", nil, false
	}
	headerBlock := string(rest[:headerEnd])
	dataStart := headerEnd + 4

	filename, ok = filenameFromDisposition(headerBlock)
	if !ok {
		return "", nil, false
	}

	closing := []byte("\r\n--" + boundary)
	end := bytes.Index(rest[dataStart:], closing)
	if end < 0 {
		// Tolerate a body that wasn't terminated with the full closing
		// boundary marker (e.g. truncated read); take everything left.
		return filename, rest[dataStart:], true
	}
	return filename, rest[dataStart : dataStart+end], true
}

func filenameFromDisposition(headerBlock string) (string, bool) {
	for _, line := range strings.Split(headerBlock, "\r\n") {
		if !strings.HasPrefix(strings.ToLower(line), "content-disposition:") {
			continue
		}
		idx := strings.Index(line, "filename=")
		if idx < 0 {
			return "", false
		}
		v := line[idx+len("filename="):]
		if i := strings.IndexByte(v, ';'); i >= 0 {
			v = v[:i]
		}
		v = strings.Trim(v, `" `)
		return v, v != ""
	}
	return "", false
}

// allowedExtensions is the permitted upload file-type set.
var allowedExtensions = map[string]bool{
	".txt": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".zip": true, ".csv": true, ".json": true,
}

// sanitizeFilename rejects names that carry a path component (which would
// let the upload escape its directory) or whose extension isn't in the
// allowed set; returns "" to reject.
func sanitizeFilename(name string) string {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return ""
	}
	if name == "." || name == ".." {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return ""
	}
	return name
}

func withinDir(dir, target string) bool {
	absDir, err1 := filepath.Abs(dir)
	absTarget, err2 := filepath.Abs(target)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absTarget)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}
