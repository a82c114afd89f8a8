package wire

import "strings"

// mimeTypes is a small fixed extension table. It deliberately does not
// consult the system's mime.types database — MIME-type lookup is named as
// an out-of-scope collaborator; this is the minimal concrete stand-in
// needed to make fileResponse runnable.
var mimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".woff": "font/woff",
	".woff2": "font/woff2",
}

const defaultMimeType = "application/octet-stream"

// MimeType resolves a filename's extension to a content-type, defaulting
// to application/octet-stream when the extension is unknown or absent.
func MimeType(name string) string {
	ext := strings.ToLower(extOf(name))
	if ct, ok := mimeTypes[ext]; ok {
		return ct
	}
	return defaultMimeType
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	if strings.LastIndexByte(name, '/') > i {
		return ""
	}
	return name[i:]
}
