package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ValGSgit/webserv-sub000/internal/config"
	"github.com/ValGSgit/webserv-sub000/internal/http11"
)

func buildMultipart(boundary, filename string, content []byte) []byte {
	var b []byte
	b = append(b, []byte("--"+boundary+"\r\n")...)
	b = append(b, []byte(`Content-Disposition: form-data; name="file"; filename="`+filename+`"`+"\r\n")...)
	b = append(b, []byte("Content-Type: application/octet-stream\r\n\r\n")...)
	b = append(b, content...)
	b = append(b, []byte("\r\n--"+boundary+"--\r\n")...)
	return b
}

func TestHandleUploadWritesFile(t *testing.T) {
	dir := t.TempDir()
	route := &config.RouteConfig{Prefix: "/upload", Root: dir, UploadPath: filepath.Join(dir, "uploads")}

	boundary := "XYZ"
	body := buildMultipart(boundary, "notes.txt", []byte("hello upload"))

	req := http11.NewRequest()
	req.Method = http11.MethodPOST
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req.Body = body

	resp := Handle(req, route)
	if resp.Status != http11.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.Status)
	}

	data, err := os.ReadFile(filepath.Join(dir, "uploads", "notes.txt"))
	if err != nil {
		t.Fatalf("reading uploaded file: %v", err)
	}
	if string(data) != "hello upload" {
		t.Fatalf("content = %q", data)
	}
}

func TestHandleUploadRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	route := &config.RouteConfig{Prefix: "/upload", Root: dir, UploadPath: filepath.Join(dir, "uploads")}

	boundary := "XYZ"
	body := buildMultipart(boundary, "../../etc/passwd.txt", []byte("data"))

	req := http11.NewRequest()
	req.Method = http11.MethodPOST
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req.Body = body

	resp := Handle(req, route)
	if resp.Status != http11.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Status)
	}
}

func TestHandleUploadRejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	route := &config.RouteConfig{Prefix: "/upload", Root: dir, UploadPath: filepath.Join(dir, "uploads")}

	boundary := "XYZ"
	body := buildMultipart(boundary, "script.exe", []byte("data"))

	req := http11.NewRequest()
	req.Method = http11.MethodPOST
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req.Body = body

	resp := Handle(req, route)
	if resp.Status != http11.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Status)
	}
}
