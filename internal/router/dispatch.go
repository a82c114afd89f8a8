package router

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValGSgit/webserv-sub000/internal/cgi"
	"github.com/ValGSgit/webserv-sub000/internal/config"
	"github.com/ValGSgit/webserv-sub000/internal/http11"
	"github.com/ValGSgit/webserv-sub000/internal/upload"
)

// RequestMeta is an alias for the per-connection facts the CGI executor
// needs; kept as a router-local name so callers don't need to import cgi
// just to build one.
type RequestMeta = cgi.RequestMeta

// Dispatch resolves srv/route for req and runs the priority chain from
// the data model: redirects, method authorization, CGI, upload, PUT,
// DELETE, HEAD, and GET/directory-listing, in that exact order.
func Dispatch(req *http11.Request, srv *config.ServerConfig, meta RequestMeta, exec *cgi.Executor) *http11.Response {
	route := MatchRoute(srv, req.Path)

	// 1. Declared length over the route's effective limit.
	if req.ContentLength >= 0 && req.ContentLength > route.MaxBodySize {
		return http11.ErrorResponse(http11.StatusPayloadTooLarge, "Request body too large.")
	}

	// 2. A parser-recorded status short-circuits everything else.
	if req.Status != 0 {
		return http11.ErrorResponse(req.Status, reasonForStatus(req.Status))
	}

	// 3. Redirects.
	if route.HasRedirect() {
		return http11.RedirectResponse(route.RedirectTarget, route.RedirectCode)
	}

	methodName := req.Method.String()
	if methodName == "" {
		methodName = req.MethodToken
	}

	// 4. Method authorization.
	if !route.AllowsMethod(methodName) {
		resp := http11.ErrorResponse(http11.StatusMethodNotAllowed, "Method not allowed on this resource.")
		resp.Header.Set("Allow", strings.Join(route.AllowedMethods, ", "))
		return resp
	}

	// 5. OPTIONS.
	if req.Method == http11.MethodOPTIONS {
		return http11.OptionsResponse(route.AllowedMethods)
	}

	target := resolvedPath(route, req.Path)

	// 6. CGI.
	if scriptPath, pathInfo, ok := matchCGI(route, target); ok {
		return exec.Execute(req, scriptPath, pathInfo, route, meta)
	}

	// 7. Upload-capable POST.
	if req.Method == http11.MethodPOST && route.UploadPath != "" {
		return upload.Handle(req, route)
	}

	switch req.Method {
	case http11.MethodPUT:
		return handlePut(req, target)
	case http11.MethodDELETE:
		return handleDelete(target)
	case http11.MethodHEAD:
		resp := handleGet(target, route, req.Path)
		resp.RemoveBody()
		return resp
	case http11.MethodGET:
		return handleGet(target, route, req.Path)
	}

	resp := http11.ErrorResponse(http11.StatusMethodNotAllowed, "Method not allowed on this resource.")
	resp.Header.Set("Allow", strings.Join(route.AllowedMethods, ", "))
	return resp
}

func reasonForStatus(code int) string {
	return fmt.Sprintf("The request could not be processed (status %d).", code)
}

func resolvedPath(route *config.RouteConfig, uri string) string {
	rel := strings.TrimPrefix(uri, route.Prefix)
	rel = strings.TrimPrefix(rel, "/")
	return filepath.Join(route.Root, rel)
}

// matchCGI reports whether any path segment of target (after the first)
// ends in an extension configured for CGI on this route, splitting target
// at the first such segment into (scriptPath, pathInfo) — the remainder
// after the script name, per the
// original CGI handler's behavior of allowing extra path segments after
// the script (e.g. /cgi-bin/report.py/2024/summary).
func matchCGI(route *config.RouteConfig, target string) (scriptPath, pathInfo string, ok bool) {
	if len(route.CGIExtensions) == 0 {
		return "", "", false
	}
	segments := strings.Split(target, string(filepath.Separator))
	built := ""
	for i, seg := range segments {
		if built == "" {
			built = seg
		} else {
			built = built + string(filepath.Separator) + seg
		}
		if i == 0 {
			continue
		}
		for _, ext := range route.CGIExtensions {
			if strings.HasSuffix(seg, ext) {
				remainder := strings.Join(segments[i+1:], "/")
				if remainder != "" {
					remainder = "/" + remainder
				}
				return built, remainder, true
			}
		}
	}
	return "", "", false
}

func handlePut(req *http11.Request, target string) *http11.Response {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return http11.ErrorResponse(http11.StatusConflict, "Target is a directory.")
	}
	_, existedErr := os.Stat(target)
	existed := existedErr == nil

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not create target directory.")
	}
	if err := os.WriteFile(target, req.Body, 0o644); err != nil {
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not write file.")
	}

	resp := http11.NewResponse()
	if existed {
		resp.SetStatus(http11.StatusOK)
	} else {
		resp.SetStatus(http11.StatusCreated)
		resp.Header.Set("Location", req.Path)
	}
	resp.SetBody(nil)
	return resp
}

func handleDelete(target string) *http11.Response {
	if _, err := os.Stat(target); err != nil {
		return http11.ErrorResponse(http11.StatusNotFound, "The requested resource was not found.")
	}
	if err := os.Remove(target); err != nil {
		return http11.ErrorResponse(http11.StatusInternalServerError, "Could not delete file.")
	}
	resp := http11.NewResponse()
	resp.SetStatus(http11.StatusOK)
	resp.SetBody(nil)
	return resp
}

func handleGet(target string, route *config.RouteConfig, uri string) *http11.Response {
	info, err := os.Stat(target)
	if err != nil {
		return http11.ErrorResponse(http11.StatusNotFound, "The requested resource was not found.")
	}
	if info.IsDir() {
		if route.Autoindex {
			return http11.DirectoryListingResponse(target, uri)
		}
		indexPath := filepath.Join(target, route.Index)
		if _, err := os.Stat(indexPath); err == nil {
			return http11.FileResponse(indexPath)
		}
		return http11.ErrorResponse(http11.StatusNotFound, "The requested resource was not found.")
	}
	return http11.FileResponse(target)
}
