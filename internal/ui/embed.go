// Package ui embeds the browser board viewer served next to the API.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the embedded dist/ filesystem with the "dist" prefix stripped.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}

// Handler returns an http.Handler that serves the board viewer with SPA
// fallback. Static files are served directly. Paths without a file extension
// are client-side routes and get index.html. Missing assets return 404, and
// so does anything under /api/ so API typos are not masked by the page.
func Handler() (http.Handler, error) {
	sub, err := DistFS()
	if err != nil {
		return nil, err
	}

	fileServer := http.FileServerFS(sub)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean(r.URL.Path)
		if p == "/" {
			fileServer.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(p, "/api/") {
			http.NotFound(w, r)
			return
		}

		// Strip leading slash for fs operations
		p = strings.TrimPrefix(p, "/")

		if _, err := fs.Stat(sub, p); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		// Has an extension (.js, .css): a genuine missing asset
		if strings.Contains(p, ".") {
			http.NotFound(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	}), nil
}
