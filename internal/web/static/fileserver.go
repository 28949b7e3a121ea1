// Package static serves CSS, images and locally stored uploads.
package static

import (
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// Config holds configuration for a static file server
type Config struct {
	// Prefix is stripped from the URL before looking up the file, e.g. "/static/"
	Prefix string
	// MaxAge is the Cache-Control max-age in seconds
	MaxAge int
}

// FileServer serves files from fsys under config.Prefix. Directory
// listings are never served and only GET and HEAD are allowed.
func FileServer(fsys fs.FS, config Config) http.Handler {
	files := http.FileServerFS(fsys)
	cacheControl := "public, max-age=" + strconv.Itoa(config.MaxAge)

	return http.StripPrefix(strings.TrimSuffix(config.Prefix, "/"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || name == "." {
			http.NotFound(w, r)
			return
		}
		info, err := fs.Stat(fsys, name)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		if config.MaxAge > 0 {
			w.Header().Set("Cache-Control", cacheControl)
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	}))
}
