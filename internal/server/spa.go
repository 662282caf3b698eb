package server

import (
	"bytes"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ashita-ai/nouki/internal/model"
)

// apiPrefixes are path prefixes owned by the JSON API. Unmatched requests
// under them get a JSON 404 rather than the chat page.
var apiPrefixes = []string{"/v1/", "/api/"}

// chatPage serves the embedded chat UI. index.html is read once at startup
// and returned for "/" and for any path that is not a file in the bundle, so
// deep links open the chat. It is mounted as the mux catch-all, after every
// API route.
type chatPage struct {
	index   []byte
	builtAt time.Time
	static  http.Handler
	files   fs.FS
}

// newSPAHandler returns the chat page handler for fsys. A bundle without
// index.html still serves its assets, and the fallback becomes a 404.
func newSPAHandler(fsys fs.FS) http.Handler {
	index, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		index = nil
	}
	return &chatPage{
		index:   index,
		builtAt: time.Now(),
		static:  http.FileServerFS(fsys),
		files:   fsys,
	}
}

func (p *chatPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean("/" + r.URL.Path)

	if isAPIPath(urlPath) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "endpoint not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, r, http.StatusMethodNotAllowed, model.ErrCodeInvalidInput, "method not allowed")
		return
	}

	if name := strings.TrimPrefix(urlPath, "/"); name != "" && name != "index.html" {
		if info, err := fs.Stat(p.files, name); err == nil && !info.IsDir() {
			setCacheHeaders(w, urlPath)
			p.static.ServeHTTP(w, r)
			return
		}
	}

	if p.index == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", p.builtAt, bytes.NewReader(p.index))
}

// isAPIPath reports whether p belongs to the JSON API or the MCP endpoint.
func isAPIPath(p string) bool {
	if p == "/mcp" {
		return true
	}
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// setCacheHeaders sets Cache-Control for a bundled file. Names under
// /assets/ carry content hashes and never change.
func setCacheHeaders(w http.ResponseWriter, urlPath string) {
	if strings.HasPrefix(urlPath, "/assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
}
