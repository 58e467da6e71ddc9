package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves the raw files of the data root under /gacha_data/
func (h *Handler) HandleStatic() http.Handler {
	files := http.StripPrefix("/gacha_data/", http.FileServer(http.Dir(h.folder.Root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent directory traversal attacks
		if strings.Contains(r.URL.Path, "..") {
			h.writeError(w, "Invalid file path", http.StatusBadRequest)
			return
		}
		if hasDotSegment(r.URL.Path) {
			h.writeError(w, "Not found", http.StatusNotFound)
			return
		}
		// no directory listings
		if strings.HasSuffix(r.URL.Path, "/") {
			h.writeError(w, "Not found", http.StatusNotFound)
			return
		}

		switch strings.ToLower(filepath.Ext(r.URL.Path)) {
		case ".yaml", ".yml":
			w.Header().Set("Content-Type", "application/yaml")
		case ".md":
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		}
		files.ServeHTTP(w, r)
	})
}

// hasDotSegment reports whether any path segment is a dotfile or dot directory
func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}
