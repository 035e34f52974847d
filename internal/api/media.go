package api

import (
	"net/http"

	"github.com/erazemk/totetrack/internal/filestore"
)

// MediaHandler serves stored item images.
type MediaHandler struct {
	Dir *filestore.Dir
}

// Serve handles GET /media/{name}.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	f, err := h.Dir.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
