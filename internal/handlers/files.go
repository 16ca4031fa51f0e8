package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"autogallery/internal/cache"
	"autogallery/internal/classify"
	"autogallery/internal/filesystem"
	"autogallery/internal/logging"
)

// artifactCacheControl lets browsers keep thumbnails forever: a changed
// source gets a new fingerprint and so a new URL.
const artifactCacheControl = "public, max-age=31536000, immutable"

// GetFile serves a file from the source tree. Directories redirect to their
// listing.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	clean, abs, err := h.lister.Resolve(mux.Vars(r)["path"])
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	info, err := filesystem.StatWithRetry(abs, h.retry)
	if err != nil {
		h.fileError(w, clean, err)
		return
	}
	if info.IsDir() {
		http.Redirect(w, r, "/api/list?path="+url.QueryEscape(clean), http.StatusFound)
		return
	}
	if !info.Mode().IsRegular() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	f, err := filesystem.OpenWithRetry(abs, h.retry)
	if err != nil {
		h.fileError(w, clean, err)
		return
	}
	defer f.Close()

	if ct := classify.MimeType(info.Name()); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// GetArtifact serves a thumbnail from the cache tree. Only artifact names
// are served, so progress files and temporaries stay private.
func (h *Handlers) GetArtifact(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean("/"+mux.Vars(r)["path"]), "/")
	if !cache.IsArtifactName(path.Base(rel)) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	abs := filepath.Join(h.root.Cache, filepath.FromSlash(rel))
	f, err := filesystem.OpenWithRetry(abs, h.retry)
	if err != nil {
		h.fileError(w, rel, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", artifactCacheControl)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *Handlers) fileError(w http.ResponseWriter, rel string, err error) {
	switch {
	case errors.Is(filesystem.Classify(err), filesystem.ErrNotFound):
		http.Error(w, "File not found", http.StatusNotFound)
	case errors.Is(filesystem.Classify(err), filesystem.ErrPermissionDenied):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		logging.Error("serving %s failed: %v", rel, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
