package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"autogallery/internal/listing"
	"autogallery/internal/logging"
)

// mobileTags are User-Agent substrings that get the narrow gallery row.
var mobileTags = []string{"Android", "Windows Phone", "iPod", "iPhone"}

// isMobile reports whether the User-Agent looks like a phone.
func isMobile(userAgent string) bool {
	for _, tag := range mobileTags {
		if strings.Contains(userAgent, tag) {
			return true
		}
	}
	return false
}

// ListResponse is a listing plus the layout hint for the front end.
type ListResponse struct {
	*listing.Listing
	ItemsPerRow int  `json:"itemsPerRow"`
	Mobile      bool `json:"mobile"`
}

// ListDirectory returns the listing of ?path= as JSON. A path naming a file
// redirects to its /files URL.
func (h *Handlers) ListDirectory(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")

	result, err := h.lister.List(r.Context(), rel)
	switch {
	case errors.Is(err, listing.ErrNotDirectory):
		clean, _, _ := h.lister.Resolve(rel)
		http.Redirect(w, r, fileURL(clean), http.StatusFound)
		return
	case errors.Is(err, listing.ErrNotFound):
		writeJSONError(w, "Directory not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("listing %q failed: %v", rel, err)
		writeJSONError(w, "Failed to list directory", http.StatusInternalServerError)
		return
	}

	mobile := isMobile(r.UserAgent())
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatus(w, http.StatusOK, ListResponse{
		Listing:     result,
		ItemsPerRow: h.config.ItemsPerRow(mobile),
		Mobile:      mobile,
	})
}

// fileURL escapes each segment of a slash-separated relative path.
func fileURL(rel string) string {
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/files/" + strings.Join(parts, "/")
}
