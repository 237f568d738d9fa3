package api

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/changelog"
)

// ChangelogResponse is the body of GET /api/changelog
type ChangelogResponse struct {
	Data  string           `json:"data"`
	Stats changelog.Counts `json:"stats"`
	// Error names the failure when Data is a sentinel for an unusable store
	Error string `json:"error,omitempty"`
}

func (h *Handler) fetchChangelog(r *http.Request) changelog.Result {
	res := changelog.Fetch(r.Context(), h.store)
	switch res.Outcome {
	case changelog.OutcomeConfigError:
		h.log.Error(res.Err, "changelog unavailable: store not configured")
	case changelog.OutcomeQueryError:
		h.log.Error(res.Err, "changelog unavailable: query failed")
	default:
		h.log.V(1).Info("changelog built", "outcome", res.Outcome.String(), "items", res.Report.Counts.Total())
	}
	return res
}

// getChangelog always answers 200; store failures become sentinel text with zero counts
func (h *Handler) getChangelog(w http.ResponseWriter, r *http.Request) {
	disableCaching(w)
	res := h.fetchChangelog(r)

	body := ChangelogResponse{Data: res.Report.Text, Stats: res.Report.Counts}
	if res.Outcome.Failed() {
		body.Error = res.Outcome.String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) downloadChangelog(w http.ResponseWriter, r *http.Request) {
	disableCaching(w)
	res := h.fetchChangelog(r)

	filename := changelog.DownloadFilename(h.now())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Report.Text)
}

func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	f, err := h.blobs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, blob.ErrInvalidName) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		h.internalError(w, "failed to open image", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.internalError(w, "failed to stat image", err)
		return
	}
	contentType, err := blob.ContentType(f)
	if err != nil {
		h.internalError(w, "failed to read image", err)
		return
	}

	hdr := w.Header()
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if blob.IsImageType(contentType) {
		hdr.Set("Content-Type", contentType)
	} else {
		// Objects stored before uploads were checked are never rendered inline
		hdr.Set("Content-Type", "application/octet-stream")
		hdr.Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}
