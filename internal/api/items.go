package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/storage"
	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter types.ItemFilter

	if v := q.Get("type"); v != "" {
		itemType := types.ItemType(v)
		if !itemType.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid type")
			return
		}
		filter.Type = &itemType
	}
	if v := q.Get("status"); v != "" {
		status, err := types.ParseStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = &status
	}
	if v := q.Get("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	items, err := h.store.ListItems(r.Context(), filter)
	if err != nil {
		h.internalError(w, "failed to list items", err)
		return
	}
	if items == nil {
		items = []*types.Item{}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: items})
}

// createItem accepts a multipart (or url-encoded) form with title, category_id,
// type and an optional image file.
func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "invalid form")
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	title := strings.TrimSpace(r.FormValue("title"))
	categoryID := strings.TrimSpace(r.FormValue("category_id"))
	itemType := types.ItemType(strings.TrimSpace(r.FormValue("type")))
	if title == "" || categoryID == "" || itemType == "" {
		writeError(w, http.StatusBadRequest, "incomplete data")
		return
	}

	item := &types.Item{
		Title:      title,
		CategoryID: categoryID,
		Type:       itemType,
		Status:     types.StatusPending,
	}
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	imageName, ok := h.storeImage(w, r)
	if !ok {
		return
	}
	if imageName != "" {
		url := h.blobs.URL(imageName)
		item.ImageURL = &url
	}

	err := h.store.CreateItem(r.Context(), item, actor(r))
	if err != nil {
		if imageName != "" {
			h.removeImage(item)
		}
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		h.internalError(w, "failed to create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: item})
}

// storeImage saves the optional "image" form file. It returns the stored name
// ("" when no image was sent) and false if a response was already written.
func (h *Handler) storeImage(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.MultipartForm == nil {
		return "", true
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return "", false
	}
	defer file.Close()

	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return "", false
	}

	_, content, err := blob.SniffImage(file)
	if errors.Is(err, blob.ErrNotImage) {
		writeError(w, http.StatusBadRequest, "image must be a png, jpeg, gif or webp file")
		return "", false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return "", false
	}

	name := blob.ObjectName(h.now(), header.Filename)
	if _, err := h.blobs.Put(r.Context(), name, content); err != nil {
		h.internalError(w, "failed to store image", err)
		return "", false
	}
	return name, true
}

// removeImage deletes the stored image of an item, if it has one from this store
func (h *Handler) removeImage(item *types.Item) {
	if h.blobs == nil || item == nil || item.ImageURL == nil {
		return
	}
	name, ok := h.blobs.NameFromURL(*item.ImageURL)
	if !ok {
		return
	}
	if err := h.blobs.Remove(name); err != nil {
		h.log.Error(err, "failed to remove image", "item", item.ID, "image", name)
	}
}

func (h *Handler) updateItemStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := types.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	item, err := h.store.UpdateItemStatus(r.Context(), r.PathValue("id"), status, actor(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		h.internalError(w, "failed to update item", err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: item})
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.DeleteItem(r.Context(), r.PathValue("id"), actor(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		h.internalError(w, "failed to delete item", err)
		return
	}
	h.removeImage(item)
	writeJSON(w, http.StatusOK, messageResponse{Message: "item deleted"})
}

func (h *Handler) itemEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.GetEvents(r.Context(), r.PathValue("id"), 0)
	if err != nil {
		h.internalError(w, "failed to get events", err)
		return
	}
	if events == nil {
		events = []*types.Event{}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: events})
}
