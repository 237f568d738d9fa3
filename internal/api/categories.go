package api

import (
	"errors"
	"net/http"

	"github.com/syahfalah4787/wishlist-bug/internal/storage"
	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.internalError(w, "failed to list categories", err)
		return
	}
	if categories == nil {
		categories = []*types.Category{}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: categories})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := &types.Category{Name: req.Name}
	if err := category.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateCategory(r.Context(), category); err != nil {
		h.internalError(w, "failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: category})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := h.store.DeleteCategory(r.Context(), id, actor(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		h.internalError(w, "failed to delete category", err)
		return
	}

	for _, item := range removed {
		h.removeImage(item)
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "category deleted"})
}
