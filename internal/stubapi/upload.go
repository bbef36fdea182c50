package stubapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/estatehub/seeder/internal/models"
	"github.com/estatehub/seeder/internal/store"
)

// UploadOwnerPhoto stores the metadata of an owner's profile photo.
func (h *Handler) UploadOwnerPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "ownerID")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	err = h.store.SetOwnerPhoto(r.Context(), id, img)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, "Owner not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to save photo: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"owner_id": id,
		"message":  "Successfully uploaded photo",
		"image":    img,
	})
}

// UploadPropertyImage appends an image to a property's gallery.
func (h *Handler) UploadPropertyImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "propertyID")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	err = h.store.AddPropertyImage(r.Context(), id, img)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, "Property not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to save image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"property_id": id,
		"message":     "Successfully uploaded 1 image",
		"image":       img,
	})
}

// readUpload reads the configured multipart field. No size cap is applied.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (models.Image, bool) {
	file, header, err := r.FormFile(h.opts.UploadField)
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return models.Image{}, false
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return models.Image{}, false
	}
	if size == 0 {
		h.writeError(w, "File is empty", http.StatusBadRequest)
		return models.Image{}, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return models.Image{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  h.now().UTC(),
	}, true
}
