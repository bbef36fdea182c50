package stubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/estatehub/seeder/internal/models"
	"github.com/estatehub/seeder/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxJSONBody = 1 << 20

// Options tune the stub backend.
type Options struct {
	// FailOwnerEvery makes every Nth owner creation answer 500. Zero disables it.
	FailOwnerEvery int
	// UploadField is the multipart field holding the file, "file" when empty.
	UploadField string
}

type Handler struct {
	store      store.Store
	validator  *validator
	opts       Options
	logger     *slog.Logger
	ownerCalls atomic.Int64
	now        func() time.Time
}

func newHandler(st store.Store, opts Options, logger *slog.Logger) (*Handler, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	if opts.UploadField == "" {
		opts.UploadField = "file"
	}
	return &Handler{
		store:     st,
		validator: v,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.logger.Warn("Request rejected", "status", code, "message", message)
	http.Error(w, message, code)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, schema string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		h.writeError(w, "Failed to read body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if err := h.validator.validate(schema, body); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (h *Handler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	call := h.ownerCalls.Add(1)
	if h.opts.FailOwnerEvery > 0 && call%int64(h.opts.FailOwnerEvery) == 0 {
		h.writeError(w, "Injected owner creation failure", http.StatusInternalServerError)
		return
	}

	body, ok := h.readJSON(w, r, "owner")
	if !ok {
		return
	}
	var in models.Owner
	if err := json.Unmarshal(body, &in); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	owner, err := h.store.CreateOwner(r.Context(), models.Owner{Name: in.Name, Address: in.Address})
	if err != nil {
		h.writeError(w, "Failed to create owner: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.logger.Debug("Owner created", "owner_id", owner.ID)
	h.writeJSON(w, http.StatusCreated, owner)
}

func (h *Handler) GetOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "ownerID")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	owner, err := h.store.GetOwner(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, "Owner not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, owner)
}

func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.store.ListOwners(r.Context())
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, owners)
}

type propertyRequest struct {
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	Price        float64         `json:"price"`
	CodeInternal string          `json:"codeInternal"`
	Year         int             `json:"year"`
	IDOwner      json.RawMessage `json:"idOwner"`
}

func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readJSON(w, r, "property")
	if !ok {
		return
	}
	var in propertyRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if in.Year > h.now().Year() {
		h.writeError(w, "year cannot be in the future", http.StatusBadRequest)
		return
	}
	ownerID, err := strconv.ParseInt(strings.Trim(string(in.IDOwner), `"`), 10, 64)
	if err != nil {
		h.writeError(w, "invalid idOwner", http.StatusBadRequest)
		return
	}

	prop, err := h.store.CreateProperty(r.Context(), models.Property{
		Name:         in.Name,
		Address:      in.Address,
		Price:        in.Price,
		CodeInternal: in.CodeInternal,
		Year:         in.Year,
		IDOwner:      ownerID,
	})
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, "Owner not found", http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to create property: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.logger.Debug("Property created", "property_id", prop.ID, "owner_id", ownerID)
	h.writeJSON(w, http.StatusCreated, prop)
}

func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	if raw := r.URL.Query().Get("ownerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, "invalid ownerId", http.StatusBadRequest)
			return
		}
		ownerID = id
	}
	props, err := h.store.ListProperties(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, props)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Counts(r.Context())
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("Unable to write healthcheck", "err", err)
	}
}
