package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/pkg/respond"
)

// FileHandler exposes the upload field registry.
type FileHandler struct {
	registry *files.Registry
	logger   *zap.Logger
}

func NewFileHandler(registry *files.Registry, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		registry: registry,
		logger:   logger,
	}
}

type fieldState struct {
	ElementID string             `json:"elementId,omitempty"`
	FieldKey  string             `json:"fieldKey"`
	Files     []files.Descriptor `json:"files"`
	Changed   *bool              `json:"changed,omitempty"`
}

func (h *FileHandler) Mount(w http.ResponseWriter, r *http.Request) {
	var cfg files.FieldConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	elementID, err := h.registry.Mount(chi.URLParam(r, "elementId"), cfg)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	current, err := h.registry.Files(cfg.FieldKey)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, fieldState{ElementID: elementID, FieldKey: cfg.FieldKey, Files: current})
}

func (h *FileHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Unmount(chi.URLParam(r, "elementId")) {
		respond.Error(w, r, http.StatusNotFound, files.ErrFieldNotMounted.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) Sync(w http.ResponseWriter, r *http.Request) {
	fieldKey := chi.URLParam(r, "fieldKey")

	var existing []files.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&existing); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	changed, err := h.registry.Sync(fieldKey, existing)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	current, err := h.registry.Files(fieldKey)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, fieldState{FieldKey: fieldKey, Files: current, Changed: &changed})
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	fieldKey := chi.URLParam(r, "fieldKey")
	current, err := h.registry.Files(fieldKey)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, fieldState{FieldKey: fieldKey, Files: current})
}

func (h *FileHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.ClearField(chi.URLParam(r, "fieldKey")); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, files.ErrFieldNotMounted):
		respond.Error(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, files.ErrNoFieldKey):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("file field error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
