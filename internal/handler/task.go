package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/model"
	"github.com/BuzzLyutic/flowtrack/internal/service"
	"github.com/BuzzLyutic/flowtrack/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {

	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	task, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.Created(w, r, fmt.Sprintf("/api/tasks/%d", task.ID), task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, h.service.List(r.Context()))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, map[string]bool{"success": deleted})
}

func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, r, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	var opErr *service.OpError
	op, id := "", int64(0)
	if errors.As(err, &opErr) {
		op, id = opErr.Op, opErr.ID
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		respond.OpError(w, r, http.StatusNotFound, op, id, err.Error())
	case errors.Is(err, service.ErrRemote), errors.Is(err, service.ErrCreateFailed):
		respond.OpError(w, r, http.StatusBadGateway, op, id, err.Error())
	default:
		h.logger.Error("internal error", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
		respond.OpError(w, r, http.StatusInternalServerError, op, id, "internal error")
	}
}
