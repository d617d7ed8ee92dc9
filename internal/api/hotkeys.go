package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/hotkeys"
)

// Bindings is the hotkey table the API edits and fires.
type Bindings interface {
	Bindings() map[string]string
	Bind(ctx context.Context, trigger, command string) error
	Unbind(ctx context.Context, trigger string) error
	Fire(ctx context.Context, trigger string) error
}

// BindRequest is the body of PUT /api/v1/hotkeys/{trigger}.
type BindRequest struct {
	Command string `json:"command"`
}

// HotkeysHandler serves the /api/v1/hotkeys routes.
type HotkeysHandler struct {
	bindings Bindings
	logger   logrus.FieldLogger
}

// NewHotkeysHandler creates a new hotkeys handler.
func NewHotkeysHandler(bindings Bindings, logger logrus.FieldLogger) *HotkeysHandler {
	return &HotkeysHandler{
		bindings: bindings,
		logger:   logger.WithField("handler", "hotkeys"),
	}
}

// List handles GET /api/v1/hotkeys.
func (h *HotkeysHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.bindings.Bindings())
}

// Bind handles PUT /api/v1/hotkeys/{trigger}.
func (h *HotkeysHandler) Bind(w http.ResponseWriter, r *http.Request) {
	trigger := r.PathValue("trigger")

	var req BindRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	err := h.bindings.Bind(r.Context(), trigger, req.Command)

	switch {
	case err == nil:
		h.logger.WithFields(logrus.Fields{
			"trigger": trigger,
			"command": req.Command,
		}).Info("Bound hotkey")
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, hotkeys.ErrInvalidCommand), errors.Is(err, hotkeys.ErrInvalidTrigger):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.WithError(err).Error("Failed to save hotkey binding")
		http.Error(w, "failed to save binding", http.StatusInternalServerError)
	}
}

// Unbind handles DELETE /api/v1/hotkeys/{trigger}.
func (h *HotkeysHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	err := h.bindings.Unbind(r.Context(), r.PathValue("trigger"))

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, hotkeys.ErrUnbound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.WithError(err).Error("Failed to save hotkey binding")
		http.Error(w, "failed to save binding", http.StatusInternalServerError)
	}
}

// Fire handles POST /api/v1/hotkeys/{trigger}.
func (h *HotkeysHandler) Fire(w http.ResponseWriter, r *http.Request) {
	trigger := r.PathValue("trigger")

	err := h.bindings.Fire(r.Context(), trigger)

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, hotkeys.ErrUnbound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		writeDispatchError(w, h.logger.WithField("trigger", trigger), err)
	}
}
