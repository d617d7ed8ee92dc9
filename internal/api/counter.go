package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	"github.com/ethpandaops/overlay-backend/internal/session"
)

// Session is the part of the overlay session the API drives.
type Session interface {
	State() session.CounterState
	Dispatch(ctx context.Context, id string) error
}

// Verify interface compliance at compile time.
var (
	_ http.Handler = (*CounterHandler)(nil)
	_ http.Handler = (*CommandHandler)(nil)
)

// CounterHandler handles GET /api/v1/counter requests.
type CounterHandler struct {
	session Session
	logger  logrus.FieldLogger
}

// NewCounterHandler creates a new counter handler.
func NewCounterHandler(sess Session, logger logrus.FieldLogger) *CounterHandler {
	return &CounterHandler{
		session: sess,
		logger:  logger.WithField("handler", "counter"),
	}
}

// ServeHTTP returns the current counter state.
func (h *CounterHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.session.State())
}

// CommandHandler handles POST /api/v1/commands/{command} requests.
type CommandHandler struct {
	session Session
	logger  logrus.FieldLogger
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(sess Session, logger logrus.FieldLogger) *CommandHandler {
	return &CommandHandler{
		session: sess,
		logger:  logger.WithField("handler", "commands"),
	}
}

// ServeHTTP dispatches the command named in the path.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	command := r.PathValue("command")
	if command == "" {
		http.Error(w, "command parameter required", http.StatusBadRequest)

		return
	}

	if err := h.session.Dispatch(r.Context(), command); err != nil {
		writeDispatchError(w, h.logger.WithField("command", command), err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeDispatchError maps a dispatch failure onto an HTTP status.
func writeDispatchError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownCommand):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrGameInfoDisabled), errors.Is(err, gameinfo.ErrUnauthenticated):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case gameinfo.IsDataError(err):
		logger.WithError(err).Error("Command failed on malformed upstream data")
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		logger.WithError(err).Warn("Command failed")
		http.Error(w, "upstream request failed", http.StatusBadGateway)
	}
}
