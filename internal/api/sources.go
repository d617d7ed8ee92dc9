package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/obs"
)

// InputLister enumerates OBS inputs.
type InputLister interface {
	ListInputs(ctx context.Context, kinds ...string) ([]obs.Input, error)
}

// Verify interface compliance at compile time.
var _ http.Handler = (*SourcesHandler)(nil)

// SourcesHandler handles GET /api/v1/sources?kind=text|browser requests,
// listing the inputs that can be picked as counter or panel targets.
type SourcesHandler struct {
	lister InputLister
	logger logrus.FieldLogger
}

// NewSourcesHandler creates a new sources handler. lister may be nil when
// OBS is disabled.
func NewSourcesHandler(lister InputLister, logger logrus.FieldLogger) *SourcesHandler {
	return &SourcesHandler{
		lister: lister,
		logger: logger.WithField("handler", "sources"),
	}
}

// ServeHTTP lists matching inputs by name.
func (h *SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		http.Error(w, "obs integration disabled", http.StatusServiceUnavailable)

		return
	}

	var kinds []string

	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "text":
		kinds = obs.TextInputKinds
	case "browser":
		kinds = obs.BrowserInputKinds
	default:
		http.Error(w, "kind must be text or browser", http.StatusBadRequest)

		return
	}

	inputs, err := h.lister.ListInputs(r.Context(), kinds...)
	if err != nil {
		if errors.Is(err, obs.ErrNotConnected) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)

			return
		}

		h.logger.WithError(err).Warn("Failed to list OBS inputs")
		http.Error(w, "failed to list obs inputs", http.StatusBadGateway)

		return
	}

	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		names = append(names, in.Name)
	}

	writeJSON(w, h.logger, http.StatusOK, names)
}
