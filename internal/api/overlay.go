package api

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// PanelSource provides the rendered game info panel.
type PanelSource interface {
	HTML() []byte
}

// Verify interface compliance at compile time.
var _ http.Handler = (*OverlayHandler)(nil)

// OverlayHandler handles GET /overlay/gameinfo, the URL an OBS browser
// source points at.
type OverlayHandler struct {
	panel  PanelSource
	logger logrus.FieldLogger
}

// NewOverlayHandler creates a new overlay handler.
func NewOverlayHandler(panel PanelSource, logger logrus.FieldLogger) *OverlayHandler {
	return &OverlayHandler{
		panel:  panel,
		logger: logger.WithField("handler", "overlay"),
	}
}

// ServeHTTP writes the last rendered panel.
func (h *OverlayHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if h.panel == nil {
		http.Error(w, "game info panel unavailable", http.StatusServiceUnavailable)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	if _, err := w.Write(h.panel.HTML()); err != nil {
		h.logger.WithError(err).Debug("Failed to write panel")
	}
}
