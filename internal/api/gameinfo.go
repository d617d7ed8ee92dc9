//nolint:tagliatelle // superior snake-case yo.
package api

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
)

// GameInfoResponse is the JSON response for /api/v1/gameinfo.
type GameInfoResponse struct {
	Found     bool             `json:"found"`
	GameName  string           `json:"game_name,omitempty"`
	Record    *gameinfo.Record `json:"record,omitempty"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

func newGameInfoResponse(snapshot *gameinfo.Snapshot) GameInfoResponse {
	if snapshot == nil {
		return GameInfoResponse{}
	}

	return GameInfoResponse{
		Found:     snapshot.Found(),
		GameName:  snapshot.GameName,
		Record:    snapshot.Record,
		UpdatedAt: snapshot.UpdatedAt.Format(time.RFC3339),
	}
}

// Verify interface compliance at compile time.
var (
	_ http.Handler = (*GameInfoHandler)(nil)
	_ http.Handler = (*GameInfoRefreshHandler)(nil)
)

// GameInfoHandler handles GET /api/v1/gameinfo requests.
type GameInfoHandler struct {
	provider gameinfo.Provider
	logger   logrus.FieldLogger
}

// NewGameInfoHandler creates a new game info handler. provider may be nil
// when game info is disabled.
func NewGameInfoHandler(provider gameinfo.Provider, logger logrus.FieldLogger) *GameInfoHandler {
	return &GameInfoHandler{
		provider: provider,
		logger:   logger.WithField("handler", "gameinfo"),
	}
}

// ServeHTTP returns the stored snapshot, or 404 with found=false when no
// record matched.
func (h *GameInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.Error(w, "game info service unavailable", http.StatusServiceUnavailable)

		return
	}

	snapshot, _ := h.provider.Get(r.Context())

	resp := newGameInfoResponse(snapshot)
	if !resp.Found {
		writeJSON(w, h.logger, http.StatusNotFound, resp)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// GameInfoRefreshHandler handles POST /api/v1/gameinfo/refresh requests.
type GameInfoRefreshHandler struct {
	provider gameinfo.Provider
	logger   logrus.FieldLogger
}

// NewGameInfoRefreshHandler creates a new refresh handler.
func NewGameInfoRefreshHandler(provider gameinfo.Provider, logger logrus.FieldLogger) *GameInfoRefreshHandler {
	return &GameInfoRefreshHandler{
		provider: provider,
		logger:   logger.WithField("handler", "gameinfo_refresh"),
	}
}

// ServeHTTP fetches from upstream immediately and returns the new snapshot.
func (h *GameInfoRefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.Error(w, "game info service unavailable", http.StatusServiceUnavailable)

		return
	}

	snapshot, err := h.provider.Refresh(r.Context())
	if err != nil {
		writeDispatchError(w, h.logger, err)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, newGameInfoResponse(snapshot))
}
