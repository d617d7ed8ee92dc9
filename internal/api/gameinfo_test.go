package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	gameinfomocks "github.com/ethpandaops/overlay-backend/internal/gameinfo/mocks"
	"github.com/ethpandaops/overlay-backend/internal/igdb"
	"github.com/ethpandaops/overlay-backend/internal/testutil"
)

func TestGameInfoHandler_ServeHTTP(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		snapshot       *gameinfo.Snapshot
		found          bool
		providerNil    bool
		expectedStatus int
		validateResp   func(t *testing.T, resp GameInfoResponse)
	}{
		{
			name: "matched record",
			snapshot: &gameinfo.Snapshot{
				GameName:  "Super Mario World",
				Record:    &gameinfo.Record{Name: "Super Mario World", Platforms: []string{"SNES"}},
				UpdatedAt: updated,
			},
			found:          true,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp GameInfoResponse) {
				t.Helper()

				assert.True(t, resp.Found)
				require.NotNil(t, resp.Record)
				assert.Equal(t, []string{"SNES"}, resp.Record.Platforms)
				assert.Equal(t, "2026-03-01T12:00:00Z", resp.UpdatedAt)
			},
		},
		{
			name:           "no match returns 404 with game name",
			snapshot:       &gameinfo.Snapshot{GameName: "Some Romhack", UpdatedAt: updated},
			found:          true,
			expectedStatus: http.StatusNotFound,
			validateResp: func(t *testing.T, resp GameInfoResponse) {
				t.Helper()

				assert.False(t, resp.Found)
				assert.Equal(t, "Some Romhack", resp.GameName)
				assert.Nil(t, resp.Record)
			},
		},
		{
			name:           "nothing stored returns 404",
			expectedStatus: http.StatusNotFound,
			validateResp: func(t *testing.T, resp GameInfoResponse) {
				t.Helper()

				assert.False(t, resp.Found)
			},
		},
		{
			name:           "nil provider returns 503",
			providerNil:    true,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			var provider gameinfo.Provider

			if !tt.providerNil {
				mockProvider := gameinfomocks.NewMockProvider(ctrl)
				mockProvider.EXPECT().
					Get(gomock.Any()).
					Return(tt.snapshot, tt.found).
					Times(1)
				provider = mockProvider
			}

			handler := NewGameInfoHandler(provider, testutil.NewTestLogger())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gameinfo", http.NoBody))

			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.validateResp != nil {
				var resp GameInfoResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				tt.validateResp(t, resp)
			}
		})
	}
}

func TestGameInfoRefreshHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		snapshot       *gameinfo.Snapshot
		err            error
		expectedStatus int
	}{
		{
			name:           "refreshed",
			snapshot:       &gameinfo.Snapshot{GameName: "Super Mario World", Record: &gameinfo.Record{Name: "Super Mario World"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed record returns 502",
			err:            gameinfo.ErrUnknownRegion,
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "rate limited returns 502",
			err:            igdb.ErrRateLimited,
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "unauthenticated returns 503",
			err:            gameinfo.ErrUnauthenticated,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			mockProvider := gameinfomocks.NewMockProvider(ctrl)
			mockProvider.EXPECT().
				Refresh(gomock.Any()).
				Return(tt.snapshot, tt.err).
				Times(1)

			handler := NewGameInfoRefreshHandler(mockProvider, testutil.NewTestLogger())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/gameinfo/refresh", http.NoBody))

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
