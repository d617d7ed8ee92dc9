package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	gameinfomocks "github.com/ethpandaops/overlay-backend/internal/gameinfo/mocks"
	"github.com/ethpandaops/overlay-backend/internal/session"
	"github.com/ethpandaops/overlay-backend/internal/testutil"
)

func newTestSession(t *testing.T, provider gameinfo.Provider) *session.Session {
	t.Helper()

	limit := 5
	cfg := session.CounterConfig{Start: 4, MaxEnabled: true, Max: &limit}
	require.NoError(t, cfg.Validate())

	return session.New(context.Background(), testutil.NewTestLogger(), cfg, nil, provider)
}

func TestCounterHandler_ServeHTTP(t *testing.T) {
	handler := NewCounterHandler(newTestSession(t, nil), testutil.NewTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/counter", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var state session.CounterState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, 4, state.Value)
	require.NotNil(t, state.Max)
	assert.Equal(t, 5, *state.Max)
	assert.Equal(t, "Exits: 4/5", state.Display)
}

func TestCommandHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		command        string
		refreshErr     error
		expectRefresh  bool
		expectedStatus int
		expectedValue  int
	}{
		{
			name:           "increment",
			command:        session.CommandIncrement,
			expectedStatus: http.StatusNoContent,
			expectedValue:  5,
		},
		{
			name:           "reset",
			command:        session.CommandReset,
			expectedStatus: http.StatusNoContent,
			expectedValue:  0,
		},
		{
			name:           "unknown command returns 404",
			command:        "counter.explode",
			expectedStatus: http.StatusNotFound,
			expectedValue:  4,
		},
		{
			name:           "missing command returns 400",
			command:        "",
			expectedStatus: http.StatusBadRequest,
			expectedValue:  4,
		},
		{
			name:           "refresh",
			command:        session.CommandGameInfoRefresh,
			expectRefresh:  true,
			expectedStatus: http.StatusNoContent,
			expectedValue:  4,
		},
		{
			name:           "refresh with malformed data returns 502",
			command:        session.CommandGameInfoRefresh,
			refreshErr:     gameinfo.ErrMalformedRecord,
			expectRefresh:  true,
			expectedStatus: http.StatusBadGateway,
			expectedValue:  4,
		},
		{
			name:           "refresh while unauthenticated returns 503",
			command:        session.CommandGameInfoRefresh,
			refreshErr:     gameinfo.ErrUnauthenticated,
			expectRefresh:  true,
			expectedStatus: http.StatusServiceUnavailable,
			expectedValue:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			provider := gameinfomocks.NewMockProvider(ctrl)
			if tt.expectRefresh {
				provider.EXPECT().
					Refresh(gomock.Any()).
					Return(&gameinfo.Snapshot{}, tt.refreshErr).
					Times(1)
			}

			sess := newTestSession(t, provider)
			handler := NewCommandHandler(sess, testutil.NewTestLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/commands/"+tt.command, http.NoBody)
			req.SetPathValue("command", tt.command)

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedValue, sess.State().Value)
		})
	}
}

func TestCommandHandler_GameInfoDisabled(t *testing.T) {
	handler := NewCommandHandler(newTestSession(t, nil), testutil.NewTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/commands/gameinfo.refresh", http.NoBody)
	req.SetPathValue("command", session.CommandGameInfoRefresh)

	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
