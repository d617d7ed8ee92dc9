package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethpandaops/overlay-backend/internal/testutil"
)

type staticPanel string

func (p staticPanel) HTML() []byte { return []byte(p) }

func TestOverlayHandler_ServeHTTP(t *testing.T) {
	handler := NewOverlayHandler(staticPanel("<h1>Super Mario World</h1>"), testutil.NewTestLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/overlay/gameinfo", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>Super Mario World</h1>", rec.Body.String())

	rec = httptest.NewRecorder()
	NewOverlayHandler(nil, testutil.NewTestLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/overlay/gameinfo", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
