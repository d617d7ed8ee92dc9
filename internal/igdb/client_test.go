package igdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token       string
	err         error
	invalidated int
}

func (s *staticTokens) Authenticate(context.Context) (string, error) { return s.token, s.err }
func (s *staticTokens) ClientID() string                             { return "client-id" }
func (s *staticTokens) Invalidate()                                  { s.invalidated++ }

func newTestClient(t *testing.T, url string, tokens TokenSource) *Client {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := New(&Config{APIURL: url, RequestTimeout: 5 * time.Second}, logger, tokens)
	require.NoError(t, err)

	return client
}

func TestClient_QueryGame(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expectedErr   error
		errorContains string
		validate      func(t *testing.T, games []Game)
	}{
		{
			name:   "single match",
			status: http.StatusOK,
			body:   `[{"id": 1070, "name": "Super Mario World", "cover": {"id": 1, "image_id": "co1vcf"}, "platforms": [{"id": 19, "abbreviation": "SNES"}]}]`,
			validate: func(t *testing.T, games []Game) {
				t.Helper()

				require.Len(t, games, 1)
				require.NotNil(t, games[0].Name)
				assert.Equal(t, "Super Mario World", *games[0].Name)
				require.NotNil(t, games[0].Cover.ImageID)
				assert.Equal(t, "co1vcf", *games[0].Cover.ImageID)
				require.Len(t, games[0].Platforms, 1)
				assert.Equal(t, "SNES", *games[0].Platforms[0].Abbreviation)
			},
		},
		{
			name:   "no match",
			status: http.StatusOK,
			body:   `[]`,
			validate: func(t *testing.T, games []Game) {
				t.Helper()

				assert.Empty(t, games)
			},
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			expectedErr: ErrUnauthorized,
		},
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			expectedErr: ErrRateLimited,
		},
		{
			name:          "syntax error body",
			status:        http.StatusBadRequest,
			body:          `[{"title": "Syntax Error", "status": 400, "cause": "Missing ;"}]`,
			errorContains: "Syntax Error",
		},
		{
			name:          "invalid JSON",
			status:        http.StatusOK,
			body:          `not json`,
			errorContains: "parse JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/games", r.URL.Path)
				assert.Equal(t, "client-id", r.Header.Get("Client-ID"))
				assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				assert.Contains(t, string(body), `where name ~ "Super Mario World"`)

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck // test.
			}))
			defer server.Close()

			tokens := &staticTokens{token: "token"}
			client := newTestClient(t, server.URL, tokens)

			games, err := client.QueryGame(context.Background(), "Super Mario World")

			if tt.expectedErr != nil || tt.errorContains != "" {
				require.Error(t, err)

				if tt.expectedErr != nil {
					assert.ErrorIs(t, err, tt.expectedErr)
				}

				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}

				return
			}

			require.NoError(t, err)
			tt.validate(t, games)
		})
	}
}

func TestClient_QueryGame_InvalidatesTokenOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := &staticTokens{token: "stale"}
	client := newTestClient(t, server.URL, tokens)

	_, err := client.QueryGame(context.Background(), "Anything")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, tokens.invalidated)
}

func TestClient_QueryGame_AuthFailure(t *testing.T) {
	tokens := &staticTokens{err: errors.New("no credentials")}
	client := newTestClient(t, "http://127.0.0.1:0", tokens)

	_, err := client.QueryGame(context.Background(), "Anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authenticate")
}

func TestBuildGameQuery(t *testing.T) {
	query := BuildGameQuery(`Kirby "Dream" Land \ 3`)

	assert.Contains(t, query, "fields name,cover.image_id,platforms.abbreviation,")
	assert.Contains(t, query, "release_dates.region")
	assert.Contains(t, query, `where name ~ "Kirby \"Dream\" Land \\ 3";`)
	assert.Contains(t, query, "limit 1;")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "applies defaults", config: Config{}},
		{name: "rate above igdb limit", config: Config{RequestsPerSecond: 10}, expectError: true},
		{name: "timeout too low", config: Config{RequestTimeout: time.Millisecond}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, DefaultAPIURL, tt.config.APIURL)
			assert.InDelta(t, 4.0, tt.config.RequestsPerSecond, 0)
		})
	}
}
