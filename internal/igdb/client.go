package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/overlay-backend/internal/version"
)

var (
	ErrUnauthorized = errors.New("igdb rejected access token")
	ErrRateLimited  = errors.New("rate limited by igdb")
)

// TokenSource supplies Twitch app credentials for IGDB requests.
type TokenSource interface {
	Authenticate(ctx context.Context) (string, error)
	ClientID() string
	Invalidate()
}

// Client queries the IGDB v4 API.
type Client struct {
	cfg        *Config
	log        logrus.FieldLogger
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
}

// New creates a new IGDB client authenticated through tokens.
func New(cfg *Config, log logrus.FieldLogger, tokens TokenSource) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		cfg:        cfg,
		log:        log.WithField("component", "igdb"),
		httpClient: cfg.HTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		tokens:     tokens,
	}, nil
}

// QueryGame looks up a game by exact (case-insensitive) name. An empty
// slice means no match.
func (c *Client) QueryGame(ctx context.Context, name string) ([]Game, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	accessToken, err := c.tokens.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	query := BuildGameQuery(name)

	c.log.WithField("query", query).Debug("IGDB game request")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		strings.TrimSuffix(c.cfg.APIURL, "/")+"/games",
		strings.NewReader(query),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Client-ID", c.tokens.ClientID())
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch games: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var games []Game
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}

	return games, nil
}

// BuildGameQuery builds an Apicalypse query for a single game by name.
func BuildGameQuery(name string) string {
	return fmt.Sprintf(
		"fields %s; where name ~ \"%s\"; limit 1;",
		strings.Join(gameFields, ","),
		escapeString(name),
	)
}

func escapeString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func (c *Client) statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.tokens.Invalidate()

		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErrs []apiError
	if json.Unmarshal(body, &apiErrs) == nil && len(apiErrs) > 0 {
		return fmt.Errorf("unexpected status code: %d: %s: %s", resp.StatusCode, apiErrs[0].Title, apiErrs[0].Cause)
	}

	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}
