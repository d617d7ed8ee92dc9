package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/version"
)

var (
	ErrNoCredentials   = errors.New("twitch client id and secret are not configured")
	ErrUnauthorized    = errors.New("twitch rejected credentials")
	ErrUserNotFound    = errors.New("twitch user not found")
	ErrChannelNotFound = errors.New("twitch channel not found")
)

// tokenExpiryMargin renews tokens slightly before Twitch expires them.
const tokenExpiryMargin = time.Minute

// Client talks to the Twitch OAuth and Helix APIs with an app access token.
type Client struct {
	cfg        *Config
	log        logrus.FieldLogger
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	token *token
}

// New creates a new Twitch client.
func New(cfg *Config, log logrus.FieldLogger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		cfg:        cfg,
		log:        log.WithField("component", "twitch"),
		httpClient: cfg.HTTPClient(),
		now:        time.Now,
	}, nil
}

// ClientID returns the configured application id.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// Authenticate returns a valid app access token, requesting a new one
// when none is cached or the cached one is about to expire.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.now().Before(c.token.expiresAt) {
		return c.token.accessToken, nil
	}

	if !c.cfg.HasCredentials() {
		return "", ErrNoCredentials
	}

	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("client_secret", c.cfg.ClientSecret)
	params.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUnauthorized)
	}

	ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin
	c.token = &token{
		accessToken: tr.AccessToken,
		expiresAt:   c.now().Add(ttl),
	}

	c.log.WithField("expires_in", tr.ExpiresIn).Debug("Obtained Twitch app access token")

	return tr.AccessToken, nil
}

// Invalidate drops the cached token so the next call re-authenticates.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// GetUser looks up a user by login name.
func (c *Client) GetUser(ctx context.Context, login string) (*User, error) {
	var resp dataResponse[User]
	if err := c.get(ctx, "/users", url.Values{"login": {login}}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, login)
	}

	return &resp.Data[0], nil
}

// GetChannel returns channel information for a broadcaster id.
func (c *Client) GetChannel(ctx context.Context, broadcasterID string) (*Channel, error) {
	var resp dataResponse[Channel]
	if err := c.get(ctx, "/channels", url.Values{"broadcaster_id": {broadcasterID}}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, broadcasterID)
	}

	return &resp.Data[0], nil
}

// Connect authenticates and resolves the broadcaster id and current game for
// login. Failures never propagate: an auth failure yields an unauthenticated
// identity, a lookup failure yields an identity without a game.
func (c *Client) Connect(ctx context.Context, login string) Identity {
	accessToken, err := c.Authenticate(ctx)
	if err != nil {
		c.log.WithError(err).Debug("Twitch authentication failed")

		return Identity{}
	}

	identity := Identity{Token: accessToken}

	user, err := c.GetUser(ctx, login)
	if err != nil {
		c.log.WithError(err).WithField("login", login).Warn("Failed to look up Twitch user")

		return identity
	}

	identity.BroadcasterID = user.ID

	channel, err := c.GetChannel(ctx, user.ID)
	if err != nil {
		c.log.WithError(err).WithField("broadcaster_id", user.ID).Warn("Failed to get Twitch channel information")

		return identity
	}

	identity.GameName = channel.GameName

	return identity
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	accessToken, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}

	endpoint := strings.TrimSuffix(c.cfg.APIURL, "/") + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Client-Id", c.cfg.ClientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.Invalidate()

		return fmt.Errorf("%w: %s returned 401", ErrUnauthorized, path)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	return nil
}
