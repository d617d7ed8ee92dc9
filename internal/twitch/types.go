//nolint:tagliatelle // Helix uses snake_case.
package twitch

import "time"

// tokenResponse is the client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type token struct {
	accessToken string
	expiresAt   time.Time
}

// User is a Helix user.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// Channel is the Helix channel information for a broadcaster.
type Channel struct {
	BroadcasterID    string `json:"broadcaster_id"`
	BroadcasterLogin string `json:"broadcaster_login"`
	GameID           string `json:"game_id"`
	GameName         string `json:"game_name"`
	Title            string `json:"title"`
}

type dataResponse[T any] struct {
	Data []T `json:"data"`
}

// Identity is the outcome of Connect. An empty Token means the client is
// unauthenticated and dependent lookups should be skipped.
type Identity struct {
	Token         string
	BroadcasterID string
	GameName      string
}

// Authenticated reports whether a bearer token was obtained.
func (i Identity) Authenticated() bool {
	return i.Token != ""
}
