// package services defines clients for the downstream HTTP APIs
package services

import (
	"net/http"

	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyTokenURL is the token endpoint used for refresh exchanges.
const SpotifyTokenURL = spotifyTokenURL

// Doer dispatches an HTTP request. Satisfied by [http.Client] and by the
// authenticated pipeline in internal/auth.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewOAuthConfig builds the OAuth2 authorization-code config for Spotify.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}
