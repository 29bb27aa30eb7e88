// Package services implements the Spotify Web API client used by the listing, enrichment, and copy layers.
//
// # Request Dispatch
//
// [SpotifyService] never touches tokens. Every request goes through a [Doer],
// which in production is the authenticated pipeline from internal/auth. Tests
// substitute a plain [http.Client] pointed at an httptest server.
//
// # Batch Artist Lookup
//
// The artists endpoint accepts at most 50 comma-joined IDs per call.
// [GenreResolver] owns the chunking, merging, and partial-failure policy so
// callers can pass arbitrarily many IDs. Partial results are a feature:
// genre decoration is best-effort and a failed chunk never fails the caller.
//
// # Error Handling
//
// Services use typed errors from shared:
//   - [shared.ErrAPIRequest] : non-2xx response
//   - [shared.ErrPlaylistNotFound] : 404 on a playlist endpoint
//   - [shared.ErrReauthRequired] : surfaced by the pipeline when refresh fails
package services
