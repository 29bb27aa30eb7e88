// Package server provides HTTP routing, middleware, and OAuth handling for the CLI and web surfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. [BasicRouter] uses [http.ServeMux]
// internally with method filtering.
//
// # OAuth
//
// Two flows share one oauth2.Config. [OAuthHandler] backs the CLI's loopback
// flow: a short-lived localhost server validates state, exchanges the code,
// and delivers exactly one result over a channel. [SessionAuthHandler] backs
// the web flow: /login sets a state cookie and redirects, /callback exchanges
// the code and binds the token pair to a session cookie in the credential
// store.
//
// # JSON API
//
// [APIHandler] assembles a per-session authenticated pipeline on every
// request; nothing about Spotify credentials is shared between sessions. The
// rendering layer consuming this API lives elsewhere.
package server
