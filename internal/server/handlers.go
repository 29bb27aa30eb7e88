package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/auth"
	"github.com/desertthunder/sortify/internal/enrich"
	"github.com/desertthunder/sortify/internal/models"
	"github.com/desertthunder/sortify/internal/services"
	"github.com/desertthunder/sortify/internal/shared"
	"github.com/desertthunder/sortify/internal/tasks"
)

// APIDeps holds the session-independent dependencies of the JSON API.
// Per-session pipelines and services are assembled per request.
type APIDeps struct {
	Store      *auth.CredentialStore
	Refresh    auth.RefreshFunc
	HTTPClient *http.Client
	Features   enrich.FeatureSource
	Cache      enrich.FeatureCache
	Selector   tasks.Selector
	Logger     *log.Logger

	// SpotifyBaseURL overrides the API base URL. Used by tests.
	SpotifyBaseURL string
}

// APIHandler serves the JSON API: playlist listing, enriched track listing,
// and filtered copy.
type APIHandler struct {
	deps APIDeps
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(deps APIDeps) *APIHandler {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	return &APIHandler{deps: deps}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/api/playlists", "/api/playlists/"}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated, visit /login")
		return
	}

	spotify, engine := h.sessionServices(sessionID)

	rest := strings.TrimPrefix(r.URL.Path, "/api/playlists")
	rest = strings.Trim(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.listPlaylists(w, r, spotify)
	case strings.HasSuffix(rest, "/tracks") && r.Method == http.MethodGet:
		h.listTracks(w, r, spotify, strings.TrimSuffix(rest, "/tracks"))
	case strings.HasSuffix(rest, "/copy") && r.Method == http.MethodPost:
		h.copyPlaylist(w, r, engine, strings.TrimSuffix(rest, "/copy"))
	default:
		http.NotFound(w, r)
	}
}

// sessionServices assembles the per-session pipeline and the services on top of it.
func (h *APIHandler) sessionServices(sessionID string) (*services.SpotifyService, *tasks.CopyEngine) {
	pipeline := auth.NewPipeline(h.deps.Store, sessionID, h.deps.Refresh, h.deps.HTTPClient, h.deps.Logger)
	spotify := services.NewSpotifyService(pipeline, h.deps.Logger)
	if h.deps.SpotifyBaseURL != "" {
		spotify.SetBaseURL(h.deps.SpotifyBaseURL)
	}

	resolver := services.NewGenreResolver(spotify, h.deps.Logger)
	enricher := enrich.NewEnricher(resolver, h.deps.Features, h.deps.Cache, h.deps.Logger)
	engine := tasks.NewCopyEngine(spotify, enricher, h.deps.Selector, h.deps.Logger)

	return spotify, engine
}

func (h *APIHandler) listPlaylists(w http.ResponseWriter, r *http.Request, spotify *services.SpotifyService) {
	playlists, err := spotify.GetPlaylists(r.Context())
	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

// trackView is the JSON shape of an enriched track.
type trackView struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Artist   string                `json:"artist"`
	Album    string                `json:"album"`
	Genre    string                `json:"genre"`
	Decade   int                   `json:"decade,omitempty"`
	Features *models.AudioFeatures `json:"features,omitempty"`
}

func (h *APIHandler) listTracks(w http.ResponseWriter, r *http.Request, spotify *services.SpotifyService, playlistID string) {
	tracks, err := spotify.PlaylistTracks(r.Context(), playlistID)
	if err != nil {
		h.writeAPIError(w, err)
		return
	}

	refs := make([]*models.Track, len(tracks))
	for i := range tracks {
		refs[i] = &tracks[i]
	}

	resolver := services.NewGenreResolver(spotify, h.deps.Logger)
	enricher := enrich.NewEnricher(resolver, h.deps.Features, h.deps.Cache, h.deps.Logger)
	if err := enricher.Enrich(r.Context(), refs); err != nil {
		h.writeAPIError(w, err)
		return
	}

	switch r.URL.Query().Get("sort") {
	case "genre":
		sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Genre < tracks[j].Genre })
	case "decade":
		sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Decade() < tracks[j].Decade() })
	}

	views := make([]trackView, 0, len(tracks))
	for _, t := range tracks {
		artist := ""
		if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
		views = append(views, trackView{
			ID:       t.ID,
			Name:     t.Name,
			Artist:   artist,
			Album:    t.Album.Name,
			Genre:    t.Genre,
			Decade:   t.Decade(),
			Features: t.Features,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracks": views})
}

// copyRequest is the body of POST /api/playlists/{id}/copy.
type copyRequest struct {
	Name   string `json:"name"`
	Genre  string `json:"genre"`
	Decade int    `json:"decade"`
	Prompt string `json:"prompt"`
}

func (h *APIHandler) copyPlaylist(w http.ResponseWriter, r *http.Request, engine *tasks.CopyEngine, playlistID string) {
	var body copyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := engine.CopyFiltered(r.Context(), playlistID, tasks.CopyOptions{
		Name:   body.Name,
		Genre:  body.Genre,
		Decade: body.Decade,
		Prompt: body.Prompt,
	})
	if err != nil {
		h.writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"playlist": result.Created,
		"copied":   result.Copied,
		"total":    result.Total,
	})
}

// writeAPIError maps the error taxonomy onto HTTP statuses. A failed token
// refresh is the one condition that demands the user re-authenticate.
func (h *APIHandler) writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrReauthRequired), errors.Is(err, shared.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "session expired, visit /login")
	case errors.Is(err, shared.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, "playlist not found")
	default:
		h.deps.Logger.Error("request failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream request failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
