// package tasks implements the filtered playlist copy operation.
//
// The core abstraction is CopyEngine, which composes the Spotify client, the
// enricher, and the optional natural-language selector into a single
// fetch → enrich → filter → create → append pipeline.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/ai"
	"github.com/desertthunder/sortify/internal/filter"
	"github.com/desertthunder/sortify/internal/models"
	"github.com/desertthunder/sortify/internal/services"
	"github.com/desertthunder/sortify/internal/shared"
)

// SpotifyAPI is the slice of the Spotify client the engine needs.
type SpotifyAPI interface {
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
	UserProfile(ctx context.Context) (*services.SpotifyUser, error)
	CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
}

// Enricher decorates tracks in place.
type Enricher interface {
	Enrich(ctx context.Context, tracks []*models.Track) error
}

// Selector answers natural-language prompts with a set of track IDs and a
// suggested name.
type Selector interface {
	SelectTracks(ctx context.Context, prompt string, tracks []models.Track) (ai.Selection, error)
}

// CopyOptions describes which tracks of the source playlist to copy.
// All zero-valued criteria are skipped; criteria combine conjunctively.
type CopyOptions struct {
	Name   string // target playlist name; defaults to a derived name
	Genre  string // exact genre match
	Decade int    // e.g. 1990
	Prompt string // natural-language selection
}

// CopyResult reports what a copy operation did.
type CopyResult struct {
	Source  models.Playlist
	Created models.Playlist
	Total   int // tracks in the source
	Copied  int // tracks matching the filters
}

// CopyEngine copies filtered subsets of playlists.
type CopyEngine struct {
	spotify  SpotifyAPI
	enricher Enricher
	selector Selector
	logger   *log.Logger
}

// NewCopyEngine creates a CopyEngine. The selector may be nil when no AI
// endpoint is configured; prompts then fail with a clear error.
func NewCopyEngine(spotify SpotifyAPI, enricher Enricher, selector Selector, logger *log.Logger) *CopyEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CopyEngine{spotify: spotify, enricher: enricher, selector: selector, logger: logger}
}

// CopyFiltered copies the matching tracks of a playlist into a new private
// playlist and returns what was created.
func (e *CopyEngine) CopyFiltered(ctx context.Context, playlistID string, opts CopyOptions) (*CopyResult, error) {
	source, err := e.spotify.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source playlist: %w", err)
	}

	tracks, err := e.spotify.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
	}

	refs := make([]*models.Track, len(tracks))
	for i := range tracks {
		refs[i] = &tracks[i]
	}
	if err := e.enricher.Enrich(ctx, refs); err != nil {
		return nil, fmt.Errorf("enrichment aborted: %w", err)
	}

	filters := []filter.Filter{}
	if opts.Genre != "" {
		filters = append(filters, filter.Genre(opts.Genre))
	}
	if opts.Decade != 0 {
		filters = append(filters, filter.Decade(opts.Decade))
	}

	name := opts.Name
	if opts.Prompt != "" {
		if e.selector == nil {
			return nil, fmt.Errorf("%w: no AI endpoint configured for prompt filtering", shared.ErrInvalidConfig)
		}
		selection, err := e.selector.SelectTracks(ctx, opts.Prompt, tracks)
		if err != nil {
			return nil, fmt.Errorf("prompt selection failed: %w", err)
		}
		filters = append(filters, filter.IDSet(selection.TrackIDs))
		if name == "" {
			name = selection.Name
		}
	}

	matched := filter.Apply(tracks, filter.And(filters...))
	e.logger.Info("filtered playlist", "source", source.Name, "total", len(tracks), "matched", len(matched))

	if name == "" {
		name = source.Name + " (filtered)"
	}

	user, err := e.spotify.UserProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}

	created, err := e.spotify.CreatePlaylist(ctx, user.ID, name, describeFilters(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	if len(matched) > 0 {
		ids := make([]string, 0, len(matched))
		for _, t := range matched {
			ids = append(ids, t.ID)
		}
		if err := e.spotify.AddTracksToPlaylist(ctx, created.ID, ids); err != nil {
			return nil, fmt.Errorf("failed to add tracks: %w", err)
		}
	}

	return &CopyResult{
		Source:  *source,
		Created: *created,
		Total:   len(tracks),
		Copied:  len(matched),
	}, nil
}

func describeFilters(opts CopyOptions) string {
	desc := "Copied with sortify"
	if opts.Genre != "" {
		desc += fmt.Sprintf(", genre=%s", opts.Genre)
	}
	if opts.Decade != 0 {
		desc += fmt.Sprintf(", decade=%ds", opts.Decade)
	}
	if opts.Prompt != "" {
		desc += fmt.Sprintf(", prompt=%q", opts.Prompt)
	}
	return desc
}
