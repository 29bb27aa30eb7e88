package services

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/models"
	"github.com/desertthunder/sortify/internal/shared"
)

// ArtistBatchSize is the provider-imposed limit on IDs per artist lookup.
const ArtistBatchSize = 50

// ArtistLookup is the slice of the Spotify client the resolver needs.
type ArtistLookup interface {
	SeveralArtists(ctx context.Context, artistIDs []string) ([]models.Artist, error)
}

// GenreResolver resolves primary genres for arbitrary sets of artist IDs by
// batching lookups at the provider limit.
//
// Chunks are issued sequentially, not concurrently, because the Spotify API
// rate limit is shared with every other call on the session.
type GenreResolver struct {
	lookup ArtistLookup
	logger *log.Logger
}

// NewGenreResolver creates a GenreResolver.
func NewGenreResolver(lookup ArtistLookup, logger *log.Logger) *GenreResolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &GenreResolver{lookup: lookup, logger: logger}
}

// ResolveGenres maps each artist ID to its primary genre.
//
// Input is deduplicated, partitioned into chunks of at most
// [ArtistBatchSize], and resolved one chunk at a time. A chunk failure is
// logged and stops further processing, returning whatever was accumulated;
// only cancellation and a reauth-required pipeline failure propagate.
// Artists without genres map to [models.UnknownGenre].
func (r *GenreResolver) ResolveGenres(ctx context.Context, artistIDs []string) (map[string]string, error) {
	genres := make(map[string]string)

	distinct := dedupe(artistIDs)
	if len(distinct) == 0 {
		return genres, nil
	}

	for start := 0; start < len(distinct); start += ArtistBatchSize {
		end := min(start+ArtistBatchSize, len(distinct))
		chunk := distinct[start:end]

		if err := ctx.Err(); err != nil {
			return genres, err
		}

		artists, err := r.lookup.SeveralArtists(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return genres, ctx.Err()
			}
			if errors.Is(err, shared.ErrReauthRequired) {
				return genres, err
			}
			r.logger.Warn("artist lookup failed, returning partial genres",
				"resolved", len(genres), "remaining", len(distinct)-start, "error", err)
			return genres, nil
		}

		for _, artist := range artists {
			genres[artist.ID] = primaryGenre(artist)
		}
	}

	return genres, nil
}

func primaryGenre(artist models.Artist) string {
	if len(artist.Genres) == 0 {
		return models.UnknownGenre
	}
	return artist.Genres[0]
}

// dedupe returns the distinct IDs preserving first-seen order, dropping empties.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
