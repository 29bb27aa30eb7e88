package enrich

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/models"
	"github.com/desertthunder/sortify/internal/shared"
)

// GenreSource resolves artist IDs to primary genres.
type GenreSource interface {
	ResolveGenres(ctx context.Context, artistIDs []string) (map[string]string, error)
}

// FeatureSource fetches audio features for one track. A (nil, nil) return
// means the track has no features upstream.
type FeatureSource interface {
	FetchOne(ctx context.Context, trackID string) (*models.AudioFeatures, error)
}

// FeatureCache is the persistence slice the enricher needs. Reads and writes
// are non-fatal by contract.
type FeatureCache interface {
	GetMany(ctx context.Context, trackIDs []string) map[string]models.AudioFeatures
	Put(ctx context.Context, trackID string, features models.AudioFeatures)
}

// Enricher decorates tracks with genres and audio features.
//
// Genre resolution and feature resolution degrade independently: a failure in
// either leaves tracks with sentinel genres or absent features, never an
// error. Cancellation, and a pipeline reauth failure during genre lookup, are
// the only conditions that unwind.
type Enricher struct {
	genres   GenreSource
	features FeatureSource
	cache    FeatureCache
	logger   *log.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(genres GenreSource, features FeatureSource, cache FeatureCache, logger *log.Logger) *Enricher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Enricher{genres: genres, features: features, cache: cache, logger: logger}
}

// Enrich assigns Genre and Features onto every track in place.
//
// Tracks without a primary artist, and artists the batch lookup could not
// resolve, get [models.UnknownGenre]; a track's genre is never left empty.
func (e *Enricher) Enrich(ctx context.Context, tracks []*models.Track) error {
	artistIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if id := t.PrimaryArtistID(); id != "" {
			artistIDs = append(artistIDs, id)
		}
	}

	genres, err := e.genres.ResolveGenres(ctx, artistIDs)
	if err != nil {
		return err
	}

	trackIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		trackIDs = append(trackIDs, t.ID)
	}

	features, err := e.AudioFeatures(ctx, trackIDs)
	if err != nil {
		return err
	}

	for _, t := range tracks {
		t.Genre = models.UnknownGenre
		if id := t.PrimaryArtistID(); id != "" {
			if g, ok := genres[id]; ok {
				t.Genre = g
			}
		}
		if f, ok := features[t.ID]; ok {
			af := f
			t.Features = &af
		}
	}

	return nil
}

// AudioFeatures resolves features for the given track IDs, cache first.
//
// Missing IDs are fetched sequentially from the analytics API to respect its
// rate limit, with a cancellation check before each fetch. Fresh results are
// persisted to the cache as they arrive.
func (e *Enricher) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.AudioFeatures, error) {
	resolved := e.cache.GetMany(ctx, trackIDs)

	var missing []string
	for _, id := range trackIDs {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}

	for _, id := range missing {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		features, err := e.features.FetchOne(ctx, id)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return resolved, err
			}
			e.logger.Warn("feature fetch failed, continuing", "track", id, "error", err)
			continue
		}
		if features == nil {
			continue
		}

		resolved[id] = *features
		e.cache.Put(ctx, id, *features)
	}

	return resolved, nil
}
