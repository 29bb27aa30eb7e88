package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/sortify/internal/ai"
	"github.com/desertthunder/sortify/internal/models"
	"github.com/desertthunder/sortify/internal/services"
	"github.com/desertthunder/sortify/internal/shared"
)

type fakeSpotify struct {
	playlist *models.Playlist
	tracks   []models.Track

	createdName string
	createdDesc string
	addedIDs    []string
	addCalls    int
}

func (f *fakeSpotify) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	return f.playlist, nil
}

func (f *fakeSpotify) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	out := make([]models.Track, len(f.tracks))
	copy(out, f.tracks)
	return out, nil
}

func (f *fakeSpotify) UserProfile(ctx context.Context) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: "user1"}, nil
}

func (f *fakeSpotify) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	f.createdName = name
	f.createdDesc = description
	return &models.Playlist{ID: "new1", Name: name}, nil
}

func (f *fakeSpotify) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	f.addCalls++
	f.addedIDs = append(f.addedIDs, trackIDs...)
	return nil
}

// genreEnricher assigns genres from a fixed map keyed by primary artist ID.
type genreEnricher struct {
	byArtist map[string]string
	err      error
}

func (g *genreEnricher) Enrich(ctx context.Context, tracks []*models.Track) error {
	if g.err != nil {
		return g.err
	}
	for _, t := range tracks {
		t.Genre = models.UnknownGenre
		if genre, ok := g.byArtist[t.PrimaryArtistID()]; ok {
			t.Genre = genre
		}
	}
	return nil
}

type fakeSelector struct {
	selection ai.Selection
	err       error
	gotPrompt string
}

func (f *fakeSelector) SelectTracks(ctx context.Context, prompt string, tracks []models.Track) (ai.Selection, error) {
	f.gotPrompt = prompt
	return f.selection, f.err
}

func sourceTracks() []models.Track {
	return []models.Track{
		{ID: "t1", Name: "One", Artists: []models.Artist{{ID: "a1"}}, Album: models.Album{ReleaseDate: "1994-01-01"}},
		{ID: "t2", Name: "Two", Artists: []models.Artist{{ID: "a2"}}, Album: models.Album{ReleaseDate: "2004-01-01"}},
		{ID: "t3", Name: "Three", Artists: []models.Artist{{ID: "a1"}}, Album: models.Album{ReleaseDate: "1999-01-01"}},
	}
}

func newTestEngine(spotify *fakeSpotify, selector Selector) *CopyEngine {
	enricher := &genreEnricher{byArtist: map[string]string{"a1": "rock", "a2": "jazz"}}
	return NewCopyEngine(spotify, enricher, selector, nil)
}

func TestCopyFiltered(t *testing.T) {
	ctx := context.Background()

	t.Run("Genre Filter", func(t *testing.T) {
		spotify := &fakeSpotify{
			playlist: &models.Playlist{ID: "p1", Name: "Everything"},
			tracks:   sourceTracks(),
		}
		engine := newTestEngine(spotify, nil)

		result, err := engine.CopyFiltered(ctx, "p1", CopyOptions{Genre: "rock"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Total != 3 || result.Copied != 2 {
			t.Errorf("expected 2 of 3 copied, got %d of %d", result.Copied, result.Total)
		}
		if len(spotify.addedIDs) != 2 || spotify.addedIDs[0] != "t1" || spotify.addedIDs[1] != "t3" {
			t.Errorf("expected [t1 t3], got %v", spotify.addedIDs)
		}
		if spotify.createdName != "Everything (filtered)" {
			t.Errorf("unexpected derived name %q", spotify.createdName)
		}
	})

	t.Run("Genre And Decade Conjunction", func(t *testing.T) {
		spotify := &fakeSpotify{
			playlist: &models.Playlist{ID: "p1", Name: "Everything"},
			tracks:   sourceTracks(),
		}
		engine := newTestEngine(spotify, nil)

		result, err := engine.CopyFiltered(ctx, "p1", CopyOptions{Genre: "rock", Decade: 1990, Name: "90s Rock"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Copied != 2 {
			t.Errorf("expected t1 and t3, got %d copied", result.Copied)
		}
		if spotify.createdName != "90s Rock" {
			t.Errorf("explicit name should win, got %q", spotify.createdName)
		}
	})

	t.Run("Empty Match Creates Empty Playlist", func(t *testing.T) {
		spotify := &fakeSpotify{
			playlist: &models.Playlist{ID: "p1", Name: "Everything"},
			tracks:   sourceTracks(),
		}
		engine := newTestEngine(spotify, nil)

		result, err := engine.CopyFiltered(ctx, "p1", CopyOptions{Genre: "metal"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Copied != 0 {
			t.Errorf("expected nothing copied, got %d", result.Copied)
		}
		if spotify.addCalls != 0 {
			t.Errorf("no add calls expected for empty match, got %d", spotify.addCalls)
		}
		if spotify.createdName == "" {
			t.Error("the playlist should still be created")
		}
	})

	t.Run("Prompt Selection", func(t *testing.T) {
		spotify := &fakeSpotify{
			playlist: &models.Playlist{ID: "p1", Name: "Everything"},
			tracks:   sourceTracks(),
		}
		selector := &fakeSelector{selection: ai.Selection{TrackIDs: []string{"t2"}, Name: "Late Night Jazz"}}
		engine := newTestEngine(spotify, selector)

		result, err := engine.CopyFiltered(ctx, "p1", CopyOptions{Prompt: "mellow jazz"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if selector.gotPrompt != "mellow jazz" {
			t.Errorf("unexpected prompt %q", selector.gotPrompt)
		}
		if result.Copied != 1 || spotify.addedIDs[0] != "t2" {
			t.Errorf("expected only t2, got %v", spotify.addedIDs)
		}
		if spotify.createdName != "Late Night Jazz" {
			t.Errorf("expected the suggested name, got %q", spotify.createdName)
		}
	})

	t.Run("Prompt Without Selector", func(t *testing.T) {
		spotify := &fakeSpotify{
			playlist: &models.Playlist{ID: "p1", Name: "Everything"},
			tracks:   sourceTracks(),
		}
		engine := newTestEngine(spotify, nil)

		_, err := engine.CopyFiltered(ctx, "p1", CopyOptions{Prompt: "anything"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Enrichment Failure Aborts", func(t *testing.T) {
		spotify := &fakeSpotify{
			playlist: &models.Playlist{ID: "p1", Name: "Everything"},
			tracks:   sourceTracks(),
		}
		engine := NewCopyEngine(spotify, &genreEnricher{err: shared.ErrReauthRequired}, nil, nil)

		_, err := engine.CopyFiltered(ctx, "p1", CopyOptions{Genre: "rock"})
		if !errors.Is(err, shared.ErrReauthRequired) {
			t.Errorf("expected ErrReauthRequired, got %v", err)
		}
		if spotify.createdName != "" {
			t.Error("no playlist should be created after an aborted enrichment")
		}
	})

	t.Run("Description Names Criteria", func(t *testing.T) {
		spotify := &fakeSpotify{
			playlist: &models.Playlist{ID: "p1", Name: "Everything"},
			tracks:   sourceTracks(),
		}
		engine := newTestEngine(spotify, nil)

		if _, err := engine.CopyFiltered(ctx, "p1", CopyOptions{Genre: "rock", Decade: 1990}); err != nil {
			t.Fatal(err)
		}
		want := "Copied with sortify, genre=rock, decade=1990s"
		if spotify.createdDesc != want {
			t.Errorf("expected %q, got %q", want, spotify.createdDesc)
		}
	})
}
