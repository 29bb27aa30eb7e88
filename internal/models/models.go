package models

import "strconv"

// UnknownGenre is the sentinel assigned to tracks whose genre could not be
// resolved. After enrichment a track's genre is never empty.
const UnknownGenre = "unknown"

// Playlist represents a Spotify playlist as consumed by the listing surface.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
	Images      []Image
}

// Image represents an image resource attached to a playlist, album, or artist.
type Image struct {
	URL    string
	Height int
	Width  int
}

// Artist represents a Spotify artist. Genres are only populated on full
// artist objects returned by the batch artist lookup.
type Artist struct {
	ID     string
	Name   string
	Genres []string
}

// Album carries the subset of album metadata the filters need.
type Album struct {
	ID          string
	Name        string
	ReleaseDate string // YYYY or YYYY-MM-DD
}

// Track is the enrichment view of a Spotify track.
//
// Genre and Features start empty and are assigned by the enricher after
// construction; everything else is immutable once mapped from the API.
type Track struct {
	ID      string
	Name    string
	Artists []Artist
	Album   Album

	Genre    string
	Features *AudioFeatures
}

// PrimaryArtistID returns the ID of the track's first artist, or "" for
// artist-less tracks (local files, some podcast episodes).
func (t Track) PrimaryArtistID() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].ID
}

// ReleaseYear parses the leading year of the album release date. Returns 0
// when the date is missing or malformed.
func (t Track) ReleaseYear() int {
	d := t.Album.ReleaseDate
	if len(d) < 4 {
		return 0
	}
	year, err := strconv.Atoi(d[:4])
	if err != nil {
		return 0
	}
	return year
}

// Decade returns the decade of the album release year (e.g. 1990 for 1994),
// or 0 when unknown.
func (t Track) Decade() int {
	year := t.ReleaseYear()
	if year == 0 {
		return 0
	}
	return year - year%10
}

// AudioFeatures holds the per-track attributes fetched from the analytics API.
// Produced once per track and cached verbatim.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
}
