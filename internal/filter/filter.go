// package filter defines the track predicates used by the copy engine
package filter

import (
	"strings"

	"github.com/desertthunder/sortify/internal/models"
)

// Filter reports whether an enriched track matches.
type Filter interface {
	Matches(t models.Track) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(t models.Track) bool

func (f FilterFunc) Matches(t models.Track) bool { return f(t) }

// Genre matches tracks whose resolved genre equals the given genre,
// case-insensitively.
func Genre(genre string) Filter {
	want := strings.ToLower(strings.TrimSpace(genre))
	return FilterFunc(func(t models.Track) bool {
		return strings.ToLower(t.Genre) == want
	})
}

// Decade matches tracks released in the given decade (e.g. 1990 matches
// 1990-1999). Tracks with no parseable release year never match.
func Decade(decade int) Filter {
	return FilterFunc(func(t models.Track) bool {
		d := t.Decade()
		return d != 0 && d == decade
	})
}

// FeatureRange matches tracks whose named audio feature falls in [min, max].
// Tracks without features never match.
func FeatureRange(field string, minVal, maxVal float64) Filter {
	return FilterFunc(func(t models.Track) bool {
		if t.Features == nil {
			return false
		}
		v, ok := featureValue(*t.Features, field)
		return ok && v >= minVal && v <= maxVal
	})
}

func featureValue(f models.AudioFeatures, field string) (float64, bool) {
	switch strings.ToLower(field) {
	case "acousticness":
		return f.Acousticness, true
	case "danceability":
		return f.Danceability, true
	case "energy":
		return f.Energy, true
	case "instrumentalness":
		return f.Instrumentalness, true
	case "liveness":
		return f.Liveness, true
	case "loudness":
		return f.Loudness, true
	case "speechiness":
		return f.Speechiness, true
	case "tempo":
		return f.Tempo, true
	case "valence":
		return f.Valence, true
	default:
		return 0, false
	}
}

// IDSet matches tracks whose ID is in a precomputed set, such as the result
// of a natural-language selection.
func IDSet(ids []string) Filter {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return FilterFunc(func(t models.Track) bool {
		_, ok := set[t.ID]
		return ok
	})
}

// And combines filters conjunctively. With no operands it matches everything.
func And(filters ...Filter) Filter {
	return FilterFunc(func(t models.Track) bool {
		for _, f := range filters {
			if !f.Matches(t) {
				return false
			}
		}
		return true
	})
}

// Apply returns the subset of tracks matching the filter, preserving order.
func Apply(tracks []models.Track, f Filter) []models.Track {
	var out []models.Track
	for _, t := range tracks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
