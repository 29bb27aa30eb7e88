// Package models contains plain value types for playlists, tracks, artists, and audio features.
//
// Tracks carry two post-construction fields, Genre and Features, assigned by
// the enrichment layer. Everything downstream of enrichment treats tracks as
// read-only values.
package models
