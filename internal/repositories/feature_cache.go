package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/models"
	"github.com/desertthunder/sortify/internal/shared"
)

// getManyChunkSize bounds the number of bound parameters per IN query,
// staying well under SQLite's variable limit.
const getManyChunkSize = 500

// FeatureCacheRepository persists audio features keyed by track ID.
//
// The cache is an optimization, never a source of fatal errors: every I/O or
// corruption failure is logged and converted to an empty result or a no-op.
type FeatureCacheRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewFeatureCacheRepository creates a FeatureCacheRepository with the given database connection.
func NewFeatureCacheRepository(db *sql.DB, logger *log.Logger) *FeatureCacheRepository {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FeatureCacheRepository{db: db, logger: logger}
}

// GetMany returns the cached features for every requested track ID that has
// a readable row. IDs are queried in chunks of at most 500 and merged.
//
// A row whose serialized blob fails to parse is skipped and logged; the
// corrupt key simply reads as a cache miss.
func (r *FeatureCacheRepository) GetMany(ctx context.Context, trackIDs []string) map[string]models.AudioFeatures {
	found := make(map[string]models.AudioFeatures)

	for start := 0; start < len(trackIDs); start += getManyChunkSize {
		end := min(start+getManyChunkSize, len(trackIDs))
		r.getChunk(ctx, trackIDs[start:end], found)
	}

	return found
}

func (r *FeatureCacheRepository) getChunk(ctx context.Context, trackIDs []string, found map[string]models.AudioFeatures) {
	if len(trackIDs) == 0 {
		return
	}

	placeholders := strings.Repeat("?,", len(trackIDs)-1) + "?"
	query := "SELECT track_id, features FROM audio_feature_cache WHERE track_id IN (" + placeholders + ")"

	args := make([]any, len(trackIDs))
	for i, id := range trackIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Warn("feature cache read failed", "keys", len(trackIDs), "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var trackID, blob string
		if err := rows.Scan(&trackID, &blob); err != nil {
			r.logger.Warn("feature cache scan failed", "error", err)
			continue
		}

		var features models.AudioFeatures
		if err := json.Unmarshal([]byte(blob), &features); err != nil {
			r.logger.Warn("skipping corrupt feature cache row", "track", trackID, "error", err)
			continue
		}

		found[trackID] = features
	}

	if err := rows.Err(); err != nil {
		r.logger.Warn("feature cache iteration failed", "error", err)
	}
}

// Put upserts the features for one track. Last write wins; failures are
// logged and swallowed.
func (r *FeatureCacheRepository) Put(ctx context.Context, trackID string, features models.AudioFeatures) {
	blob, err := json.Marshal(features)
	if err != nil {
		r.logger.Warn("failed to serialize features for cache", "track", trackID, "error", err)
		return
	}

	query := `
		INSERT INTO audio_feature_cache (track_id, features) VALUES (?, ?)
		ON CONFLICT(track_id) DO UPDATE SET features = excluded.features
	`
	if _, err := r.db.ExecContext(ctx, query, trackID, string(blob)); err != nil {
		r.logger.Warn("feature cache write failed", "track", trackID, "error", err)
	}
}
