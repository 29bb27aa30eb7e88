// Package repositories implements SQLite persistence for expensive enrichment lookups.
//
// [FeatureCacheRepository] backs the audio-feature cache with a single table
// keyed by track ID. Reads batch their IN queries below the driver's
// parameter limit, corrupt rows degrade to cache misses, and writes are
// idempotent upserts, so concurrent sessions need no locking beyond SQLite's
// own statement-level guarantees (the database is opened in WAL mode for
// concurrent read/write throughput).
package repositories
