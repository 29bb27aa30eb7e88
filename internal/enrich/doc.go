// Package enrich decorates tracks with genres and audio features fetched from downstream APIs.
//
// The orchestration is strictly sequential. Both the Spotify API and the
// analytics API apply request-rate limits, so chunked genre lookups and
// per-track feature fetches are paced one at a time; the 429 sleep-and-retry
// in [FeatureClient] is correctness-relevant, not just politeness.
//
// Failure policy, in order of precedence:
//   - cancellation unwinds through every layer
//   - a failed token refresh during genre lookup propagates (the session is unusable)
//   - everything else is logged and degrades to partial results
package enrich
