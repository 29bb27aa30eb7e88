// Package auth implements session-scoped credential storage, token refresh, and the authenticated request pipeline.
//
// # Credential Store
//
// [CredentialStore] keys token pairs by session ID. The store is a
// single-writer/many-reader resource: every outbound call reads the access
// token, only login and refresh write it. [CredentialStore.Refresh] holds a
// per-session lock around the read-then-write sequence, so a second caller
// that observed a 401 while a refresh was already in flight receives that
// refresh's result instead of issuing a redundant exchange.
//
// # Pipeline
//
// [Pipeline.Do] is the one place bearer tokens touch outbound requests. Its
// contract is deliberately narrow: at most one refresh cycle per logical
// call, second response returned as-is, refresh failure surfaced as
// [shared.ErrReauthRequired] which callers must treat as fatal for the whole
// session.
package auth
