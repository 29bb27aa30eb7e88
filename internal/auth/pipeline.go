package auth

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/shared"
)

// Pipeline wraps outbound HTTP calls with bearer-token injection and a
// single refresh-and-retry cycle on 401.
//
// Failure taxonomy: network errors are returned to the caller, a 401 whose
// refresh fails becomes an error wrapping [shared.ErrReauthRequired], and
// every other HTTP status is returned verbatim.
type Pipeline struct {
	store      *CredentialStore
	sessionID  string
	refresh    RefreshFunc
	httpClient *http.Client
	logger     *log.Logger
}

// NewPipeline creates a Pipeline bound to one session in the store.
func NewPipeline(store *CredentialStore, sessionID string, refresh RefreshFunc, httpClient *http.Client, logger *log.Logger) *Pipeline {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{
		store:      store,
		sessionID:  sessionID,
		refresh:    refresh,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Do dispatches the request with the session's current access token attached.
//
// On a 401 it refreshes once (single-flight per session), re-attaches the new
// token, and dispatches exactly once more, returning the second response
// regardless of its status. There is no further retry loop.
func (p *Pipeline) Do(req *http.Request) (*http.Response, error) {
	creds, ok := p.store.Get(p.sessionID)
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	if err := bufferBody(req); err != nil {
		return nil, err
	}

	resp, err := p.dispatch(req, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	p.logger.Debug("access token rejected, refreshing", "session", p.sessionID)

	fresh, refreshErr := p.store.Refresh(req.Context(), p.sessionID, creds.AccessToken, p.refresh)
	if refreshErr != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrReauthRequired, refreshErr)
	}
	resp.Body.Close()

	return p.dispatch(req, fresh.AccessToken)
}

// dispatch sends the request with the given bearer token, rewinding the body
// first when one is present.
func (p *Pipeline) dispatch(req *http.Request, token string) (*http.Response, error) {
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to reset request body: %w", err)
		}
		req.Body = body
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// bufferBody makes a request body replayable so the retry after refresh can
// resend it.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body.Close()
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}
