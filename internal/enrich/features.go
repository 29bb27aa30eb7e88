package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/models"
	"github.com/desertthunder/sortify/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// maxRateLimitRetries caps retries after a 429, not counting the first attempt.
	maxRateLimitRetries = 3

	// defaultBackoff applies when a 429 carries no Retry-After header.
	defaultBackoff = 2 * time.Second

	defaultRequestsPerSecond = 4
)

// SleepFunc waits for the given duration or until the context is done.
// Injected so tests run without wall-clock sleeps.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FeatureClient fetches per-track audio features from the analytics API.
//
// Enrichment is best-effort decoration: every outcome except cancellation
// collapses to "features or no features", never an error, so the track
// listing is never blocked by the analytics service.
type FeatureClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	sleep      SleepFunc
	logger     *log.Logger
}

// FeatureClientOpts configures a FeatureClient.
type FeatureClientOpts struct {
	BaseURL           string
	APIKey            string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Sleep             SleepFunc
	Logger            *log.Logger
}

// NewFeatureClient creates a FeatureClient.
func NewFeatureClient(opts FeatureClientOpts) *FeatureClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepWithContext
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &FeatureClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		sleep:      opts.Sleep,
		logger:     opts.Logger,
	}
}

// FetchOne retrieves the audio features for a single track.
//
// Returns (nil, nil) when the track has no upstream data (404), when the
// retry budget for 429s is exhausted, or on any other downstream failure.
// The only returned error is cancellation.
func (c *FeatureClient) FetchOne(ctx context.Context, trackID string) (*models.AudioFeatures, error) {
	endpoint := fmt.Sprintf("%s/audio-features/%s", c.baseURL, trackID)

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		features, retryAfter, err := c.attempt(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("audio feature fetch failed", "track", trackID, "error", err)
			return nil, nil
		}
		if retryAfter < 0 {
			return features, nil
		}

		// Rate limited. Bounded retry with the server-provided delay.
		if attempt >= maxRateLimitRetries {
			c.logger.Warn("rate limit retries exhausted", "track", trackID, "attempts", attempt+1)
			return nil, nil
		}
		if err := c.sleep(ctx, retryAfter); err != nil {
			return nil, err
		}
	}
}

// attempt issues one GET. A negative retryAfter means "done": features holds
// the parsed value, or nil for expected absence and degraded outcomes. A
// non-negative retryAfter signals a 429.
func (c *FeatureClient) attempt(ctx context.Context, endpoint string) (features *models.AudioFeatures, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, -1, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, -1, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp), nil
	case resp.StatusCode == http.StatusNotFound:
		// Expected absence: the track has no enrichment data upstream.
		return nil, -1, nil
	case resp.StatusCode != http.StatusOK:
		return nil, -1, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var parsed models.AudioFeatures
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, -1, fmt.Errorf("failed to decode features: %w", err)
	}
	return &parsed, -1, nil
}

// parseRetryAfter reads the integer-seconds Retry-After header, defaulting
// when missing or malformed.
func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return defaultBackoff
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return defaultBackoff
	}
	return time.Duration(seconds) * time.Second
}
