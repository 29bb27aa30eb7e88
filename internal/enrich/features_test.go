package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fastOpts returns client options with a rate limit high enough that the
// limiter never stalls a test, and a sleep that records instead of waiting.
func fastOpts(srv *httptest.Server, slept *[]time.Duration) FeatureClientOpts {
	return FeatureClientOpts{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		HTTPClient:        srv.Client(),
		RequestsPerSecond: 10000,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return ctx.Err()
		},
	}
}

func TestFeatureClientFetchOne(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/audio-features/t1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if key := r.Header.Get("X-API-Key"); key != "test-key" {
				t.Errorf("unexpected api key %q", key)
			}
			fmt.Fprint(w, `{"danceability":0.7,"energy":0.9,"tempo":120}`)
		}))
		defer srv.Close()

		var slept []time.Duration
		c := NewFeatureClient(fastOpts(srv, &slept))

		features, err := c.FetchOne(context.Background(), "t1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if features == nil || features.Danceability != 0.7 || features.Tempo != 120 {
			t.Errorf("unexpected features %+v", features)
		}
		if len(slept) != 0 {
			t.Errorf("no backoff expected, slept %v", slept)
		}
	})

	t.Run("Not Found Means No Value", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		var slept []time.Duration
		c := NewFeatureClient(fastOpts(srv, &slept))

		features, err := c.FetchOne(context.Background(), "missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if features != nil {
			t.Errorf("expected no features, got %+v", features)
		}
		if calls != 1 {
			t.Errorf("404 must not be retried, got %d calls", calls)
		}
	})

	t.Run("Retry After Honored", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"tempo":100}`)
		}))
		defer srv.Close()

		var slept []time.Duration
		c := NewFeatureClient(fastOpts(srv, &slept))

		features, err := c.FetchOne(context.Background(), "t1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if features == nil || features.Tempo != 100 {
			t.Errorf("unexpected features %+v", features)
		}
		if len(slept) != 1 || slept[0] != 3*time.Second {
			t.Errorf("expected one 3s backoff, got %v", slept)
		}
	})

	t.Run("Missing Retry After Defaults", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		var slept []time.Duration
		c := NewFeatureClient(fastOpts(srv, &slept))

		if _, err := c.FetchOne(context.Background(), "t1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(slept) != 1 || slept[0] != 2*time.Second {
			t.Errorf("expected the 2s default backoff, got %v", slept)
		}
	})

	t.Run("Retry Budget Exhausted", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		var slept []time.Duration
		c := NewFeatureClient(fastOpts(srv, &slept))

		features, err := c.FetchOne(context.Background(), "t1")
		if err != nil {
			t.Fatalf("exhaustion must not surface an error, got %v", err)
		}
		if features != nil {
			t.Errorf("expected no features, got %+v", features)
		}
		if calls != 4 {
			t.Errorf("expected 1 attempt + 3 retries, got %d calls", calls)
		}
		if len(slept) != 3 {
			t.Errorf("expected 3 backoffs, got %v", slept)
		}
	})

	t.Run("Server Error Means No Value", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		var slept []time.Duration
		c := NewFeatureClient(fastOpts(srv, &slept))

		features, err := c.FetchOne(context.Background(), "t1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if features != nil {
			t.Errorf("expected no features, got %+v", features)
		}
		if calls != 1 {
			t.Errorf("5xx must not be retried, got %d calls", calls)
		}
	})

	t.Run("Cancellation Propagates", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		var slept []time.Duration
		c := NewFeatureClient(fastOpts(srv, &slept))

		_, err := c.FetchOne(ctx, "t1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"Integer Seconds", "5", 5 * time.Second},
		{"Missing", "", 2 * time.Second},
		{"Malformed", "soon", 2 * time.Second},
		{"Zero", "0", 2 * time.Second},
		{"Negative", "-3", 2 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tc.header != "" {
				resp.Header.Set("Retry-After", tc.header)
			}
			if got := parseRetryAfter(resp); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
