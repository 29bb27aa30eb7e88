package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/sortify/internal/models"
)

func chatServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Format != "json" {
			t.Errorf("expected json format, got %q", req.Format)
		}
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: answer},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func candidateTracks() []models.Track {
	return []models.Track{
		{ID: "t1", Name: "One", Artists: []models.Artist{{Name: "Artist"}}, Genre: "rock"},
		{ID: "t2", Name: "Two", Genre: "jazz"},
	}
}

func TestSelectTracks(t *testing.T) {
	t.Run("Parses Selection", func(t *testing.T) {
		srv := chatServer(t, `{"track_ids":["t1"],"name":"Rock Picks"}`)
		c := NewClient(srv.URL, "test-model")

		sel, err := c.SelectTracks(context.Background(), "only rock", candidateTracks())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sel.TrackIDs) != 1 || sel.TrackIDs[0] != "t1" {
			t.Errorf("unexpected selection %+v", sel)
		}
		if sel.Name != "Rock Picks" {
			t.Errorf("unexpected name %q", sel.Name)
		}
	})

	t.Run("Drops Invented IDs", func(t *testing.T) {
		srv := chatServer(t, `{"track_ids":["t1","t9","t2"],"name":"Mix"}`)
		c := NewClient(srv.URL, "test-model")

		sel, err := c.SelectTracks(context.Background(), "everything", candidateTracks())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sel.TrackIDs) != 2 || sel.TrackIDs[0] != "t1" || sel.TrackIDs[1] != "t2" {
			t.Errorf("invented IDs should be dropped, got %v", sel.TrackIDs)
		}
	})

	t.Run("Empty Selection Is Valid", func(t *testing.T) {
		srv := chatServer(t, `{"track_ids":[],"name":"Nothing"}`)
		c := NewClient(srv.URL, "test-model")

		sel, err := c.SelectTracks(context.Background(), "tracks from 1850", candidateTracks())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sel.TrackIDs) != 0 {
			t.Errorf("expected empty selection, got %v", sel.TrackIDs)
		}
	})

	t.Run("Model Error Surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(chatResponse{Error: "model not found"})
		}))
		defer srv.Close()
		c := NewClient(srv.URL, "missing-model")

		_, err := c.SelectTracks(context.Background(), "anything", candidateTracks())
		if err == nil || !strings.Contains(err.Error(), "model not found") {
			t.Errorf("expected model error, got %v", err)
		}
	})

	t.Run("Non-JSON Answer Is An Error", func(t *testing.T) {
		srv := chatServer(t, "Sure! Here are the tracks you asked for.")
		c := NewClient(srv.URL, "test-model")

		_, err := c.SelectTracks(context.Background(), "anything", candidateTracks())
		if err == nil {
			t.Error("expected a decode error for conversational output")
		}
	})

	t.Run("HTTP Error Surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		c := NewClient(srv.URL, "test-model")

		_, err := c.SelectTracks(context.Background(), "anything", candidateTracks())
		if err == nil || !strings.Contains(err.Error(), "status 500") {
			t.Errorf("expected status error, got %v", err)
		}
	})
}

func TestSelectTracksPromptContents(t *testing.T) {
	var userContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		userContent = req.Messages[1].Content
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Content: `{"track_ids":[],"name":""}`},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model")
	tracks := []models.Track{{
		ID:      "t1",
		Name:    "One",
		Artists: []models.Artist{{Name: "The Band"}},
		Genre:   "rock",
		Album:   models.Album{ReleaseDate: "1994-01-01"},
	}}

	if _, err := c.SelectTracks(context.Background(), "nineties rock", tracks); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{`"id":"t1"`, `"artist":"The Band"`, `"decade":1990`, "nineties rock"} {
		if !strings.Contains(userContent, want) {
			t.Errorf("prompt missing %s in %s", want, userContent)
		}
	}
}
