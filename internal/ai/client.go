// Package ai selects tracks from natural-language prompts via a local LLM chat endpoint.
//
// The model receives a compact listing of candidate tracks and must answer
// with JSON naming the matching track IDs plus a suggested playlist name.
// Listing never depends on this package; only the copy flow calls it, and a
// failure there is reported to the user rather than retried.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/sortify/internal/models"
)

const defaultBaseURL = "http://localhost:11434"

const systemPrompt = "You are a playlist curator. You receive a JSON array of tracks " +
	"(id, name, artist, genre, decade) and a request describing which tracks to keep. " +
	"Answer with ONLY a JSON object of the form " +
	`{"track_ids": ["..."], "name": "suggested playlist name"}. ` +
	"track_ids must be a subset of the given ids. No conversational text."

// Selection is the model's answer: the matching track IDs and a suggested
// name for the playlist holding them.
type Selection struct {
	TrackIDs []string `json:"track_ids"`
	Name     string   `json:"name"`
}

// Client talks to an Ollama-compatible chat endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// NewClient creates a Client for the given endpoint and model.
func NewClient(baseURL, model string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = "llama3.1:8b"
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// candidate is the track view serialized into the prompt.
type candidate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Genre  string `json:"genre"`
	Decade int    `json:"decade"`
}

// SelectTracks asks the model which of the candidate tracks match the prompt.
//
// IDs the model invents are dropped; an answer selecting nothing is valid.
func (c *Client) SelectTracks(ctx context.Context, prompt string, tracks []models.Track) (Selection, error) {
	candidates := make([]candidate, 0, len(tracks))
	valid := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		name := ""
		if len(t.Artists) > 0 {
			name = t.Artists[0].Name
		}
		candidates = append(candidates, candidate{
			ID:     t.ID,
			Name:   t.Name,
			Artist: name,
			Genre:  t.Genre,
			Decade: t.Decade(),
		})
		valid[t.ID] = struct{}{}
	}

	listing, err := json.Marshal(candidates)
	if err != nil {
		return Selection{}, fmt.Errorf("ai: marshal candidates: %w", err)
	}

	payload := chatRequest{
		Model:  c.model,
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Tracks:\n%s\n\nRequest: %s", listing, prompt)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Selection{}, fmt.Errorf("ai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Selection{}, fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Selection{}, fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Selection{}, fmt.Errorf("ai: unexpected status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Selection{}, fmt.Errorf("ai: decode response: %w", err)
	}
	if parsed.Error != "" {
		return Selection{}, fmt.Errorf("ai: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return Selection{}, fmt.Errorf("ai: empty response")
	}

	var selection Selection
	if err := json.Unmarshal([]byte(parsed.Message.Content), &selection); err != nil {
		return Selection{}, fmt.Errorf("ai: decode selection: %w", err)
	}

	kept := selection.TrackIDs[:0]
	for _, id := range selection.TrackIDs {
		if _, ok := valid[id]; ok {
			kept = append(kept, id)
		}
	}
	selection.TrackIDs = kept

	return selection, nil
}
