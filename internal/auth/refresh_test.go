package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRefreshClient(t *testing.T) {
	t.Run("Sends Form And Basic Auth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
				t.Errorf("unexpected content type %q", ct)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client" || pass != "secret" {
				t.Errorf("unexpected basic auth %q/%q", user, pass)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if r.PostForm.Get("grant_type") != "refresh_token" {
				t.Errorf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
			}
			if r.PostForm.Get("refresh_token") != "old-refresh" {
				t.Errorf("unexpected refresh_token %q", r.PostForm.Get("refresh_token"))
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"new-access","token_type":"Bearer","expires_in":3600}`))
		}))
		defer srv.Close()

		c := NewRefreshClient(srv.URL, "client", "secret", srv.Client())
		creds, err := c.Refresh(context.Background(), "old-refresh")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if creds.AccessToken != "new-access" {
			t.Errorf("unexpected access token %q", creds.AccessToken)
		}
		if creds.RefreshToken != "" {
			t.Errorf("refresh token should be empty when not rotated, got %q", creds.RefreshToken)
		}
	})

	t.Run("Rotated Refresh Token Returned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"access_token":"a2","refresh_token":"r2"}`))
		}))
		defer srv.Close()

		c := NewRefreshClient(srv.URL, "client", "secret", srv.Client())
		creds, err := c.Refresh(context.Background(), "r1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if creds.RefreshToken != "r2" {
			t.Errorf("expected rotated token, got %q", creds.RefreshToken)
		}
	})

	t.Run("Error Payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token revoked"}`))
		}))
		defer srv.Close()

		c := NewRefreshClient(srv.URL, "client", "secret", srv.Client())
		_, err := c.Refresh(context.Background(), "revoked")
		if err == nil || !strings.Contains(err.Error(), "invalid_grant") {
			t.Errorf("expected invalid_grant error, got %v", err)
		}
	})

	t.Run("Missing Access Token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := NewRefreshClient(srv.URL, "client", "secret", srv.Client())
		_, err := c.Refresh(context.Background(), "r1")
		if err == nil {
			t.Error("expected an error for an empty token payload")
		}
	})
}
