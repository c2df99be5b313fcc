package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestAuthorizationHeader(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		json.NewEncoder(w).Encode([]model.Ticket{})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok-123"))
	if _, err := c.Tickets(context.Background()); err != nil {
		t.Fatalf("Tickets() error = %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestNoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(loginResponse{Token: "issued"})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""))
	tok, err := c.Login(context.Background(), model.Credentials{Username: "op", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if tok != "issued" {
		t.Errorf("token = %q, want issued", tok)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q on unauthenticated request", gotAuth)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]string{"error": tt.name})
			}))
			defer srv.Close()

			c := New(srv.URL, staticToken("t"))
			_, err := c.Ticket(context.Background(), "t1")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(err, %v) = false, err = %v", tt.want, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error is not *APIError: %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.name {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.name)
			}
		})
	}
}

func TestServerErrorIsNotSilentlyEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	logs, err := c.TicketLogs(context.Background(), "t1")
	if err == nil {
		t.Fatal("TicketLogs() on 500 returned nil error")
	}
	if logs != nil {
		t.Errorf("logs = %v, want nil on error", logs)
	}
}

func TestTogglePathsAreDistinct(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	ctx := context.Background()
	if err := c.ActivateAgent(ctx, "a1"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeactivateAgent(ctx, "a1"); err != nil {
		t.Fatal(err)
	}

	want := []string{"PUT /api/agents/a1/activate", "PUT /api/agents/a1/deactivate"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestDeleteSendsNoBodyAndAcceptsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "" {
			t.Errorf("Content-Type = %q on bodyless request", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	if err := c.DeleteZohoConfig(context.Background(), "z1"); err != nil {
		t.Errorf("DeleteZohoConfig() error = %v", err)
	}
}

func TestLoginWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""))
	if _, err := c.Login(context.Background(), model.Credentials{}); err == nil {
		t.Error("Login() with empty token response succeeded, want error")
	}
}

func TestStatusFilterPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]model.Ticket{{ID: "t1", Status: model.TicketFixing}})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	tickets, err := c.TicketsByStatus(context.Background(), model.TicketFixing)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/admin/tickets/status/FIXING" {
		t.Errorf("path = %q", gotPath)
	}
	if len(tickets) != 1 || tickets[0].ID != "t1" {
		t.Errorf("tickets = %v", tickets)
	}
}
