package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marcelom97/scimprobe/config"
)

func TestApplyAuth(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.ServerConfig
		wantHeader string
		wantValue  string
	}{
		{
			name:       "bearer",
			cfg:        config.ServerConfig{AuthKind: config.AuthBearer, Token: "tok123"},
			wantHeader: "Authorization",
			wantValue:  "Bearer tok123",
		},
		{
			name:       "basic",
			cfg:        config.ServerConfig{AuthKind: config.AuthBasic, Username: "admin", Password: "secret"},
			wantHeader: "Authorization",
			wantValue:  "Basic YWRtaW46c2VjcmV0",
		},
		{
			name:       "api-key",
			cfg:        config.ServerConfig{AuthKind: config.AuthAPIKey, APIHeader: "X-Api-Key", APIValue: "key123"},
			wantHeader: "X-Api-Key",
			wantValue:  "key123",
		},
		{
			name:       "none",
			cfg:        config.ServerConfig{AuthKind: config.AuthNone},
			wantHeader: "Authorization",
			wantValue:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.cfg, 1)
			req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
			c.applyAuth(req)
			got := req.Header.Get(tt.wantHeader)
			if got != tt.wantValue {
				t.Errorf("header %s = %q, want %q", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	c := New(config.ServerConfig{BaseURL: "https://scim.example.com/"}, 1)
	got := c.buildURL("/Users")
	want := "https://scim.example.com/Users"
	if got != want {
		t.Errorf("buildURL() = %q, want %q", got, want)
	}
}

func TestRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/scim+json" {
			t.Errorf("Content-Type = %q, want application/scim+json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer tok123" {
			t.Errorf("Authorization = %q, want Bearer tok123", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	c := New(config.ServerConfig{BaseURL: srv.URL, AuthKind: config.AuthBearer, Token: "tok123"}, 1)
	resp, err := c.Post("/Users", `{"userName":"alice"}`)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Errorf("Status = %d, want %d", resp.Status, http.StatusCreated)
	}
	if !strings.Contains(resp.Body, `"id":"1"`) {
		t.Errorf("Body = %q, want to contain id", resp.Body)
	}
}

func TestRequestTransportFailure(t *testing.T) {
	c := New(config.ServerConfig{BaseURL: "http://127.0.0.1:0"}, 1)
	_, err := c.Get("/ServiceProviderConfig")
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
	if !strings.HasPrefix(err.Error(), "Request failed:") {
		t.Errorf("error = %q, want prefix %q", err.Error(), "Request failed:")
	}
}

func TestRequestFull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "abc")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(config.ServerConfig{BaseURL: srv.URL}, 1)
	full, err := c.RequestFull(http.MethodGet, "/Users/missing", "")
	if err != nil {
		t.Fatalf("RequestFull() error = %v", err)
	}
	if full.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", full.Status, http.StatusNotFound)
	}
	if full.StatusText != "Not Found" {
		t.Errorf("StatusText = %q, want %q", full.StatusText, "Not Found")
	}
	if full.Headers["x-request-id"] != "abc" {
		t.Errorf("Headers[x-request-id] = %q, want %q", full.Headers["x-request-id"], "abc")
	}
	if full.RequestURL != srv.URL+"/Users/missing" {
		t.Errorf("RequestURL = %q, want %q", full.RequestURL, srv.URL+"/Users/missing")
	}
}
