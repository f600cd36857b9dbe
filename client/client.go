// Package client implements the SCIM HTTP client abstraction: a
// per-server client that applies authentication, issues SCIM requests,
// and returns a uniform response record. Every engine builds on this
// package; it never retries (spec.md §4.1).
package client

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/marcelom97/scimprobe/config"
)

// Response is the uniform result of a SCIM request, per spec.md §4.1.
type Response struct {
	Status     int
	Body       string
	DurationMS int64
}

// FullResponse additionally surfaces the status reason phrase, response
// headers (names lowercased), and the fully resolved request URL. Used
// by the explorer pass-through.
type FullResponse struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       string
	DurationMS int64
	RequestURL string
}

// Client is a configured HTTP client bound to one ServerConfig.
type Client struct {
	http     *http.Client
	baseURL  string
	authKind config.AuthKind
	cfg      config.ServerConfig
}

// New builds a Client whose connection pool tracks the given planned
// concurrency (spec.md §4.1: "max idle-connections-per-host equal to the
// planned concurrency"). concurrency <= 0 falls back to a single-request
// default suitable for validation runs and one-off commands.
func New(cfg config.ServerConfig, concurrency int) *Client {
	if concurrency <= 0 {
		concurrency = 1
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.AcceptInvalidCerts,
		},
		MaxIdleConnsPerHost: concurrency,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		authKind: cfg.AuthKind,
		cfg:      cfg,
	}
}

func (c *Client) buildURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) applyAuth(req *http.Request) {
	switch c.authKind {
	case config.AuthBearer:
		if c.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		}
	case config.AuthBasic:
		if c.cfg.Username != "" || c.cfg.Password != "" {
			encoded := base64.StdEncoding.EncodeToString([]byte(c.cfg.Username + ":" + c.cfg.Password))
			req.Header.Set("Authorization", "Basic "+encoded)
		}
	case config.AuthAPIKey:
		if c.cfg.APIHeader != "" {
			req.Header.Set(c.cfg.APIHeader, c.cfg.APIValue)
		}
	}
}

// Request issues a SCIM HTTP request and returns a uniform response
// record, per spec.md §4.1. Transport-level failures are returned as an
// error prefixed with a stable category.
func (c *Client) Request(method, path string, body string) (Response, error) {
	url := c.buildURL(path)
	start := time.Now()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return Response{}, fmt.Errorf("Request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/scim+json")
	req.Header.Set("Accept", "application/scim+json")
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("Request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		return Response{}, fmt.Errorf("Failed to read response: %w", err)
	}

	return Response{
		Status:     resp.StatusCode,
		Body:       string(data),
		DurationMS: duration,
	}, nil
}

// Get, Post, Put, Patch, and Delete are thin wrappers over Request for
// the common SCIM verbs.
func (c *Client) Get(path string) (Response, error)              { return c.Request(http.MethodGet, path, "") }
func (c *Client) Post(path, body string) (Response, error)       { return c.Request(http.MethodPost, path, body) }
func (c *Client) Put(path, body string) (Response, error)        { return c.Request(http.MethodPut, path, body) }
func (c *Client) Patch(path, body string) (Response, error)      { return c.Request(http.MethodPatch, path, body) }
func (c *Client) Delete(path string) (Response, error)           { return c.Request(http.MethodDelete, path, "") }

// RequestFull is like Request but captures response headers and the
// status reason phrase, for the explorer pass-through (spec.md §4.1).
func (c *Client) RequestFull(method, path string, body string) (FullResponse, error) {
	url := c.buildURL(path)
	start := time.Now()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return FullResponse{}, fmt.Errorf("Request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/scim+json")
	req.Header.Set("Accept", "application/scim+json")
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return FullResponse{}, fmt.Errorf("Request failed: %w", err)
	}
	defer resp.Body.Close()

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	data, err := io.ReadAll(resp.Body)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		return FullResponse{}, fmt.Errorf("Failed to read response: %w", err)
	}

	return FullResponse{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headers,
		Body:       string(data),
		DurationMS: duration,
		RequestURL: url,
	}, nil
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
