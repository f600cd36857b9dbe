// Package config validates the connection settings scimprobe needs to
// drive a SCIM server: the target base URL and one of three supported
// authentication schemes.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthKind enumerates the authentication schemes a ServerConfig may use.
type AuthKind string

const (
	AuthNone   AuthKind = ""
	AuthBearer AuthKind = "bearer"
	AuthBasic  AuthKind = "basic"
	AuthAPIKey AuthKind = "api-key"
)

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors accumulates every failure found during Validate,
// rather than stopping at the first one.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("config validation failed with %d errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ServerConfig names and authenticates a target SCIM server. It is the
// spec's ServerConfig entity: created/updated by the facade, read-only to
// the engines.
type ServerConfig struct {
	ID        string
	Name      string
	BaseURL   string
	AuthKind  AuthKind
	Token     string // bearer
	Username  string // basic
	Password  string // basic
	APIHeader string // api-key: header name
	APIValue  string // api-key: header value

	// AcceptInvalidCerts is the dev-friendly TLS trust knob described in
	// spec.md §9 — an explicit configuration switch, not an invariant.
	AcceptInvalidCerts bool

	CreatedAt string
	UpdatedAt string
}

// Validate checks that the configuration is well-formed and that the
// selected auth kind carries its required material.
func (c *ServerConfig) Validate() error {
	var errs ValidationErrors

	if c.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name cannot be empty"})
	}

	if c.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "baseURL", Message: "baseURL cannot be empty"})
	} else {
		parsed, err := url.Parse(c.BaseURL)
		if err != nil {
			errs = append(errs, ValidationError{Field: "baseURL", Message: fmt.Sprintf("invalid URL format: %v", err)})
		} else {
			if parsed.Scheme != "http" && parsed.Scheme != "https" {
				errs = append(errs, ValidationError{Field: "baseURL", Message: fmt.Sprintf("invalid URL scheme %q: must be http or https", parsed.Scheme)})
			}
			if parsed.Host == "" {
				errs = append(errs, ValidationError{Field: "baseURL", Message: "URL must include a host (e.g. https://scim.example.com)"})
			}
		}
	}

	switch c.AuthKind {
	case AuthNone:
		// anonymous endpoints are a valid configuration
	case AuthBearer:
		if c.Token == "" {
			errs = append(errs, ValidationError{Field: "token", Message: "token cannot be empty for bearer auth"})
		}
	case AuthBasic:
		if c.Username == "" {
			errs = append(errs, ValidationError{Field: "username", Message: "username cannot be empty for basic auth"})
		}
		if c.Password == "" {
			errs = append(errs, ValidationError{Field: "password", Message: "password cannot be empty for basic auth"})
		}
	case AuthAPIKey:
		if c.APIHeader == "" {
			errs = append(errs, ValidationError{Field: "apiHeader", Message: "apiHeader cannot be empty for api-key auth"})
		}
		if c.APIValue == "" {
			errs = append(errs, ValidationError{Field: "apiValue", Message: "apiValue cannot be empty for api-key auth"})
		}
	default:
		errs = append(errs, ValidationError{Field: "authKind", Message: fmt.Sprintf("invalid auth kind %q: must be bearer, basic, api-key, or empty", c.AuthKind)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NormalizedBaseURL returns BaseURL with any trailing slash stripped, per
// spec.md §4.1.
func (c *ServerConfig) NormalizedBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}

// DefaultServerConfig returns a starting point for interactive editing.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Name:     "local",
		BaseURL:  "http://localhost:8080",
		AuthKind: AuthNone,
	}
}

// FileConfig is the CLI's on-disk configuration document: a named set of
// server configs plus default run parameters, loaded from YAML.
type FileConfig struct {
	Servers []ServerConfig `yaml:"servers"`
	Defaults struct {
		Concurrency   int `yaml:"concurrency"`
		RampUpSeconds int `yaml:"rampUpSeconds"`
		TotalRequests int `yaml:"totalRequests"`
	} `yaml:"defaults"`
}

// Validate validates every server config in the file and reports
// duplicate names.
func (f *FileConfig) Validate() error {
	var errs ValidationErrors
	seen := make(map[string]bool, len(f.Servers))
	for i := range f.Servers {
		if err := f.Servers[i].Validate(); err != nil {
			if verrs, ok := err.(ValidationErrors); ok {
				for _, v := range verrs {
					v.Field = fmt.Sprintf("servers[%d].%s", i, v.Field)
					errs = append(errs, v)
				}
			}
		}
		name := f.Servers[i].Name
		if name != "" && seen[name] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("servers[%d].name", i), Message: fmt.Sprintf("duplicate server name: %s", name)})
		}
		seen[name] = true
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
