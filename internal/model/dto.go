package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ListQuery is a repository page request.
type ListQuery struct {
	Top  int
	Skip int
}

// DefaultTop and MaxTop bound the page size of list operations.
const (
	DefaultTop = 50
	MaxTop     = 100
)

// Normalize clamps the page size into [1, MaxTop] and floors skip at 0.
func (q ListQuery) Normalize() ListQuery {
	if q.Top <= 0 {
		q.Top = DefaultTop
	}
	if q.Top > MaxTop {
		q.Top = MaxTop
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	return q
}

// CreateUpstreamRequest is the payload for creating an upstream. Alias is
// auto-generated from the first endpoint when absent; Enabled defaults to
// true when absent.
type CreateUpstreamRequest struct {
	Alias     *string          `json:"alias,omitempty"`
	Server    Server           `json:"server"`
	Protocol  string           `json:"protocol"`
	Enabled   *bool            `json:"enabled,omitempty"`
	Auth      *AuthConfig      `json:"auth,omitempty"`
	Headers   *HeadersConfig   `json:"headers,omitempty"`
	Plugins   *PluginsConfig   `json:"plugins,omitempty"`
	RateLimit *RateLimitConfig `json:"rate_limit,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
}

// Validate checks structural invariants of the create payload.
func (r *CreateUpstreamRequest) Validate() error {
	if len(r.Server.Endpoints) == 0 {
		return fmt.Errorf("server.endpoints must not be empty")
	}
	for i := range r.Server.Endpoints {
		r.Server.Endpoints[i].ApplyDefaults()
		if r.Server.Endpoints[i].Host == "" {
			return fmt.Errorf("server.endpoints[%d].host is required", i)
		}
	}
	if r.Protocol == "" {
		return fmt.Errorf("protocol is required")
	}
	return nil
}

// UpdateUpstreamRequest carries a partial update; only non-nil fields are
// written.
type UpdateUpstreamRequest struct {
	Alias     *string          `json:"alias,omitempty"`
	Server    *Server          `json:"server,omitempty"`
	Protocol  *string          `json:"protocol,omitempty"`
	Enabled   *bool            `json:"enabled,omitempty"`
	Auth      *AuthConfig      `json:"auth,omitempty"`
	Headers   *HeadersConfig   `json:"headers,omitempty"`
	Plugins   *PluginsConfig   `json:"plugins,omitempty"`
	RateLimit *RateLimitConfig `json:"rate_limit,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
}

// CreateRouteRequest is the payload for creating a route under an upstream.
type CreateRouteRequest struct {
	UpstreamID uuid.UUID        `json:"upstream_id"`
	Match      MatchRules       `json:"match"`
	Plugins    *PluginsConfig   `json:"plugins,omitempty"`
	RateLimit  *RateLimitConfig `json:"rate_limit,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
	Priority   int              `json:"priority,omitempty"`
	Enabled    *bool            `json:"enabled,omitempty"`
}

// Validate checks structural invariants of the route match rules.
func (r *CreateRouteRequest) Validate() error {
	return ValidateMatchRules(&r.Match)
}

// UpdateRouteRequest carries a partial route update.
type UpdateRouteRequest struct {
	Match     *MatchRules      `json:"match,omitempty"`
	Plugins   *PluginsConfig   `json:"plugins,omitempty"`
	RateLimit *RateLimitConfig `json:"rate_limit,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	Priority  *int             `json:"priority,omitempty"`
	Enabled   *bool            `json:"enabled,omitempty"`
}

// ValidateMatchRules enforces that exactly one protocol sub-match is
// present (only HTTP is implemented) and normalizes method casing.
func ValidateMatchRules(m *MatchRules) error {
	if m.HTTP == nil && m.GRPC == nil {
		return fmt.Errorf("match requires a protocol sub-match")
	}
	if m.HTTP != nil && m.GRPC != nil {
		return fmt.Errorf("match must contain exactly one protocol sub-match")
	}
	if m.GRPC != nil {
		return fmt.Errorf("grpc match rules are not supported")
	}
	h := m.HTTP
	if len(h.Methods) == 0 {
		return fmt.Errorf("match.http.methods must not be empty")
	}
	for i, method := range h.Methods {
		h.Methods[i] = strings.ToUpper(method)
	}
	if !strings.HasPrefix(h.Path, "/") {
		return fmt.Errorf("match.http.path must start with '/'")
	}
	switch h.PathSuffixMode {
	case "", SuffixAppend:
		h.PathSuffixMode = SuffixAppend
	case SuffixDisabled:
	default:
		return fmt.Errorf("invalid path_suffix_mode %q", h.PathSuffixMode)
	}
	return nil
}
