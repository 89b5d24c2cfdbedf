package model

import (
	"strings"

	"github.com/google/uuid"
)

// PathSuffixMode controls how the inbound path suffix beyond the route
// path is handled.
type PathSuffixMode string

const (
	// SuffixDisabled requires the inbound path to equal the route path.
	SuffixDisabled PathSuffixMode = "disabled"
	// SuffixAppend forwards the remaining suffix to the upstream.
	SuffixAppend PathSuffixMode = "append"
)

// HTTPMatch holds the HTTP match rules of a route.
type HTTPMatch struct {
	// Methods are uppercase HTTP method names; at least one is required.
	Methods []string `json:"methods"`
	// Path is the prefix matched against the inbound path suffix; must
	// start with "/".
	Path string `json:"path"`
	// QueryAllowlist names the permitted query parameters. Empty allows none.
	QueryAllowlist []string `json:"query_allowlist,omitempty"`
	PathSuffixMode PathSuffixMode `json:"path_suffix_mode,omitempty"`
}

// HasMethod reports whether the match covers the given method.
func (m *HTTPMatch) HasMethod(method string) bool {
	for _, mm := range m.Methods {
		if strings.EqualFold(mm, method) {
			return true
		}
	}
	return false
}

// AllowsQueryKey reports whether a query parameter key is allowlisted.
func (m *HTTPMatch) AllowsQueryKey(key string) bool {
	for _, k := range m.QueryAllowlist {
		if k == key {
			return true
		}
	}
	return false
}

// GRPCMatch is reserved for gRPC routing.
type GRPCMatch struct {
	Service string `json:"service"`
	Method  string `json:"method"`
}

// MatchRules are the protocol-scoped match rules of a route. Exactly one
// protocol sub-match must be present; only HTTP is implemented.
type MatchRules struct {
	HTTP *HTTPMatch `json:"http,omitempty"`
	GRPC *GRPCMatch `json:"grpc,omitempty"`
}

// Route binds a (method set, path prefix) pair under an upstream.
type Route struct {
	ID         uuid.UUID        `json:"id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	UpstreamID uuid.UUID        `json:"upstream_id"`
	Match      MatchRules       `json:"match"`
	Plugins    *PluginsConfig   `json:"plugins,omitempty"`
	RateLimit  *RateLimitConfig `json:"rate_limit,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
	Priority   int              `json:"priority"`
	Enabled    bool             `json:"enabled"`
}
