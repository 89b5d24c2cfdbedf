package model

import "github.com/google/uuid"

// Upstream describes an external service endpoint held by the control plane.
// The alias is unique within a tenant and addresses the upstream in proxy URLs.
type Upstream struct {
	ID        uuid.UUID        `json:"id"`
	TenantID  uuid.UUID        `json:"tenant_id"`
	Alias     string           `json:"alias"`
	Server    Server           `json:"server"`
	Protocol  string           `json:"protocol"`
	Enabled   bool             `json:"enabled"`
	Auth      *AuthConfig      `json:"auth,omitempty"`
	Headers   *HeadersConfig   `json:"headers,omitempty"`
	Plugins   *PluginsConfig   `json:"plugins,omitempty"`
	RateLimit *RateLimitConfig `json:"rate_limit,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
}

// RequestHeaderRules returns the upstream's request header rules, or nil.
func (u *Upstream) RequestHeaderRules() *RequestHeaderRules {
	if u.Headers == nil {
		return nil
	}
	return u.Headers.Request
}

// FirstEndpoint returns the forwarding target. Load balancing across
// endpoints is out of scope: the first endpoint wins.
func (u *Upstream) FirstEndpoint() (Endpoint, bool) {
	if len(u.Server.Endpoints) == 0 {
		return Endpoint{}, false
	}
	return u.Server.Endpoints[0], true
}
