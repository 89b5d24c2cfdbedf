package api

import (
	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/gts"
	"github.com/striped-zebra-dev/oagw/internal/model"
)

// upstreamResponse is the wire shape of an upstream; the id is a GTS
// identifier.
type upstreamResponse struct {
	ID        string                 `json:"id"`
	TenantID  uuid.UUID              `json:"tenant_id"`
	Alias     string                 `json:"alias"`
	Server    model.Server           `json:"server"`
	Protocol  string                 `json:"protocol"`
	Enabled   bool                   `json:"enabled"`
	Auth      *model.AuthConfig      `json:"auth,omitempty"`
	Headers   *model.HeadersConfig   `json:"headers,omitempty"`
	Plugins   *model.PluginsConfig   `json:"plugins,omitempty"`
	RateLimit *model.RateLimitConfig `json:"rate_limit,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
}

func toUpstreamResponse(u model.Upstream) upstreamResponse {
	return upstreamResponse{
		ID:        gts.FormatUpstream(u.ID),
		TenantID:  u.TenantID,
		Alias:     u.Alias,
		Server:    u.Server,
		Protocol:  u.Protocol,
		Enabled:   u.Enabled,
		Auth:      u.Auth,
		Headers:   u.Headers,
		Plugins:   u.Plugins,
		RateLimit: u.RateLimit,
		Tags:      u.Tags,
	}
}

// routeResponse is the wire shape of a route.
type routeResponse struct {
	ID         string                 `json:"id"`
	TenantID   uuid.UUID              `json:"tenant_id"`
	UpstreamID uuid.UUID              `json:"upstream_id"`
	Match      model.MatchRules       `json:"match"`
	Plugins    *model.PluginsConfig   `json:"plugins,omitempty"`
	RateLimit  *model.RateLimitConfig `json:"rate_limit,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Priority   int                    `json:"priority"`
	Enabled    bool                   `json:"enabled"`
}

func toRouteResponse(r model.Route) routeResponse {
	return routeResponse{
		ID:         gts.FormatRoute(r.ID),
		TenantID:   r.TenantID,
		UpstreamID: r.UpstreamID,
		Match:      r.Match,
		Plugins:    r.Plugins,
		RateLimit:  r.RateLimit,
		Tags:       r.Tags,
		Priority:   r.Priority,
		Enabled:    r.Enabled,
	}
}
