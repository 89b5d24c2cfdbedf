package model

import "encoding/json"

// PassthroughMode controls which inbound headers are forwarded upstream.
type PassthroughMode string

const (
	PassthroughNone      PassthroughMode = "none"
	PassthroughAllowlist PassthroughMode = "allowlist"
	PassthroughAll       PassthroughMode = "all"
)

// AuthConfig configures the authentication plugin of an upstream.
// The config payload schema is plugin-specific and decoded by the plugin.
type AuthConfig struct {
	PluginType string          `json:"type"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// RequestHeaderRules shape the outbound request headers.
type RequestHeaderRules struct {
	// Set overwrites, Add appends (duplicates allowed), Remove deletes.
	Set    map[string]string `json:"set,omitempty"`
	Add    map[string]string `json:"add,omitempty"`
	Remove []string          `json:"remove,omitempty"`
	// Passthrough decides which inbound headers seed the outbound set.
	Passthrough          PassthroughMode `json:"passthrough,omitempty"`
	PassthroughAllowlist []string        `json:"passthrough_allowlist,omitempty"`
}

// ResponseHeaderRules are reserved for response shaping (not applied yet).
type ResponseHeaderRules struct {
	Set    map[string]string `json:"set,omitempty"`
	Add    map[string]string `json:"add,omitempty"`
	Remove []string          `json:"remove,omitempty"`
}

// HeadersConfig groups request and response header rules.
type HeadersConfig struct {
	Request  *RequestHeaderRules  `json:"request,omitempty"`
	Response *ResponseHeaderRules `json:"response,omitempty"`
}

// Window is the refill window of a sustained rate.
type Window string

const (
	WindowSecond Window = "second"
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Seconds returns the window length in seconds. Unknown windows count as
// one second (the most restrictive interpretation).
func (w Window) Seconds() float64 {
	switch w {
	case WindowMinute:
		return 60
	case WindowHour:
		return 3600
	case WindowDay:
		return 86400
	default:
		return 1
	}
}

// RateLimitAlgorithm selects the limiter algorithm. Only token_bucket is
// implemented; other values are reserved.
type RateLimitAlgorithm string

const AlgorithmTokenBucket RateLimitAlgorithm = "token_bucket"

// RateLimitStrategy selects the behavior on exhaustion. Only reject is
// implemented; queue and degrade are reserved.
type RateLimitStrategy string

const StrategyReject RateLimitStrategy = "reject"

// SustainedRate is the steady-state refill configuration.
type SustainedRate struct {
	Rate   int    `json:"rate"`
	Window Window `json:"window,omitempty"`
}

// BurstConfig caps the bucket size above the sustained rate.
type BurstConfig struct {
	Capacity int `json:"capacity"`
}

// RateLimitConfig configures a token bucket for an upstream or a route.
type RateLimitConfig struct {
	Algorithm RateLimitAlgorithm `json:"algorithm,omitempty"`
	Sustained SustainedRate      `json:"sustained"`
	Burst     *BurstConfig       `json:"burst,omitempty"`
	Scope     string             `json:"scope,omitempty"`
	Strategy  RateLimitStrategy  `json:"strategy,omitempty"`
	Cost      int                `json:"cost,omitempty"`
}

// EffectiveCost returns the per-request token cost, defaulting to 1.
func (c RateLimitConfig) EffectiveCost() float64 {
	if c.Cost <= 0 {
		return 1
	}
	return float64(c.Cost)
}

// EffectiveCapacity returns the bucket capacity: burst capacity if set,
// else the sustained rate.
func (c RateLimitConfig) EffectiveCapacity() float64 {
	if c.Burst != nil && c.Burst.Capacity > 0 {
		return float64(c.Burst.Capacity)
	}
	return float64(c.Sustained.Rate)
}

// RefillRate returns tokens replenished per second.
func (c RateLimitConfig) RefillRate() float64 {
	return float64(c.Sustained.Rate) / c.Sustained.Window.Seconds()
}

// PluginsConfig references additional plugins by identifier (reserved).
type PluginsConfig struct {
	Items []string `json:"items,omitempty"`
}
