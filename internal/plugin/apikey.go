package plugin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/striped-zebra-dev/oagw/internal/credential"
)

// APIKeyPluginID is the GTS identifier of the apikey auth plugin.
const APIKeyPluginID = "gts.x.core.oagw.auth_plugin.v1~x.core.oagw.apikey.v1"

// apiKeyConfig is the plugin-specific payload of the apikey plugin.
type apiKeyConfig struct {
	// Header to set (e.g. "Authorization", "X-API-Key").
	Header string `json:"header"`
	// Prefix prepended to the secret value (e.g. "Bearer ").
	Prefix string `json:"prefix"`
	// SecretRef resolved through the credential resolver.
	SecretRef string `json:"secret_ref"`
}

// APIKeyPlugin resolves a secret reference and injects it as a header
// value, overwriting any prior value of that header.
type APIKeyPlugin struct {
	credentials credential.Resolver
}

// NewAPIKeyPlugin creates the apikey plugin over a credential resolver.
func NewAPIKeyPlugin(credentials credential.Resolver) *APIKeyPlugin {
	return &APIKeyPlugin{credentials: credentials}
}

// Authenticate implements AuthPlugin.
func (p *APIKeyPlugin) Authenticate(ctx context.Context, headers http.Header, config json.RawMessage) error {
	var cfg apiKeyConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return internalError("invalid apikey auth config: %v", err)
	}
	if cfg.Header == "" || cfg.SecretRef == "" {
		return internalError("apikey auth config requires header and secret_ref")
	}
	if !isValidHeaderName(cfg.Header) {
		return internalError("invalid header name %q", cfg.Header)
	}

	secret, err := p.credentials.Resolve(ctx, cfg.SecretRef)
	if err != nil {
		return &SecretNotFoundError{Ref: cfg.SecretRef}
	}

	value := cfg.Prefix + secret.Reveal()
	if !isValidHeaderValue(value) {
		return internalError("invalid header value for %q", cfg.Header)
	}
	headers.Set(cfg.Header, value)
	return nil
}
