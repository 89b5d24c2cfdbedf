package plugin

import (
	"github.com/striped-zebra-dev/oagw/internal/credential"
)

// Registry resolves auth plugin identifiers to implementations. It is
// populated at startup and read-only afterwards.
type Registry struct {
	plugins map[string]AuthPlugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]AuthPlugin)}
}

// WithBuiltins creates a registry holding the built-in plugins (apikey,
// noop), each registered under its GTS identifier and its short name.
func WithBuiltins(credentials credential.Resolver) *Registry {
	r := NewRegistry()
	apikey := NewAPIKeyPlugin(credentials)
	r.Register(APIKeyPluginID, apikey)
	r.Register("apikey", apikey)
	r.Register(NoopPluginID, NoopPlugin{})
	r.Register("noop", NoopPlugin{})
	return r
}

// Register adds a plugin under an identifier, replacing any previous entry.
func (r *Registry) Register(id string, p AuthPlugin) {
	r.plugins[id] = p
}

// Resolve returns the plugin for an identifier. Unknown identifiers are a
// plugin error surfaced as an authentication failure by the data plane.
func (r *Registry) Resolve(id string) (AuthPlugin, error) {
	p, ok := r.plugins[id]
	if !ok {
		return nil, internalError("unknown auth plugin: %s", id)
	}
	return p, nil
}
