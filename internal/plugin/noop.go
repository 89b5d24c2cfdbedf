package plugin

import (
	"context"
	"encoding/json"
	"net/http"
)

// NoopPluginID is the GTS identifier of the noop auth plugin.
const NoopPluginID = "gts.x.core.oagw.auth_plugin.v1~x.core.oagw.noop.v1"

// NoopPlugin leaves headers unchanged, for upstreams that need no
// authentication.
type NoopPlugin struct{}

// Authenticate implements AuthPlugin.
func (NoopPlugin) Authenticate(context.Context, http.Header, json.RawMessage) error {
	return nil
}
