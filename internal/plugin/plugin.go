// Package plugin defines the authentication plugin capability used by the
// data plane to inject upstream credentials, and ships the built-in
// apikey and noop plugins.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AuthPlugin mutates the outbound header set to inject credentials.
// Implementations must be safe for concurrent use.
type AuthPlugin interface {
	// Authenticate may insert or replace headers. config is the opaque
	// plugin-specific payload from the upstream's auth configuration.
	Authenticate(ctx context.Context, headers http.Header, config json.RawMessage) error
}

// SecretNotFoundError distinguishes a missing credential from other plugin
// failures; the data plane maps it to its own error kind.
type SecretNotFoundError struct {
	Ref string
}

func (e *SecretNotFoundError) Error() string {
	return "secret not found: " + e.Ref
}

// internalError wraps plugin-internal failures (bad config, invalid header).
func internalError(format string, args ...any) error {
	return fmt.Errorf("plugin error: "+format, args...)
}

// isValidHeaderName checks RFC 7230 token characters.
func isValidHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '!' || c == '#' || c == '$' || c == '%' || c == '&' ||
			c == '\'' || c == '*' || c == '+' || c == '-' || c == '.' ||
			c == '^' || c == '_' || c == '`' || c == '|' || c == '~':
		default:
			return false
		}
	}
	return true
}

// isValidHeaderValue rejects control characters that would break framing.
func isValidHeaderValue(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < 0x20 && c != '\t' || c == 0x7f {
			return false
		}
	}
	return true
}
