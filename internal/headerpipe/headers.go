// Package headerpipe shapes outbound request headers: passthrough
// filtering, hop-by-hop and internal-header stripping, operator rules,
// and the Host value. All name comparisons are case-insensitive; the
// contracts (hop-by-hop list, x-oagw- prefix, standard-port omission)
// hold regardless of inbound casing.
package headerpipe

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

// Hop-by-hop headers that must never be forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// internalPrefix marks gateway-internal headers stripped before forwarding.
const internalPrefix = "x-oagw-"

// ApplyPassthrough seeds the outbound header set from the inbound one
// according to the passthrough mode. Content-Type is always carried over
// when present so bodies round-trip.
func ApplyPassthrough(inbound http.Header, rules *model.RequestHeaderRules) http.Header {
	mode := model.PassthroughNone
	var allowlist []string
	if rules != nil {
		if rules.Passthrough != "" {
			mode = rules.Passthrough
		}
		allowlist = rules.PassthroughAllowlist
	}

	out := make(http.Header)
	switch mode {
	case model.PassthroughAll:
		for name, values := range inbound {
			out[name] = append([]string(nil), values...)
		}
	case model.PassthroughAllowlist:
		for _, name := range allowlist {
			canonical := http.CanonicalHeaderKey(name)
			if values, ok := inbound[canonical]; ok {
				out[canonical] = append([]string(nil), values...)
			}
		}
	}

	if out.Get("Content-Type") == "" {
		if ct := inbound.Get("Content-Type"); ct != "" {
			out.Set("Content-Type", ct)
		}
	}
	return out
}

// StripHopByHop removes connection-scoped headers.
func StripHopByHop(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// StripInternal removes any x-oagw-* header.
func StripInternal(h http.Header) {
	for name := range h {
		if strings.HasPrefix(strings.ToLower(name), internalPrefix) {
			h.Del(name)
		}
	}
}

// ApplyRules applies operator header rules in order: remove, then set
// (overwrite), then add (append, duplicates allowed). Invalid names or
// values are operator misconfiguration, not per-request failures, and are
// skipped silently.
func ApplyRules(h http.Header, rules *model.RequestHeaderRules) {
	if rules == nil {
		return
	}
	for _, name := range rules.Remove {
		if validName(name) {
			h.Del(name)
		}
	}
	for name, value := range rules.Set {
		if validName(name) && validValue(value) {
			h.Set(name, value)
		}
	}
	for name, value := range rules.Add {
		if validName(name) && validValue(value) {
			h.Add(name, value)
		}
	}
}

// HostValue formats the Host header value for an endpoint, omitting
// standard ports (80, 443).
func HostValue(e model.Endpoint) string {
	if e.Port == 80 || e.Port == 443 {
		return e.Host
	}
	return e.Host + ":" + strconv.Itoa(e.Port)
}

func validName(name string) bool {
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

func validValue(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < 0x20 && c != '\t' || c == 0x7f {
			return false
		}
	}
	return true
}
