package dataplane

import (
	"strconv"
	"strings"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

// schemeString maps an endpoint scheme to the URL scheme used for
// forwarding. gRPC and WebTransport endpoints forward over https.
func schemeString(s model.Scheme) string {
	switch s {
	case model.SchemeHTTP:
		return "http"
	case model.SchemeWSS:
		return "wss"
	default:
		return "https"
	}
}

func isDefaultPort(scheme string, port int) bool {
	switch scheme {
	case "http", "ws":
		return port == 80
	case "https", "wss":
		return port == 443
	}
	return false
}

// buildUpstreamURL composes the outbound URL from the endpoint, the
// matched route path, the remaining path suffix, and the ordered query
// parameters. A double slash at the path seam is coalesced; bare query
// keys are emitted without '='.
func buildUpstreamURL(e model.Endpoint, routePath, pathSuffix string, query []QueryParam) string {
	scheme := schemeString(e.Scheme)

	hostPort := e.Host
	if !isDefaultPort(scheme, e.Port) {
		hostPort = e.Host + ":" + strconv.Itoa(e.Port)
	}

	var path string
	switch {
	case pathSuffix == "":
		path = routePath
	case strings.HasSuffix(routePath, "/") && strings.HasPrefix(pathSuffix, "/"):
		path = routePath + pathSuffix[1:]
	case !strings.HasSuffix(routePath, "/") && !strings.HasPrefix(pathSuffix, "/"):
		path = routePath + "/" + pathSuffix
	default:
		path = routePath + pathSuffix
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(hostPort)
	b.WriteString(path)

	if len(query) > 0 {
		b.WriteByte('?')
		for i, q := range query {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(q.Key)
			if q.Value != "" {
				b.WriteByte('=')
				b.WriteString(q.Value)
			}
		}
	}
	return b.String()
}
