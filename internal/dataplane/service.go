// Package dataplane implements the per-request proxy pipeline:
// resolve, validate, header shaping, auth injection, rate limiting,
// forwarding, and response streaming.
package dataplane

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/striped-zebra-dev/oagw/internal/controlplane"
	"github.com/striped-zebra-dev/oagw/internal/credential"
	"github.com/striped-zebra-dev/oagw/internal/headerpipe"
	"github.com/striped-zebra-dev/oagw/internal/logging"
	"github.com/striped-zebra-dev/oagw/internal/metrics"
	"github.com/striped-zebra-dev/oagw/internal/model"
	"github.com/striped-zebra-dev/oagw/internal/oagwerr"
	"github.com/striped-zebra-dev/oagw/internal/plugin"
	"github.com/striped-zebra-dev/oagw/internal/ratelimit"
)

// Config tunes the data plane service.
type Config struct {
	Transport TransportConfig
	Metrics   *metrics.Metrics
}

// Service executes the proxy pipeline. It holds shared immutable
// references to the control plane, the plugin registry, and the rate
// limiter for the lifetime of the process.
type Service struct {
	cp      *controlplane.Service
	client  *http.Client
	plugins *plugin.Registry
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates the data plane over a control plane and a credential
// resolver.
func NewService(cp *controlplane.Service, credentials credential.Resolver, cfg Config) *Service {
	return &Service{
		cp: cp,
		client: &http.Client{
			Transport: newTransport(cfg.Transport),
			// Redirects from upstreams pass through untouched.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		plugins: plugin.WithBuiltins(credentials),
		limiter: ratelimit.New(),
		metrics: cfg.Metrics,
		logger:  logging.With(zap.String("component", "dataplane")),
	}
}

// Close releases the limiter's background resources.
func (s *Service) Close() {
	s.limiter.Close()
}

// ProxyRequest runs the pipeline for one request. Every error it returns
// is gateway-attributed; any HTTP response actually produced by the
// upstream, whatever its status, comes back as a ProxyResponse with
// error source "upstream".
func (s *Service) ProxyRequest(ctx context.Context, pctx *ProxyContext) (*ProxyResponse, *oagwerr.Error) {
	start := time.Now()

	resp, err := s.run(ctx, pctx)
	if err != nil {
		s.metrics.RecordProxyRequest(pctx.Alias, err.Status(), string(SourceGateway), time.Since(start))
		return nil, err
	}
	s.metrics.RecordProxyRequest(pctx.Alias, resp.Status, string(SourceUpstream), time.Since(start))
	return resp, nil
}

func (s *Service) run(ctx context.Context, pctx *ProxyContext) (*ProxyResponse, *oagwerr.Error) {
	instance := pctx.InstanceURI

	// 1. Resolve upstream by alias.
	upstream, err := s.cp.ResolveUpstream(pctx.TenantID, pctx.Alias)
	if err != nil {
		return nil, asGatewayError(err, instance)
	}

	// 2. Resolve route by (method, path suffix).
	route, err := s.cp.ResolveRoute(pctx.TenantID, upstream.ID, pctx.Method, pctx.PathSuffix)
	if err != nil {
		return nil, asGatewayError(err, instance)
	}
	httpMatch := route.Match.HTTP

	// 3. Validate query parameters against the route allowlist.
	if len(pctx.QueryParams) > 0 {
		for _, q := range pctx.QueryParams {
			if !httpMatch.AllowsQueryKey(q.Key) {
				return nil, oagwerr.Newf(oagwerr.KindValidation, instance,
					"query parameter %q is not in the route's query_allowlist", q.Key)
			}
		}
	}

	// 4. Enforce path_suffix_mode.
	if httpMatch.PathSuffixMode == model.SuffixDisabled {
		extra := strings.TrimPrefix(pctx.PathSuffix, httpMatch.Path)
		if extra != "" {
			return nil, oagwerr.Newf(oagwerr.KindValidation, instance,
				"path suffix not allowed: route path_suffix_mode is disabled but request has extra path %q", extra)
		}
	}

	// 5. Shape outbound headers: passthrough, strip, auth, rules, Host.
	headerRules := upstream.RequestHeaderRules()
	outbound := headerpipe.ApplyPassthrough(pctx.Headers, headerRules)
	headerpipe.StripHopByHop(outbound)
	headerpipe.StripInternal(outbound)

	if upstream.Auth != nil {
		if oe := s.authenticate(ctx, upstream.Auth, outbound, instance); oe != nil {
			return nil, oe
		}
	}

	headerpipe.ApplyRules(outbound, headerRules)

	endpoint, ok := upstream.FirstEndpoint()
	if !ok {
		return nil, oagwerr.New(oagwerr.KindDownstream, "upstream has no endpoints", instance)
	}

	// 6. Rate limit: upstream scope, then route scope.
	if upstream.RateLimit != nil {
		if oe := s.limiter.TryConsume("upstream:"+upstream.ID.String(), upstream.RateLimit, instance); oe != nil {
			s.metrics.RecordRateLimitRejection("upstream")
			return nil, oe
		}
	}
	if route.RateLimit != nil {
		if oe := s.limiter.TryConsume("route:"+route.ID.String(), route.RateLimit, instance); oe != nil {
			s.metrics.RecordRateLimitRejection("route")
			return nil, oe
		}
	}

	// 7. Build the upstream URL from the first endpoint.
	remaining := strings.TrimPrefix(pctx.PathSuffix, httpMatch.Path)
	target := buildUpstreamURL(endpoint, httpMatch.Path, remaining, pctx.QueryParams)

	// 8. Forward.
	req, reqErr := http.NewRequestWithContext(ctx, pctx.Method, target, bytes.NewReader(pctx.Body))
	if reqErr != nil {
		return nil, oagwerr.Wrap(reqErr, oagwerr.KindValidation, "invalid proxy request: "+reqErr.Error(), instance)
	}
	req.Header = outbound
	req.Host = headerpipe.HostValue(endpoint)
	req.ContentLength = int64(len(pctx.Body))

	resp, doErr := s.client.Do(req)
	if doErr != nil {
		oe := classifyForwardError(doErr, target, instance)
		s.metrics.RecordUpstreamError(oe.Title())
		s.logger.Warn("forward failed",
			zap.String("alias", pctx.Alias),
			zap.String("url", target),
			zap.String("kind", oe.Title()),
			zap.Error(doErr),
		)
		return nil, oe
	}

	// 9. Hand the streaming body to the caller. Response headers pass
	// through as-is; passthrough rules never apply to responses.
	return &ProxyResponse{
		Status:      resp.StatusCode,
		Headers:     resp.Header,
		Body:        resp.Body,
		ErrorSource: SourceUpstream,
	}, nil
}

// asGatewayError extracts the typed gateway error, falling back to a
// downstream classification for anything unexpected.
func asGatewayError(err error, instance string) *oagwerr.Error {
	if oe, ok := oagwerr.As(err); ok {
		return oe
	}
	return oagwerr.Wrap(err, oagwerr.KindDownstream, err.Error(), instance)
}

// authenticate resolves and runs the upstream's auth plugin against the
// outbound header set.
func (s *Service) authenticate(ctx context.Context, auth *model.AuthConfig, headers http.Header, instance string) *oagwerr.Error {
	p, err := s.plugins.Resolve(auth.PluginType)
	if err != nil {
		return oagwerr.Wrap(err, oagwerr.KindAuthenticationFailed, err.Error(), instance)
	}
	if err := p.Authenticate(ctx, headers, auth.Config); err != nil {
		var notFound *plugin.SecretNotFoundError
		if errors.As(err, &notFound) {
			return oagwerr.Wrap(err, oagwerr.KindSecretNotFound, err.Error(), instance)
		}
		return oagwerr.Wrap(err, oagwerr.KindAuthenticationFailed, err.Error(), instance)
	}
	return nil
}

// classifyForwardError maps transport failures onto the gateway error
// taxonomy. Connect-phase timeouts are ConnectionTimeout, the
// response-header deadline is RequestTimeout, malformed upstream framing
// is ProtocolError, and everything else is DownstreamError.
func classifyForwardError(err error, target, instance string) *oagwerr.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return oagwerr.Wrap(err, oagwerr.KindRequestTimeout,
			"request to "+target+" timed out", instance)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if opErr.Timeout() {
			return oagwerr.Wrap(err, oagwerr.KindConnectionTimeout,
				"connect to "+target+" timed out", instance)
		}
		return oagwerr.Wrap(err, oagwerr.KindDownstream, err.Error(), instance)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg := urlErr.Err.Error()
		switch {
		case strings.Contains(msg, "timeout awaiting response headers"):
			return oagwerr.Wrap(err, oagwerr.KindRequestTimeout,
				"request to "+target+" timed out awaiting response headers", instance)
		case strings.Contains(msg, "malformed HTTP"):
			return oagwerr.Wrap(err, oagwerr.KindProtocol, msg, instance)
		}
	}

	return oagwerr.Wrap(err, oagwerr.KindDownstream, err.Error(), instance)
}
