package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/oagwerr"
)

// RemoteProxyClient issues HTTP requests to a gateway's proxy endpoint.
// Used when the gateway runs as a separate service.
type RemoteProxyClient struct {
	baseURL   string
	authToken string
	timeout   time.Duration
	client    *http.Client
}

// NewRemoteProxyClient creates a client for the gateway at baseURL
// (e.g. "http://localhost:8080"). The timeout is the default end-to-end
// bound, overridable per request.
func NewRemoteProxyClient(baseURL, authToken string, timeout time.Duration) *RemoteProxyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteProxyClient{
		baseURL:   baseURL,
		authToken: authToken,
		timeout:   timeout,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			// No client-level timeout: deadlines are per-request contexts
			// so streaming bodies are not cut off mid-read.
		},
	}
}

// Execute implements Client.
func (c *RemoteProxyClient) Execute(ctx context.Context, alias string, tenantID uuid.UUID, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	url := c.baseURL + "/api/oagw/v1/proxy/" + alias + req.Path

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(req.Body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	for name, values := range req.Headers {
		httpReq.Header[name] = values
	}
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	httpReq.Header.Set("X-Tenant-Id", tenantID.String())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("client: %w", err)
	}

	source := errorSourceFromHeader(resp.Header.Get(oagwerr.ErrorSourceHeader))
	body := &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return newResponse(resp.StatusCode, resp.Header, body, source), nil
}
