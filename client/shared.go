package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/dataplane"
	"github.com/striped-zebra-dev/oagw/internal/oagwerr"
)

// SharedProcessClient calls the data plane directly with zero
// serialization. Used when the gateway is embedded in the same process.
type SharedProcessClient struct {
	dp *dataplane.Service
}

// NewSharedProcessClient creates a client over an in-process data plane.
func NewSharedProcessClient(dp *dataplane.Service) *SharedProcessClient {
	return &SharedProcessClient{dp: dp}
}

// Execute implements Client. Gateway errors surface the same way the HTTP
// edge reports them: a response carrying a Problem Details body with
// gateway attribution.
func (c *SharedProcessClient) Execute(ctx context.Context, alias string, tenantID uuid.UUID, req *Request) (*Response, error) {
	cancel := context.CancelFunc(func() {})
	if req.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
	}

	pathSuffix, rawQuery := splitPathQuery(req.Path)

	headers := req.Headers
	if headers == nil {
		headers = make(http.Header)
	}

	pctx := &dataplane.ProxyContext{
		TenantID:    tenantID,
		Method:      req.Method,
		Alias:       alias,
		PathSuffix:  pathSuffix,
		QueryParams: parseQuery(rawQuery),
		Headers:     headers,
		Body:        req.Body,
		InstanceURI: "/api/oagw/v1/proxy/" + alias + pathSuffix,
	}

	resp, perr := c.dp.ProxyRequest(ctx, pctx)
	if perr != nil {
		cancel()
		return problemResponse(perr), nil
	}

	// The deadline keeps running until the caller finishes the stream.
	body := &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return newResponse(resp.Status, resp.Headers, body, ErrorSource(resp.ErrorSource)), nil
}

// cancelOnClose releases the request context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// problemResponse renders a gateway error exactly as the HTTP surface
// would: Problem Details body, problem+json content type, error source
// and Retry-After headers.
func problemResponse(perr *oagwerr.Error) *Response {
	body, _ := json.Marshal(perr.Problem())

	headers := make(http.Header)
	headers.Set("Content-Type", "application/problem+json")
	headers.Set(oagwerr.ErrorSourceHeader, string(SourceGateway))
	if perr.Kind == oagwerr.KindRateLimitExceeded && perr.RetryAfterSecs > 0 {
		headers.Set("Retry-After", strconv.FormatInt(perr.RetryAfterSecs, 10))
	}

	return newResponse(
		perr.Status(),
		headers,
		io.NopCloser(strings.NewReader(string(body))),
		SourceGateway,
	)
}

func splitPathQuery(path string) (string, string) {
	if pos := strings.IndexByte(path, '?'); pos >= 0 {
		return path[:pos], path[pos+1:]
	}
	return path, ""
}

func parseQuery(rawQuery string) []dataplane.QueryParam {
	if rawQuery == "" {
		return nil
	}
	var params []dataplane.QueryParam
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		if pos := strings.IndexByte(pair, '='); pos >= 0 {
			params = append(params, dataplane.QueryParam{Key: pair[:pos], Value: pair[pos+1:]})
		} else {
			params = append(params, dataplane.QueryParam{Key: pair})
		}
	}
	return params
}
