package dataplane

import (
	"io"
	"net/http"

	"github.com/google/uuid"
)

// QueryParam is one inbound query parameter. Order is preserved end to
// end; a bare key has an empty value.
type QueryParam struct {
	Key   string
	Value string
}

// ProxyContext carries everything the pipeline needs for one in-flight
// request. It is owned by the single task handling the request.
type ProxyContext struct {
	TenantID    uuid.UUID
	Method      string
	Alias       string
	PathSuffix  string
	QueryParams []QueryParam
	Headers     http.Header
	Body        []byte
	InstanceURI string
}

// ErrorSource attributes a response to the gateway or to the upstream.
type ErrorSource string

const (
	SourceGateway  ErrorSource = "gateway"
	SourceUpstream ErrorSource = "upstream"
)

// ProxyResponse is the streaming result of a proxied request. Ownership of
// Body passes to the caller, which must close it; closing aborts the
// underlying connection best-effort.
type ProxyResponse struct {
	Status      int
	Headers     http.Header
	Body        io.ReadCloser
	ErrorSource ErrorSource
}
