package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/striped-zebra-dev/oagw/internal/dataplane"
	"github.com/striped-zebra-dev/oagw/internal/oagwerr"
)

// ProxyPathPrefix is the inbound proxy endpoint prefix; the alias is the
// first path segment after it.
const ProxyPathPrefix = "/api/oagw/v1/proxy/"

// DefaultMaxBodyBytes is the inbound body cap (100 MiB).
const DefaultMaxBodyBytes = 100 * 1024 * 1024

// proxy translates an inbound request into a ProxyContext, runs the data
// plane pipeline, and streams the response back.
func (s *Server) proxy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	instance := r.URL.Path

	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}

	// The catch-all parameter holds "/{alias}{/suffix}".
	remaining := strings.TrimPrefix(ps.ByName("path"), "/")
	var alias, pathSuffix string
	if pos := strings.IndexByte(remaining, '/'); pos >= 0 {
		alias, pathSuffix = remaining[:pos], remaining[pos:]
	} else {
		alias = remaining
	}
	if alias == "" {
		writeError(w, oagwerr.New(oagwerr.KindValidation, "missing alias in proxy path", instance))
		return
	}

	// Content-Length is validated before the body is read so oversized
	// uploads are rejected without consuming them.
	if cl := r.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil {
			writeError(w, oagwerr.Newf(oagwerr.KindValidation, instance,
				"Content-Length is not a valid integer: %q", cl))
			return
		}
		if n > s.maxBodyBytes {
			writeError(w, oagwerr.Newf(oagwerr.KindPayloadTooLarge, instance,
				"request body of %d bytes exceeds maximum of %d bytes", n, s.maxBodyBytes))
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodyBytes+1))
	if err != nil {
		writeError(w, oagwerr.Wrap(err, oagwerr.KindValidation,
			"failed to read request body: "+err.Error(), instance))
		return
	}
	if int64(len(body)) > s.maxBodyBytes {
		writeError(w, oagwerr.Newf(oagwerr.KindPayloadTooLarge, instance,
			"request body exceeds maximum of %d bytes", s.maxBodyBytes))
		return
	}

	ctx := &dataplane.ProxyContext{
		TenantID:    tenant,
		Method:      r.Method,
		Alias:       alias,
		PathSuffix:  pathSuffix,
		QueryParams: parseQueryParams(r.URL.RawQuery),
		Headers:     r.Header,
		Body:        body,
		InstanceURI: instance,
	}

	resp, perr := s.dp.ProxyRequest(r.Context(), ctx)
	if perr != nil {
		writeError(w, perr)
		return
	}
	defer resp.Body.Close()

	// Upstream response headers pass through verbatim.
	header := w.Header()
	for name, values := range resp.Headers {
		header[name] = values
	}
	header.Set(oagwerr.ErrorSourceHeader, string(resp.ErrorSource))
	w.WriteHeader(resp.Status)

	streamBody(w, resp.Body)
}

// parseQueryParams splits the raw query preserving order; bare keys map
// to empty values. Values are passed through undecoded, exactly as sent.
func parseQueryParams(rawQuery string) []dataplane.QueryParam {
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

// streamBody copies the upstream body to the client chunk by chunk,
// flushing after every write so SSE and other long-lived streams are
// delivered as they arrive.
func streamBody(w http.ResponseWriter, body io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
