package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/gts"
	"github.com/striped-zebra-dev/oagw/internal/model"
	"github.com/striped-zebra-dev/oagw/internal/oagwerr"
)

// tenantIDHeader scopes every management and proxy call.
const tenantIDHeader = "X-Tenant-Id"

// tenantID extracts and validates the X-Tenant-Id header.
func tenantID(r *http.Request) (uuid.UUID, *oagwerr.Error) {
	v := r.Header.Get(tenantIDHeader)
	if v == "" {
		return uuid.Nil, oagwerr.New(oagwerr.KindValidation,
			"missing X-Tenant-Id header", r.URL.Path)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, oagwerr.Newf(oagwerr.KindValidation, r.URL.Path,
			"invalid X-Tenant-Id: %q is not a valid UUID", v)
	}
	return id, nil
}

// parseGTSID parses a resource GTS identifier from a path segment.
func parseGTSID(s, instance string) (uuid.UUID, *oagwerr.Error) {
	_, id, err := gts.ParseResource(s)
	if err != nil {
		return uuid.Nil, oagwerr.Newf(oagwerr.KindValidation, instance,
			"invalid GTS identifier: %q", s)
	}
	return id, nil
}

// pagination reads OData-style $top / $skip query parameters.
func pagination(r *http.Request) model.ListQuery {
	q := model.ListQuery{Top: model.DefaultTop}
	if v := r.URL.Query().Get("$top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Top = n
		}
	}
	if v := r.URL.Query().Get("$skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Skip = n
		}
	}
	return q.Normalize()
}

// decodeJSON strictly decodes a request body; unknown fields are rejected.
func decodeJSON(r *http.Request, v any) *oagwerr.Error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return oagwerr.Wrap(err, oagwerr.KindValidation,
			"invalid request body: "+err.Error(), r.URL.Path)
	}
	return nil
}

// writeJSON serializes a success response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps any error onto a Problem Details response.
func writeError(w http.ResponseWriter, err error) {
	if oe, ok := oagwerr.As(err); ok {
		oagwerr.WriteProblem(w, oe)
		return
	}
	oagwerr.WriteProblem(w, oagwerr.New(oagwerr.KindDownstream, err.Error(), ""))
}
