package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

func (s *Server) createUpstream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}
	var req model.CreateUpstreamRequest
	if oe := decodeJSON(r, &req); oe != nil {
		writeError(w, oe)
		return
	}
	u, err := s.cp.CreateUpstream(tenant, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUpstreamResponse(u))
}

func (s *Server) listUpstreams(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}
	us, err := s.cp.ListUpstreams(tenant, pagination(r))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]upstreamResponse, 0, len(us))
	for _, u := range us {
		resp = append(resp, toUpstreamResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getUpstream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}
	id, oe := parseGTSID(ps.ByName("id"), r.URL.Path)
	if oe != nil {
		writeError(w, oe)
		return
	}
	u, err := s.cp.GetUpstream(tenant, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUpstreamResponse(u))
}

func (s *Server) updateUpstream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}
	id, oe := parseGTSID(ps.ByName("id"), r.URL.Path)
	if oe != nil {
		writeError(w, oe)
		return
	}
	var req model.UpdateUpstreamRequest
	if oe := decodeJSON(r, &req); oe != nil {
		writeError(w, oe)
		return
	}
	u, err := s.cp.UpdateUpstream(tenant, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUpstreamResponse(u))
}

func (s *Server) deleteUpstream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}
	id, oe := parseGTSID(ps.ByName("id"), r.URL.Path)
	if oe != nil {
		writeError(w, oe)
		return
	}
	if err := s.cp.DeleteUpstream(tenant, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUpstreamRoutes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}
	id, oe := parseGTSID(ps.ByName("id"), r.URL.Path)
	if oe != nil {
		writeError(w, oe)
		return
	}
	rts, err := s.cp.ListRoutes(tenant, id, pagination(r))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]routeResponse, 0, len(rts))
	for _, rt := range rts {
		resp = append(resp, toRouteResponse(rt))
	}
	writeJSON(w, http.StatusOK, resp)
}
