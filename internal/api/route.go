package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tenant, oe := tenantID(r)
	if oe != nil {
		writeError(w, oe)
		return
	}
	var req model.CreateRouteRequest
	if oe := decodeJSON(r, &req); oe != nil {
		writeError(w, oe)
		return
	}
	rt, err := s.cp.CreateRoute(tenant, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRouteResponse(rt))
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	rt, err := s.cp.GetRoute(tenant, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRouteResponse(rt))
}

func (s *Server) updateRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	var req model.UpdateRouteRequest
	if oe := decodeJSON(r, &req); oe != nil {
		writeError(w, oe)
		return
	}
	rt, err := s.cp.UpdateRoute(tenant, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRouteResponse(rt))
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	if err := s.cp.DeleteRoute(tenant, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
