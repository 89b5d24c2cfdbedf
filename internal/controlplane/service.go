// Package controlplane implements the configuration plane: upstream and
// route management plus the resolution operations used by the data plane.
package controlplane

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/striped-zebra-dev/oagw/internal/logging"
	"github.com/striped-zebra-dev/oagw/internal/model"
	"github.com/striped-zebra-dev/oagw/internal/oagwerr"
	"github.com/striped-zebra-dev/oagw/internal/repo"
)

// Service is the control plane facade over the upstream and route
// repositories. It owns alias generation, partial updates, cascade
// deletes, and the alias/route resolution used per proxy request.
type Service struct {
	upstreams repo.UpstreamRepository
	routes    repo.RouteRepository
	logger    *zap.Logger
}

// NewService creates a control plane service over the given repositories.
func NewService(upstreams repo.UpstreamRepository, routes repo.RouteRepository) *Service {
	return &Service{
		upstreams: upstreams,
		routes:    routes,
		logger:    logging.With(zap.String("component", "controlplane")),
	}
}

func mapRepoError(err error, instance string) *oagwerr.Error {
	if repo.IsConflict(err) {
		return oagwerr.Wrap(err, oagwerr.KindValidation, err.Error(), instance)
	}
	return oagwerr.Wrap(err, oagwerr.KindRouteNotFound, "no matching route found", instance)
}

// CreateUpstream creates an upstream with a server-assigned id. When the
// request carries no alias, one is generated from the first endpoint.
func (s *Service) CreateUpstream(tenantID uuid.UUID, req model.CreateUpstreamRequest) (model.Upstream, error) {
	const instance = "/oagw/v1/upstreams"
	if err := req.Validate(); err != nil {
		return model.Upstream{}, oagwerr.Wrap(err, oagwerr.KindValidation, err.Error(), instance)
	}

	alias := ""
	if req.Alias != nil {
		alias = *req.Alias
	}
	if alias == "" {
		alias = req.Server.Endpoints[0].AliasContribution()
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	u := model.Upstream{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Alias:     alias,
		Server:    req.Server,
		Protocol:  req.Protocol,
		Enabled:   enabled,
		Auth:      req.Auth,
		Headers:   req.Headers,
		Plugins:   req.Plugins,
		RateLimit: req.RateLimit,
		Tags:      req.Tags,
	}
	if err := s.upstreams.Create(u); err != nil {
		return model.Upstream{}, mapRepoError(err, instance)
	}
	s.logger.Info("upstream created",
		zap.String("upstream_id", u.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("alias", u.Alias),
	)
	return u, nil
}

// GetUpstream reads one upstream.
func (s *Service) GetUpstream(tenantID, id uuid.UUID) (model.Upstream, error) {
	u, err := s.upstreams.GetByID(tenantID, id)
	if err != nil {
		return model.Upstream{}, mapRepoError(err, "/oagw/v1/upstreams/"+id.String())
	}
	return u, nil
}

// ListUpstreams returns a page of the tenant's upstreams.
func (s *Service) ListUpstreams(tenantID uuid.UUID, q model.ListQuery) ([]model.Upstream, error) {
	us, err := s.upstreams.List(tenantID, q)
	if err != nil {
		return nil, mapRepoError(err, "/oagw/v1/upstreams")
	}
	return us, nil
}

// UpdateUpstream applies a partial update: only supplied fields are written.
func (s *Service) UpdateUpstream(tenantID, id uuid.UUID, req model.UpdateUpstreamRequest) (model.Upstream, error) {
	instance := "/oagw/v1/upstreams/" + id.String()

	existing, err := s.upstreams.GetByID(tenantID, id)
	if err != nil {
		return model.Upstream{}, mapRepoError(err, instance)
	}

	if req.Alias != nil {
		existing.Alias = *req.Alias
	}
	if req.Server != nil {
		srv := *req.Server
		if len(srv.Endpoints) == 0 {
			return model.Upstream{}, oagwerr.New(oagwerr.KindValidation, "server.endpoints must not be empty", instance)
		}
		for i := range srv.Endpoints {
			srv.Endpoints[i].ApplyDefaults()
		}
		existing.Server = srv
	}
	if req.Protocol != nil {
		existing.Protocol = *req.Protocol
	}
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}
	if req.Auth != nil {
		existing.Auth = req.Auth
	}
	if req.Headers != nil {
		existing.Headers = req.Headers
	}
	if req.Plugins != nil {
		existing.Plugins = req.Plugins
	}
	if req.RateLimit != nil {
		existing.RateLimit = req.RateLimit
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}

	if err := s.upstreams.Update(existing); err != nil {
		return model.Upstream{}, mapRepoError(err, instance)
	}
	return existing, nil
}

// DeleteUpstream cascades the upstream's routes first, then removes the
// upstream. A cascade failure is logged but does not abort the delete.
func (s *Service) DeleteUpstream(tenantID, id uuid.UUID) error {
	instance := "/oagw/v1/upstreams/" + id.String()

	deleted, err := s.routes.DeleteByUpstream(tenantID, id)
	if err != nil {
		s.logger.Warn("route cascade failed during upstream delete",
			zap.String("upstream_id", id.String()),
			zap.Error(err),
		)
	} else if deleted > 0 {
		s.logger.Info("routes cascaded",
			zap.String("upstream_id", id.String()),
			zap.Int("deleted", deleted),
		)
	}

	if err := s.upstreams.Delete(tenantID, id); err != nil {
		return mapRepoError(err, instance)
	}
	return nil
}

// CreateRoute creates a route after validating that the referenced
// upstream exists within the same tenant.
func (s *Service) CreateRoute(tenantID uuid.UUID, req model.CreateRouteRequest) (model.Route, error) {
	const instance = "/oagw/v1/routes"

	if err := req.Validate(); err != nil {
		return model.Route{}, oagwerr.Wrap(err, oagwerr.KindValidation, err.Error(), instance)
	}
	if _, err := s.upstreams.GetByID(tenantID, req.UpstreamID); err != nil {
		return model.Route{}, oagwerr.Newf(oagwerr.KindValidation, instance,
			"upstream %q not found for this tenant", req.UpstreamID)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rt := model.Route{
		ID:         uuid.New(),
		TenantID:   tenantID,
		UpstreamID: req.UpstreamID,
		Match:      req.Match,
		Plugins:    req.Plugins,
		RateLimit:  req.RateLimit,
		Tags:       req.Tags,
		Priority:   req.Priority,
		Enabled:    enabled,
	}
	if err := s.routes.Create(rt); err != nil {
		return model.Route{}, mapRepoError(err, instance)
	}
	s.logger.Info("route created",
		zap.String("route_id", rt.ID.String()),
		zap.String("upstream_id", rt.UpstreamID.String()),
		zap.String("path", rt.Match.HTTP.Path),
	)
	return rt, nil
}

// GetRoute reads one route.
func (s *Service) GetRoute(tenantID, id uuid.UUID) (model.Route, error) {
	rt, err := s.routes.GetByID(tenantID, id)
	if err != nil {
		return model.Route{}, mapRepoError(err, "/oagw/v1/routes/"+id.String())
	}
	return rt, nil
}

// ListRoutes returns a page of the upstream's routes.
func (s *Service) ListRoutes(tenantID, upstreamID uuid.UUID, q model.ListQuery) ([]model.Route, error) {
	rts, err := s.routes.ListByUpstream(tenantID, upstreamID, q)
	if err != nil {
		return nil, mapRepoError(err, "/oagw/v1/upstreams/"+upstreamID.String()+"/routes")
	}
	return rts, nil
}

// UpdateRoute applies a partial route update.
func (s *Service) UpdateRoute(tenantID, id uuid.UUID, req model.UpdateRouteRequest) (model.Route, error) {
	instance := "/oagw/v1/routes/" + id.String()

	existing, err := s.routes.GetByID(tenantID, id)
	if err != nil {
		return model.Route{}, mapRepoError(err, instance)
	}

	if req.Match != nil {
		if err := model.ValidateMatchRules(req.Match); err != nil {
			return model.Route{}, oagwerr.Wrap(err, oagwerr.KindValidation, err.Error(), instance)
		}
		existing.Match = *req.Match
	}
	if req.Plugins != nil {
		existing.Plugins = req.Plugins
	}
	if req.RateLimit != nil {
		existing.RateLimit = req.RateLimit
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}
	if req.Priority != nil {
		existing.Priority = *req.Priority
	}
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if err := s.routes.Update(existing); err != nil {
		return model.Route{}, mapRepoError(err, instance)
	}
	return existing, nil
}

// DeleteRoute removes one route.
func (s *Service) DeleteRoute(tenantID, id uuid.UUID) error {
	if err := s.routes.Delete(tenantID, id); err != nil {
		return mapRepoError(err, "/oagw/v1/routes/"+id.String())
	}
	return nil
}

// ResolveUpstream resolves an alias for the data plane. An unknown alias
// is a RouteNotFound; a known but disabled upstream is UpstreamDisabled.
func (s *Service) ResolveUpstream(tenantID uuid.UUID, alias string) (model.Upstream, error) {
	instance := "/oagw/v1/proxy/" + alias

	u, err := s.upstreams.GetByAlias(tenantID, alias)
	if err != nil {
		return model.Upstream{}, oagwerr.New(oagwerr.KindRouteNotFound, "no matching route found", instance)
	}
	if !u.Enabled {
		return model.Upstream{}, oagwerr.Newf(oagwerr.KindUpstreamDisabled, instance,
			"upstream %q is disabled", alias)
	}
	return u, nil
}

// ResolveRoute finds the matching route for the data plane.
func (s *Service) ResolveRoute(tenantID, upstreamID uuid.UUID, method, path string) (model.Route, error) {
	rt, err := s.routes.FindMatching(tenantID, upstreamID, method, path)
	if err != nil {
		return model.Route{}, oagwerr.Newf(oagwerr.KindRouteNotFound,
			"/oagw/v1/proxy", "no route matches %s %s", method, path)
	}
	return rt, nil
}
