package repo

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

// InMemoryRouteRepo is the in-memory route store. The upstream index is a
// pure lookup accelerator: it is updated in the same critical section as
// the primary map, so a route can never leak past a cascade delete.
type InMemoryRouteRepo struct {
	mu    sync.RWMutex
	store map[uuid.UUID]model.Route
	// byUpstream maps upstream id to route ids in insertion order.
	byUpstream map[uuid.UUID][]uuid.UUID
}

// NewInMemoryRouteRepo creates an empty route repository.
func NewInMemoryRouteRepo() *InMemoryRouteRepo {
	return &InMemoryRouteRepo{
		store:      make(map[uuid.UUID]model.Route),
		byUpstream: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Create inserts a route and indexes it under its upstream.
func (r *InMemoryRouteRepo) Create(rt model.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[rt.ID] = rt
	r.byUpstream[rt.UpstreamID] = append(r.byUpstream[rt.UpstreamID], rt.ID)
	return nil
}

// GetByID returns the route, or ErrNotFound on absence or tenant mismatch.
func (r *InMemoryRouteRepo) GetByID(tenantID, id uuid.UUID) (model.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.store[id]
	if !ok || rt.TenantID != tenantID {
		return model.Route{}, ErrNotFound
	}
	return rt, nil
}

// ListByUpstream returns a page of the upstream's routes in insertion order.
func (r *InMemoryRouteRepo) ListByUpstream(tenantID, upstreamID uuid.UUID, q model.ListQuery) ([]model.Route, error) {
	q = q.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []model.Route
	for _, id := range r.byUpstream[upstreamID] {
		if rt, ok := r.store[id]; ok && rt.TenantID == tenantID {
			all = append(all, rt)
		}
	}
	if q.Skip >= len(all) {
		return nil, nil
	}
	all = all[q.Skip:]
	if len(all) > q.Top {
		all = all[:q.Top]
	}
	return all, nil
}

// FindMatching selects the route for (method, path) among the upstream's
// routes: disabled routes and routes without HTTP rules are skipped, the
// method set must contain the request method, and the route path must be a
// prefix of the request path. The longest path wins; ties go to the
// highest priority. A remaining tie keeps the earliest candidate scanned
// (index insertion order).
func (r *InMemoryRouteRepo) FindMatching(tenantID, upstreamID uuid.UUID, method, path string) (model.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best         model.Route
		found        bool
		bestPathLen  int
		bestPriority int
	)
	for _, id := range r.byUpstream[upstreamID] {
		rt, ok := r.store[id]
		if !ok || rt.TenantID != tenantID || !rt.Enabled {
			continue
		}
		h := rt.Match.HTTP
		if h == nil {
			continue
		}
		if !h.HasMethod(method) {
			continue
		}
		if !strings.HasPrefix(path, h.Path) {
			continue
		}
		pathLen := len(h.Path)
		if !found || pathLen > bestPathLen || (pathLen == bestPathLen && rt.Priority > bestPriority) {
			best = rt
			found = true
			bestPathLen = pathLen
			bestPriority = rt.Priority
		}
	}
	if !found {
		return model.Route{}, ErrNotFound
	}
	return best, nil
}

// Update replaces the stored route.
func (r *InMemoryRouteRepo) Update(rt model.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.store[rt.ID]
	if !ok || old.TenantID != rt.TenantID {
		return ErrNotFound
	}
	r.store[rt.ID] = rt
	return nil
}

// Delete removes the route and its upstream index entry.
func (r *InMemoryRouteRepo) Delete(tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.store[id]
	if !ok || rt.TenantID != tenantID {
		return ErrNotFound
	}
	delete(r.store, id)
	ids := r.byUpstream[rt.UpstreamID]
	for i, rid := range ids {
		if rid == id {
			r.byUpstream[rt.UpstreamID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteByUpstream removes every route of the tenant under the upstream
// and returns how many were deleted.
func (r *InMemoryRouteRepo) DeleteByUpstream(tenantID, upstreamID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byUpstream[upstreamID]
	delete(r.byUpstream, upstreamID)

	deleted := 0
	for _, id := range ids {
		rt, ok := r.store[id]
		if !ok {
			continue
		}
		if rt.TenantID != tenantID {
			// Wrong tenant: keep the route and its index entry.
			r.byUpstream[upstreamID] = append(r.byUpstream[upstreamID], id)
			continue
		}
		delete(r.store, id)
		deleted++
	}
	return deleted, nil
}
