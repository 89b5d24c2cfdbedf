package repo

import (
	"sync"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

type aliasKey struct {
	tenantID uuid.UUID
	alias    string
}

// InMemoryUpstreamRepo is the in-memory upstream store. A single mutex
// guards the primary map, the alias index, and the insertion-order slice,
// so alias-uniqueness races resolve to exactly one winner.
type InMemoryUpstreamRepo struct {
	mu    sync.RWMutex
	store map[uuid.UUID]model.Upstream
	alias map[aliasKey]uuid.UUID
	// order preserves insertion order so List pages are deterministic.
	order []uuid.UUID
}

// NewInMemoryUpstreamRepo creates an empty upstream repository.
func NewInMemoryUpstreamRepo() *InMemoryUpstreamRepo {
	return &InMemoryUpstreamRepo{
		store: make(map[uuid.UUID]model.Upstream),
		alias: make(map[aliasKey]uuid.UUID),
	}
}

// Create inserts an upstream, failing with a conflict if the (tenant,
// alias) pair is already taken.
func (r *InMemoryUpstreamRepo) Create(u model.Upstream) error {
	key := aliasKey{u.TenantID, u.Alias}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.alias[key]; taken {
		return conflictf("alias %q already exists for tenant", u.Alias)
	}
	r.alias[key] = u.ID
	r.store[u.ID] = u
	r.order = append(r.order, u.ID)
	return nil
}

// GetByID returns the upstream, or ErrNotFound on absence or tenant mismatch.
func (r *InMemoryUpstreamRepo) GetByID(tenantID, id uuid.UUID) (model.Upstream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store[id]
	if !ok || u.TenantID != tenantID {
		return model.Upstream{}, ErrNotFound
	}
	return u, nil
}

// GetByAlias resolves the tenant's alias index.
func (r *InMemoryUpstreamRepo) GetByAlias(tenantID uuid.UUID, alias string) (model.Upstream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.alias[aliasKey{tenantID, alias}]
	if !ok {
		return model.Upstream{}, ErrNotFound
	}
	u, ok := r.store[id]
	if !ok || u.TenantID != tenantID {
		return model.Upstream{}, ErrNotFound
	}
	return u, nil
}

// List returns a page of the tenant's upstreams in insertion order.
func (r *InMemoryUpstreamRepo) List(tenantID uuid.UUID, q model.ListQuery) ([]model.Upstream, error) {
	q = q.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []model.Upstream
	for _, id := range r.order {
		if u, ok := r.store[id]; ok && u.TenantID == tenantID {
			all = append(all, u)
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

// Update replaces the stored upstream. An alias change is validated against
// the alias index and the index is kept consistent within the same
// critical section.
func (r *InMemoryUpstreamRepo) Update(u model.Upstream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.store[u.ID]
	if !ok || old.TenantID != u.TenantID {
		return ErrNotFound
	}

	if old.Alias != u.Alias {
		newKey := aliasKey{u.TenantID, u.Alias}
		if _, taken := r.alias[newKey]; taken {
			return conflictf("alias %q already exists for tenant", u.Alias)
		}
		delete(r.alias, aliasKey{u.TenantID, old.Alias})
		r.alias[newKey] = u.ID
	}

	r.store[u.ID] = u
	return nil
}

// Delete removes the upstream and its alias index entry.
func (r *InMemoryUpstreamRepo) Delete(tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.store[id]
	if !ok || u.TenantID != tenantID {
		return ErrNotFound
	}
	delete(r.store, id)
	delete(r.alias, aliasKey{tenantID, u.Alias})
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
