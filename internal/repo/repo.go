// Package repo provides the tenant-scoped entity stores of the control
// plane. The in-memory implementations are the reference; persistent
// backends may be substituted behind the same contracts as long as they
// preserve per-(tenant, id) and per-(tenant, alias) linearizability.
package repo

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

// ErrNotFound reports a missing entity. Cross-tenant access is reported
// identically, as if the entity did not exist.
var ErrNotFound = errors.New("not found")

// ConflictError reports a uniqueness violation (duplicate alias).
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return e.Detail
}

func conflictf(format string, args ...any) error {
	return &ConflictError{Detail: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// UpstreamRepository stores upstreams with a per-tenant alias index.
type UpstreamRepository interface {
	Create(u model.Upstream) error
	GetByID(tenantID, id uuid.UUID) (model.Upstream, error)
	GetByAlias(tenantID uuid.UUID, alias string) (model.Upstream, error)
	List(tenantID uuid.UUID, q model.ListQuery) ([]model.Upstream, error)
	Update(u model.Upstream) error
	Delete(tenantID, id uuid.UUID) error
}

// RouteRepository stores routes with an upstream index and the
// longest-prefix matcher used by the data plane.
type RouteRepository interface {
	Create(r model.Route) error
	GetByID(tenantID, id uuid.UUID) (model.Route, error)
	ListByUpstream(tenantID, upstreamID uuid.UUID, q model.ListQuery) ([]model.Route, error)
	FindMatching(tenantID, upstreamID uuid.UUID, method, path string) (model.Route, error)
	Update(r model.Route) error
	Delete(tenantID, id uuid.UUID) error
	DeleteByUpstream(tenantID, upstreamID uuid.UUID) (int, error)
}
