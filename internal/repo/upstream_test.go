package repo

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/model"
)

func makeUpstream(tenantID uuid.UUID, alias string) model.Upstream {
	return model.Upstream{
		ID:       uuid.New(),
		TenantID: tenantID,
		Alias:    alias,
		Server: model.Server{Endpoints: []model.Endpoint{
			{Scheme: model.SchemeHTTPS, Host: "api.openai.com", Port: 443},
		}},
		Protocol: "gts.x.core.oagw.protocol.v1~x.core.http.v1",
		Enabled:  true,
	}
}

func TestUpstreamCreateAndGetRoundTrip(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()
	u := makeUpstream(tenant, "openai")

	if err := r.Create(u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.GetByID(tenant, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != u.ID || got.TenantID != tenant || got.Alias != "openai" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	byAlias, err := r.GetByAlias(tenant, "openai")
	if err != nil {
		t.Fatalf("GetByAlias: %v", err)
	}
	if byAlias.ID != u.ID {
		t.Errorf("GetByAlias id = %v, want %v", byAlias.ID, u.ID)
	}
}

func TestUpstreamAliasUniquenessPerTenant(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()

	if err := r.Create(makeUpstream(tenant, "openai")); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := r.Create(makeUpstream(tenant, "openai"))
	if !IsConflict(err) {
		t.Errorf("duplicate alias error = %v, want conflict", err)
	}

	// Same alias under a different tenant is fine.
	if err := r.Create(makeUpstream(uuid.New(), "openai")); err != nil {
		t.Errorf("same alias different tenant: %v", err)
	}
}

func TestUpstreamCrossTenantIsolation(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()
	other := uuid.New()
	u := makeUpstream(tenant, "openai")
	if err := r.Create(u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := r.GetByID(other, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant GetByID error = %v, want ErrNotFound", err)
	}
	if _, err := r.GetByAlias(other, "openai"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant GetByAlias error = %v, want ErrNotFound", err)
	}
	if err := r.Delete(other, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant Delete error = %v, want ErrNotFound", err)
	}
	other2 := u
	other2.TenantID = other
	if err := r.Update(other2); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant Update error = %v, want ErrNotFound", err)
	}
}

func TestUpstreamUpdateAliasReindexes(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()
	u := makeUpstream(tenant, "openai")
	if err := r.Create(u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	u.Alias = "openai-v2"
	if err := r.Update(u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := r.GetByAlias(tenant, "openai"); !errors.Is(err, ErrNotFound) {
		t.Error("old alias should not resolve")
	}
	if got, err := r.GetByAlias(tenant, "openai-v2"); err != nil || got.ID != u.ID {
		t.Errorf("new alias resolution failed: %v", err)
	}
}

func TestUpstreamUpdateAliasConflict(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()
	a := makeUpstream(tenant, "a")
	b := makeUpstream(tenant, "b")
	if err := r.Create(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(b); err != nil {
		t.Fatal(err)
	}

	b.Alias = "a"
	if err := r.Update(b); !IsConflict(err) {
		t.Errorf("alias takeover error = %v, want conflict", err)
	}
}

func TestUpstreamDeleteRemovesAliasIndex(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()
	u := makeUpstream(tenant, "openai")
	if err := r.Create(u); err != nil {
		t.Fatal(err)
	}

	if err := r.Delete(tenant, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.GetByID(tenant, u.ID); !errors.Is(err, ErrNotFound) {
		t.Error("deleted upstream still readable")
	}
	if _, err := r.GetByAlias(tenant, "openai"); !errors.Is(err, ErrNotFound) {
		t.Error("alias index entry survived delete")
	}

	// The alias is free again.
	if err := r.Create(makeUpstream(tenant, "openai")); err != nil {
		t.Errorf("alias not released: %v", err)
	}
}

func TestUpstreamListPagination(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()
	for i := 0; i < 5; i++ {
		if err := r.Create(makeUpstream(tenant, fmt.Sprintf("svc-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	all, err := r.List(tenant, model.ListQuery{Top: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	// Insertion order is the stable ordering.
	for i, u := range all {
		if want := fmt.Sprintf("svc-%d", i); u.Alias != want {
			t.Errorf("all[%d].Alias = %q, want %q", i, u.Alias, want)
		}
	}

	page, err := r.List(tenant, model.ListQuery{Top: 2, Skip: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Alias != "svc-1" || page[1].Alias != "svc-2" {
		t.Errorf("page = %+v", page)
	}

	empty, err := r.List(tenant, model.ListQuery{Top: 10, Skip: 99})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("skip past end returned %d entries", len(empty))
	}
}

func TestUpstreamConcurrentCreateSameAlias(t *testing.T) {
	r := NewInMemoryUpstreamRepo()
	tenant := uuid.New()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Create(makeUpstream(tenant, "contested"))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if !IsConflict(err) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
}
