package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/controlplane"
	"github.com/striped-zebra-dev/oagw/internal/credential"
	"github.com/striped-zebra-dev/oagw/internal/dataplane"
	"github.com/striped-zebra-dev/oagw/internal/gts"
	"github.com/striped-zebra-dev/oagw/internal/repo"
)

// newTestServer builds the full gateway HTTP stack over in-memory
// repositories and returns its base URL.
func newTestServer(t *testing.T, creds map[string]string) (*httptest.Server, uuid.UUID) {
	t.Helper()
	cp := controlplane.NewService(repo.NewInMemoryUpstreamRepo(), repo.NewInMemoryRouteRepo())
	dp := dataplane.NewService(cp, credential.NewStaticResolver(creds), dataplane.Config{})
	t.Cleanup(dp.Close)

	server := NewServer(Config{Listen: ":0"}, cp, dp)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, uuid.New()
}

func doJSON(t *testing.T, method, url string, tenant uuid.UUID, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if tenant != uuid.Nil {
		req.Header.Set("X-Tenant-Id", tenant.String())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createTestUpstream(t *testing.T, base string, tenant uuid.UUID, payload map[string]any) map[string]any {
	t.Helper()
	resp := doJSON(t, http.MethodPost, base+"/oagw/v1/upstreams", tenant, payload)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("create upstream: status %d body %s", resp.StatusCode, body)
	}
	var created map[string]any
	decodeBody(t, resp, &created)
	return created
}

func upstreamPayload(endpoint string) map[string]any {
	u, _ := url.Parse(endpoint)
	host, portStr, _ := strings.Cut(u.Host, ":")
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return map[string]any{
		"alias": "mock-openai",
		"server": map[string]any{
			"endpoints": []map[string]any{{"scheme": "http", "host": host, "port": port}},
		},
		"protocol": "gts.x.core.oagw.protocol.v1~x.core.http.v1",
	}
}

func TestUpstreamCRUDLifecycle(t *testing.T) {
	ts, tenant := newTestServer(t, nil)

	created := createTestUpstream(t, ts.URL, tenant, map[string]any{
		"alias": "openai",
		"server": map[string]any{
			"endpoints": []map[string]any{{"host": "api.openai.com"}},
		},
		"protocol": "gts.x.core.oagw.protocol.v1~x.core.http.v1",
	})

	id, ok := created["id"].(string)
	if !ok || !strings.HasPrefix(id, gts.UpstreamSchema+"~") {
		t.Fatalf("id = %v, want a GTS identifier", created["id"])
	}
	if created["enabled"] != true {
		t.Error("enabled should default to true")
	}

	// Read.
	resp := doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams/"+id, tenant, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got map[string]any
	decodeBody(t, resp, &got)
	if got["alias"] != "openai" {
		t.Errorf("alias = %v", got["alias"])
	}

	// Partial update: only the alias changes.
	resp = doJSON(t, http.MethodPut, ts.URL+"/oagw/v1/upstreams/"+id, tenant, map[string]any{
		"alias": "openai-v2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &got)
	if got["alias"] != "openai-v2" || got["id"] != id {
		t.Errorf("updated = %v", got)
	}

	// List.
	resp = doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams", tenant, nil)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("list len = %d", len(list))
	}

	// Delete.
	resp = doJSON(t, http.MethodDelete, ts.URL+"/oagw/v1/upstreams/"+id, tenant, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams/"+id, tenant, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestAliasAutoGeneration(t *testing.T) {
	ts, tenant := newTestServer(t, nil)

	created := createTestUpstream(t, ts.URL, tenant, map[string]any{
		"server": map[string]any{
			"endpoints": []map[string]any{{"host": "api.openai.com"}},
		},
		"protocol": "gts.x.core.oagw.protocol.v1~x.core.http.v1",
	})
	if created["alias"] != "api.openai.com" {
		t.Errorf("alias = %v, want api.openai.com", created["alias"])
	}

	created = createTestUpstream(t, ts.URL, tenant, map[string]any{
		"server": map[string]any{
			"endpoints": []map[string]any{{"host": "api.openai.com", "port": 8443}},
		},
		"protocol": "gts.x.core.oagw.protocol.v1~x.core.http.v1",
	})
	if created["alias"] != "api.openai.com:8443" {
		t.Errorf("alias = %v, want api.openai.com:8443", created["alias"])
	}
}

func TestManagementValidation(t *testing.T) {
	ts, tenant := newTestServer(t, nil)

	t.Run("missing tenant header", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams", uuid.Nil, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("content type = %q", ct)
		}
		if src := resp.Header.Get("X-Oagw-Error-Source"); src != "gateway" {
			t.Errorf("error source = %q", src)
		}
	})

	t.Run("invalid GTS id", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams/not-a-gts-id", tenant, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown body fields rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/oagw/v1/upstreams", tenant, map[string]any{
			"alias":    "x",
			"server":   map[string]any{"endpoints": []map[string]any{{"host": "h"}}},
			"protocol": "p",
			"surprise": true,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("duplicate alias conflict", func(t *testing.T) {
		payload := map[string]any{
			"alias":    "dup",
			"server":   map[string]any{"endpoints": []map[string]any{{"host": "h"}}},
			"protocol": "p",
		}
		createTestUpstream(t, ts.URL, tenant, payload)
		resp := doJSON(t, http.MethodPost, ts.URL+"/oagw/v1/upstreams", tenant, payload)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		var problem map[string]any
		json.NewDecoder(resp.Body).Decode(&problem)
		if problem["type"] != "gts.x.core.errors.err.v1~x.oagw.validation.error.v1" {
			t.Errorf("problem type = %v", problem["type"])
		}
	})
}

func TestCrossTenantIsolationOverHTTP(t *testing.T) {
	ts, tenant := newTestServer(t, nil)
	other := uuid.New()

	created := createTestUpstream(t, ts.URL, tenant, map[string]any{
		"alias":    "mine",
		"server":   map[string]any{"endpoints": []map[string]any{{"host": "h"}}},
		"protocol": "p",
	})
	id := created["id"].(string)

	resp := doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams/"+id, other, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-tenant read status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/oagw/v1/upstreams/"+id, other, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-tenant delete status = %d, want 404", resp.StatusCode)
	}
}

func TestRouteLifecycleAndCascade(t *testing.T) {
	ts, tenant := newTestServer(t, nil)

	upstream := createTestUpstream(t, ts.URL, tenant, map[string]any{
		"alias":    "svc",
		"server":   map[string]any{"endpoints": []map[string]any{{"host": "h"}}},
		"protocol": "p",
	})
	upstreamGTS := upstream["id"].(string)
	_, upstreamID, err := gts.ParseResource(upstreamGTS)
	if err != nil {
		t.Fatal(err)
	}

	// Create a route.
	resp := doJSON(t, http.MethodPost, ts.URL+"/oagw/v1/routes", tenant, map[string]any{
		"upstream_id": upstreamID.String(),
		"match": map[string]any{
			"http": map[string]any{"methods": []string{"POST"}, "path": "/v1/chat"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("create route status = %d body %s", resp.StatusCode, body)
	}
	var route map[string]any
	decodeBody(t, resp, &route)
	routeID := route["id"].(string)
	if !strings.HasPrefix(routeID, gts.RouteSchema+"~") {
		t.Errorf("route id = %q", routeID)
	}

	// List routes of the upstream.
	resp = doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams/"+upstreamGTS+"/routes", tenant, nil)
	var routes []map[string]any
	decodeBody(t, resp, &routes)
	if len(routes) != 1 {
		t.Errorf("routes len = %d", len(routes))
	}

	// Route referencing a missing upstream is a validation error.
	resp = doJSON(t, http.MethodPost, ts.URL+"/oagw/v1/routes", tenant, map[string]any{
		"upstream_id": uuid.NewString(),
		"match": map[string]any{
			"http": map[string]any{"methods": []string{"POST"}, "path": "/x"},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("dangling route status = %d, want 400", resp.StatusCode)
	}

	// Cascade: deleting the upstream removes its routes.
	resp = doJSON(t, http.MethodDelete, ts.URL+"/oagw/v1/upstreams/"+upstreamGTS, tenant, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete upstream status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/routes/"+routeID, tenant, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("route after cascade status = %d, want 404", resp.StatusCode)
	}
}

func TestPaginationClamping(t *testing.T) {
	ts, tenant := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		createTestUpstream(t, ts.URL, tenant, map[string]any{
			"alias":    fmt.Sprintf("svc-%d", i),
			"server":   map[string]any{"endpoints": []map[string]any{{"host": "h"}}},
			"protocol": "p",
		})
	}

	// $top above 100 is clamped, not an error.
	resp := doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams?$top=500", tenant, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 3 {
		t.Errorf("list len = %d", len(list))
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/oagw/v1/upstreams?$top=1&$skip=1", tenant, nil)
	decodeBody(t, resp, &list)
	if len(list) != 1 || list[0]["alias"] != "svc-1" {
		t.Errorf("page = %v", list)
	}
}
