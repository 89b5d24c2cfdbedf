package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/controlplane"
	"github.com/striped-zebra-dev/oagw/internal/credential"
	"github.com/striped-zebra-dev/oagw/internal/dataplane"
	"github.com/striped-zebra-dev/oagw/internal/repo"
)

// setupProxied stands up a mock upstream plus the gateway, registers the
// upstream under alias "mock-openai" with a POST /v1/chat/completions
// route, and returns the gateway base URL and tenant.
func setupProxied(t *testing.T, upstream http.HandlerFunc, creds map[string]string, upstreamExtras map[string]any) (*httptest.Server, uuid.UUID) {
	t.Helper()
	mock := httptest.NewServer(upstream)
	t.Cleanup(mock.Close)

	ts, tenant := newTestServer(t, creds)

	payload := upstreamPayload(mock.URL)
	for k, v := range upstreamExtras {
		payload[k] = v
	}
	created := createTestUpstream(t, ts.URL, tenant, payload)

	upstreamID := created["id"].(string)
	// The route create payload takes the plain UUID.
	var plain string
	if pos := len(upstreamID) - 36; pos > 0 {
		plain = upstreamID[pos:]
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/oagw/v1/routes", tenant, map[string]any{
		"upstream_id": plain,
		"match": map[string]any{
			"http": map[string]any{
				"methods":          []string{"POST"},
				"path":             "/v1/chat/completions",
				"path_suffix_mode": "append",
			},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("create route: status %d body %s", resp.StatusCode, body)
	}
	resp.Body.Close()
	return ts, tenant
}

func proxyPost(t *testing.T, base string, tenant uuid.UUID, path string, body []byte, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, base+"/api/oagw/v1/proxy"+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for name, values := range header {
		req.Header[name] = values
	}
	if tenant != uuid.Nil {
		req.Header.Set("X-Tenant-Id", tenant.String())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestProxyChatCompletionHappyPath(t *testing.T) {
	ts, tenant := setupProxied(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0}]}`))
	}, nil, nil)

	body := []byte(`{"model":"gpt-4","messages":[{"role":"user","content":"Hello"}]}`)
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	resp := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", body, header)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if src := resp.Header.Get("X-Oagw-Error-Source"); src != "upstream" {
		t.Errorf("error source = %q, want upstream", src)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if _, ok := payload["id"]; !ok {
		t.Error("response missing id field")
	}
	if _, ok := payload["choices"]; !ok {
		t.Error("response missing choices field")
	}
}

func TestProxyAuthInjectionEndToEnd(t *testing.T) {
	var gotAuth string
	ts, tenant := setupProxied(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}, map[string]string{"cred://k": "sk-test"}, map[string]any{
		"auth": map[string]any{
			"type": "apikey",
			"config": map[string]any{
				"header":     "authorization",
				"prefix":     "Bearer ",
				"secret_ref": "cred://k",
			},
		},
	})

	resp := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", nil, nil)
	resp.Body.Close()
	if gotAuth != "Bearer sk-test" {
		t.Errorf("upstream saw authorization %q, want injected bearer", gotAuth)
	}
}

func TestProxyRateLimitEndToEnd(t *testing.T) {
	ts, tenant := setupProxied(t, func(w http.ResponseWriter, r *http.Request) {}, nil, map[string]any{
		"rate_limit": map[string]any{
			"algorithm": "token_bucket",
			"sustained": map[string]any{"rate": 1, "window": "minute"},
			"burst":     map[string]any{"capacity": 1},
			"strategy":  "reject",
			"cost":      1,
		},
	})

	first := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", nil, nil)
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", first.StatusCode)
	}

	second := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", nil, nil)
	defer second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.StatusCode)
	}
	retryAfter, err := strconv.Atoi(second.Header.Get("Retry-After"))
	if err != nil || retryAfter < 1 || retryAfter > 60 {
		t.Errorf("Retry-After = %q, want within [1, 60]", second.Header.Get("Retry-After"))
	}
	if src := second.Header.Get("X-Oagw-Error-Source"); src != "gateway" {
		t.Errorf("error source = %q, want gateway", src)
	}
	var problem map[string]any
	json.NewDecoder(second.Body).Decode(&problem)
	if problem["type"] != "gts.x.core.errors.err.v1~x.oagw.rate_limit.exceeded.v1" {
		t.Errorf("problem type = %v", problem["type"])
	}
}

func TestProxyDisabledUpstreamEndToEnd(t *testing.T) {
	ts, tenant := setupProxied(t, func(w http.ResponseWriter, r *http.Request) {}, nil, map[string]any{
		"enabled": false,
	})

	resp := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if src := resp.Header.Get("X-Oagw-Error-Source"); src != "gateway" {
		t.Errorf("error source = %q", src)
	}
	var problem map[string]any
	json.NewDecoder(resp.Body).Decode(&problem)
	if problem["type"] != "gts.x.core.errors.err.v1~x.oagw.routing.upstream_disabled.v1" {
		t.Errorf("problem type = %v", problem["type"])
	}
}

func TestProxyUpstream500Passthrough(t *testing.T) {
	ts, tenant := setupProxied(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}, nil, nil)

	resp := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", nil, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if src := resp.Header.Get("X-Oagw-Error-Source"); src != "upstream" {
		t.Errorf("error source = %q, want upstream", src)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":{"message":"boom"}}` {
		t.Errorf("body = %q, want verbatim", body)
	}
}

func TestProxyValidationErrors(t *testing.T) {
	ts, tenant := setupProxied(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	t.Run("missing tenant header", func(t *testing.T) {
		resp := proxyPost(t, ts.URL, uuid.Nil, "/mock-openai/v1/chat/completions", nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("invalid tenant header", func(t *testing.T) {
		header := make(http.Header)
		header.Set("X-Tenant-Id", "not-a-uuid")
		resp := proxyPost(t, ts.URL, uuid.Nil, "/mock-openai/v1/chat/completions", nil, header)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown alias", func(t *testing.T) {
		resp := proxyPost(t, ts.URL, tenant, "/no-such-alias/v1/x", nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	// Content-Length handling is exercised in-process so the header can be
	// forged independently of the actual body.
	t.Run("oversized content length", func(t *testing.T) {
		handler := newTestHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/oagw/v1/proxy/any/v1/x", nil)
		req.Header.Set("X-Tenant-Id", tenant.String())
		req.Header.Set("Content-Length", "104857601")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("non-integer content length", func(t *testing.T) {
		handler := newTestHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/oagw/v1/proxy/any/v1/x", nil)
		req.Header.Set("X-Tenant-Id", tenant.String())
		req.Header.Set("Content-Length", "lots")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestProxyBodyCapBoundary(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(mock.Close)

	cp := controlplane.NewService(repo.NewInMemoryUpstreamRepo(), repo.NewInMemoryRouteRepo())
	dp := dataplane.NewService(cp, credential.NewStaticResolver(nil), dataplane.Config{})
	t.Cleanup(dp.Close)
	// A small cap keeps the boundary test cheap; the limit logic is the
	// same at 100 MiB.
	server := NewServer(Config{Listen: ":0", MaxBodyBytes: 1024}, cp, dp)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	tenant := uuid.New()

	created := createTestUpstream(t, ts.URL, tenant, upstreamPayload(mock.URL))
	upstreamID := created["id"].(string)
	resp := doJSON(t, http.MethodPost, ts.URL+"/oagw/v1/routes", tenant, map[string]any{
		"upstream_id": upstreamID[len(upstreamID)-36:],
		"match": map[string]any{
			"http": map[string]any{"methods": []string{"POST"}, "path": "/v1/chat/completions"},
		},
	})
	resp.Body.Close()

	atCap := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", bytes.Repeat([]byte("a"), 1024), nil)
	atCap.Body.Close()
	if atCap.StatusCode != http.StatusOK {
		t.Errorf("body at cap: status = %d, want 200", atCap.StatusCode)
	}

	overCap := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", bytes.Repeat([]byte("a"), 1025), nil)
	overCap.Body.Close()
	if overCap.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("body over cap: status = %d, want 413", overCap.StatusCode)
	}
}

// newTestHandler builds the gateway handler without a listener.
func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cp := controlplane.NewService(repo.NewInMemoryUpstreamRepo(), repo.NewInMemoryRouteRepo())
	dp := dataplane.NewService(cp, credential.NewStaticResolver(nil), dataplane.Config{})
	t.Cleanup(dp.Close)
	return NewServer(Config{Listen: ":0"}, cp, dp).Handler()
}

func TestProxyBareQueryKeysForwarded(t *testing.T) {
	var gotQuery string
	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
	}))
	t.Cleanup(mock.Close)

	ts, tenant := newTestServer(t, nil)
	created := createTestUpstream(t, ts.URL, tenant, upstreamPayload(mock.URL))
	upstreamID := created["id"].(string)
	plain := upstreamID[len(upstreamID)-36:]

	resp := doJSON(t, http.MethodPost, ts.URL+"/oagw/v1/routes", tenant, map[string]any{
		"upstream_id": plain,
		"match": map[string]any{
			"http": map[string]any{
				"methods":         []string{"POST"},
				"path":            "/v1/chat/completions",
				"query_allowlist": []string{"verbose", "level"},
			},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create route status = %d", resp.StatusCode)
	}

	r := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions?verbose&level=2", nil, nil)
	r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", r.StatusCode)
	}
	if gotQuery != "verbose&level=2" {
		t.Errorf("upstream query = %q, want order and bare key preserved", gotQuery)
	}
}

func TestProxySSEStreaming(t *testing.T) {
	ts, tenant := setupProxied(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.Write([]byte("data: {\"delta\":\"Hel\"}\n\n"))
		flusher.Flush()
		w.Write([]byte("data: {\"delta\":\"lo\"}\n\ndata: [DONE]\n\n"))
		flusher.Flush()
	}, nil, nil)

	resp := proxyPost(t, ts.URL, tenant, "/mock-openai/v1/chat/completions", nil, nil)
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	want := "data: {\"delta\":\"Hel\"}\n\ndata: {\"delta\":\"lo\"}\n\ndata: [DONE]\n\n"
	if string(body) != want {
		t.Errorf("body = %q", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
