package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/greyline-dev/screenpilot/internal/infrastructure/config"
	"github.com/greyline-dev/screenpilot/internal/infrastructure/logging"
	"github.com/greyline-dev/screenpilot/internal/input"
	"github.com/greyline-dev/screenpilot/internal/perception"
	"github.com/greyline-dev/screenpilot/internal/policy"
)

func newTestServer(t *testing.T) (*Server, *perception.Store) {
	t.Helper()

	store := perception.NewStore()
	reg := policy.NewRegistry()
	reg.Register("idle", func(*perception.Store, *input.Intent) error { return nil })

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   logging.Default(),
		Store:    store,
		Policies: reg,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, store
}

func doRequest(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{Store: perception.NewStore()}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Default()}); err == nil {
		t.Error("New() without store should fail")
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandlePerception(t *testing.T) {
	srv, store := newTestServer(t)
	store.Update(perception.Observation{Name: "boss", X: 800, Y: 400, Found: true, Score: 0.9, Tier: perception.TierHeuristic})
	store.Update(perception.Observation{Name: "loot", Found: false, Tier: perception.TierNotFound})

	rec := doRequest(t, srv, "/api/v1/perception")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Count    int                               `json:"count"`
		Entities map[string]perception.Observation `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
	if body.Entities["boss"].X != 800 {
		t.Errorf("boss.X = %d, want 800", body.Entities["boss"].X)
	}
}

func TestHandlePerception_FoundFilter(t *testing.T) {
	srv, store := newTestServer(t)
	store.Update(perception.Observation{Name: "boss", Found: true})
	store.Update(perception.Observation{Name: "loot", Found: false})

	rec := doRequest(t, srv, "/api/v1/perception?found=true")

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1 found entity", body.Count)
	}
}

func TestHandlePerception_NotFoundFilter(t *testing.T) {
	srv, store := newTestServer(t)
	store.Update(perception.Observation{Name: "boss", Found: true})
	store.Update(perception.Observation{Name: "loot", Found: false})

	rec := doRequest(t, srv, "/api/v1/perception?found=false")

	var body struct {
		Count    int                               `json:"count"`
		Entities map[string]perception.Observation `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1 missing entity", body.Count)
	}
	if _, ok := body.Entities["loot"]; !ok {
		t.Error("missing entity not returned for found=false")
	}
}

func TestHandlePerception_InvalidFoundParam(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "/api/v1/perception?found=maybe")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleObservation_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "/api/v1/perception/ghost")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleObservation(t *testing.T) {
	srv, store := newTestServer(t)
	store.Update(perception.Observation{Name: "boss", X: 1, Y: 2, Found: true})

	rec := doRequest(t, srv, "/api/v1/perception/boss")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var obs perception.Observation
	if err := json.Unmarshal(rec.Body.Bytes(), &obs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if obs.Name != "boss" || obs.X != 1 {
		t.Errorf("unexpected observation %+v", obs)
	}
}

func TestHandleStats_WithoutTracker(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHandlePolicies(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "/api/v1/policies")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Policies []string `json:"policies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Policies) != 1 || body.Policies[0] != "idle" {
		t.Errorf("policies = %v, want [idle]", body.Policies)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
