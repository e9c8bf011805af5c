package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"trustd/internal/allowlist"
	"trustd/internal/api"
	"trustd/internal/config"
	"trustd/internal/domain"
	"trustd/internal/identity"
	"trustd/internal/realip"
	"trustd/internal/service"
	"trustd/internal/storage/memory"
)

const (
	ipHeader       = "X-Forwarded-For"
	identityHeader = "X-Forwarded-User"
)

// countingStore wraps the memory store and counts store operations so
// tests can assert the allow-list path never touches the store.
type countingStore struct {
	*memory.Store
	calls atomic.Int64
}

func (s *countingStore) Ping(ctx context.Context) error {
	s.calls.Add(1)
	return s.Store.Ping(ctx)
}

func (s *countingStore) GetByIP(ctx context.Context, ip string) (*domain.TrustRecord, error) {
	s.calls.Add(1)
	return s.Store.GetByIP(ctx, ip)
}

func (s *countingStore) GetByIdentity(ctx context.Context, id string) (*domain.TrustRecord, error) {
	s.calls.Add(1)
	return s.Store.GetByIdentity(ctx, id)
}

func (s *countingStore) Grant(ctx context.Context, id, ip string) (*domain.TrustRecord, error) {
	s.calls.Add(1)
	return s.Store.Grant(ctx, id, ip)
}

func (s *countingStore) List(ctx context.Context) ([]*domain.TrustRecord, error) {
	s.calls.Add(1)
	return s.Store.List(ctx)
}

// testServer creates a test server with in-memory storage.
type testServer struct {
	handler http.Handler
	store   *countingStore
}

func newTestServer(t *testing.T, allowed []string, cacheTTL time.Duration) *testServer {
	t.Helper()

	store := &countingStore{Store: memory.New()}

	access := config.AccessConfig{AllowedNetworks: allowed}
	prefixes, err := access.AllowedPrefixes()
	if err != nil {
		t.Fatalf("parsing allow-list: %v", err)
	}

	logger := log.New(io.Discard)
	svc := service.New(store, allowlist.New(prefixes), cacheTTL, logger)

	handler := api.NewRouter(
		svc,
		realip.NewExtractor(ipHeader),
		identity.NewHeaderExtractor(identityHeader),
		logger,
	)

	return &testServer{handler: handler, store: store}
}

func (ts *testServer) request(method, path, ip, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if ip != "" {
		req.Header.Set(ipHeader, ip)
	}
	if id != "" {
		req.Header.Set(identityHeader, id)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, 0)

	rr := ts.request("GET", "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

func TestHealthStoreDown(t *testing.T) {
	ts := newTestServer(t, nil, 0)
	ts.store.SetFailing(true)

	rr := ts.request("GET", "/health", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rr.Code)
	}
}

func TestCheckAllowListedSkipsStore(t *testing.T) {
	ts := newTestServer(t, []string{"10.0.0.0/8"}, 0)

	rr := ts.request("GET", "/check", "10.1.2.3", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	if got := ts.store.calls.Load(); got != 0 {
		t.Errorf("Expected zero store calls for allow-listed IP, got %d", got)
	}
}

func TestCheckUnknownIPDenied(t *testing.T) {
	ts := newTestServer(t, []string{"10.0.0.0/8"}, 0)

	rr := ts.request("GET", "/check", "203.0.113.5", "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rr.Code)
	}
}

func TestCheckInvalidSourceIP(t *testing.T) {
	ts := newTestServer(t, nil, 0)

	rr := ts.request("GET", "/check", "not-an-ip", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestCheckFallsBackToPeerAddress(t *testing.T) {
	ts := newTestServer(t, []string{"192.0.2.0/24"}, 0)

	// httptest.NewRequest sets RemoteAddr to 192.0.2.1:1234.
	rr := ts.request("GET", "/check", "", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 via peer address, got %d", rr.Code)
	}
}

func TestCheckStoreFailureFailsClosed(t *testing.T) {
	ts := newTestServer(t, nil, 0)
	ts.store.SetFailing(true)

	rr := ts.request("GET", "/check", "203.0.113.5", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 on store failure, got %d", rr.Code)
	}
}

func TestTrustMeGrantAndCheck(t *testing.T) {
	ts := newTestServer(t, []string{"10.0.0.0/8"}, 0)

	rr := ts.request("POST", "/trust_me", "203.0.113.5", "alice")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var rec domain.TrustRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if rec.Identity != "alice" || rec.IP != "203.0.113.5" {
		t.Errorf("Unexpected record %+v", rec)
	}

	rr = ts.request("GET", "/check", "203.0.113.5", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 after grant, got %d", rr.Code)
	}
}

func TestTrustMeSupersedesPreviousIP(t *testing.T) {
	ts := newTestServer(t, nil, 0)

	rr := ts.request("GET", "/trust_me", "203.0.113.5", "alice")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}

	rr = ts.request("GET", "/trust_me", "198.51.100.9", "alice")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}

	rr = ts.request("GET", "/check", "198.51.100.9", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected new IP to be trusted, got %d", rr.Code)
	}

	rr = ts.request("GET", "/check", "203.0.113.5", "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected superseded IP to be denied, got %d", rr.Code)
	}

	if got := ts.store.Count(); got != 1 {
		t.Errorf("Expected one record after supersede, got %d", got)
	}
}

func TestTrustMeSupersedeWithCacheEnabled(t *testing.T) {
	ts := newTestServer(t, nil, time.Minute)

	ts.request("GET", "/trust_me", "203.0.113.5", "alice")
	if rr := ts.request("GET", "/check", "203.0.113.5", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	// Grant a new IP; the cached decision for the old one must go too.
	ts.request("GET", "/trust_me", "198.51.100.9", "alice")

	if rr := ts.request("GET", "/check", "203.0.113.5", ""); rr.Code != http.StatusForbidden {
		t.Errorf("Expected superseded IP to be denied despite cache, got %d", rr.Code)
	}
	if rr := ts.request("GET", "/check", "198.51.100.9", ""); rr.Code != http.StatusNoContent {
		t.Errorf("Expected new IP to be trusted, got %d", rr.Code)
	}
}

func TestTrustMeIdempotent(t *testing.T) {
	ts := newTestServer(t, nil, 0)

	rr := ts.request("POST", "/trust_me", "203.0.113.5", "alice")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}
	rr = ts.request("POST", "/trust_me", "203.0.113.5", "alice")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 on repeat, got %d", rr.Code)
	}

	if got := ts.store.Count(); got != 1 {
		t.Errorf("Expected one record after repeated grant, got %d", got)
	}
}

func TestTrustMeMissingIdentity(t *testing.T) {
	ts := newTestServer(t, nil, 0)

	rr := ts.request("POST", "/trust_me", "203.0.113.5", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
	if got := ts.store.Count(); got != 0 {
		t.Errorf("Expected no records after rejected grant, got %d", got)
	}
}

func TestTrustMeStoreFailure(t *testing.T) {
	ts := newTestServer(t, nil, 0)
	ts.store.SetFailing(true)

	rr := ts.request("POST", "/trust_me", "203.0.113.5", "alice")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
}

func TestListRecords(t *testing.T) {
	ts := newTestServer(t, nil, time.Minute)

	ts.request("POST", "/trust_me", "203.0.113.5", "alice")
	ts.request("POST", "/trust_me", "198.51.100.9", "bob")

	rr := ts.request("GET", "/list", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var entries []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0]["identity"] != "alice" || entries[1]["identity"] != "bob" {
		t.Errorf("Unexpected entries: %v", entries)
	}
	if entries[0]["cache_expires"] == nil {
		t.Errorf("Expected cache expiry for freshly granted IP")
	}
}

// The worked end-to-end scenario: allow-listed network, grant, check,
// supersede, check again.
func TestDecisionScenario(t *testing.T) {
	ts := newTestServer(t, []string{"10.0.0.0/8"}, 0)

	if rr := ts.request("GET", "/check", "10.1.2.3", ""); rr.Code != http.StatusNoContent {
		t.Errorf("allow-listed: expected 204, got %d", rr.Code)
	}
	if rr := ts.request("GET", "/check", "203.0.113.5", ""); rr.Code != http.StatusForbidden {
		t.Errorf("unknown: expected 403, got %d", rr.Code)
	}
	if rr := ts.request("GET", "/trust_me", "203.0.113.5", "alice"); rr.Code != http.StatusCreated {
		t.Errorf("grant: expected 201, got %d", rr.Code)
	}
	if rr := ts.request("GET", "/check", "203.0.113.5", ""); rr.Code != http.StatusNoContent {
		t.Errorf("granted: expected 204, got %d", rr.Code)
	}
	if rr := ts.request("GET", "/trust_me", "198.51.100.9", "alice"); rr.Code != http.StatusCreated {
		t.Errorf("regrant: expected 201, got %d", rr.Code)
	}
	if rr := ts.request("GET", "/check", "203.0.113.5", ""); rr.Code != http.StatusForbidden {
		t.Errorf("superseded: expected 403, got %d", rr.Code)
	}
}
