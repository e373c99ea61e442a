package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/catalog"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	memorybackend "github.com/avatarctic/commerce-gateway/internal/infrastructure/backend/memory"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/cache/memory"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/codec"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/health"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/httpserver"
	"github.com/avatarctic/commerce-gateway/test/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var principals = map[string]auth.Principal{
	"shopper": {ID: "u1", Scopes: []string{auth.ScopeCart, auth.ScopeOrders, auth.ScopeProfile}},
	"guest":   {ID: "g1"},
	"admin":   {ID: "a1", Scopes: []string{auth.ScopeAdmin}},
}

type serverOption func(*httpserver.ServerDeps)

func withRateLimiter(rl ports.RateLimiter) serverOption {
	return func(d *httpserver.ServerDeps) { d.RateLimiter = rl }
}

func withCheckers(hc ...ports.HealthChecker) serverOption {
	return func(d *httpserver.ServerDeps) { d.HealthCheckers = hc }
}

func newServer(t *testing.T, backend ports.BackendClient, opts ...serverOption) *httpserver.Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := memory.New(memory.DefaultConfig())
	require.NoError(t, err)
	c, err := codec.New("msgpack")
	require.NoError(t, err)
	ops, err := services.NewOperationTable(nil)
	require.NoError(t, err)

	versions := services.NewVersionLog()
	fetcher := services.NewCoalescingFetcher(store, c, versions, &services.FetcherConfig{BackendTimeout: time.Second}, logger)
	coordinator := services.NewInvalidationCoordinator(store, versions, fetcher, nil, logger)
	router := services.NewGatewayRouter(services.RouterDeps{
		Operations:  ops,
		Auth:        mocks.StaticAuthenticator(principals),
		Backend:     backend,
		Fetcher:     fetcher,
		Coordinator: coordinator,
		TTL:         services.NewTTLPolicy(nil, 0),
		Codec:       c,
		Sink:        &mocks.EventSinkMock{},
		Logger:      logger,
	}, &services.RouterConfig{BackendTimeout: time.Second})

	deps := httpserver.ServerDeps{Gateway: router, RateLimiter: &mocks.RateLimiterMock{}}
	for _, o := range opts {
		o(&deps)
	}
	return httpserver.NewServer(&httpserver.ServerConfig{AllowedOrigins: []string{"*"}}, logger, deps)
}

func seeded() *memorybackend.Backend {
	b := memorybackend.New()
	memorybackend.SeedDemo(b)
	return b
}

func do(s *httpserver.Server, method, target, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestAPI_RequiresToken(t *testing.T) {
	b := seeded()
	s := newServer(t, b)

	rec := do(s, http.MethodGet, "/api/v1/catalog/products", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(s, http.MethodGet, "/api/v1/catalog/products", "forged", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, b.Reads())
}

func TestCatalogSearch_CacheHeader(t *testing.T) {
	b := seeded()
	s := newServer(t, b)

	rec := do(s, http.MethodGet, "/api/v1/catalog/products?category=shoes&sort=price_asc", "shopper", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "miss", rec.Header().Get(httpserver.HeaderCache))

	var page catalog.ProductPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)

	// Parameter order does not change the cache key.
	rec = do(s, http.MethodGet, "/api/v1/catalog/products?sort=price_asc&category=shoes", "shopper", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hit", rec.Header().Get(httpserver.HeaderCache))
	require.EqualValues(t, 1, b.Reads())
}

func TestCart_LifecycleOverHTTP(t *testing.T) {
	b := seeded()
	s := newServer(t, b)

	rec := do(s, http.MethodGet, "/api/v1/catalog/products?category=shoes", "shopper", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page catalog.ProductPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.NotEmpty(t, page.Items)
	pid := strconv.FormatInt(page.Items[0].ID, 10)

	rec = do(s, http.MethodPost, "/api/v1/cart/items", "shopper", `{"product_id":`+pid+`,"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "bypass", rec.Header().Get(httpserver.HeaderCache))

	rec = do(s, http.MethodGet, "/api/v1/cart", "shopper", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "bypass", rec.Header().Get(httpserver.HeaderCache))
	require.Contains(t, rec.Body.String(), `"quantity":2`)

	rec = do(s, http.MethodPost, "/api/v1/orders", "shopper",
		`{"shipping_address":"1 Main St","lines":[{"product_id":`+pid+`,"product_uom_qty":2,"price_unit":10}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"state":"draft"`)
}

func TestBodyValidation(t *testing.T) {
	b := seeded()
	s := newServer(t, b)

	rec := do(s, http.MethodPost, "/api/v1/cart/items", "shopper", `{"product_id":5,"quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodPost, "/api/v1/cart/items", "shopper", `{"product_id":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodPost, "/api/v1/orders", "shopper", `{"shipping_address":"","lines":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, b.Writes())
}

func TestInvalidQueryIsRejected(t *testing.T) {
	b := seeded()
	s := newServer(t, b)

	rec := do(s, http.MethodGet, "/api/v1/catalog/products?sort=sideways", "shopper", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodGet, "/api/v1/catalog/products/abc", "shopper", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, b.Reads())
}

func TestMissingScopeIsForbidden(t *testing.T) {
	b := seeded()
	s := newServer(t, b)

	rec := do(s, http.MethodGet, "/api/v1/cart", "guest", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(s, http.MethodPost, "/api/v1/catalog/products/sync", "shopper", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, b.Writes())
}

func TestNotFound(t *testing.T) {
	s := newServer(t, seeded())

	rec := do(s, http.MethodGet, "/api/v1/catalog/products/9999", "shopper", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimited(t *testing.T) {
	b := seeded()
	reset := time.Now().Add(30 * time.Second)
	rl := &mocks.RateLimiterMock{AllowFn: func(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
		require.Equal(t, "u1", subject)
		return false, 0, 10, reset, nil
	}}
	s := newServer(t, b, withRateLimiter(rl))

	rec := do(s, http.MethodGet, "/api/v1/catalog/products", "shopper", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, strconv.FormatInt(reset.Unix(), 10), rec.Header().Get("X-RateLimit-Reset"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Zero(t, b.Reads())
}

func TestRateLimiterErrorFailsOpen(t *testing.T) {
	rl := &mocks.RateLimiterMock{AllowFn: func(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
		return false, 0, 0, time.Now(), errors.New("redis down")
	}}
	s := newServer(t, seeded(), withRateLimiter(rl))

	rec := do(s, http.MethodGet, "/api/v1/catalog/products", "shopper", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTransientBackendFailures(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"unavailable": {failure.Unavailable("backend down", nil), http.StatusServiceUnavailable},
		"timeout":     {failure.Timeout("backend slow", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			backend := &mocks.BackendClientMock{ReadFn: func(ctx context.Context, req ports.BackendRequest, out any) error {
				return tc.err
			}}
			s := newServer(t, backend)

			rec := do(s, http.MethodGet, "/api/v1/vendors/1", "shopper", "")
			require.Equal(t, tc.want, rec.Code)
			require.Equal(t, "2", rec.Header().Get("Retry-After"))
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{failure.Unauthorized("x"), http.StatusUnauthorized},
		{failure.Forbidden("x"), http.StatusForbidden},
		{failure.InvalidRequest("x"), http.StatusBadRequest},
		{failure.RateLimited("x"), http.StatusTooManyRequests},
		{failure.Unavailable("x", nil), http.StatusServiceUnavailable},
		{failure.Timeout("x", nil), http.StatusGatewayTimeout},
		{failure.NotFound("x"), http.StatusNotFound},
		{failure.Rejected(failure.CodeConflict, "x"), http.StatusConflict},
		{failure.Rejected(failure.CodeInvalid, "x"), http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, httpserver.StatusFor(tc.err), "%v", tc.err)
	}
}

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	s := newServer(t, seeded(), withCheckers(health.NewBackendHealthChecker(pinger{})))
	rec := do(s, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"backend":"healthy"`)

	s = newServer(t, seeded(), withCheckers(health.NewBackendHealthChecker(pinger{err: errors.New("down")})))
	rec = do(s, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestAttributeValues_NestedRoutes(t *testing.T) {
	b := seeded()
	s := newServer(t, b)

	rec := do(s, http.MethodGet, "/api/v1/catalog/attributes", "guest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var attrs []catalog.Attribute
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attrs))
	require.Len(t, attrs, 1)
	values := "/api/v1/catalog/attributes/" + strconv.FormatInt(attrs[0].ID, 10) + "/values"

	rec = do(s, http.MethodGet, values, "guest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "miss", rec.Header().Get(httpserver.HeaderCache))
	rec = do(s, http.MethodGet, values, "guest", "")
	require.Equal(t, "hit", rec.Header().Get(httpserver.HeaderCache))

	rec = do(s, http.MethodPost, values, "guest", `{"value":"44"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(s, http.MethodPost, values, "admin", `{"value":"44","sequence":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created catalog.AttributeValue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, attrs[0].ID, created.AttributeID)

	rec = do(s, http.MethodGet, values, "guest", "")
	require.Equal(t, "miss", rec.Header().Get(httpserver.HeaderCache))
	var listed []catalog.AttributeValue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 3)
	require.Equal(t, "44", listed[2].Value)

	rec = do(s, http.MethodDelete, values+"/"+strconv.FormatInt(created.ID, 10), "admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(s, http.MethodGet, "/api/v1/catalog/attributes/abc/values", "guest", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
