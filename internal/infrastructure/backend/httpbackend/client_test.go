package httpbackend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/cart"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/catalog"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/backend/httpbackend"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *httptest.Server, mutate func(*httpbackend.Config)) *httpbackend.Client {
	t.Helper()
	cfg := httpbackend.DefaultConfig(srv.URL + "/api/")
	cfg.Timeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c, err := httpbackend.New(cfg, srv.Client(), logger)
	require.NoError(t, err)
	return c
}

func TestRead_BuildsRequestAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/catalog/search", r.URL.Path)
		require.Equal(t, "shoes", r.URL.Query().Get("category"))
		require.Equal(t, "price_asc", r.URL.Query().Get("sort"))
		require.Equal(t, "u1", r.Header.Get(httpbackend.HeaderSubject))
		_ = json.NewEncoder(w).Encode(catalog.ProductPage{Items: []catalog.Product{{ID: 5, Name: "Trail Runner"}}, Total: 1})
	}))
	defer srv.Close()

	var page catalog.ProductPage
	err := newClient(t, srv, nil).Read(context.Background(), ports.BackendRequest{
		Resource: resource.Catalog,
		Action:   "search",
		Subject:  "u1",
		Params:   resource.Params{"category": "shoes", "sort": "price_asc"},
	}, &page)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Trail Runner", page.Items[0].Name)
}

func TestWrite_PostsBodyWithIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/cart/update_item/12", r.URL.Path)
		require.Equal(t, "key-1", r.Header.Get(httpbackend.HeaderIdempotencyKey))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body cart.UpdateItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 3, body.Quantity)
		_ = json.NewEncoder(w).Encode(cart.Cart{UserID: "u1", Items: []cart.Item{{ID: 12, Quantity: 3}}})
	}))
	defer srv.Close()

	var out cart.Cart
	err := newClient(t, srv, nil).Write(context.Background(), ports.BackendRequest{
		Resource:       resource.Cart,
		Action:         "update_item",
		Subject:        "u1",
		ID:             "12",
		Body:           &cart.UpdateItemRequest{Quantity: 3},
		IdempotencyKey: "key-1",
	}, &out)
	require.NoError(t, err)
	require.Equal(t, 3, out.Items[0].Quantity)
}

func TestWrite_CarriesParamsInQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/attribute/delete_value/31", r.URL.Path)
		require.Equal(t, "7", r.URL.Query().Get("attribute"))
		_ = json.NewEncoder(w).Encode(operation.Ack{ID: "31", Status: "deleted"})
	}))
	defer srv.Close()

	var out operation.Ack
	err := newClient(t, srv, nil).Write(context.Background(), ports.BackendRequest{
		Resource: resource.Attribute,
		Action:   "delete_value",
		ID:       "31",
		Params:   resource.Params{"attribute": "7"},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "deleted", out.Status)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, failure.ErrNotFound},
		{http.StatusConflict, &failure.Error{Kind: failure.KindRejected, Code: failure.CodeConflict}},
		{http.StatusUnprocessableEntity, &failure.Error{Kind: failure.KindRejected, Code: failure.CodeInvalid}},
		{http.StatusBadRequest, failure.ErrRejected},
		{http.StatusTooManyRequests, failure.ErrUnavailable},
		{http.StatusBadGateway, failure.ErrUnavailable},
		{http.StatusServiceUnavailable, failure.ErrUnavailable},
		{http.StatusUnauthorized, failure.ErrUnavailable},
		{http.StatusGatewayTimeout, failure.ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":"backend says no"}`))
			}))
			defer srv.Close()

			var out catalog.Product
			err := newClient(t, srv, nil).Read(context.Background(), ports.BackendRequest{Resource: resource.Product, Action: "get", ID: "1"}, &out)
			require.ErrorIs(t, err, tc.want)
			require.Contains(t, err.Error(), "backend says no")
		})
	}
}

func TestRead_MalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	var out catalog.Product
	err := newClient(t, srv, nil).Read(context.Background(), ports.BackendRequest{Resource: resource.Product, Action: "get", ID: "1"}, &out)
	require.ErrorIs(t, err, failure.ErrUnavailable)
}

func TestRead_SlowBackendTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv, func(cfg *httpbackend.Config) { cfg.Timeout = 20 * time.Millisecond })
	var out catalog.Product
	err := c.Read(context.Background(), ports.BackendRequest{Resource: resource.Product, Action: "get", ID: "1"}, &out)
	require.ErrorIs(t, err, failure.ErrTimeout)
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv, func(cfg *httpbackend.Config) {
		cfg.MinRequests = 3
		cfg.FailureRatio = 0.5
		cfg.OpenTimeout = time.Minute
	})
	req := ports.BackendRequest{Resource: resource.Vendor, Action: "list"}
	for i := 0; i < 3; i++ {
		var out []any
		require.ErrorIs(t, c.Read(context.Background(), req, &out), failure.ErrUnavailable)
	}
	require.Equal(t, gobreaker.StateOpen, c.State())

	var out []any
	err := c.Read(context.Background(), req, &out)
	require.ErrorIs(t, err, failure.ErrUnavailable)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int32(3), hits.Load())
}

func TestBreakerIgnoresBusinessRejections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newClient(t, srv, func(cfg *httpbackend.Config) { cfg.MinRequests = 2 })
	for i := 0; i < 5; i++ {
		var out catalog.Product
		require.ErrorIs(t, c.Read(context.Background(), ports.BackendRequest{Resource: resource.Product, Action: "get", ID: "404"}, &out), failure.ErrNotFound)
	}
	require.Equal(t, gobreaker.StateClosed, c.State())
}

func TestPing(t *testing.T) {
	healthy := atomic.Bool{}
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv, nil)
	require.NoError(t, c.Ping(context.Background()))
	healthy.Store(false)
	require.Error(t, c.Ping(context.Background()))
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := httpbackend.New(httpbackend.DefaultConfig("not a url"), nil, nil)
	require.Error(t, err)
}
