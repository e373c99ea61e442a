package services_test

import (
	"io"
	"testing"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	memorybackend "github.com/avatarctic/commerce-gateway/internal/infrastructure/backend/memory"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/cache/memory"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/codec"
	"github.com/avatarctic/commerce-gateway/test/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	shopperToken = "shopper-token"
	adminToken   = "admin-token"
	guestToken   = "guest-token"
)

var (
	shopper = auth.Principal{ID: "u1", Scopes: []string{auth.ScopeCart, auth.ScopeOrders, auth.ScopeProfile}}
	admin   = auth.Principal{ID: "ops", Scopes: []string{auth.ScopeAdmin}}
	guest   = auth.Principal{ID: "g1"}
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// harness wires the router against an in-process store and the given backend.
type harness struct {
	store       ports.CacheStore
	mem         *memory.Store
	versions    *services.VersionLog
	fetcher     *services.CoalescingFetcher
	coordinator *services.InvalidationCoordinator
	router      *services.GatewayRouter
	sink        *mocks.EventSinkMock
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	store ports.CacheStore
	ttl   *services.TTLPolicy
}

func withStore(s ports.CacheStore) harnessOption {
	return func(c *harnessConfig) { c.store = s }
}

func withTTL(p *services.TTLPolicy) harnessOption {
	return func(c *harnessConfig) { c.ttl = p }
}

func newHarness(t *testing.T, backend ports.BackendClient, opts ...harnessOption) *harness {
	t.Helper()
	mem, err := memory.New(memory.DefaultConfig())
	require.NoError(t, err)

	cfg := harnessConfig{store: mem, ttl: services.NewTTLPolicy(nil, 0)}
	for _, o := range opts {
		o(&cfg)
	}

	c, err := codec.New("msgpack")
	require.NoError(t, err)
	ops, err := services.NewOperationTable(nil)
	require.NoError(t, err)

	logger := quietLogger()
	versions := services.NewVersionLog()
	fetcher := services.NewCoalescingFetcher(cfg.store, c, versions, &services.FetcherConfig{BackendTimeout: 2 * time.Second}, logger)
	coordinator := services.NewInvalidationCoordinator(cfg.store, versions, fetcher, &services.InvalidationConfig{SettleWindow: 5 * time.Second}, logger)
	sink := &mocks.EventSinkMock{}
	router := services.NewGatewayRouter(services.RouterDeps{
		Operations: ops,
		Auth: mocks.StaticAuthenticator(map[string]auth.Principal{
			shopperToken: shopper,
			adminToken:   admin,
			guestToken:   guest,
		}),
		Backend:     backend,
		Fetcher:     fetcher,
		Coordinator: coordinator,
		TTL:         cfg.ttl,
		Codec:       c,
		Sink:        sink,
		Logger:      logger,
	}, &services.RouterConfig{BackendTimeout: 2 * time.Second})

	return &harness{
		store:       cfg.store,
		mem:         mem,
		versions:    versions,
		fetcher:     fetcher,
		coordinator: coordinator,
		router:      router,
		sink:        sink,
	}
}

func seededBackend() *memorybackend.Backend {
	b := memorybackend.New()
	memorybackend.SeedDemo(b)
	return b
}
