package services_test

import (
	"testing"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/stretchr/testify/require"
)

func TestDefaultOperations_Complete(t *testing.T) {
	ops, err := services.NewOperationTable(nil)
	require.NoError(t, err)

	for _, name := range ops.Names() {
		op, ok := ops.Lookup(name)
		require.True(t, ok)
		require.NotNil(t, op.NewResult, name)
		switch op.Kind {
		case operation.Write:
			require.True(t, op.Rule.Declared(), "%s must declare its cache effect", name)
		case operation.Read:
			require.NotNil(t, op.Key, name)
		}
	}
}

func TestOperationKeys(t *testing.T) {
	ops, err := services.NewOperationTable(nil)
	require.NoError(t, err)
	p := auth.Principal{ID: "u1"}

	cases := []struct {
		name operation.Name
		req  operation.Request
		want string
	}{
		{services.OpCatalogSearch, operation.Request{Params: resource.Params{"sort": "price_asc", "category": "shoes"}}, "catalog:search:category=shoes:sort=price_asc"},
		{services.OpProductGet, operation.Request{ID: "12"}, "catalog:product:12"},
		{services.OpCategoryProducts, operation.Request{ID: "3", Params: resource.Params{"limit": "10"}}, "catalog:category:3:products:limit=10"},
		{services.OpVendorGet, operation.Request{ID: "5"}, "vendors:5"},
		{services.OpCartGet, operation.Request{Principal: p}, "cart:u1"},
		{services.OpOrdersList, operation.Request{Principal: p}, "orders:u1:list"},
		{services.OpOrderStatus, operation.Request{Principal: p, ID: "9"}, "orders:u1:9:status"},
		{services.OpProfileGet, operation.Request{Principal: p}, "users:u1"},
		{services.OpCategoriesList, operation.Request{Params: resource.Params{"vendor": "2", "parent": "1"}}, "catalog:categories:parent=1:vendor=2"},
		{services.OpVariantsList, operation.Request{Params: resource.Params{"product": "7"}}, "catalog:variants:product=7"},
		{services.OpVariantGet, operation.Request{ID: "8"}, "catalog:variant:8"},
		{services.OpAttributeGet, operation.Request{ID: "3"}, "catalog:attribute:3"},
		{services.OpValuesList, operation.Request{Params: resource.Params{"attribute": "3", "limit": "5"}}, "catalog:attribute:3:values:limit=5"},
	}
	for _, tc := range cases {
		op, ok := ops.Lookup(tc.name)
		require.True(t, ok, tc.name)
		require.Equal(t, tc.want, op.Key(tc.req).String(), tc.name)
	}
}

func TestWriteRulesCoverTheirReads(t *testing.T) {
	ops, err := services.NewOperationTable(nil)
	require.NoError(t, err)
	p := auth.Principal{ID: "u1"}

	covered := func(write operation.Name, req operation.Request, key string) bool {
		op, _ := ops.Lookup(write)
		for _, tmpl := range op.Rule.Templates {
			pat, err := tmpl.Resolve(req.Bindings())
			require.NoError(t, err)
			if pat.Match(key) {
				return true
			}
		}
		return false
	}

	require.True(t, covered(services.OpOrderCreate, operation.Request{Principal: p}, "cart:u1"))
	require.True(t, covered(services.OpOrderCreate, operation.Request{Principal: p}, "orders:u1:list"))
	require.False(t, covered(services.OpOrderCreate, operation.Request{Principal: p}, "orders:u2:list"))
	require.True(t, covered(services.OpProductUpdate, operation.Request{Principal: p, ID: "4"}, "catalog:product:4"))
	require.True(t, covered(services.OpProductUpdate, operation.Request{Principal: p, ID: "4"}, "catalog:search:category=shoes"))
	require.False(t, covered(services.OpProductUpdate, operation.Request{Principal: p, ID: "4"}, "catalog:product:40"))
	require.True(t, covered(services.OpVendorDelete, operation.Request{Principal: p, ID: "2"}, "vendors:list"))
	require.True(t, covered(services.OpCatalogSync, operation.Request{Principal: p}, "catalog:category:1:products"))

	require.True(t, covered(services.OpCategoryCreate, operation.Request{Principal: p}, "catalog:categories:vendor=2"))
	require.False(t, covered(services.OpCategoryCreate, operation.Request{Principal: p}, "catalog:category:3"))
	category := operation.Request{Principal: p, ID: "3"}
	require.True(t, covered(services.OpCategoryUpdate, category, "catalog:categories"))
	require.True(t, covered(services.OpCategoryUpdate, category, "catalog:category:3"))
	require.True(t, covered(services.OpCategoryDelete, category, "catalog:category:3:products:limit=10"))
	require.False(t, covered(services.OpCategoryUpdate, category, "catalog:category:30"))

	variant := operation.Request{Principal: p, ID: "8"}
	require.True(t, covered(services.OpVariantUpdate, variant, "catalog:variant:8"))
	require.True(t, covered(services.OpVariantUpdate, variant, "catalog:variants:product=7"))
	require.True(t, covered(services.OpVariantDelete, variant, "catalog:product:7"))
	require.False(t, covered(services.OpVariantUpdate, variant, "catalog:variant:80"))
	require.True(t, covered(services.OpVariantCreate, operation.Request{Principal: p}, "catalog:search:has_variants=true"))

	require.True(t, covered(services.OpAttributeUpdate, operation.Request{Principal: p, ID: "3"}, "catalog:attribute:3:values"))
	require.True(t, covered(services.OpAttributeUpdate, operation.Request{Principal: p, ID: "3"}, "catalog:attributes:limit=5"))
	value := operation.Request{Principal: p, ID: "11", Params: resource.Params{"attribute": "3"}}
	require.True(t, covered(services.OpValueUpdate, value, "catalog:attribute:3:values:limit=5"))
	require.True(t, covered(services.OpValueDelete, value, "catalog:variant:8"))
	require.False(t, covered(services.OpValueUpdate, value, "catalog:attribute:4:values"))
	require.True(t, covered(services.OpValueCreate, value, "catalog:attribute:3:values"))
}

func TestPublicReadsDeclareNoScope(t *testing.T) {
	ops, err := services.NewOperationTable(nil)
	require.NoError(t, err)

	public := map[resource.Type]bool{
		resource.Catalog: true, resource.Product: true, resource.Category: true,
		resource.Variant: true, resource.Attribute: true, resource.Vendor: true,
	}
	for _, name := range ops.Names() {
		op, _ := ops.Lookup(name)
		if !public[op.Resource] {
			require.NotEmpty(t, op.Scope, "%s reads or writes private data", name)
			continue
		}
		if op.Kind == operation.Read {
			require.Empty(t, op.Scope, "%s is a public read", name)
		} else {
			require.NotEmpty(t, op.Scope, "%s must require a write scope", name)
		}
	}
}

func TestNewOperationTable_Overrides(t *testing.T) {
	ops, err := services.NewOperationTable(map[operation.Name]*operation.Rule{
		services.OpVendorCreate: {NoCacheImpact: true},
	})
	require.NoError(t, err)
	op, _ := ops.Lookup(services.OpVendorCreate)
	require.True(t, op.Rule.NoCacheImpact)

	_, err = services.NewOperationTable(map[operation.Name]*operation.Rule{"catalog.teleport": {NoCacheImpact: true}})
	require.Error(t, err)

	_, err = services.NewOperationTable(map[operation.Name]*operation.Rule{services.OpCartClear: {}})
	require.Error(t, err)
}

func TestNewTable_RejectsWriteWithoutRule(t *testing.T) {
	_, err := operation.NewTable(&operation.Operation{
		Name: "cart.mystery", Resource: resource.Cart, Kind: operation.Write, Action: "mystery",
		NewResult: func() any { return new(operation.Ack) },
	})
	require.Error(t, err)
}

func TestTTLPolicy(t *testing.T) {
	p := services.NewTTLPolicy(map[resource.Type]time.Duration{resource.Catalog: 10 * time.Minute}, time.Minute)

	require.Equal(t, 10*time.Minute, p.TTL(resource.Catalog))
	require.Equal(t, time.Hour, p.TTL(resource.Product))
	require.Zero(t, p.TTL(resource.Cart))
	require.Equal(t, time.Minute, p.TTL(resource.Type("wishlist")))
	require.Equal(t, time.Hour, p.Max())
}
