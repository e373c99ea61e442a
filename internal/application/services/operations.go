package services

import (
	"fmt"
	"strconv"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/cart"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/catalog"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/order"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/profile"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/vendor"
)

// Operation names.
const (
	OpCatalogSearch    operation.Name = "catalog.search"
	OpProductGet       operation.Name = "catalog.product.get"
	OpProductCreate    operation.Name = "catalog.product.create"
	OpProductUpdate    operation.Name = "catalog.product.update"
	OpProductDelete    operation.Name = "catalog.product.delete"
	OpCatalogSync      operation.Name = "catalog.sync"
	OpCategoriesList   operation.Name = "catalog.categories.list"
	OpCategoryGet      operation.Name = "catalog.category.get"
	OpCategoryProducts operation.Name = "catalog.category.products"
	OpCategoryCreate   operation.Name = "catalog.category.create"
	OpCategoryUpdate   operation.Name = "catalog.category.update"
	OpCategoryDelete   operation.Name = "catalog.category.delete"
	OpVariantsList     operation.Name = "catalog.variants.list"
	OpVariantGet       operation.Name = "catalog.variant.get"
	OpVariantCreate    operation.Name = "catalog.variant.create"
	OpVariantUpdate    operation.Name = "catalog.variant.update"
	OpVariantDelete    operation.Name = "catalog.variant.delete"
	OpAttributesList   operation.Name = "catalog.attributes.list"
	OpAttributeGet     operation.Name = "catalog.attribute.get"
	OpAttributeCreate  operation.Name = "catalog.attribute.create"
	OpAttributeUpdate  operation.Name = "catalog.attribute.update"
	OpAttributeDelete  operation.Name = "catalog.attribute.delete"
	OpValuesList       operation.Name = "catalog.attribute.values.list"
	OpValueCreate      operation.Name = "catalog.attribute.value.create"
	OpValueUpdate      operation.Name = "catalog.attribute.value.update"
	OpValueDelete      operation.Name = "catalog.attribute.value.delete"
	OpVendorsList      operation.Name = "vendors.list"
	OpVendorGet        operation.Name = "vendor.get"
	OpVendorCreate     operation.Name = "vendor.create"
	OpVendorUpdate     operation.Name = "vendor.update"
	OpVendorDelete     operation.Name = "vendor.delete"
	OpCartGet          operation.Name = "cart.get"
	OpCartItemAdd      operation.Name = "cart.item.add"
	OpCartItemUpdate   operation.Name = "cart.item.update"
	OpCartItemRemove   operation.Name = "cart.item.remove"
	OpCartClear        operation.Name = "cart.clear"
	OpOrdersList       operation.Name = "orders.list"
	OpOrderGet         operation.Name = "order.get"
	OpOrderStatus      operation.Name = "order.status"
	OpOrderCreate      operation.Name = "order.create"
	OpOrderUpdate      operation.Name = "order.update"
	OpOrderCancel      operation.Name = "order.cancel"
	OpOrderConfirm     operation.Name = "order.confirm"
	OpProfileGet       operation.Name = "user.me"
	OpProfileUpdate    operation.Name = "user.me.update"
)

const maxPageLimit = 100

// Canonical search parameters and the client spellings folded onto them.
var paramAliases = map[string][]string{
	"category": {"category_id"},
	"vendor":   {"vendor_id"},
	"parent":   {"parent_id"},
	"product":  {"product_id"},
	"sort":     {"sort_by"},
}

var (
	searchParams   = []string{"category", "vendor", "search", "min_price", "max_price", "tags", "has_variants", "sort", "skip", "limit"}
	pageParams     = []string{"skip", "limit"}
	categoryParams = []string{"vendor", "parent", "skip", "limit"}
	variantParams  = []string{"product", "skip", "limit"}
	// attribute is the owning attribute of a value; it comes from the route path.
	valueParams = []string{"attribute", "skip", "limit"}
)

// Invalidation templates shared by several writes.
var (
	productTemplates = []resource.Template{"catalog:search:*", "catalog:category:*", "catalog:product:{id}"}
	vendorTemplates  = []resource.Template{"vendors:*"}
	cartTemplates    = []resource.Template{"cart:{userId}"}
	orderTemplates   = []resource.Template{"orders:{userId}:*"}

	categoryTemplates  = []resource.Template{"catalog:categories*", "catalog:category:{id}", "catalog:category:{id}:*", "catalog:search:*"}
	variantTemplates   = []resource.Template{"catalog:variants*", "catalog:product:*", "catalog:search:*", "catalog:category:*"}
	attributeTemplates = []resource.Template{"catalog:attributes*", "catalog:attribute:{id}", "catalog:attribute:{id}:*"}
	valueTemplates     = []resource.Template{"catalog:attribute:{attribute}:values*", "catalog:variant*", "catalog:product:*"}
)

// DefaultOperations declares every operation the gateway exposes.
func DefaultOperations() []*operation.Operation {
	return []*operation.Operation{
		// Catalog
		{
			Name: OpCatalogSearch, Resource: resource.Catalog, Kind: operation.Read, Action: "search",
			ParamNames: searchParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("catalog", "search").WithParams(r.Params)
			},
			Validate:  validateSearch,
			NewResult: func() any { return new(catalog.ProductPage) },
		},
		{
			Name: OpProductGet, Resource: resource.Product, Kind: operation.Read, Action: "get",
			Key:       byID("catalog", "product"),
			Validate:  requireNumericID,
			NewResult: func() any { return new(catalog.Product) },
		},
		{
			Name: OpProductCreate, Resource: resource.Product, Kind: operation.Write, Action: "create",
			Scope:     auth.ScopeCatalogWrite,
			Rule:      &operation.Rule{Templates: []resource.Template{"catalog:search:*", "catalog:category:*"}},
			NewResult: func() any { return new(catalog.Product) },
			NewBody:   func() any { return new(catalog.ProductInput) },
		},
		{
			Name: OpProductUpdate, Resource: resource.Product, Kind: operation.Write, Action: "update",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: productTemplates},
			NewResult: func() any { return new(catalog.Product) },
			NewBody:   func() any { return new(catalog.ProductInput) },
		},
		{
			Name: OpProductDelete, Resource: resource.Product, Kind: operation.Write, Action: "delete",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: productTemplates},
			NewResult: func() any { return new(operation.Ack) },
		},
		{
			Name: OpCatalogSync, Resource: resource.Catalog, Kind: operation.Write, Action: "sync",
			Scope:     auth.ScopeAdmin,
			Rule:      &operation.Rule{Templates: []resource.Template{"catalog:*"}},
			NewResult: func() any { return new(catalog.SyncReport) },
		},
		{
			Name: OpCategoriesList, Resource: resource.Category, Kind: operation.Read, Action: "list",
			ParamNames: categoryParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("catalog", "categories").WithParams(r.Params)
			},
			Validate:  all(validatePage, numericParams("vendor", "parent")),
			NewResult: func() any { return new([]catalog.Category) },
		},
		{
			Name: OpCategoryGet, Resource: resource.Category, Kind: operation.Read, Action: "get",
			Key:       byID("catalog", "category"),
			Validate:  requireNumericID,
			NewResult: func() any { return new(catalog.Category) },
		},
		{
			Name: OpCategoryProducts, Resource: resource.Catalog, Kind: operation.Read, Action: "products",
			ParamNames: pageParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("catalog", "category", r.ID, "products").WithParams(r.Params)
			},
			Validate:  all(requireNumericID, validatePage),
			NewResult: func() any { return new(catalog.ProductPage) },
		},
		{
			Name: OpCategoryCreate, Resource: resource.Category, Kind: operation.Write, Action: "create",
			Scope:     auth.ScopeCatalogWrite,
			Rule:      &operation.Rule{Templates: []resource.Template{"catalog:categories*"}},
			NewResult: func() any { return new(catalog.Category) },
			NewBody:   func() any { return new(catalog.CategoryInput) },
		},
		{
			Name: OpCategoryUpdate, Resource: resource.Category, Kind: operation.Write, Action: "update",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: categoryTemplates},
			NewResult: func() any { return new(catalog.Category) },
			NewBody:   func() any { return new(catalog.CategoryInput) },
		},
		{
			Name: OpCategoryDelete, Resource: resource.Category, Kind: operation.Write, Action: "delete",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: categoryTemplates},
			NewResult: func() any { return new(operation.Ack) },
		},

		// Variants
		{
			Name: OpVariantsList, Resource: resource.Variant, Kind: operation.Read, Action: "list",
			ParamNames: variantParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("catalog", "variants").WithParams(r.Params)
			},
			Validate:  all(validatePage, numericParams("product")),
			NewResult: func() any { return new([]catalog.Variant) },
		},
		{
			Name: OpVariantGet, Resource: resource.Variant, Kind: operation.Read, Action: "get",
			Key:       byID("catalog", "variant"),
			Validate:  requireNumericID,
			NewResult: func() any { return new(catalog.Variant) },
		},
		{
			Name: OpVariantCreate, Resource: resource.Variant, Kind: operation.Write, Action: "create",
			Scope:     auth.ScopeCatalogWrite,
			Rule:      &operation.Rule{Templates: variantTemplates},
			NewResult: func() any { return new(catalog.Variant) },
			NewBody:   func() any { return new(catalog.VariantInput) },
		},
		{
			Name: OpVariantUpdate, Resource: resource.Variant, Kind: operation.Write, Action: "update",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: append([]resource.Template{"catalog:variant:{id}"}, variantTemplates...)},
			NewResult: func() any { return new(catalog.Variant) },
			NewBody:   func() any { return new(catalog.VariantInput) },
		},
		{
			Name: OpVariantDelete, Resource: resource.Variant, Kind: operation.Write, Action: "delete",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: append([]resource.Template{"catalog:variant:{id}"}, variantTemplates...)},
			NewResult: func() any { return new(operation.Ack) },
		},

		// Attributes
		{
			Name: OpAttributesList, Resource: resource.Attribute, Kind: operation.Read, Action: "list",
			ParamNames: pageParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("catalog", "attributes").WithParams(r.Params)
			},
			Validate:  validatePage,
			NewResult: func() any { return new([]catalog.Attribute) },
		},
		{
			Name: OpAttributeGet, Resource: resource.Attribute, Kind: operation.Read, Action: "get",
			Key:       byID("catalog", "attribute"),
			Validate:  requireNumericID,
			NewResult: func() any { return new(catalog.Attribute) },
		},
		{
			Name: OpAttributeCreate, Resource: resource.Attribute, Kind: operation.Write, Action: "create",
			Scope:     auth.ScopeCatalogWrite,
			Rule:      &operation.Rule{Templates: []resource.Template{"catalog:attributes*"}},
			NewResult: func() any { return new(catalog.Attribute) },
			NewBody:   func() any { return new(catalog.AttributeInput) },
		},
		{
			Name: OpAttributeUpdate, Resource: resource.Attribute, Kind: operation.Write, Action: "update",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: attributeTemplates},
			NewResult: func() any { return new(catalog.Attribute) },
			NewBody:   func() any { return new(catalog.AttributeInput) },
		},
		{
			Name: OpAttributeDelete, Resource: resource.Attribute, Kind: operation.Write, Action: "delete",
			Scope:     auth.ScopeCatalogWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: append(append([]resource.Template{}, attributeTemplates...), "catalog:variant*", "catalog:product:*")},
			NewResult: func() any { return new(operation.Ack) },
		},
		{
			Name: OpValuesList, Resource: resource.Attribute, Kind: operation.Read, Action: "values",
			ParamNames: valueParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("catalog", "attribute", r.Params.Get("attribute"), "values").WithParams(without(r.Params, "attribute"))
			},
			Validate:  all(requireNumericParam("attribute"), validatePage),
			NewResult: func() any { return new([]catalog.AttributeValue) },
		},
		{
			Name: OpValueCreate, Resource: resource.Attribute, Kind: operation.Write, Action: "create_value",
			Scope:      auth.ScopeCatalogWrite,
			ParamNames: valueParams,
			Validate:   requireNumericParam("attribute"),
			Rule:       &operation.Rule{Templates: []resource.Template{"catalog:attribute:{attribute}:values*"}},
			NewResult:  func() any { return new(catalog.AttributeValue) },
			NewBody:    func() any { return new(catalog.AttributeValueInput) },
		},
		{
			Name: OpValueUpdate, Resource: resource.Attribute, Kind: operation.Write, Action: "update_value",
			Scope:      auth.ScopeCatalogWrite,
			ParamNames: valueParams,
			Validate:   all(requireNumericParam("attribute"), requireNumericID),
			Rule:       &operation.Rule{Templates: valueTemplates},
			NewResult:  func() any { return new(catalog.AttributeValue) },
			NewBody:    func() any { return new(catalog.AttributeValueInput) },
		},
		{
			Name: OpValueDelete, Resource: resource.Attribute, Kind: operation.Write, Action: "delete_value",
			Scope:      auth.ScopeCatalogWrite,
			ParamNames: valueParams,
			Validate:   all(requireNumericParam("attribute"), requireNumericID),
			Rule:       &operation.Rule{Templates: valueTemplates},
			NewResult:  func() any { return new(operation.Ack) },
		},

		// Vendors
		{
			Name: OpVendorsList, Resource: resource.Vendor, Kind: operation.Read, Action: "list",
			ParamNames: pageParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("vendors", "list").WithParams(r.Params)
			},
			Validate:  validatePage,
			NewResult: func() any { return new([]vendor.Vendor) },
		},
		{
			Name: OpVendorGet, Resource: resource.Vendor, Kind: operation.Read, Action: "get",
			Key:       byID("vendors"),
			Validate:  requireNumericID,
			NewResult: func() any { return new(vendor.Vendor) },
		},
		{
			Name: OpVendorCreate, Resource: resource.Vendor, Kind: operation.Write, Action: "create",
			Scope:     auth.ScopeVendorsWrite,
			Rule:      &operation.Rule{Templates: vendorTemplates},
			NewResult: func() any { return new(vendor.Vendor) },
			NewBody:   func() any { return new(vendor.Input) },
		},
		{
			Name: OpVendorUpdate, Resource: resource.Vendor, Kind: operation.Write, Action: "update",
			Scope:     auth.ScopeVendorsWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: vendorTemplates},
			NewResult: func() any { return new(vendor.Vendor) },
			NewBody:   func() any { return new(vendor.Input) },
		},
		{
			Name: OpVendorDelete, Resource: resource.Vendor, Kind: operation.Write, Action: "delete",
			Scope:     auth.ScopeVendorsWrite,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: append([]resource.Template{"catalog:search:*"}, vendorTemplates...)},
			NewResult: func() any { return new(operation.Ack) },
		},

		// Cart
		{
			Name: OpCartGet, Resource: resource.Cart, Kind: operation.Read, Action: "get",
			Scope:     auth.ScopeCart,
			Key:       byPrincipal("cart"),
			NewResult: func() any { return new(cart.Cart) },
		},
		{
			Name: OpCartItemAdd, Resource: resource.Cart, Kind: operation.Write, Action: "add_item",
			Scope:     auth.ScopeCart,
			Rule:      &operation.Rule{Templates: cartTemplates},
			NewResult: func() any { return new(cart.Cart) },
			NewBody:   func() any { return new(cart.AddItemRequest) },
		},
		{
			Name: OpCartItemUpdate, Resource: resource.Cart, Kind: operation.Write, Action: "update_item",
			Scope:     auth.ScopeCart,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: cartTemplates},
			NewResult: func() any { return new(cart.Cart) },
			NewBody:   func() any { return new(cart.UpdateItemRequest) },
		},
		{
			Name: OpCartItemRemove, Resource: resource.Cart, Kind: operation.Write, Action: "remove_item",
			Scope:     auth.ScopeCart,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: cartTemplates},
			NewResult: func() any { return new(cart.Cart) },
		},
		{
			Name: OpCartClear, Resource: resource.Cart, Kind: operation.Write, Action: "clear",
			Scope:     auth.ScopeCart,
			Rule:      &operation.Rule{Templates: cartTemplates},
			NewResult: func() any { return new(cart.Cart) },
		},

		// Orders
		{
			Name: OpOrdersList, Resource: resource.Order, Kind: operation.Read, Action: "list",
			Scope:      auth.ScopeOrders,
			ParamNames: pageParams,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("orders", r.Principal.ID, "list").WithParams(r.Params)
			},
			Validate:  validatePage,
			NewResult: func() any { return new([]order.Order) },
		},
		{
			Name: OpOrderGet, Resource: resource.Order, Kind: operation.Read, Action: "get",
			Scope: auth.ScopeOrders,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("orders", r.Principal.ID, r.ID)
			},
			Validate:  requireNumericID,
			NewResult: func() any { return new(order.Order) },
		},
		{
			Name: OpOrderStatus, Resource: resource.Order, Kind: operation.Read, Action: "status",
			Scope: auth.ScopeOrders,
			Key: func(r operation.Request) resource.Key {
				return resource.NewKey("orders", r.Principal.ID, r.ID, "status")
			},
			Validate:  requireNumericID,
			NewResult: func() any { return new(order.StatusView) },
		},
		{
			Name: OpOrderCreate, Resource: resource.Order, Kind: operation.Write, Action: "create",
			Scope:     auth.ScopeOrders,
			Rule:      &operation.Rule{Templates: append(append([]resource.Template{}, cartTemplates...), orderTemplates...)},
			NewResult: func() any { return new(order.Order) },
			NewBody:   func() any { return new(order.CreateRequest) },
		},
		{
			Name: OpOrderUpdate, Resource: resource.Order, Kind: operation.Write, Action: "update",
			Scope:     auth.ScopeOrders,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: orderTemplates},
			NewResult: func() any { return new(order.Order) },
			NewBody:   func() any { return new(order.CreateRequest) },
		},
		{
			Name: OpOrderCancel, Resource: resource.Order, Kind: operation.Write, Action: "cancel",
			Scope:     auth.ScopeOrders,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: orderTemplates},
			NewResult: func() any { return new(order.Order) },
		},
		{
			Name: OpOrderConfirm, Resource: resource.Order, Kind: operation.Write, Action: "confirm",
			Scope:     auth.ScopeOrders,
			Validate:  requireNumericID,
			Rule:      &operation.Rule{Templates: orderTemplates},
			NewResult: func() any { return new(order.Order) },
		},

		// User
		{
			Name: OpProfileGet, Resource: resource.User, Kind: operation.Read, Action: "get",
			Scope:     auth.ScopeProfile,
			Key:       byPrincipal("users"),
			NewResult: func() any { return new(profile.Profile) },
		},
		{
			Name: OpProfileUpdate, Resource: resource.User, Kind: operation.Write, Action: "update",
			Scope:     auth.ScopeProfile,
			Rule:      &operation.Rule{Templates: []resource.Template{"users:{userId}"}},
			NewResult: func() any { return new(profile.Profile) },
			NewBody:   func() any { return new(profile.UpdateRequest) },
		},
	}
}

// NewOperationTable builds the default table with rule overrides applied.
func NewOperationTable(overrides map[operation.Name]*operation.Rule) (*operation.Table, error) {
	t, err := operation.NewTable(DefaultOperations()...)
	if err != nil {
		return nil, err
	}
	for name, rule := range overrides {
		if err := t.SetRule(name, rule); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func byID(namespace string, segments ...string) func(operation.Request) resource.Key {
	return func(r operation.Request) resource.Key {
		return resource.NewKey(namespace, append(append([]string{}, segments...), r.ID)...)
	}
}

func byPrincipal(namespace string) func(operation.Request) resource.Key {
	return func(r operation.Request) resource.Key {
		return resource.NewKey(namespace, r.Principal.ID)
	}
}

func all(checks ...func(operation.Request) error) func(operation.Request) error {
	return func(r operation.Request) error {
		for _, c := range checks {
			if err := c(r); err != nil {
				return err
			}
		}
		return nil
	}
}

func requireNumericID(r operation.Request) error {
	if r.ID == "" {
		return failure.InvalidRequest("missing id")
	}
	if n, err := strconv.ParseInt(r.ID, 10, 64); err != nil || n <= 0 {
		return failure.InvalidRequest(fmt.Sprintf("invalid id %q", r.ID))
	}
	return nil
}

// requireNumericParam rejects a missing or non-positive parameter.
func requireNumericParam(name string) func(operation.Request) error {
	return func(r operation.Request) error {
		v := r.Params.Get(name)
		if v == "" {
			return failure.InvalidRequest("missing " + name)
		}
		if n, err := strconv.ParseInt(v, 10, 64); err != nil || n <= 0 {
			return failure.InvalidRequest(fmt.Sprintf("invalid %s %q", name, v))
		}
		return nil
	}
}

// numericParams accepts absent filters and rejects present ones that are not positive integers.
func numericParams(names ...string) func(operation.Request) error {
	return func(r operation.Request) error {
		for _, name := range names {
			v := r.Params.Get(name)
			if v == "" {
				continue
			}
			if n, err := strconv.ParseInt(v, 10, 64); err != nil || n <= 0 {
				return failure.InvalidRequest(name + " must be a positive integer")
			}
		}
		return nil
	}
}

func without(params resource.Params, name string) resource.Params {
	out := params.Clone()
	delete(out, name)
	return out
}

func validatePage(r operation.Request) error {
	if v := r.Params.Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			return failure.InvalidRequest("skip must be a non-negative integer")
		}
	}
	if v := r.Params.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 1 || n > maxPageLimit {
			return failure.InvalidRequest(fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
		}
	}
	return nil
}

func validateSearch(r operation.Request) error {
	if err := validatePage(r); err != nil {
		return err
	}
	if !catalog.ValidSort(r.Params.Get("sort")) {
		return failure.InvalidRequest(fmt.Sprintf("unsupported sort %q", r.Params.Get("sort")))
	}
	var bounds [2]float64
	for i, name := range []string{"min_price", "max_price"} {
		v := r.Params.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return failure.InvalidRequest(name + " must be a non-negative number")
		}
		bounds[i] = f
	}
	if r.Params.Get("min_price") != "" && r.Params.Get("max_price") != "" && bounds[0] > bounds[1] {
		return failure.InvalidRequest("min_price exceeds max_price")
	}
	if v := r.Params.Get("has_variants"); v != "" {
		if _, err := strconv.ParseBool(v); err != nil {
			return failure.InvalidRequest("has_variants must be a boolean")
		}
	}
	return nil
}
