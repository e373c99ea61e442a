package httpserver

import (
	"net/http"

	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
)

// route binds a transport endpoint to a declared operation. The operation, not the
// HTTP method, decides read or write semantics.
type route struct {
	method string
	path   string
	op     operation.Name
	status int
}

var apiRoutes = []route{
	{http.MethodGet, "/catalog/products", services.OpCatalogSearch, http.StatusOK},
	{http.MethodPost, "/catalog/products", services.OpProductCreate, http.StatusCreated},
	{http.MethodPost, "/catalog/products/sync", services.OpCatalogSync, http.StatusOK},
	{http.MethodGet, "/catalog/products/:id", services.OpProductGet, http.StatusOK},
	{http.MethodPut, "/catalog/products/:id", services.OpProductUpdate, http.StatusOK},
	{http.MethodDelete, "/catalog/products/:id", services.OpProductDelete, http.StatusOK},
	{http.MethodGet, "/catalog/categories", services.OpCategoriesList, http.StatusOK},
	{http.MethodGet, "/catalog/categories/:id", services.OpCategoryGet, http.StatusOK},
	{http.MethodGet, "/catalog/categories/:id/products", services.OpCategoryProducts, http.StatusOK},
	{http.MethodPost, "/catalog/categories", services.OpCategoryCreate, http.StatusCreated},
	{http.MethodPut, "/catalog/categories/:id", services.OpCategoryUpdate, http.StatusOK},
	{http.MethodDelete, "/catalog/categories/:id", services.OpCategoryDelete, http.StatusOK},
	{http.MethodGet, "/catalog/variants", services.OpVariantsList, http.StatusOK},
	{http.MethodPost, "/catalog/variants", services.OpVariantCreate, http.StatusCreated},
	{http.MethodGet, "/catalog/variants/:id", services.OpVariantGet, http.StatusOK},
	{http.MethodPut, "/catalog/variants/:id", services.OpVariantUpdate, http.StatusOK},
	{http.MethodDelete, "/catalog/variants/:id", services.OpVariantDelete, http.StatusOK},
	{http.MethodGet, "/catalog/attributes", services.OpAttributesList, http.StatusOK},
	{http.MethodPost, "/catalog/attributes", services.OpAttributeCreate, http.StatusCreated},
	{http.MethodGet, "/catalog/attributes/:id", services.OpAttributeGet, http.StatusOK},
	{http.MethodPut, "/catalog/attributes/:id", services.OpAttributeUpdate, http.StatusOK},
	{http.MethodDelete, "/catalog/attributes/:id", services.OpAttributeDelete, http.StatusOK},
	{http.MethodGet, "/catalog/attributes/:attribute/values", services.OpValuesList, http.StatusOK},
	{http.MethodPost, "/catalog/attributes/:attribute/values", services.OpValueCreate, http.StatusCreated},
	{http.MethodPut, "/catalog/attributes/:attribute/values/:id", services.OpValueUpdate, http.StatusOK},
	{http.MethodDelete, "/catalog/attributes/:attribute/values/:id", services.OpValueDelete, http.StatusOK},

	{http.MethodGet, "/vendors", services.OpVendorsList, http.StatusOK},
	{http.MethodPost, "/vendors", services.OpVendorCreate, http.StatusCreated},
	{http.MethodGet, "/vendors/:id", services.OpVendorGet, http.StatusOK},
	{http.MethodPut, "/vendors/:id", services.OpVendorUpdate, http.StatusOK},
	{http.MethodDelete, "/vendors/:id", services.OpVendorDelete, http.StatusOK},

	{http.MethodGet, "/cart", services.OpCartGet, http.StatusOK},
	{http.MethodPost, "/cart/items", services.OpCartItemAdd, http.StatusCreated},
	{http.MethodPut, "/cart/items/:id", services.OpCartItemUpdate, http.StatusOK},
	{http.MethodDelete, "/cart/items/:id", services.OpCartItemRemove, http.StatusOK},
	{http.MethodPost, "/cart/clear", services.OpCartClear, http.StatusOK},

	{http.MethodGet, "/orders", services.OpOrdersList, http.StatusOK},
	{http.MethodPost, "/orders", services.OpOrderCreate, http.StatusCreated},
	{http.MethodGet, "/orders/:id", services.OpOrderGet, http.StatusOK},
	{http.MethodPut, "/orders/:id", services.OpOrderUpdate, http.StatusOK},
	{http.MethodDelete, "/orders/:id", services.OpOrderCancel, http.StatusOK},
	{http.MethodGet, "/orders/:id/status", services.OpOrderStatus, http.StatusOK},
	{http.MethodPost, "/orders/:id/confirm", services.OpOrderConfirm, http.StatusOK},

	{http.MethodGet, "/users/me", services.OpProfileGet, http.StatusOK},
	{http.MethodPut, "/users/me", services.OpProfileUpdate, http.StatusOK},
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.Use(s.middleware.Auth.RequireAuth())
	api.Use(s.middleware.RateLimit.Handler())

	for _, rt := range apiRoutes {
		op, ok := s.gateway.Operations().Lookup(rt.op)
		if !ok {
			s.logger.WithField("operation", rt.op).Warn("route references unknown operation, skipping")
			continue
		}
		api.Add(rt.method, rt.path, s.operationHandler(op, rt.status))
	}
}
