package httpserver

import (
	"net/http"

	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// HeaderCache reports the cache path of a response: hit, miss or bypass.
const HeaderCache = "X-Cache"

// operationHandler turns an HTTP request into a gateway call for op.
func (s *Server) operationHandler(op *operation.Operation, status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := helpers.GetPrincipalFromContext(c)
		if err != nil {
			return err
		}

		call := services.Call{
			Operation:      op.Name,
			Principal:      &principal,
			ID:             c.Param("id"),
			Params:         helpers.RequestParams(c),
			IdempotencyKey: helpers.GetIdempotencyKey(c),
		}

		if op.NewBody != nil {
			body := op.NewBody()
			if err := c.Bind(body); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
			}
			if err := c.Validate(body); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			call.Body = body
		}

		reply, err := s.gateway.Execute(c.Request().Context(), call)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"operation":  op.Name,
				"principal":  principal.ID,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).WithError(err).Debug("gateway call failed")
			return s.failureResponse(c, err)
		}

		c.Response().Header().Set(HeaderCache, string(reply.Outcome))
		return c.JSON(status, reply.Value)
	}
}
