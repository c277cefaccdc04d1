// Package handlers implements the REST endpoints of the tablet gateway.
//
// Every handler is a thin translation from HTTP to one or two tablet client
// calls; the dispatcher behind the client does the actual work. Errors use a
// single envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "order not found"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-restaurant-orders/internal/dispatch"
	"github.com/tbourn/go-restaurant-orders/internal/http/middleware"
	"github.com/tbourn/go-restaurant-orders/internal/tablet"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"order not found"`
}

// fail aborts the request with an ErrorResponse. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failDispatch maps a tablet client error to a status and code.
func failDispatch(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tablet.ErrOrderRejected):
		fail(c, http.StatusUnprocessableEntity, ErrCodeOrderRejected, err.Error())
	case errors.Is(err, dispatch.ErrSenderReleased):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "dispatcher is shutting down")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "dispatcher did not reply in time")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
