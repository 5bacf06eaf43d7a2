package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pos/internal/gateway"
	"pos/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	_ = c.Error(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/gateway errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrMissingPaymentIntent),
		errors.Is(err, gateway.ErrInvalidSignature):
		return http.StatusBadRequest

	// Payment outcomes
	case errors.Is(err, service.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrIntentCanceled):
		return http.StatusConflict

	// The reader never reported a result in time
	case errors.Is(err, service.ErrPollTimeout):
		return http.StatusGatewayTimeout

	// Gateway, configuration and everything else
	default:
		return http.StatusInternalServerError
	}
}
