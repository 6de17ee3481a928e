package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	paymentdomain "github.com/railzwaylabs/orderpay/internal/payment/domain"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidSignature  = "INVALID_SIGNATURE"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConflict          = "CONCURRENT_UPDATE"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeInternal          = "INTERNAL_ERROR"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrPayloadTooLarge = errors.New("payload_too_large")
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// AbortWithError writes the error envelope for err and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	status, body := mapError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func mapError(err error) (int, errorResponse) {
	var verr *orderdomain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: verr.Error(), Code: CodeValidation, Field: verr.Field}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: CodeValidation}
	case errors.Is(err, ErrUnauthorized), errors.Is(err, orderdomain.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: CodeUnauthorized}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: err.Error(), Code: CodeForbidden}
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: CodeInvalidSignature}
	case errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, paymentdomain.ErrInvalidProvider):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: CodeNotFound}
	case errors.Is(err, orderdomain.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: CodeInvalidTransition}
	case errors.Is(err, orderdomain.ErrConcurrentUpdate):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: CodeConflict}
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error(), Code: CodePayloadTooLarge}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal_error", Code: CodeInternal}
	}
}
