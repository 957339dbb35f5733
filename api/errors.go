package api

import (
	"net/http"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidTransition, domain.KindDuplicatePayment, domain.KindAlreadySettled, domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotPayable, domain.KindInvalidAmount:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a domain error with its kind. Anything else is logged
// by the request logger and reported as an opaque internal error.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal error"})
		return
	}
	c.JSON(statusFor(kind), errorResponse{Error: string(kind), Message: domain.MessageOf(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: string(domain.KindInvalidInput), Message: message})
}
