package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/service/earnings"
	"github.com/gin-gonic/gin"
)

type EarningsHandler struct {
	service earnings.EarningsUseCase
}

func NewEarningsHandler(service earnings.EarningsUseCase) *EarningsHandler {
	return &EarningsHandler{service: service}
}

func (h *EarningsHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id/earnings", h.get)
}

// get serves a provider's own earnings. Other callers are refused.
func (h *EarningsHandler) get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		abortUnauthorized(c, "missing actor")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	if actor.ID != id {
		writeError(c, domain.Errorf(domain.KindForbidden, "user %d cannot view earnings of provider %d", actor.ID, id))
		return
	}

	report, err := h.service.GetProviderEarnings(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEarningsResponse(report))
}
