package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	ServiceID   int64           `json:"service_id" binding:"required"`
	BookingDate time.Time       `json:"booking_date" binding:"required"`
	Duration    decimal.Decimal `json:"duration"`
	Location    string          `json:"location"`
	Notes       string          `json:"notes"`
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/completed-unpaid", h.completedUnpaid)
	router.GET("/:id", h.get)
	router.PUT("/:id/status", h.transition)
}

// RegisterProviderRoutes mounts the provider-scoped booking views.
func (h *BookingHandler) RegisterProviderRoutes(router *gin.RouterGroup) {
	router.GET("/:id/dashboard", h.dashboard)
}

func (h *BookingHandler) create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		abortUnauthorized(c, "missing actor")
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		ServiceID:   req.ServiceID,
		BuyerID:     actor.ID,
		BookingDate: req.BookingDate,
		Duration:    req.Duration,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) list(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		abortUnauthorized(c, "missing actor")
		return
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) completedUnpaid(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		abortUnauthorized(c, "missing actor")
		return
	}

	bookings, err := h.service.ListCompletedUnpaid(c.Request.Context(), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) get(c *gin.Context) {
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

	b, err := h.service.GetBooking(c.Request.Context(), id, actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) transition(c *gin.Context) {
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

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	updated, err := h.service.TransitionBooking(c.Request.Context(), booking.TransitionInput{
		BookingID: id,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Target:    domain.BookingStatus(req.Status),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) dashboard(c *gin.Context) {
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
		writeError(c, domain.Errorf(domain.KindForbidden, "user %d cannot view the dashboard of provider %d", actor.ID, id))
		return
	}

	dash, err := h.service.ProviderDashboard(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDashboardResponse(dash))
}
