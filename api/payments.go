package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/Domenick1991/servicehub/internal/service/settlement"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service  settlement.SettlementUseCase
	bookings booking.BookingUseCase
}

type initiatePaymentRequest struct {
	BookingID   int64  `json:"booking_id" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type confirmPaymentRequest struct {
	PaymentID int64  `json:"payment_id" binding:"required"`
	Receipt   string `json:"receipt" binding:"required"`
}

type failPaymentRequest struct {
	Reason string `json:"reason"`
}

type initiatePaymentResponse struct {
	PaymentID   int64  `json:"payment_id"`
	BookingID   int64  `json:"booking_id"`
	Amount      int64  `json:"amount"`
	Commission  int64  `json:"commission"`
	PayeeAmount int64  `json:"payee_amount"`
	Status      string `json:"status"`
}

func NewPaymentHandler(service settlement.SettlementUseCase, bookings booking.BookingUseCase) *PaymentHandler {
	return &PaymentHandler{service: service, bookings: bookings}
}

// Register mounts the routes buyers and providers call with a bearer token.
func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/initiate", h.initiate)
	router.GET("/:id", h.get)
}

// RegisterCallbacks mounts the settlement outcome routes. router must be
// guarded by SettlementAuth.
func (h *PaymentHandler) RegisterCallbacks(router *gin.RouterGroup) {
	router.POST("/confirm", h.confirm)
	router.POST("/:id/fail", h.fail)
}

func (h *PaymentHandler) initiate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		abortUnauthorized(c, "missing actor")
		return
	}

	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	b, err := h.bookings.GetBooking(c.Request.Context(), req.BookingID, actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if b.BuyerID != actor.ID {
		writeError(c, domain.Errorf(domain.KindForbidden, "only the buyer can pay for booking %d", b.ID))
		return
	}

	result, err := h.service.InitiatePayment(c.Request.Context(), settlement.InitiatePaymentInput{
		BookingID:   req.BookingID,
		PayerHandle: req.PhoneNumber,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, initiatePaymentResponse{
		PaymentID:   result.PaymentID,
		BookingID:   result.BookingID,
		Amount:      result.Gross,
		Commission:  result.Commission,
		PayeeAmount: result.PayeeAmount,
		Status:      string(result.Status),
	})
}

func (h *PaymentHandler) confirm(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	payment, err := h.service.ConfirmPayment(c.Request.Context(), req.PaymentID, req.Receipt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) fail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}

	var req failPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	payment, err := h.service.FailPayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) get(c *gin.Context) {
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

	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	// Only the booking's buyer and provider may see the payer handle.
	if _, err := h.bookings.GetBooking(c.Request.Context(), payment.BookingID, actor.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}
