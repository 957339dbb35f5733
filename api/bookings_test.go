package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) TransitionBooking(ctx context.Context, input booking.TransitionInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListCompletedUnpaid(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ProviderDashboard(ctx context.Context, providerID int64) (*booking.Dashboard, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Dashboard), args.Error(1)
}

var (
	testBuyer    = Actor{ID: 10, Role: domain.RoleBuyer}
	testProvider = Actor{ID: 20, Role: domain.RoleProvider}
)

func newTestContext(method, target string, body []byte, actor *Actor) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		c.Set(actorKey, *actor)
	}
	return c, w
}

func sampleBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:            7,
		ServiceID:     1,
		ServiceTitle:  "Plumbing",
		BuyerID:       testBuyer.ID,
		ProviderID:    testProvider.ID,
		BookingDate:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:      decimal.NewFromInt(2),
		Location:      "Nairobi",
		TotalPrice:    1000,
		Status:        status,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Version:       1,
	}
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	body := []byte(`{"service_id":1,"booking_date":"2026-03-01T10:00:00Z","duration":"2","location":"Nairobi","notes":"gate code 12"}`)
	c, w := newTestContext(http.MethodPost, "/bookings", body, &testBuyer)

	mockService.On("CreateBooking", c.Request.Context(), mock.MatchedBy(func(in booking.CreateBookingInput) bool {
		return in.BuyerID == testBuyer.ID &&
			in.ServiceID == 1 &&
			in.Duration.Equal(decimal.NewFromInt(2)) &&
			in.BookingDate.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) &&
			in.Location == "Nairobi" &&
			in.Notes == "gate code 12"
	})).Return(sampleBooking(domain.BookingStatusPending), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), response.ID)
	assert.Equal(t, string(domain.BookingStatusPending), response.Status)
	assert.Equal(t, string(domain.PaymentStatusUnpaid), response.PaymentStatus)
	assert.Equal(t, int64(1000), response.TotalPrice)
	assert.Equal(t, "2", response.Duration)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_createRejectsBadBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/bookings", []byte(`{"location":"Nairobi"}`), &testBuyer)

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_createWithoutActor(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/bookings", []byte(`{}`), nil)

	handler.create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandler_createForbiddenForProvider(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	body := []byte(`{"service_id":1,"booking_date":"2026-03-01T10:00:00Z","location":"Nairobi"}`)
	c, w := newTestContext(http.MethodPost, "/bookings", body, &testProvider)

	mockService.On("CreateBooking", c.Request.Context(), mock.Anything).
		Return(nil, domain.Errorf(domain.KindForbidden, "user 20 is not a buyer"))

	handler.create(c)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var response errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "forbidden", response.Error)
	assert.Equal(t, "user 20 is not a buyer", response.Message)
}

func TestBookingHandler_transition(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodPut, "/bookings/7/status", []byte(`{"status":"confirmed"}`), &testProvider)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	updated := sampleBooking(domain.BookingStatusConfirmed)
	updated.Version = 2
	mockService.On("TransitionBooking", c.Request.Context(), booking.TransitionInput{
		BookingID: 7,
		ActorID:   testProvider.ID,
		ActorRole: domain.RoleProvider,
		Target:    domain.BookingStatusConfirmed,
	}).Return(updated, nil)

	handler.transition(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, string(domain.BookingStatusConfirmed), response.Status)
	assert.Equal(t, int64(2), response.Version)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_transitionErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"illegal edge", domain.Errorf(domain.KindInvalidTransition, "cannot move booking 7 from completed to cancelled"), http.StatusConflict, "invalid_transition"},
		{"wrong role", domain.Errorf(domain.KindForbidden, "buyer may not confirm"), http.StatusForbidden, "forbidden"},
		{"lost race", domain.Errorf(domain.KindConflict, "booking 7 changed concurrently"), http.StatusConflict, "conflict"},
		{"missing", domain.Errorf(domain.KindNotFound, "booking 7 not found"), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewBookingHandler(mockService)

			c, w := newTestContext(http.MethodPut, "/bookings/7/status", []byte(`{"status":"cancelled"}`), &testBuyer)
			c.Params = gin.Params{{Key: "id", Value: "7"}}
			mockService.On("TransitionBooking", c.Request.Context(), mock.Anything).Return(nil, tt.err)

			handler.transition(c)

			assert.Equal(t, tt.wantCode, w.Code)
			var response errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantKind, response.Error)
		})
	}
}

func TestBookingHandler_transitionInvalidID(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodPut, "/bookings/abc/status", []byte(`{"status":"confirmed"}`), &testProvider)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.transition(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "TransitionBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/bookings/7", nil, &testBuyer)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	mockService.On("GetBooking", c.Request.Context(), int64(7), testBuyer.ID).Return(sampleBooking(domain.BookingStatusPending), nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_list(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/bookings", nil, &testProvider)
	mockService.On("ListBookings", c.Request.Context(), testProvider.ID).
		Return([]domain.Booking{*sampleBooking(domain.BookingStatusPending), *sampleBooking(domain.BookingStatusConfirmed)}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response, 2)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_completedUnpaid(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/bookings/completed-unpaid", nil, &testBuyer)
	mockService.On("ListCompletedUnpaid", c.Request.Context(), testBuyer.ID).Return([]domain.Booking{}, nil)

	handler.completedUnpaid(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestBookingHandler_listCarriesBuyerName(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	named := sampleBooking(domain.BookingStatusPending)
	named.BuyerName = "Wanjiru"
	c, w := newTestContext(http.MethodGet, "/bookings", nil, &testProvider)
	mockService.On("ListBookings", c.Request.Context(), testProvider.ID).Return([]domain.Booking{*named}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "Wanjiru", response[0].BuyerName)
}

func TestBookingHandler_dashboard(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/providers/20/dashboard", nil, &testProvider)
	c.Params = gin.Params{{Key: "id", Value: "20"}}
	mockService.On("ProviderDashboard", c.Request.Context(), testProvider.ID).Return(&booking.Dashboard{
		ProviderID:     testProvider.ID,
		TotalBookings:  3,
		ByStatus:       map[domain.BookingStatus]int{domain.BookingStatusPending: 2, domain.BookingStatusCompleted: 1},
		CompletedValue: 1000,
		Recent:         []domain.Booking{*sampleBooking(domain.BookingStatusPending)},
	}, nil)

	handler.dashboard(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response dashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 3, response.TotalBookings)
	assert.Equal(t, 2, response.ByStatus["pending"])
	assert.Equal(t, int64(1000), response.CompletedValue)
	assert.Len(t, response.RecentBookings, 1)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_dashboardOfAnotherProvider(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/providers/21/dashboard", nil, &testProvider)
	c.Params = gin.Params{{Key: "id", Value: "21"}}

	handler.dashboard(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockService.AssertNotCalled(t, "ProviderDashboard", mock.Anything, mock.Anything)
}
