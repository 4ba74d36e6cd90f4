package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/Domenick1991/apptbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

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

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, input booking.CancelBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBookingsForCustomer(ctx context.Context, customerID, fromTime string) ([]domain.Booking, error) {
	args := m.Called(ctx, customerID, fromTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBookingsInRange(ctx context.Context, fromTime, toTime string) ([]domain.Booking, error) {
	args := m.Called(ctx, fromTime, toTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func sampleBooking() *domain.Booking {
	return &domain.Booking{
		BookingKey: "booking#abc",
		TimeKey:    "2024-01-10T15:00:00Z",
		Status:     domain.BookingStatusBooked,
		SlotRef:    domain.SlotRef{SubjectKey: "appt", TimeKey: "2024-01-10T15:00:00Z"},
		Customer:   domain.CustomerSummary{ID: "cust-1", Email: "ada@example.com"},
		Category:   "consultation",
	}
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	input := booking.CreateBookingInput{
		SlotRef:     domain.SlotRef{SubjectKey: "appt", TimeKey: "2024-01-10T15:00:00Z"},
		Customer:    domain.CustomerSummary{ID: "cust-1", Email: "ada@example.com"},
		Appointment: booking.AppointmentInput{Category: "consultation", DurationMinutes: 30},
	}
	body, _ := json.Marshal(createBookingRequest{
		SlotRef:     input.SlotRef,
		Customer:    input.Customer,
		Appointment: input.Appointment,
	})
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("CreateBooking", c.Request.Context(), input).Return(sampleBooking(), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "booking#abc", resp.BookingKey)
	assert.Equal(t, "booked", resp.Status)
}

func TestBookingHandler_create_SlotTaken(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{
		SlotRef:     domain.SlotRef{SubjectKey: "appt", TimeKey: "2024-01-10T15:00:00Z"},
		Customer:    domain.CustomerSummary{ID: "cust-1", Email: "ada@example.com"},
		Appointment: booking.AppointmentInput{Category: "consultation", DurationMinutes: 30},
	})
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("CreateBooking", c.Request.Context(), mock.Anything).
		Return(nil, domain.ErrSlotUnavailable)

	handler.create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandler_create_BadJSON(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewReader([]byte("{not json")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	snapshot := domain.AppointmentDetails{
		TimeKey: "2024-01-10T15:00:00Z", Category: "consultation", DurationMinutes: 30,
	}
	body, _ := json.Marshal(cancelBookingRequest{AppointmentSnapshot: snapshot})
	c.Request = httptest.NewRequest("DELETE", "/api/v1/bookings/abc", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	cancelled := sampleBooking()
	cancelled.Status = domain.BookingStatusCancelled
	mockService.On("CancelBooking", c.Request.Context(), booking.CancelBookingInput{
		BookingKey: "booking#abc",
		Snapshot:   snapshot,
	}).Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cancelled", resp.Status)
}

func TestBookingHandler_cancel_NotFound(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(cancelBookingRequest{AppointmentSnapshot: domain.AppointmentDetails{
		TimeKey: "2024-01-10T15:00:00Z", Category: "consultation", DurationMinutes: 30,
	}})
	c.Request = httptest.NewRequest("DELETE", "/api/v1/bookings/missing", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	mockService.On("CancelBooking", c.Request.Context(), mock.Anything).
		Return(nil, domain.ErrNotFound)

	handler.cancel(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandler_listForCustomer(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/v1/bookings?customer_id=cust-1&from=2024-01-01T00:00:00Z", nil)

	mockService.On("GetBookingsForCustomer", c.Request.Context(), "cust-1", "2024-01-01T00:00:00Z").
		Return([]domain.Booking{*sampleBooking()}, nil)

	handler.listForCustomer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []bookingResponse `json:"items"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
}

func TestBookingHandler_listUpcoming(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/v1/bookings/upcoming?from=2024-01-10T00:00:00Z&to=2024-01-11T00:00:00Z", nil)

	mockService.On("GetBookingsInRange", c.Request.Context(), "2024-01-10T00:00:00Z", "2024-01-11T00:00:00Z").
		Return([]domain.Booking{*sampleBooking()}, nil)

	handler.listUpcoming(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []bookingResponse `json:"items"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
}
