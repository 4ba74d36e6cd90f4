package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/Domenick1991/apptbooking/internal/service/schedule"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockScheduleUseCase struct {
	mock.Mock
}

func (m *MockScheduleUseCase) GetAvailableSlots(ctx context.Context, from, to string) ([]domain.Slot, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

func (m *MockScheduleUseCase) GetSlots(ctx context.Context, from, to string) ([]domain.Slot, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

func (m *MockScheduleUseCase) GetSlotOccupancyCounts(ctx context.Context, from, to string, status domain.SlotStatus) ([]schedule.OccupancyCount, error) {
	args := m.Called(ctx, from, to, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schedule.OccupancyCount), args.Error(1)
}

func (m *MockScheduleUseCase) UpsertSlots(ctx context.Context, input schedule.UpsertSlotsInput) (*schedule.UpsertSlotsResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedule.UpsertSlotsResult), args.Error(1)
}

func sampleSlot() domain.Slot {
	return domain.Slot{
		SubjectKey:      domain.SubjectKeyAppointments,
		TimeKey:         "2024-01-10T15:00:00Z",
		Status:          domain.SlotStatusAvailable,
		DurationMinutes: 30,
		Category:        "consultation",
		Provider:        domain.ProviderSummary{ID: "prov-1", FirstName: "Grace", LastName: "Hopper"},
		CreatedAt:       time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC),
	}
}

func TestSlotHandler_available(t *testing.T) {
	mockService := &MockScheduleUseCase{}
	handler := NewSlotHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/v1/slots/available?from=2024-01-10&to=2024-01-11", nil)

	mockService.On("GetAvailableSlots", c.Request.Context(), "2024-01-10", "2024-01-11").
		Return([]domain.Slot{sampleSlot()}, nil)

	handler.available(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []slotResponse `json:"items"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, "available", resp.Items[0].Status)
	assert.Empty(t, resp.Items[0].BookingRef)
}

func TestSlotHandler_available_InvalidRange(t *testing.T) {
	mockService := &MockScheduleUseCase{}
	handler := NewSlotHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/v1/slots/available?from=bogus&to=2024-01-11", nil)

	mockService.On("GetAvailableSlots", c.Request.Context(), "bogus", "2024-01-11").
		Return(nil, domain.ErrValidation)

	handler.available(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotHandler_occupancy_DefaultStatus(t *testing.T) {
	mockService := &MockScheduleUseCase{}
	handler := NewSlotHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/v1/slots/occupancy?from=2024-01-10&to=2024-01-12", nil)

	mockService.On("GetSlotOccupancyCounts", c.Request.Context(), "2024-01-10", "2024-01-12", domain.SlotStatusAvailable).
		Return([]schedule.OccupancyCount{{Date: "2024-01-10", Count: 3}}, nil)

	handler.occupancy(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var counts []schedule.OccupancyCount
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, []schedule.OccupancyCount{{Date: "2024-01-10", Count: 3}}, counts)
}

func TestSlotHandler_occupancy_ExplicitStatus(t *testing.T) {
	mockService := &MockScheduleUseCase{}
	handler := NewSlotHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/v1/slots/occupancy?from=2024-01-10&to=2024-01-12&status=booked", nil)

	mockService.On("GetSlotOccupancyCounts", c.Request.Context(), "2024-01-10", "2024-01-12", domain.SlotStatusBooked).
		Return([]schedule.OccupancyCount{}, nil)

	handler.occupancy(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSlotHandler_upsert(t *testing.T) {
	mockService := &MockScheduleUseCase{}
	handler := NewSlotHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	input := schedule.UpsertSlotsInput{Slots: []schedule.SlotDraft{
		{
			SubjectKey:      "appt",
			TimeKey:         "2024-01-10T15:00:00Z",
			Status:          schedule.DraftStatusNew,
			DurationMinutes: 30,
			Category:        "consultation",
			Provider:        domain.ProviderSummary{ID: "prov-1", FirstName: "Grace", LastName: "Hopper"},
		},
		{SubjectKey: "appt", TimeKey: "2024-01-11T15:00:00Z", Status: schedule.DraftStatusPendingDeletion},
	}}
	body, _ := json.Marshal(input)
	c.Request = httptest.NewRequest("POST", "/api/v1/slots", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("UpsertSlots", c.Request.Context(), input).Return(&schedule.UpsertSlotsResult{
		Upserted: []domain.Slot{sampleSlot()},
		Deleted:  []domain.SlotRef{{SubjectKey: "appt", TimeKey: "2024-01-11T15:00:00Z"}},
	}, nil)

	handler.upsert(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Upserted []slotResponse   `json:"upserted"`
		Deleted  []domain.SlotRef `json:"deleted"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Upserted, 1)
	assert.Equal(t, []domain.SlotRef{{SubjectKey: "appt", TimeKey: "2024-01-11T15:00:00Z"}}, resp.Deleted)
}

func TestSlotHandler_upsert_RefusesBookedDeletion(t *testing.T) {
	mockService := &MockScheduleUseCase{}
	handler := NewSlotHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	input := schedule.UpsertSlotsInput{Slots: []schedule.SlotDraft{
		{SubjectKey: "appt", TimeKey: "2024-01-10T15:00:00Z", Status: schedule.DraftStatusPendingDeletion},
	}}
	body, _ := json.Marshal(input)
	c.Request = httptest.NewRequest("POST", "/api/v1/slots", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("UpsertSlots", c.Request.Context(), input).
		Return(nil, domain.ErrValidation)

	handler.upsert(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
