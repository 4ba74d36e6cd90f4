package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/Domenick1991/apptbooking/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

type SlotHandler struct {
	service schedule.ScheduleUseCase
}

type slotResponse struct {
	SubjectKey      string                  `json:"subject_key"`
	TimeKey         string                  `json:"time_key"`
	Status          string                  `json:"status"`
	DurationMinutes int                     `json:"duration_minutes"`
	Category        string                  `json:"category"`
	Provider        domain.ProviderSummary  `json:"provider"`
	BookingRef      string                  `json:"booking_ref,omitempty"`
	Customer        *domain.CustomerSummary `json:"customer,omitempty"`
	CreatedAt       string                  `json:"created_at"`
	UpdatedAt       string                  `json:"updated_at"`
}

func toSlotResponse(s *domain.Slot) slotResponse {
	return slotResponse{
		SubjectKey:      s.SubjectKey,
		TimeKey:         s.TimeKey,
		Status:          string(s.Status),
		DurationMinutes: s.DurationMinutes,
		Category:        s.Category,
		Provider:        s.Provider,
		BookingRef:      s.BookingRef,
		Customer:        s.Customer,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

func NewSlotHandler(service schedule.ScheduleUseCase) *SlotHandler {
	return &SlotHandler{service: service}
}

func (h *SlotHandler) Register(router *gin.RouterGroup) {
	router.GET("/available", h.available)
	router.GET("/", h.list)
	router.GET("/occupancy", h.occupancy)
	router.POST("/", h.upsert)
}

func (h *SlotHandler) available(c *gin.Context) {
	slots, err := h.service.GetAvailableSlots(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": slotResponses(slots)})
}

func (h *SlotHandler) list(c *gin.Context) {
	slots, err := h.service.GetSlots(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": slotResponses(slots)})
}

func (h *SlotHandler) occupancy(c *gin.Context) {
	status := domain.SlotStatus(c.DefaultQuery("status", string(domain.SlotStatusAvailable)))
	counts, err := h.service.GetSlotOccupancyCounts(c.Request.Context(), c.Query("from"), c.Query("to"), status)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *SlotHandler) upsert(c *gin.Context) {
	var input schedule.UpsertSlotsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.UpsertSlots(c.Request.Context(), input)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upserted": slotResponses(result.Upserted),
		"deleted":  result.Deleted,
	})
}

func slotResponses(slots []domain.Slot) []slotResponse {
	items := make([]slotResponse, 0, len(slots))
	for i := range slots {
		items = append(items, toSlotResponse(&slots[i]))
	}
	return items
}
