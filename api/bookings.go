package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/Domenick1991/apptbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	SlotRef     domain.SlotRef           `json:"slot_ref" binding:"required"`
	Customer    domain.CustomerSummary   `json:"customer" binding:"required"`
	Provider    domain.ProviderSummary   `json:"provider"`
	Appointment booking.AppointmentInput `json:"appointment" binding:"required"`
}

type cancelBookingRequest struct {
	AppointmentSnapshot domain.AppointmentDetails `json:"appointment_snapshot" binding:"required"`
}

type bookingResponse struct {
	BookingKey      string                     `json:"booking_key"`
	TimeKey         string                     `json:"time_key"`
	Status          string                     `json:"status"`
	SlotRef         domain.SlotRef             `json:"slot_ref"`
	Customer        domain.CustomerSummary     `json:"customer"`
	Provider        domain.ProviderSummary     `json:"provider"`
	Category        string                     `json:"category"`
	DurationMinutes int                        `json:"duration_minutes"`
	Details         *domain.AppointmentDetails `json:"appointment_details,omitempty"`
	CreatedAt       string                     `json:"created_at"`
	UpdatedAt       string                     `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		BookingKey:      b.BookingKey,
		TimeKey:         b.TimeKey,
		Status:          string(b.Status),
		SlotRef:         b.SlotRef,
		Customer:        b.Customer,
		Provider:        b.Provider,
		Category:        b.Category,
		DurationMinutes: b.DurationMinutes,
		Details:         b.Details,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.DELETE("/:id", h.cancel)
	router.GET("/", h.listForCustomer)
	router.GET("/upcoming", h.listUpcoming)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		SlotRef:     req.SlotRef,
		Customer:    req.Customer,
		Provider:    req.Provider,
		Appointment: req.Appointment,
	})
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), booking.CancelBookingInput{
		BookingKey: bookingKeyFromParam(c.Param("id")),
		Snapshot:   req.AppointmentSnapshot,
	})
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func (h *BookingHandler) listForCustomer(c *gin.Context) {
	customerID := c.Query("customer_id")
	fromTime := c.Query("from")

	bookings, err := h.service.GetBookingsForCustomer(c.Request.Context(), customerID, fromTime)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	items := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BookingHandler) listUpcoming(c *gin.Context) {
	bookings, err := h.service.GetBookingsInRange(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	items := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// bookingKeyFromParam accepts either the bare confirmation id or the full
// prefixed key ("#" cannot travel in a path segment unescaped).
func bookingKeyFromParam(id string) string {
	if strings.HasPrefix(id, domain.BookingKeyPrefix) {
		return id
	}
	return domain.BookingKeyPrefix + id
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransactionAborted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
