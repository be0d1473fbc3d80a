package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/hallbook/service-reservation/internal/application"
	"github.com/hallbook/service-reservation/internal/platform/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
	}
	r.GET("/rooms/:id/bookings", h.RoomBookings)
}

// CreateBooking handles POST /bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"message":   "Room booked successfully",
		"bookingID": result.BookingID,
	})
}

// ListBookings handles GET /bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	result, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RoomBookings handles GET /rooms/:id/bookings.
func (h *BookingHandler) RoomBookings(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.BookingsForRoom(c.Request.Context(), roomID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
