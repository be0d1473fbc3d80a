package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/hallbook/service-reservation/internal/application"
	"github.com/hallbook/service-reservation/internal/platform/response"
)

// ReportHandler serves the customer and statistics views.
type ReportHandler struct {
	queries *application.QueryService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(queries *application.QueryService) *ReportHandler {
	return &ReportHandler{queries: queries}
}

// RegisterRoutes registers report routes.
func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/customers", h.Customers)
	r.GET("/customer-bookings/:customerName", h.CustomerBookings)
	r.GET("/stats/bookings", h.BookingStats)
}

// Customers handles GET /customers.
func (h *ReportHandler) Customers(c *gin.Context) {
	result, err := h.queries.CustomersWithBookings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CustomerBookings handles GET /customer-bookings/:customerName.
func (h *ReportHandler) CustomerBookings(c *gin.Context) {
	result, err := h.queries.CustomerBookingHistory(c.Request.Context(), c.Param("customerName"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// BookingStats handles GET /stats/bookings.
func (h *ReportHandler) BookingStats(c *gin.Context) {
	stats, err := h.queries.BookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
