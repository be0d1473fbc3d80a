package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/hallbook/service-reservation/internal/application"
	"github.com/hallbook/service-reservation/internal/platform/response"
)

// RoomHandler handles HTTP requests for the room registry.
type RoomHandler struct {
	service *application.RoomService
	queries *application.QueryService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(service *application.RoomService, queries *application.QueryService) *RoomHandler {
	return &RoomHandler{service: service, queries: queries}
}

// RegisterRoutes registers all room routes on the given router group.
func (h *RoomHandler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.POST("", h.CreateRoom)
		rooms.GET("", h.ListRooms)
		rooms.GET("/:id", h.GetRoom)
	}
}

// CreateRoom handles POST /rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req application.CreateRoomRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.CreateRoom(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"message": "Room created successfully",
		"roomID":  result.RoomID,
	})
}

// ListRooms handles GET /rooms: every room with its bookings.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	result, err := h.queries.RoomsWithBookingStatus(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetRoom handles GET /rooms/:id.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
