package application

import (
	"context"
	"time"

	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/kafka"
	"go.uber.org/zap"
)

// CreateRoomRequest holds the data needed to register a room.
type CreateRoomRequest struct {
	RoomName     string   `json:"roomName" binding:"required"`
	Seats        int      `json:"seats" binding:"required"`
	Amenities    []string `json:"amenities" binding:"required"`
	PricePerHour float64  `json:"pricePerHour" binding:"required"`
}

// RoomDTO is the response representation of a room.
type RoomDTO struct {
	RoomID       int64     `json:"roomID"`
	RoomName     string    `json:"roomName"`
	Seats        int       `json:"seats"`
	Amenities    []string  `json:"amenities"`
	PricePerHour float64   `json:"pricePerHour"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RoomService is the application service for the room registry.
type RoomService struct {
	repo   roomDomain.RoomRepository
	events eventPublisher
	logger *zap.Logger
}

// NewRoomService creates a new RoomService.
func NewRoomService(
	repo roomDomain.RoomRepository,
	publisher kafka.Publisher,
	topic string,
	logger *zap.Logger,
) *RoomService {
	return &RoomService{
		repo:   repo,
		events: eventPublisher{publisher: publisher, topic: topic, logger: logger},
		logger: logger,
	}
}

// CreateRoom validates and stores a room.
func (s *RoomService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomDTO, error) {
	rm, err := roomDomain.NewRoom(req.RoomName, req.Seats, req.Amenities, req.PricePerHour)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, rm)
	if err != nil {
		return nil, storeError(err, "failed to save room")
	}

	s.logger.Info("room created",
		zap.Int64("room_id", saved.ID()),
		zap.String("room_name", saved.Name()),
	)
	s.events.publishEvent(ctx, EventRoomCreated, saved.ID(), RoomCreatedEvent{
		RoomID:       saved.ID(),
		RoomName:     saved.Name(),
		Seats:        saved.Seats(),
		Amenities:    saved.Amenities(),
		PricePerHour: saved.PricePerHour(),
		OccurredAt:   time.Now().UTC(),
	})

	result := toRoomDTO(saved)
	return &result, nil
}

// GetRoom returns one room.
func (s *RoomService) GetRoom(ctx context.Context, roomID int64) (*RoomDTO, error) {
	rm, err := s.repo.FindByID(ctx, roomID)
	if err != nil {
		return nil, storeError(err, "failed to find room")
	}
	result := toRoomDTO(rm)
	return &result, nil
}

// ListRooms returns every room in id order.
func (s *RoomService) ListRooms(ctx context.Context) ([]RoomDTO, error) {
	rooms, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list rooms")
	}

	dtos := make([]RoomDTO, len(rooms))
	for i, rm := range rooms {
		dtos[i] = toRoomDTO(rm)
	}
	return dtos, nil
}

func toRoomDTO(rm *roomDomain.Room) RoomDTO {
	return RoomDTO{
		RoomID:       rm.ID(),
		RoomName:     rm.Name(),
		Seats:        rm.Seats(),
		Amenities:    rm.Amenities(),
		PricePerHour: rm.PricePerHour(),
		CreatedAt:    rm.CreatedAt(),
	}
}
