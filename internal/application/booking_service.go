package application

import (
	"context"
	"strings"
	"time"

	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"github.com/hallbook/service-reservation/internal/platform/kafka"
	"go.uber.org/zap"
)

// CreateBookingRequest holds the data needed to book a room.
type CreateBookingRequest struct {
	CustomerName string `json:"customerName" binding:"required"`
	DateStart    string `json:"dateStart" binding:"required"`
	DateEnd      string `json:"dateEnd" binding:"required"`
	RoomID       int64  `json:"roomID" binding:"required"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	BookingID    int64     `json:"bookingID"`
	RoomID       int64     `json:"roomID"`
	CustomerName string    `json:"customerName"`
	DateStart    time.Time `json:"dateStart"`
	DateEnd      time.Time `json:"dateEnd"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	rooms    roomDomain.RoomRepository
	bookings bookingDomain.BookingRepository
	locks    *roomLocks
	events   eventPublisher
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	rooms roomDomain.RoomRepository,
	bookings bookingDomain.BookingRepository,
	publisher kafka.Publisher,
	topic string,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		rooms:    rooms,
		bookings: bookings,
		locks:    newRoomLocks(),
		events:   eventPublisher{publisher: publisher, topic: topic, logger: logger},
		logger:   logger,
	}
}

// CreateBooking books a room for [dateStart, dateEnd). Requests for the same room are
// serialised here and again inside the store's Reserve unit of work.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingDTO, error) {
	start, err := parseOptionalInstant("dateStart", req.DateStart)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalInstant("dateEnd", req.DateEnd)
	if err != nil {
		return nil, err
	}

	draft, err := bookingDomain.NewBooking(req.RoomID, req.CustomerName, start, end)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(draft.RoomID())
	defer unlock()

	rm, err := s.rooms.FindByID(ctx, draft.RoomID())
	if err != nil {
		return nil, storeError(err, "failed to look up room")
	}

	saved, err := s.bookings.Reserve(ctx, draft, draft.CheckAvailability)
	if err != nil {
		if apperror.IsBookingConflict(err) {
			s.logger.Info("booking rejected: overlapping range",
				zap.Int64("room_id", draft.RoomID()),
				zap.String("customer", draft.CustomerName()),
				zap.Stringer("period", draft.Period()),
			)
		}
		return nil, storeError(err, "failed to reserve room")
	}

	s.logger.Info("room booked",
		zap.Int64("booking_id", saved.ID()),
		zap.Int64("room_id", saved.RoomID()),
		zap.String("customer", saved.CustomerName()),
	)
	s.events.publishEvent(ctx, EventBookingCreated, saved.RoomID(), BookingCreatedEvent{
		BookingID:    saved.ID(),
		RoomID:       saved.RoomID(),
		RoomName:     rm.Name(),
		CustomerName: saved.CustomerName(),
		DateStart:    saved.DateStart(),
		DateEnd:      saved.DateEnd(),
		Status:       saved.Status().String(),
		OccurredAt:   time.Now().UTC(),
	})

	result := toBookingDTO(saved)
	return &result, nil
}

// ListBookings returns every booking in creation order.
func (s *BookingService) ListBookings(ctx context.Context) ([]BookingDTO, error) {
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list bookings")
	}
	return toBookingDTOs(bookings), nil
}

// BookingsForRoom returns a room's bookings, or not-found for an unknown room.
func (s *BookingService) BookingsForRoom(ctx context.Context, roomID int64) ([]BookingDTO, error) {
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		return nil, storeError(err, "failed to look up room")
	}
	bookings, err := s.bookings.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, storeError(err, "failed to find room bookings")
	}
	return toBookingDTOs(bookings), nil
}

// BookingsForCustomer returns bookings made under exactly customerName.
func (s *BookingService) BookingsForCustomer(ctx context.Context, customerName string) ([]BookingDTO, error) {
	bookings, err := s.bookings.FindByCustomer(ctx, customerName)
	if err != nil {
		return nil, storeError(err, "failed to find customer bookings")
	}
	return toBookingDTOs(bookings), nil
}

// --- Helpers ---

// parseOptionalInstant returns the zero time for a blank value so that presence is
// reported by the domain constructor.
func parseOptionalInstant(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, err := bookingDomain.ParseInstant(value)
	if err != nil {
		return time.Time{}, apperror.NewValidationError("Invalid date format").
			WithDetails(map[string]any{field: value})
	}
	return t, nil
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		BookingID:    bk.ID(),
		RoomID:       bk.RoomID(),
		CustomerName: bk.CustomerName(),
		DateStart:    bk.DateStart(),
		DateEnd:      bk.DateEnd(),
		Status:       bk.Status().String(),
		CreatedAt:    bk.CreatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}
