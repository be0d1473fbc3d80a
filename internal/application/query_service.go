package application

import (
	"context"
	"fmt"
	"time"

	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"go.uber.org/zap"
)

// RoomWithBookingsDTO is a room together with its bookings.
type RoomWithBookingsDTO struct {
	RoomDTO
	Bookings []BookingDTO `json:"bookings"`
}

// CustomerBookingDTO is one row of the customers listing.
type CustomerBookingDTO struct {
	CustomerName string    `json:"customerName"`
	RoomName     string    `json:"roomName"`
	DateStart    time.Time `json:"dateStart"`
	DateEnd      time.Time `json:"dateEnd"`
}

// BookingHistoryDTO is one entry of a customer's booking history.
type BookingHistoryDTO struct {
	BookingID     int64     `json:"bookingID"`
	RoomID        int64     `json:"roomID"`
	RoomName      string    `json:"roomName"`
	DateStart     time.Time `json:"dateStart"`
	DateEnd       time.Time `json:"dateEnd"`
	Status        string    `json:"status"`
	EstimatedCost float64   `json:"estimatedCost"`
}

// BookingStatsDTO holds aggregate booking counts.
type BookingStatsDTO struct {
	TotalRooms    int             `json:"totalRooms"`
	TotalBookings int64           `json:"totalBookings"`
	ByRoom        map[int64]int64 `json:"byRoom"`
}

// QueryService composes read-only views over rooms and bookings.
type QueryService struct {
	rooms    roomDomain.RoomRepository
	bookings bookingDomain.BookingRepository
	pricing  bookingDomain.PricingStrategy
	logger   *zap.Logger
}

// NewQueryService creates a new QueryService.
func NewQueryService(
	rooms roomDomain.RoomRepository,
	bookings bookingDomain.BookingRepository,
	pricing bookingDomain.PricingStrategy,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		rooms:    rooms,
		bookings: bookings,
		pricing:  pricing,
		logger:   logger,
	}
}

// RoomsWithBookingStatus returns every room with its bookings.
func (s *QueryService) RoomsWithBookingStatus(ctx context.Context) ([]RoomWithBookingsDTO, error) {
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list rooms")
	}
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list bookings")
	}

	byRoom := make(map[int64][]BookingDTO, len(rooms))
	for _, bk := range bookings {
		byRoom[bk.RoomID()] = append(byRoom[bk.RoomID()], toBookingDTO(bk))
	}

	result := make([]RoomWithBookingsDTO, len(rooms))
	for i, rm := range rooms {
		roomBookings := byRoom[rm.ID()]
		if roomBookings == nil {
			roomBookings = []BookingDTO{}
		}
		result[i] = RoomWithBookingsDTO{RoomDTO: toRoomDTO(rm), Bookings: roomBookings}
	}
	return result, nil
}

// CustomersWithBookings lists every booking with its customer and room name.
// A booking whose room cannot be resolved is an internal error.
func (s *QueryService) CustomersWithBookings(ctx context.Context) ([]CustomerBookingDTO, error) {
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list bookings")
	}
	names, err := s.roomNames(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]CustomerBookingDTO, 0, len(bookings))
	for _, bk := range bookings {
		rm, err := s.resolveRoom(names, bk)
		if err != nil {
			return nil, err
		}
		result = append(result, CustomerBookingDTO{
			CustomerName: bk.CustomerName(),
			RoomName:     rm.name,
			DateStart:    bk.DateStart(),
			DateEnd:      bk.DateEnd(),
		})
	}
	return result, nil
}

// CustomerBookingHistory returns a customer's bookings with room names and estimated cost.
func (s *QueryService) CustomerBookingHistory(ctx context.Context, customerName string) ([]BookingHistoryDTO, error) {
	bookings, err := s.bookings.FindByCustomer(ctx, customerName)
	if err != nil {
		return nil, storeError(err, "failed to find customer bookings")
	}
	names, err := s.roomNames(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]BookingHistoryDTO, 0, len(bookings))
	for _, bk := range bookings {
		rm, err := s.resolveRoom(names, bk)
		if err != nil {
			return nil, err
		}
		result = append(result, BookingHistoryDTO{
			BookingID:     bk.ID(),
			RoomID:        bk.RoomID(),
			RoomName:      rm.name,
			DateStart:     bk.DateStart(),
			DateEnd:       bk.DateEnd(),
			Status:        bk.Status().String(),
			EstimatedCost: s.pricing.Estimate(rm.pricePerHour, bk.Period()),
		})
	}
	return result, nil
}

// BookingStats returns the total booking count and the count per room.
func (s *QueryService) BookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByRoom(ctx)
	if err != nil {
		return nil, storeError(err, "failed to get booking stats")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list rooms")
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{
		TotalRooms:    len(rooms),
		TotalBookings: total,
		ByRoom:        counts,
	}, nil
}

type roomSummary struct {
	name         string
	pricePerHour float64
}

// roomNames must be read after the bookings it resolves: rooms are never removed, so
// every booking read earlier references a room present here.
func (s *QueryService) roomNames(ctx context.Context) (map[int64]roomSummary, error) {
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list rooms")
	}
	names := make(map[int64]roomSummary, len(rooms))
	for _, rm := range rooms {
		names[rm.ID()] = roomSummary{name: rm.Name(), pricePerHour: rm.PricePerHour()}
	}
	return names, nil
}

func (s *QueryService) resolveRoom(names map[int64]roomSummary, bk *bookingDomain.Booking) (roomSummary, error) {
	rm, ok := names[bk.RoomID()]
	if !ok {
		s.logger.Error("booking references unknown room",
			zap.Int64("booking_id", bk.ID()),
			zap.Int64("room_id", bk.RoomID()),
		)
		return roomSummary{}, apperror.NewInternalError(
			"booking references unknown room",
			fmt.Errorf("booking %d references room %d", bk.ID(), bk.RoomID()),
		)
	}
	return rm, nil
}
