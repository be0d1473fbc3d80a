package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"github.com/hallbook/service-reservation/internal/platform/kafka"
	"github.com/hallbook/service-reservation/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type services struct {
	rooms     *RoomService
	bookings  *BookingService
	queries   *QueryService
	publisher *recordingPublisher
}

func newServices(t *testing.T) services {
	t.Helper()
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	log := zap.NewNop()
	return services{
		rooms:     NewRoomService(store.Rooms(), pub, "reservation.events", log),
		bookings:  NewBookingService(store.Rooms(), store.Bookings(), pub, "reservation.events", log),
		queries:   NewQueryService(store.Rooms(), store.Bookings(), bookingDomain.NewHourlyPricingStrategy(), log),
		publisher: pub,
	}
}

func hallA() CreateRoomRequest {
	return CreateRoomRequest{RoomName: "Hall A", Seats: 10, Amenities: []string{"Projector"}, PricePerHour: 20}
}

func book(customer, start, end string, roomID int64) CreateBookingRequest {
	return CreateBookingRequest{CustomerName: customer, DateStart: start, DateEnd: end, RoomID: roomID}
}

func TestReservationScenario(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()

	room, err := svc.rooms.CreateRoom(ctx, hallA())
	require.NoError(t, err)
	assert.Equal(t, int64(1), room.RoomID)

	alice, err := svc.bookings.CreateBooking(ctx, book("Alice", "2024-01-01T10:00", "2024-01-01T11:00", room.RoomID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.BookingID)
	assert.Equal(t, "Booked", alice.Status)

	_, err = svc.bookings.CreateBooking(ctx, book("Bob", "2024-01-01T10:30", "2024-01-01T11:30", room.RoomID))
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBookingConflict, appErr.Code)
	assert.Equal(t, "Room is already booked for the given time range", appErr.Message)

	carol, err := svc.bookings.CreateBooking(ctx, book("Carol", "2024-01-01T11:00", "2024-01-01T12:00", room.RoomID))
	require.NoError(t, err)
	assert.Greater(t, carol.BookingID, alice.BookingID)

	history, err := svc.queries.CustomerBookingHistory(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hall A", history[0].RoomName)
	assert.Equal(t, alice.BookingID, history[0].BookingID)
	assert.Equal(t, 20.0, history[0].EstimatedCost)

	rooms, err := svc.queries.RoomsWithBookingStatus(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Len(t, rooms[0].Bookings, 2)
	assert.Equal(t, "Alice", rooms[0].Bookings[0].CustomerName)
	assert.Equal(t, "Carol", rooms[0].Bookings[1].CustomerName)

	customers, err := svc.queries.CustomersWithBookings(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, CustomerBookingDTO{
		CustomerName: "Alice",
		RoomName:     "Hall A",
		DateStart:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		DateEnd:      time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
	}, customers[0])

	stats, err := svc.queries.BookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, 1, stats.TotalRooms)
	assert.Equal(t, int64(2), stats.ByRoom[room.RoomID])

	assert.Equal(t, []string{EventRoomCreated, EventBookingCreated, EventBookingCreated}, svc.publisher.types())
}

func TestCreateBooking_UnknownRoom(t *testing.T) {
	svc := newServices(t)

	for _, roomID := range []int64{42, -3} {
		_, err := svc.bookings.CreateBooking(context.Background(), book("Alice", "2024-01-01T10:00", "2024-01-01T11:00", roomID))
		require.Error(t, err)
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeNotFound, appErr.Code, "room %d", roomID)
		assert.Equal(t, "Room not found", appErr.Message)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	room, err := svc.rooms.CreateRoom(ctx, hallA())
	require.NoError(t, err)

	cases := map[string]CreateBookingRequest{
		"missing customer": book("", "2024-01-01T10:00", "2024-01-01T11:00", room.RoomID),
		"missing start":    book("Alice", "", "2024-01-01T11:00", room.RoomID),
		"missing room":     book("Alice", "2024-01-01T10:00", "2024-01-01T11:00", 0),
		"bad format":       book("Alice", "next monday", "2024-01-01T11:00", room.RoomID),
		"empty range":      book("Alice", "2024-01-01T10:00", "2024-01-01T10:00", room.RoomID),
		"reversed range":   book("Alice", "2024-01-01T11:00", "2024-01-01T10:00", room.RoomID),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.bookings.CreateBooking(ctx, req)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}

	all, err := svc.bookings.ListBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateBooking_ConcurrentOverlapping(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	room, err := svc.rooms.CreateRoom(ctx, hallA())
	require.NoError(t, err)

	const attempts = 24
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every range covers 10:29-11:00, so all of them overlap pairwise.
			start := time.Date(2024, 1, 1, 10, i%30, 0, 0, time.UTC)
			end := time.Date(2024, 1, 1, 11, i%15, 0, 0, time.UTC)
			_, err := svc.bookings.CreateBooking(ctx, book("Racer", start.Format(time.RFC3339), end.Format(time.RFC3339), room.RoomID))
			if err == nil {
				successes.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, 0, svc.bookings.locks.size())
}

func TestBookingsForRoom(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()

	_, err := svc.bookings.BookingsForRoom(ctx, 5)
	assert.True(t, apperror.IsNotFound(err))

	room, err := svc.rooms.CreateRoom(ctx, hallA())
	require.NoError(t, err)
	empty, err := svc.bookings.BookingsForRoom(ctx, room.RoomID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestBookingsForCustomer_ExactMatch(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	room, err := svc.rooms.CreateRoom(ctx, hallA())
	require.NoError(t, err)

	_, err = svc.bookings.CreateBooking(ctx, book("Alice", "2024-01-01T10:00", "2024-01-01T11:00", room.RoomID))
	require.NoError(t, err)

	got, err := svc.bookings.BookingsForCustomer(ctx, "ALICE")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.bookings.BookingsForCustomer(ctx, "Alice")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRoomService(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()

	_, err := svc.rooms.CreateRoom(ctx, CreateRoomRequest{RoomName: "Hall A", Seats: 10, PricePerHour: 20})
	assert.True(t, apperror.IsValidation(err))

	a, err := svc.rooms.CreateRoom(ctx, hallA())
	require.NoError(t, err)
	b, err := svc.rooms.CreateRoom(ctx, CreateRoomRequest{RoomName: "Hall B", Seats: 4, Amenities: []string{"TV"}, PricePerHour: 12.5})
	require.NoError(t, err)
	assert.NotEqual(t, a.RoomID, b.RoomID)

	got, err := svc.rooms.GetRoom(ctx, b.RoomID)
	require.NoError(t, err)
	assert.Equal(t, *b, *got)

	_, err = svc.rooms.GetRoom(ctx, 99)
	assert.True(t, apperror.IsNotFound(err))

	list, err := svc.rooms.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Hall A", list[0].RoomName)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc := newServices(t)
	svc.publisher.err = errors.New("broker down")

	room, err := svc.rooms.CreateRoom(context.Background(), hallA())
	require.NoError(t, err)
	assert.Equal(t, int64(1), room.RoomID)
}

// orphanBookings returns a booking for a room that does not exist.
type orphanBookings struct {
	bookingDomain.BookingRepository
}

func (orphanBookings) ListAll(context.Context) ([]*bookingDomain.Booking, error) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return []*bookingDomain.Booking{
		bookingDomain.ReconstructBooking(1, 77, "Ghost", start, start.Add(time.Hour), bookingDomain.StatusBooked, start),
	}, nil
}

func TestCustomersWithBookings_UnknownRoomIsInternalError(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewQueryService(store.Rooms(), orphanBookings{}, bookingDomain.NewHourlyPricingStrategy(), zap.NewNop())

	_, err := svc.CustomersWithBookings(context.Background())
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInternal, appErr.Code)
}

// failingBookings fails every call with a driver-level error.
type failingBookings struct {
	bookingDomain.BookingRepository
}

func (failingBookings) ListAll(context.Context) ([]*bookingDomain.Booking, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewBookingService(store.Rooms(), failingBookings{}, kafka.NopPublisher{}, "t", zap.NewNop())

	_, err := svc.ListBookings(context.Background())
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnavailable, appErr.Code)
}

func TestRoomLocks_ReleasesEntries(t *testing.T) {
	locks := newRoomLocks()
	unlockA := locks.Lock(1)
	unlockB := locks.Lock(2)
	assert.Equal(t, 2, locks.size())

	unlockA()
	unlockB()
	assert.Equal(t, 0, locks.size())
}
