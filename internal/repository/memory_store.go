package repository

import (
	"context"
	"strconv"
	"sync"

	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
)

// MemoryStore keeps rooms and bookings in process memory behind one RWMutex.
// Readers never observe a half-applied reservation.
type MemoryStore struct {
	mu            sync.RWMutex
	rooms         []*roomDomain.Room
	roomIndex     map[int64]int
	bookings      []*bookingDomain.Booking
	nextRoomID    int64
	nextBookingID int64
}

// NewMemoryStore creates an empty MemoryStore. Ids start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roomIndex:     make(map[int64]int),
		nextRoomID:    1,
		nextBookingID: 1,
	}
}

// Rooms returns the room repository view of the store.
func (s *MemoryStore) Rooms() *MemoryRoomRepository {
	return &MemoryRoomRepository{store: s}
}

// Bookings returns the booking repository view of the store.
func (s *MemoryStore) Bookings() *MemoryBookingRepository {
	return &MemoryBookingRepository{store: s}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// MemoryRoomRepository implements roomDomain.RoomRepository over a MemoryStore.
type MemoryRoomRepository struct {
	store *MemoryStore
}

// Save assigns the next room id and stores the room.
func (r *MemoryRoomRepository) Save(ctx context.Context, rm *roomDomain.Room) (*roomDomain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := rm.WithID(s.nextRoomID)
	s.nextRoomID++
	s.roomIndex[saved.ID()] = len(s.rooms)
	s.rooms = append(s.rooms, saved)
	return saved, nil
}

// FindByID retrieves a room by id.
func (r *MemoryRoomRepository) FindByID(ctx context.Context, id int64) (*roomDomain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rm, ok := s.lookupRoom(id)
	if !ok {
		return nil, apperror.NewNotFoundError("Room", strconv.FormatInt(id, 10))
	}
	return rm, nil
}

// ListAll returns every room in id order.
func (r *MemoryRoomRepository) ListAll(ctx context.Context) ([]*roomDomain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*roomDomain.Room, len(s.rooms))
	copy(rooms, s.rooms)
	return rooms, nil
}

// MemoryBookingRepository implements bookingDomain.BookingRepository over a MemoryStore.
type MemoryBookingRepository struct {
	store *MemoryStore
}

// Reserve checks and appends a booking under the store's write lock.
func (r *MemoryBookingRepository) Reserve(
	ctx context.Context,
	draft *bookingDomain.Booking,
	check bookingDomain.CheckFunc,
) (*bookingDomain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupRoom(draft.RoomID()); !ok {
		return nil, apperror.NewNotFoundError("Room", strconv.FormatInt(draft.RoomID(), 10))
	}
	if check != nil {
		if err := check(s.filter(func(b *bookingDomain.Booking) bool { return b.RoomID() == draft.RoomID() })); err != nil {
			return nil, err
		}
	}

	saved := draft.WithID(s.nextBookingID)
	s.nextBookingID++
	s.bookings = append(s.bookings, saved)
	return saved, nil
}

// ListAll returns every booking in creation order.
func (r *MemoryBookingRepository) ListAll(ctx context.Context) ([]*bookingDomain.Booking, error) {
	return r.query(ctx, func(*bookingDomain.Booking) bool { return true })
}

// FindByRoomID returns a room's bookings in creation order.
func (r *MemoryBookingRepository) FindByRoomID(ctx context.Context, roomID int64) ([]*bookingDomain.Booking, error) {
	return r.query(ctx, func(b *bookingDomain.Booking) bool { return b.RoomID() == roomID })
}

// FindByCustomer returns the bookings made under exactly customerName.
func (r *MemoryBookingRepository) FindByCustomer(ctx context.Context, customerName string) ([]*bookingDomain.Booking, error) {
	return r.query(ctx, func(b *bookingDomain.Booking) bool { return b.CustomerName() == customerName })
}

// CountByRoom returns booking counts grouped by room id.
func (r *MemoryBookingRepository) CountByRoom(ctx context.Context) (map[int64]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int64)
	for _, b := range s.bookings {
		counts[b.RoomID()]++
	}
	return counts, nil
}

func (r *MemoryBookingRepository) query(ctx context.Context, keep func(*bookingDomain.Booking) bool) ([]*bookingDomain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(keep), nil
}

// lookupRoom and filter must be called with mu held.
func (s *MemoryStore) lookupRoom(id int64) (*roomDomain.Room, bool) {
	idx, ok := s.roomIndex[id]
	if !ok {
		return nil, false
	}
	return s.rooms[idx], true
}

func (s *MemoryStore) filter(keep func(*bookingDomain.Booking) bool) []*bookingDomain.Booking {
	out := make([]*bookingDomain.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}
