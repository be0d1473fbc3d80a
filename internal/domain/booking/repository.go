package booking

import "context"

// CheckFunc inspects the bookings already held on a room and vetoes a reservation by
// returning an error.
type CheckFunc func(existing []*Booking) error

// BookingRepository defines the persistence contract for bookings.
type BookingRepository interface {
	// Reserve is the atomic unit of work for creating a booking. Within one critical
	// section per room it verifies the room exists (apperror not-found otherwise), loads
	// the room's bookings, runs check, and stores draft with a fresh id.
	Reserve(ctx context.Context, draft *Booking, check CheckFunc) (*Booking, error)

	// ListAll returns every booking in creation order.
	ListAll(ctx context.Context) ([]*Booking, error)

	// FindByRoomID returns a room's bookings in creation order.
	FindByRoomID(ctx context.Context, roomID int64) ([]*Booking, error)

	// FindByCustomer returns bookings whose customer name matches exactly.
	FindByCustomer(ctx context.Context, customerName string) ([]*Booking, error)

	// CountByRoom returns booking counts grouped by room id.
	CountByRoom(ctx context.Context) (map[int64]int64, error)
}
