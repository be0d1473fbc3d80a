package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/hallbook/service-reservation/internal/platform/apperror"
)

// ConflictMessage is returned when a requested range overlaps an existing booking.
const ConflictMessage = "Room is already booked for the given time range"

// Booking is the aggregate root for a room reservation.
type Booking struct {
	id           int64
	roomID       int64
	customerName string
	period       TimeRange
	status       BookingStatus
	createdAt    time.Time
}

// NewBooking validates the request and returns an unsaved Booking (id 0) with status Booked.
func NewBooking(roomID int64, customerName string, start, end time.Time) (*Booking, error) {
	missing := map[string]any{}
	if roomID == 0 {
		missing["roomID"] = "is required"
	}
	if strings.TrimSpace(customerName) == "" {
		missing["customerName"] = "is required"
	}
	if start.IsZero() {
		missing["dateStart"] = "is required"
	}
	if end.IsZero() {
		missing["dateEnd"] = "is required"
	}
	if len(missing) > 0 {
		return nil, apperror.NewValidationError("Missing required fields").WithDetails(missing)
	}

	period := TimeRange{Start: start.UTC(), End: end.UTC()}
	if !period.IsValid() {
		return nil, apperror.NewValidationError("dateEnd must be after dateStart").
			WithDetails(map[string]any{"dateStart": period.Start, "dateEnd": period.End})
	}

	return &Booking{
		roomID:       roomID,
		customerName: customerName,
		period:       period,
		status:       StatusBooked,
		createdAt:    time.Now().UTC(),
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id int64,
	roomID int64,
	customerName string,
	start, end time.Time,
	status BookingStatus,
	createdAt time.Time,
) *Booking {
	return &Booking{
		id:           id,
		roomID:       roomID,
		customerName: customerName,
		period:       TimeRange{Start: start.UTC(), End: end.UTC()},
		status:       status,
		createdAt:    createdAt.UTC(),
	}
}

// WithID returns a copy of the booking carrying the store-assigned id.
func (b *Booking) WithID(id int64) *Booking {
	cp := *b
	cp.id = id
	return &cp
}

// --- Getters ---

func (b *Booking) ID() int64             { return b.id }
func (b *Booking) RoomID() int64         { return b.roomID }
func (b *Booking) CustomerName() string  { return b.customerName }
func (b *Booking) Period() TimeRange     { return b.period }
func (b *Booking) DateStart() time.Time  { return b.period.Start }
func (b *Booking) DateEnd() time.Time    { return b.period.End }
func (b *Booking) Status() BookingStatus { return b.status }
func (b *Booking) CreatedAt() time.Time  { return b.createdAt }

// --- Business Methods ---

// Overlaps reports whether b holds the same room for any instant of other.
func (b *Booking) Overlaps(other *Booking) bool {
	return b.roomID == other.roomID && b.period.Overlaps(other.period)
}

// FindConflict returns the first booking in existing that overlaps candidate, or nil.
func FindConflict(existing []*Booking, candidate *Booking) *Booking {
	for _, b := range existing {
		if b.Overlaps(candidate) {
			return b
		}
	}
	return nil
}

// CheckAvailability returns a booking-conflict error when any of existing overlaps b.
// It has the CheckFunc signature so it can run inside BookingRepository.Reserve.
func (b *Booking) CheckAvailability(existing []*Booking) error {
	conflict := FindConflict(existing, b)
	if conflict == nil {
		return nil
	}
	return apperror.NewBookingConflictError(ConflictMessage).WithDetails(map[string]any{
		"roomID":               b.roomID,
		"conflictingBookingID": conflict.id,
		"conflictingRange":     conflict.period.String(),
	})
}

func (b *Booking) String() string {
	return fmt.Sprintf("booking %d room %d %s", b.id, b.roomID, b.period)
}
