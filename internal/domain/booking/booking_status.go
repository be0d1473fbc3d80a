package booking

import "fmt"

// BookingStatus represents the state of a booking. Bookings are created Booked and never change.
type BookingStatus string

const (
	StatusBooked BookingStatus = "Booked"
)

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	return s == StatusBooked
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
