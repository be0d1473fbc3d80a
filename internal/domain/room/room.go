package room

import (
	"math"
	"strings"
	"time"

	"github.com/hallbook/service-reservation/internal/platform/apperror"
)

// Room is the aggregate root for a bookable room. Rooms are immutable once stored.
type Room struct {
	id           int64
	name         string
	seats        int
	amenities    []string
	pricePerHour float64
	createdAt    time.Time
}

// NewRoom validates the room definition and returns an unsaved Room (id 0).
// The store assigns the id.
func NewRoom(name string, seats int, amenities []string, pricePerHour float64) (*Room, error) {
	missing := map[string]any{}
	invalid := map[string]any{}

	if strings.TrimSpace(name) == "" {
		missing["roomName"] = "is required"
	}
	switch {
	case seats == 0:
		missing["seats"] = "is required"
	case seats < 0:
		invalid["seats"] = "must be positive"
	}
	if len(amenities) == 0 {
		missing["amenities"] = "is required"
	}
	for _, a := range amenities {
		if strings.TrimSpace(a) == "" {
			invalid["amenities"] = "must not contain blank entries"
			break
		}
	}
	switch {
	case pricePerHour == 0:
		missing["pricePerHour"] = "is required"
	case pricePerHour < 0 || math.IsNaN(pricePerHour) || math.IsInf(pricePerHour, 0):
		invalid["pricePerHour"] = "must be a positive number"
	}

	if len(missing) > 0 {
		for k, v := range invalid {
			missing[k] = v
		}
		return nil, apperror.NewValidationError("Missing required fields").WithDetails(missing)
	}
	if len(invalid) > 0 {
		return nil, apperror.NewValidationError("Invalid room data").WithDetails(invalid)
	}

	return &Room{
		name:         strings.TrimSpace(name),
		seats:        seats,
		amenities:    append([]string(nil), amenities...),
		pricePerHour: pricePerHour,
		createdAt:    time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Room from persistence data (no validation).
func Reconstruct(id int64, name string, seats int, amenities []string, pricePerHour float64, createdAt time.Time) *Room {
	return &Room{
		id:           id,
		name:         name,
		seats:        seats,
		amenities:    append([]string(nil), amenities...),
		pricePerHour: pricePerHour,
		createdAt:    createdAt.UTC(),
	}
}

// WithID returns a copy of the room carrying the store-assigned id.
func (r *Room) WithID(id int64) *Room {
	cp := *r
	cp.id = id
	cp.amenities = append([]string(nil), r.amenities...)
	return &cp
}

// --- Getters ---

func (r *Room) ID() int64             { return r.id }
func (r *Room) Name() string          { return r.name }
func (r *Room) Seats() int            { return r.seats }
func (r *Room) PricePerHour() float64 { return r.pricePerHour }
func (r *Room) CreatedAt() time.Time  { return r.createdAt }

// Amenities returns a copy of the amenity list.
func (r *Room) Amenities() []string {
	return append([]string(nil), r.amenities...)
}
