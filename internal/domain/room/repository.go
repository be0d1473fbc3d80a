package room

import "context"

// RoomRepository defines the persistence contract for rooms.
type RoomRepository interface {
	// Save stores a new room and returns it with its assigned id.
	Save(ctx context.Context, room *Room) (*Room, error)

	// FindByID retrieves a room, or an apperror not-found error.
	FindByID(ctx context.Context, id int64) (*Room, error)

	// ListAll returns every room in id order.
	ListAll(ctx context.Context) ([]*Room, error)
}
