package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"gorm.io/gorm"
)

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	Name         string          `gorm:"not null;size:200"`
	Seats        int             `gorm:"not null"`
	Amenities    json.RawMessage `gorm:"type:jsonb;not null"`
	PricePerHour float64         `gorm:"not null"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RoomModel) TableName() string {
	return "rooms"
}

// AutoMigrate creates or updates the rooms and bookings tables from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&RoomModel{}, &BookingModel{})
}

// GormRoomRepository is the GORM-based implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Save inserts a room and returns it with the database-assigned id.
func (r *GormRoomRepository) Save(ctx context.Context, rm *roomDomain.Room) (*roomDomain.Room, error) {
	model, err := toRoomModel(rm)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to save room: %w", err)
	}
	return toDomainRoom(model)
}

// FindByID retrieves a room by its id.
func (r *GormRoomRepository) FindByID(ctx context.Context, id int64) (*roomDomain.Room, error) {
	var model RoomModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Room", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to find room by ID: %w", err)
	}
	return toDomainRoom(&model)
}

// ListAll returns every room ordered by id.
func (r *GormRoomRepository) ListAll(ctx context.Context) ([]*roomDomain.Room, error) {
	var models []RoomModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]*roomDomain.Room, len(models))
	for i := range models {
		rm, err := toDomainRoom(&models[i])
		if err != nil {
			return nil, err
		}
		rooms[i] = rm
	}
	return rooms, nil
}

// --- Mapping functions ---

func toRoomModel(rm *roomDomain.Room) (*RoomModel, error) {
	amenities, err := json.Marshal(rm.Amenities())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal amenities: %w", err)
	}
	return &RoomModel{
		ID:           rm.ID(),
		Name:         rm.Name(),
		Seats:        rm.Seats(),
		Amenities:    amenities,
		PricePerHour: rm.PricePerHour(),
		CreatedAt:    rm.CreatedAt(),
	}, nil
}

func toDomainRoom(m *RoomModel) (*roomDomain.Room, error) {
	var amenities []string
	if len(m.Amenities) > 0 {
		if err := json.Unmarshal(m.Amenities, &amenities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal amenities of room %d: %w", m.ID, err)
		}
	}
	return roomDomain.Reconstruct(m.ID, m.Name, m.Seats, amenities, m.PricePerHour, m.CreatedAt), nil
}
