package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// exclusionViolation is the Postgres SQLSTATE raised by the bookings_no_overlap constraint.
const exclusionViolation = "23P01"

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	RoomID       int64     `gorm:"not null;index"`
	CustomerName string    `gorm:"not null;size:200;index"`
	DateStart    time.Time `gorm:"not null"`
	DateEnd      time.Time `gorm:"not null"`
	Status       string    `gorm:"not null;size:20"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Reserve runs the overlap check and insert in one transaction. On Postgres the room row is
// locked FOR UPDATE so concurrent reservations for the same room queue behind each other;
// SQLite serialises writers on its own.
func (r *GormBookingRepository) Reserve(
	ctx context.Context,
	draft *bookingDomain.Booking,
	check bookingDomain.CheckFunc,
) (*bookingDomain.Booking, error) {
	var saved *bookingDomain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomQuery := tx.Where("id = ?", draft.RoomID())
		if tx.Dialector.Name() == "postgres" {
			roomQuery = roomQuery.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var room RoomModel
		if err := roomQuery.First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NewNotFoundError("Room", strconv.FormatInt(draft.RoomID(), 10))
			}
			return fmt.Errorf("failed to lock room: %w", err)
		}

		var models []BookingModel
		if err := tx.Where("room_id = ?", draft.RoomID()).Order("id ASC").Find(&models).Error; err != nil {
			return fmt.Errorf("failed to load room bookings: %w", err)
		}
		if check != nil {
			existing, err := toDomainBookings(models)
			if err != nil {
				return err
			}
			if err := check(existing); err != nil {
				return err
			}
		}

		model := toBookingModel(draft)
		if err := tx.Create(model).Error; err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
				return apperror.NewBookingConflictError(bookingDomain.ConflictMessage)
			}
			return fmt.Errorf("failed to save booking: %w", err)
		}
		var err error
		saved, err = toDomainBooking(model)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ListAll returns every booking in creation order.
func (r *GormBookingRepository) ListAll(ctx context.Context) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toDomainBookings(models)
}

// FindByRoomID returns a room's bookings in creation order.
func (r *GormBookingRepository) FindByRoomID(ctx context.Context, roomID int64) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find room bookings: %w", err)
	}
	return toDomainBookings(models)
}

// FindByCustomer returns bookings made under exactly customerName.
func (r *GormBookingRepository) FindByCustomer(ctx context.Context, customerName string) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("customer_name = ?", customerName).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find customer bookings: %w", err)
	}
	return toDomainBookings(models)
}

// CountByRoom returns booking counts grouped by room id.
func (r *GormBookingRepository) CountByRoom(ctx context.Context) (map[int64]int64, error) {
	type roomCount struct {
		RoomID int64
		Count  int64
	}
	var results []roomCount
	if err := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Select("room_id, COUNT(*) as count").
		Group("room_id").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count bookings by room: %w", err)
	}

	counts := make(map[int64]int64, len(results))
	for _, rc := range results {
		counts[rc.RoomID] = rc.Count
	}
	return counts, nil
}

// --- Mapping functions ---

func toBookingModel(b *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:           b.ID(),
		RoomID:       b.RoomID(),
		CustomerName: b.CustomerName(),
		DateStart:    b.DateStart(),
		DateEnd:      b.DateEnd(),
		Status:       b.Status().String(),
		CreatedAt:    b.CreatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", m.ID, err)
	}
	return bookingDomain.ReconstructBooking(
		m.ID,
		m.RoomID,
		m.CustomerName,
		m.DateStart,
		m.DateEnd,
		status,
		m.CreatedAt,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		b, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = b
	}
	return bookings, nil
}
