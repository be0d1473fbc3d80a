package repository

import (
	"context"
	"testing"
	"time"

	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func mustRoom(t *testing.T, name string) *roomDomain.Room {
	t.Helper()
	rm, err := roomDomain.NewRoom(name, 10, []string{"Projector", "Whiteboard"}, 20)
	require.NoError(t, err)
	return rm
}

func mustBooking(t *testing.T, roomID int64, customer string, start, end time.Time) *bookingDomain.Booking {
	t.Helper()
	b, err := bookingDomain.NewBooking(roomID, customer, start, end)
	require.NoError(t, err)
	return b
}

func reserve(ctx context.Context, repo bookingDomain.BookingRepository, b *bookingDomain.Booking) (*bookingDomain.Booking, error) {
	return repo.Reserve(ctx, b, b.CheckAvailability)
}

// runStoreContract exercises behaviour every RoomRepository/BookingRepository pair must share.
func runStoreContract(t *testing.T, newStores func(t *testing.T) (roomDomain.RoomRepository, bookingDomain.BookingRepository)) {
	t.Run("room ids are fresh and fields round-trip", func(t *testing.T) {
		rooms, _ := newStores(t)
		ctx := context.Background()

		first, err := rooms.Save(ctx, mustRoom(t, "Hall A"))
		require.NoError(t, err)
		second, err := rooms.Save(ctx, mustRoom(t, "Hall B"))
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.ID())
		assert.Greater(t, second.ID(), first.ID())

		got, err := rooms.FindByID(ctx, first.ID())
		require.NoError(t, err)
		assert.Equal(t, "Hall A", got.Name())
		assert.Equal(t, 10, got.Seats())
		assert.Equal(t, []string{"Projector", "Whiteboard"}, got.Amenities())
		assert.Equal(t, 20.0, got.PricePerHour())

		all, err := rooms.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Hall A", all[0].Name())
		assert.Equal(t, "Hall B", all[1].Name())
	})

	t.Run("unknown room is not found", func(t *testing.T) {
		rooms, bookings := newStores(t)
		ctx := context.Background()

		_, err := rooms.FindByID(ctx, 99)
		assert.True(t, apperror.IsNotFound(err))

		_, err = reserve(ctx, bookings, mustBooking(t, 99, "Alice", at(10, 0), at(11, 0)))
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("overlap is rejected and touching ranges coexist", func(t *testing.T) {
		rooms, bookings := newStores(t)
		ctx := context.Background()

		hall, err := rooms.Save(ctx, mustRoom(t, "Hall A"))
		require.NoError(t, err)

		alice, err := reserve(ctx, bookings, mustBooking(t, hall.ID(), "Alice", at(10, 0), at(11, 0)))
		require.NoError(t, err)
		assert.Equal(t, int64(1), alice.ID())
		assert.Equal(t, bookingDomain.StatusBooked, alice.Status())

		_, err = reserve(ctx, bookings, mustBooking(t, hall.ID(), "Bob", at(10, 30), at(11, 30)))
		assert.True(t, apperror.IsBookingConflict(err))

		carol, err := reserve(ctx, bookings, mustBooking(t, hall.ID(), "Carol", at(11, 0), at(12, 0)))
		require.NoError(t, err)
		assert.Greater(t, carol.ID(), alice.ID())

		forRoom, err := bookings.FindByRoomID(ctx, hall.ID())
		require.NoError(t, err)
		require.Len(t, forRoom, 2)
		assert.Equal(t, "Alice", forRoom[0].CustomerName())
		assert.Equal(t, "Carol", forRoom[1].CustomerName())
		assert.True(t, at(11, 0).Equal(forRoom[1].DateStart()))
		assert.True(t, at(12, 0).Equal(forRoom[1].DateEnd()))
	})

	t.Run("different rooms do not conflict", func(t *testing.T) {
		rooms, bookings := newStores(t)
		ctx := context.Background()

		a, err := rooms.Save(ctx, mustRoom(t, "Hall A"))
		require.NoError(t, err)
		b, err := rooms.Save(ctx, mustRoom(t, "Hall B"))
		require.NoError(t, err)

		_, err = reserve(ctx, bookings, mustBooking(t, a.ID(), "Alice", at(10, 0), at(11, 0)))
		require.NoError(t, err)
		_, err = reserve(ctx, bookings, mustBooking(t, b.ID(), "Alice", at(10, 0), at(11, 0)))
		require.NoError(t, err)

		counts, err := bookings.CountByRoom(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int64{a.ID(): 1, b.ID(): 1}, counts)
	})

	t.Run("customer lookup is exact", func(t *testing.T) {
		rooms, bookings := newStores(t)
		ctx := context.Background()

		hall, err := rooms.Save(ctx, mustRoom(t, "Hall A"))
		require.NoError(t, err)
		_, err = reserve(ctx, bookings, mustBooking(t, hall.ID(), "Alice", at(10, 0), at(11, 0)))
		require.NoError(t, err)
		_, err = reserve(ctx, bookings, mustBooking(t, hall.ID(), "alice", at(12, 0), at(13, 0)))
		require.NoError(t, err)

		got, err := bookings.FindByCustomer(ctx, "Alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Alice", got[0].CustomerName())

		none, err := bookings.FindByCustomer(ctx, "Mallory")
		require.NoError(t, err)
		assert.Empty(t, none)

		all, err := bookings.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}
