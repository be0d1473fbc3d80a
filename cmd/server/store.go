package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hallbook/service-reservation/internal/config"
	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/database"
	"github.com/hallbook/service-reservation/internal/platform/health"
	"github.com/hallbook/service-reservation/internal/repository"
	"go.uber.org/zap"
)

// store is the repository pair selected by STORE_DRIVER.
type store struct {
	rooms    roomDomain.RoomRepository
	bookings bookingDomain.BookingRepository
	pinger   health.Pinger
	close    func() error
}

func openStore(cfg *config.ServiceConfig, log *zap.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := repository.NewMemoryStore()
		log.Warn("using in-memory store, data is lost on restart")
		return &store{
			rooms:    mem.Rooms(),
			bookings: mem.Bookings(),
			pinger:   mem,
			close:    func() error { return nil },
		}, nil

	case config.StorePostgres:
		dbConfig := database.PostgresConfig{
			Host:     cfg.DBConfig.Host,
			Port:     cfg.DBConfig.Port,
			User:     cfg.DBConfig.User,
			Password: cfg.DBConfig.Password,
			DBName:   cfg.DBConfig.DBName,
			SSLMode:  cfg.DBConfig.SSLMode,
		}
		db, err := database.Connect(dbConfig, log)
		if err != nil {
			return nil, err
		}
		if cfg.IsDevelopment() {
			if err := repository.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("failed to run auto-migration: %w", err)
			}
			log.Info("database migration completed (dev auto-migrate)")
		} else if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			return nil, err
		}
		pinger := database.NewPinger(db)
		return &store{
			rooms:    repository.NewGormRoomRepository(db),
			bookings: repository.NewGormBookingRepository(db),
			pinger:   pinger,
			close:    pinger.Close,
		}, nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		if err := repository.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to run auto-migration: %w", err)
		}
		pinger := database.NewPinger(db)
		return &store{
			rooms:    repository.NewGormRoomRepository(db),
			bookings: repository.NewGormBookingRepository(db),
			pinger:   pinger,
			close:    pinger.Close,
		}, nil

	case config.StoreMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		mongoStore, err := repository.NewMongoStore(ctx, cfg.MongoConfig.URI, cfg.MongoConfig.Database, cfg.MongoConfig.LockTTL, log)
		if err != nil {
			return nil, err
		}
		return &store{
			rooms:    mongoStore.Rooms(),
			bookings: mongoStore.Bookings(),
			pinger:   mongoStore,
			close: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return mongoStore.Close(ctx)
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
