package application

import (
	"context"
	"strconv"
	"time"

	"github.com/hallbook/service-reservation/internal/platform/kafka"
	"go.uber.org/zap"
)

// EventSource is the CloudEvent source of everything this service publishes.
const EventSource = "service-reservation"

// Event types.
const (
	EventRoomCreated     = "room.created"
	EventBookingCreated  = "booking.created"
	EventRoomProvisioned = "room.provisioned"
)

// RoomCreatedEvent is published after a room is stored.
type RoomCreatedEvent struct {
	RoomID       int64     `json:"roomID"`
	RoomName     string    `json:"roomName"`
	Seats        int       `json:"seats"`
	Amenities    []string  `json:"amenities"`
	PricePerHour float64   `json:"pricePerHour"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// BookingCreatedEvent is published after a booking is stored.
type BookingCreatedEvent struct {
	BookingID    int64     `json:"bookingID"`
	RoomID       int64     `json:"roomID"`
	RoomName     string    `json:"roomName"`
	CustomerName string    `json:"customerName"`
	DateStart    time.Time `json:"dateStart"`
	DateEnd      time.Time `json:"dateEnd"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// RoomProvisionedEvent is consumed from the room catalog topic.
type RoomProvisionedEvent struct {
	RoomName     string   `json:"roomName"`
	Seats        int      `json:"seats"`
	Amenities    []string `json:"amenities"`
	PricePerHour float64  `json:"pricePerHour"`
}

// eventPublisher publishes best-effort: failures are logged, never returned.
type eventPublisher struct {
	publisher kafka.Publisher
	topic     string
	logger    *zap.Logger
}

func (p eventPublisher) publishEvent(ctx context.Context, eventType string, key int64, data any) {
	if p.publisher == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(EventSource, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = strconv.FormatInt(key, 10)

	if err := p.publisher.PublishEvent(ctx, p.topic, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", p.topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
