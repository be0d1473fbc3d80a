package events

import (
	"context"
	"time"

	"github.com/hallbook/service-reservation/internal/application"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"github.com/hallbook/service-reservation/internal/platform/kafka"
	"github.com/patrickmn/go-cache"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// processedEventTTL bounds how long a handled event id is remembered for redelivery checks.
const processedEventTTL = 24 * time.Hour

// RoomCreator registers rooms.
type RoomCreator interface {
	CreateRoom(ctx context.Context, req application.CreateRoomRequest) (*application.RoomDTO, error)
}

// RoomCatalogConsumer registers rooms announced on the room catalog topic.
type RoomCatalogConsumer struct {
	consumer   *kafka.Consumer
	service    RoomCreator
	invalidate func()
	processed  *cache.Cache
	logger     *zap.Logger
}

func newProcessedEvents() *cache.Cache {
	return cache.New(processedEventTTL, time.Hour)
}

// NewRoomCatalogConsumer creates a new RoomCatalogConsumer. invalidate, when not nil, runs
// after every room it registers.
func NewRoomCatalogConsumer(
	brokers []string,
	groupID string,
	topic string,
	service RoomCreator,
	invalidate func(),
	logger *zap.Logger,
) *RoomCatalogConsumer {
	return &RoomCatalogConsumer{
		consumer:   kafka.NewConsumer(brokers, groupID, topic, logger),
		service:    service,
		invalidate: invalidate,
		processed:  newProcessedEvents(),
		logger:     logger,
	}
}

// Start begins consuming catalog events. This blocks until the context is cancelled.
func (c *RoomCatalogConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *RoomCatalogConsumer) Close() error {
	return c.consumer.Close()
}

func (c *RoomCatalogConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from catalog topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case application.EventRoomProvisioned:
		return c.handleRoomProvisioned(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled catalog event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *RoomCatalogConsumer) handleRoomProvisioned(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	if roomID, seen := c.processed.Get(cloudEvent.ID); seen {
		c.logger.Info("skipping redelivered catalog event",
			zap.String("event_id", cloudEvent.ID),
			zap.Int64("room_id", roomID.(int64)),
		)
		return nil
	}

	var evt application.RoomProvisionedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RoomProvisionedEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil
	}

	room, err := c.service.CreateRoom(ctx, application.CreateRoomRequest{
		RoomName:     evt.RoomName,
		Seats:        evt.Seats,
		Amenities:    evt.Amenities,
		PricePerHour: evt.PricePerHour,
	})
	if err != nil {
		if apperror.IsValidation(err) {
			c.logger.Warn("rejected provisioned room",
				zap.String("event_id", cloudEvent.ID),
				zap.String("room_name", evt.RoomName),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to register provisioned room",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return err
	}

	c.processed.SetDefault(cloudEvent.ID, room.RoomID)
	if c.invalidate != nil {
		c.invalidate()
	}
	c.logger.Info("room registered from catalog",
		zap.Int64("room_id", room.RoomID),
		zap.String("room_name", room.RoomName),
	)
	return nil
}
