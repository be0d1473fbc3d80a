package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	retryMin = 200 * time.Millisecond
	retryMax = 30 * time.Second
)

// MessageHandler processes one message. A nil return commits the offset.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// messageReader is the part of *kafkago.Reader the consumer loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads a topic as a member of a consumer group.
type Consumer struct {
	reader   messageReader
	logger   *zap.Logger
	retryMin time.Duration
	retryMax time.Duration
}

// NewConsumer creates a Consumer for topic within groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafkago.FirstOffset,
		CommitInterval: 0,
	})
	return newConsumer(reader, logger.With(zap.String("topic", topic)))
}

func newConsumer(reader messageReader, logger *zap.Logger) *Consumer {
	return &Consumer{reader: reader, logger: logger, retryMin: retryMin, retryMax: retryMax}
}

// Consume fetches messages until ctx is cancelled. A message whose handler fails is
// retried with backoff and its offset is not committed until the handler succeeds, so a
// partition never moves past it.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.handleWithRetry(ctx, handler, msg); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

// handleWithRetry returns nil once handler succeeds, or ctx.Err() when ctx ends first.
func (c *Consumer) handleWithRetry(ctx context.Context, handler MessageHandler, msg kafkago.Message) error {
	wait := c.retryMin
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.Error("failed to handle message, retrying",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > c.retryMax {
			wait = c.retryMax
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
