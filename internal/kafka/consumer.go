package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"workhub_backend/internal/config"
	"workhub_backend/internal/notification"
)

// Consumer ingests notification-create commands from a Kafka topic so other
// services can raise notifications without calling the HTTP API. Consumption
// is an optional subsystem: NewConsumer returns (nil, nil) when no brokers
// are configured.
type Consumer struct {
	topic               string
	notificationService notification.Service
	consumerGroup       sarama.ConsumerGroup
	logger              *zap.Logger
}

// NewConsumer constructs the consumer group and the consumer around it.
func NewConsumer(
	cfg *config.Config,
	notificationService notification.Service,
	logger *zap.Logger,
) (*Consumer, error) {
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		logger.Info("Kafka brokers not configured; event-driven notification creation is disabled.")
		return nil, nil
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, cfg.KafkaConsumerGroup, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		topic:               cfg.KafkaTopic,
		notificationService: notificationService,
		consumerGroup:       group,
		logger:              logger.Named("KafkaConsumer"),
	}, nil
}

// Start runs the consume loop until the context is cancelled. Blocks; run it
// on its own goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	defer func() {
		if err := c.consumerGroup.Close(); err != nil {
			c.logger.Warn("Failed to close consumer group", zap.Error(err))
		}
	}()

	c.logger.Info("Kafka consumer started", zap.String("topic", c.topic))

	backoff := 1 * time.Second
	for {
		err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
		if err != nil {
			c.logger.Error("Error consuming messages", zap.Error(err))

			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return err
			}

			// Back off on transient errors.
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		if ctx.Err() != nil {
			c.logger.Info("Context cancelled, stopping consumer")
			return ctx.Err()
		}
	}
}

// Setup is called once when a new consumer session starts.
func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	for topic, partitions := range session.Claims() {
		c.logger.Info("Partition assignment",
			zap.String("topic", topic),
			zap.Int32s("partitions", partitions),
		)
	}
	return nil
}

// Cleanup is called once when the consumer session ends.
func (c *Consumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	c.logger.Info("Kafka session cleanup complete")
	return nil
}

// ConsumeClaim processes one partition's messages. Each message is a
// CreateNotificationRequest; malformed messages are committed and skipped so
// they cannot wedge the partition.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		c.logger.Debug("Message received",
			zap.String("topic", message.Topic),
			zap.Int32("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)

		var req notification.CreateNotificationRequest
		if err := json.Unmarshal(message.Value, &req); err != nil {
			c.logger.Error("Failed to decode notification command, skipping", zap.Error(err))
			session.MarkMessage(message, "")
			continue
		}

		if _, err := c.notificationService.CreateNotification(session.Context(), req); err != nil {
			c.logger.Error("Notification creation from Kafka command failed", zap.Error(err))
			continue
		}

		session.MarkMessage(message, "")
	}
	return nil
}
