package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/domain"
)

// EventRecorder persists batches of change events to the audit trail
type EventRecorder interface {
	RecordChanges(ctx context.Context, events []domain.ChangeEvent) error
}

// Consumer reads change events from Kafka and records them
type Consumer struct {
	config        *config.KafkaConfig
	recorder      EventRecorder
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, recorder EventRecorder, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		recorder:      recorder,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// messageMarker is the part of a consumer group session that commits offsets
type messageMarker interface {
	MarkMessage(msg *sarama.ConsumerMessage, metadata string)
}

// changeBatch holds decoded events and the messages they came from. Offsets
// are marked only once the events are recorded.
type changeBatch struct {
	events   []domain.ChangeEvent
	messages []*sarama.ConsumerMessage
}

func (b *changeBatch) add(msg *sarama.ConsumerMessage, ev *domain.ChangeEvent) {
	if ev != nil {
		b.events = append(b.events, *ev)
	}
	b.messages = append(b.messages, msg)
}

func (b *changeBatch) size() int {
	return len(b.events)
}

// flush records the pending events and marks their messages. On failure the
// batch is kept so the next flush retries it.
func (b *changeBatch) flush(ctx context.Context, recorder EventRecorder, marker messageMarker) error {
	if len(b.messages) == 0 {
		return nil
	}
	if len(b.events) > 0 {
		if err := recorder.RecordChanges(ctx, b.events); err != nil {
			return err
		}
	}
	for _, msg := range b.messages {
		marker.MarkMessage(msg, "")
	}
	b.events = b.events[:0]
	b.messages = b.messages[:0]
	return nil
}

// ConsumeClaim records change events in batches
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	batch := &changeBatch{events: make([]domain.ChangeEvent, 0, cfg.BatchSize)}
	batchTimer := time.NewTimer(cfg.BatchTimeout)
	defer batchTimer.Stop()

	processBatch := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		size := batch.size()
		if err := batch.flush(ctx, h.consumer.recorder, session); err != nil {
			h.consumer.logger.Error("failed to record change events", "error", err, "batch_size", size)
		} else if size > 0 {
			h.consumer.logger.Debug("recorded change events", "batch_size", size)
		}
	}

	for {
		select {
		case <-session.Context().Done():
			// Process remaining batch before exit
			processBatch()
			return nil

		case <-batchTimer.C:
			processBatch()
			batchTimer.Reset(cfg.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				processBatch()
				return nil
			}

			ev, err := decodeEvent(message.Value)
			if err != nil {
				h.consumer.logger.Warn("skipping invalid change event",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				batch.add(message, nil)
				continue
			}

			batch.add(message, &ev)

			if batch.size() >= cfg.BatchSize {
				processBatch()
				batchTimer.Reset(cfg.BatchTimeout)
			}
		}
	}
}
