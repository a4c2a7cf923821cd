package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/domain"
)

// Producer publishes document change events
type Producer struct {
	config   *config.KafkaConfig
	producer sarama.SyncProducer
	logger   *slog.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg *config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Retry.Backoff = cfg.RetryDelay
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}

	logger.Info("Kafka producer ready", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &Producer{
		config:   cfg,
		producer: producer,
		logger:   logger,
	}, nil
}

// Publish sends one event, keyed by document id so changes to the same
// document stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	msg, err := newMessage(p.config.Topic, ev)
	if err != nil {
		return err
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("sending change event: %w", err)
	}
	p.logger.Debug("published change event",
		"collection", ev.Collection,
		"document_id", ev.DocumentID,
		"action", ev.Action,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}

func newMessage(topic string, ev domain.ChangeEvent) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshaling change event: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(ev.DocumentID),
		Value: sarama.ByteEncoder(data),
	}, nil
}

// decodeEvent parses a message value, rejecting events without a target document.
func decodeEvent(value []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("unmarshaling change event: %w", err)
	}
	if ev.Collection == "" || ev.DocumentID == "" {
		return domain.ChangeEvent{}, fmt.Errorf("change event missing collection or document id")
	}
	switch ev.Action {
	case domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete:
	default:
		return domain.ChangeEvent{}, fmt.Errorf("change event has unknown action %q", ev.Action)
	}
	return ev, nil
}
