package events

import (
	"context"
	"encoding/json"
	"otcsettle/internal/config"
	"otcsettle/internal/domain"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes lifecycle events keyed by entity id, so events of one entity stay ordered.
type KafkaEmitter struct {
	writer messageWriter
}

func (e *KafkaEmitter) Emit(ctx context.Context, event domain.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("event", event.Name).Error("failed to encode event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.EntityID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Name)},
		},
	}
	// the writer is async, errors surface in the completion callback
	if err = e.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":     event.Name,
			"entity_id": event.EntityID,
		}).Error("failed to publish event")
	}
}

func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

func NewKafkaEmitter(cfg config.Kafka) *KafkaEmitter {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            5,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithError(err).WithField("count", len(messages)).Error("failed to deliver events")
			}
		},
	}
	return &KafkaEmitter{writer: writer}
}
