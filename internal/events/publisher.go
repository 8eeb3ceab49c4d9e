package events

import (
	"context"
	"encoding/json"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/segmentio/kafka-go"
)

// Publisher emits lifecycle events after their unit of work committed.
type Publisher interface {
	Publish(ctx context.Context, event entity.Event) error
}

// MessageWriter is the part of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event entity.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// order-created-1, purchase_order-confirmed-3, ...
	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, entity.Event) error {
	return nil
}
