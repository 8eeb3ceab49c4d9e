package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// StockInvalidator drops cached stock. *service.ProductService implements it.
type StockInvalidator interface {
	InvalidateStock(ctx context.Context, productIDs ...int) error
}

// MessageReader is the part of *kafka.Reader used here.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	products StockInvalidator
	reader   MessageReader
}

func NewConsumer(products StockInvalidator, reader MessageReader) *Consumer {
	return &Consumer{products: products, reader: reader}
}

// StartKafkaConsumer listens for lifecycle events until ctx ends.
func (c *Consumer) StartKafkaConsumer(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info().Msg("Stopping lifecycle event consumer")
				return
			}
			log.Error().Msgf("Error reading message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		c.processMessage(ctx, msg)
	}
}

// processMessage drops cached stock of the products an event moved.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	var event entity.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Msgf("Error unmarshalling message %s: %v", string(msg.Key), err)
		return
	}

	// key -> "order-created-12" or "purchase_order-confirmed-3"
	if !event.Type.MovesStock() {
		log.Debug().Msgf("Ignoring %s event for %d", event.Type, event.AggregateID)
		return
	}
	if len(event.ProductIDs) == 0 {
		return
	}

	if err := c.products.InvalidateStock(ctx, event.ProductIDs...); err != nil {
		log.Error().Msgf("Error invalidating stock for products %v: %v", event.ProductIDs, err)
		return
	}
	log.Info().Msgf("Invalidated cached stock of %v after %s %d", event.ProductIDs, event.Type, event.AggregateID)
}
