package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/talentbase/candidate-gateway/internal/store"
	"github.com/talentbase/candidate-gateway/shared/rabbitmq"
)

// ErrInvalidReport is returned for status reports that fail validation.
// Invalid reports are dropped without a store write.
var ErrInvalidReport = errors.New("invalid status report")

// report mirrors the HTTP callback body; the external automation service
// publishes the same JSON to the queue.
type report struct {
	RequestID string          `json:"requestId"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

// Consumer is the AMQP inbound reporter channel: it consumes status reports
// from a queue and applies them to the correlation store with the same
// validation as the HTTP callback endpoint.
type Consumer struct {
	store       store.Store
	client      *rabbitmq.Client
	logger      *slog.Logger
	consumerTag string
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewConsumer creates a consumer over an established RabbitMQ client.
func NewConsumer(st store.Store, client *rabbitmq.Client, consumerTag string, logger *slog.Logger) *Consumer {
	return &Consumer{
		store:       st,
		client:      client,
		consumerTag: consumerTag,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins consuming status reports.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.client.Consume(c.consumerTag)
	if err != nil {
		return fmt.Errorf("failed to start report consumer: %w", err)
	}

	c.logger.Info("AMQP reporter started",
		slog.String("consumer_tag", c.consumerTag),
	)

	c.wg.Add(1)
	go c.run(ctx, deliveries)
	return nil
}

// Stop stops the consume loop and waits for it to drain.
func (c *Consumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("AMQP reporter stopped")
}

func (c *Consumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopChan:
			return

		case <-ctx.Done():
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			err := c.process(ctx, delivery.Body)
			switch {
			case errors.Is(err, ErrInvalidReport):
				// Malformed reports go to the DLQ, not back on the queue.
				c.logger.Error("Dropping invalid status report",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				c.nack(delivery, false)

			case errors.Is(err, store.ErrTerminalState):
				c.logger.Warn("Status report rejected, record already terminal")
				c.ack(delivery)

			case err != nil:
				// Store write failed, likely transient; requeue.
				c.logger.Error("Failed to record status report",
					slog.String("error", err.Error()),
				)
				c.nack(delivery, true)

			default:
				c.ack(delivery)
			}
		}
	}
}

// process validates one report and applies it to the store.
func (c *Consumer) process(ctx context.Context, body []byte) error {
	var rep report
	if err := json.Unmarshal(body, &rep); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if rep.RequestID == "" || rep.Status == "" {
		return fmt.Errorf("%w: requestId and status are required", ErrInvalidReport)
	}
	if !store.IsValidStatus(rep.Status) {
		return fmt.Errorf("%w: unrecognized status %q", ErrInvalidReport, rep.Status)
	}

	if err := c.store.SetStatus(ctx, rep.RequestID, store.Update{
		Status:  rep.Status,
		Message: rep.Message,
		Data:    rep.Data,
	}); err != nil {
		return err
	}

	c.logger.Info("Status reported via AMQP",
		slog.String("request_id", rep.RequestID),
		slog.String("status", rep.Status),
	)
	return nil
}

func (c *Consumer) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("Failed to ACK message", slog.String("error", err.Error()))
	}
}

func (c *Consumer) nack(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		c.logger.Error("Failed to NACK message", slog.String("error", err.Error()))
	}
}
