package rabbitmq

import (
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	VHost         string
	Exchange      string
	Queue         string
	RoutingKey    string
	RetryAttempts int
	RetryInterval time.Duration
	Heartbeat     time.Duration
	PrefetchCount int
}

// Client represents a RabbitMQ client scoped to one queue
type Client struct {
	config  *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewClient connects to RabbitMQ with retry and declares the queue
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}
	return client, nil
}

func (c *Client) connect() error {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqp.Config{
			Heartbeat: c.config.Heartbeat,
			Locale:    "en_US",
		})
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)
		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.setup(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	c.logger.Info("Successfully connected to RabbitMQ",
		slog.String("queue", c.config.Queue),
	)
	return nil
}

// setup declares the queue and, when an exchange is configured, binds the
// queue to it under the routing key.
func (c *Client) setup() error {
	if _, err := c.channel.QueueDeclare(
		c.config.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	if c.config.Exchange == "" {
		return nil
	}

	if err := c.channel.ExchangeDeclare(
		c.config.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := c.channel.QueueBind(
		c.config.Queue,
		c.config.RoutingKey,
		c.config.Exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

// Consume starts delivering messages from the queue with manual acks
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	prefetch := c.config.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.config.Queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return deliveries, nil
}

// Close closes the channel and connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("Failed to close channel", slog.Any("error", err))
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
