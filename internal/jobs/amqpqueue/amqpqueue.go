// Package amqpqueue carries job messages over RabbitMQ so that tasks
// submitted by the API are executed by a separate worker process.
package amqpqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"budgetapp/internal/jobs"
	"budgetapp/internal/logger"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Client is a jobs.Dispatcher and jobs.Consumer over a durable direct exchange.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	prefetch     int

	mu       sync.Mutex
	wg       sync.WaitGroup
	consumer string
}

// NewClient dials url and declares the exchange, queue and binding.
// prefetch bounds unacknowledged deliveries handed to this consumer.
func NewClient(url, exchangeName, queueName string, prefetch int) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if prefetch < 1 {
		prefetch = 1
	}
	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		prefetch:     prefetch,
	}

	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key equals the queue name for a direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return c.channel.Qos(c.prefetch, 0, false)
}

// Dispatch publishes msg as a persistent JSON message.
func (c *Client) Dispatch(ctx context.Context, msg jobs.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Type:         string(msg.Kind),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	logger.Get().Infow("Published job message", "task_id", msg.TaskID, "exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

// Start consumes with manual acknowledgement. Messages are processed one at
// a time per delivery goroutine, up to the prefetch limit.
func (c *Client) Start(ctx context.Context, handler jobs.MessageHandler) error {
	c.mu.Lock()
	c.consumer = "budgetapp-worker-" + uuid.NewString()
	consumer := c.consumer
	deliveries, err := c.channel.Consume(
		c.queueName, // queue
		consumer,    // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger.Get().Infow("Started consuming job messages", "queue", c.queueName, "prefetch", c.prefetch)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, deliveries, handler)
	}()
	return nil
}

// consume runs each delivery on its own goroutine, at most prefetch at a time.
// A delivery that cannot get a slot before ctx ends goes back to the queue.
func (c *Client) consume(ctx context.Context, deliveries <-chan amqp091.Delivery, handler jobs.MessageHandler) {
	sem := make(chan struct{}, c.prefetch)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			}
			c.wg.Add(1)
			go func(d amqp091.Delivery) {
				defer c.wg.Done()
				defer func() { <-sem }()
				c.handle(ctx, d, handler)
			}(d)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler jobs.MessageHandler) {
	log := logger.Get()

	var msg jobs.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.TaskID == "" {
		log.Errorw("Dropping malformed job message", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, msg); err != nil {
		log.Errorw("Failed to handle job message", "task_id", msg.TaskID, "error", err)
		_ = d.Nack(false, true) // reject and requeue
		return
	}
	_ = d.Ack(false)
}

// Stop cancels the consumer and waits for in-flight deliveries.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.consumer != "" {
		if err := c.channel.Cancel(c.consumer, false); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("cancel consumer: %w", err)
		}
		c.consumer = ""
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel and connection and returns the first error.
func (c *Client) Close() error {
	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = fmt.Errorf("close channel: %w", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection: %w", err)
		}
	}
	return firstErr
}

var _ jobs.Dispatcher = (*Client)(nil)
var _ jobs.Consumer = (*Client)(nil)
