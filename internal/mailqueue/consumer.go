package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"gobarber/backend/internal/metrics"
)

const defaultRequeueDelay = 2 * time.Second

// ErrPermanent marks a job that will never succeed; it is dropped instead of requeued.
var ErrPermanent = errors.New("permanent mail job failure")

type Handler func(ctx context.Context, job Job) error

type Consumer struct {
	handlers     map[string]Handler
	log          *slog.Logger
	metrics      *metrics.Metrics
	timeout      time.Duration
	requeueDelay time.Duration
}

func NewConsumer(log *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Consumer{
		handlers:     make(map[string]Handler),
		log:          log.With(slog.String("component", "mail_consumer")),
		metrics:      m,
		timeout:      timeout,
		requeueDelay: defaultRequeueDelay,
	}
}

func (c *Consumer) Register(kind string, h Handler) {
	c.handlers[kind] = h
}

// Subscribe sets prefetch and starts a manual-ack consumer on queue.
func Subscribe(ch *amqp.Channel, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("qos: %w", err)
		}
	}
	if err := DeclareQueue(ch, queue); err != nil {
		return nil, err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return msgs, nil
}

// Run handles deliveries until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		c.log.Error("malformed mail job dropped", slog.Any("err", err), slog.String("message_id", d.MessageId))
		c.metrics.MailJob("dropped")
		_ = d.Nack(false, false)
		return
	}

	log := c.log.With(slog.String("job_id", job.ID), slog.String("kind", job.Kind))

	h, ok := c.handlers[job.Kind]
	if !ok {
		log.Error("no handler for mail job kind; dropping")
		c.metrics.MailJob("dropped")
		_ = d.Nack(false, false)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	err := h(hctx, job)
	cancel()

	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Warn("ack failed", slog.Any("err", ackErr))
		}
		c.metrics.MailJob("sent")
		log.Info("mail job done")
	case errors.Is(err, ErrPermanent):
		log.Error("mail job failed permanently; dropping", slog.Any("err", err))
		c.metrics.MailJob("dropped")
		_ = d.Nack(false, false)
	case deliveryCount(d)+1 >= maxDeliveries:
		log.Error("mail job out of retries; dropping", slog.Any("err", err), slog.Int64("deliveries", deliveryCount(d)+1))
		c.metrics.MailJob("dropped")
		_ = d.Nack(false, false)
	default:
		log.Warn("mail job failed; requeueing", slog.Any("err", err), slog.Bool("redelivered", d.Redelivered))
		c.metrics.MailJob("requeued")
		c.pause(ctx)
		_ = d.Nack(false, true)
	}
}

// pause holds a failed job briefly so a broken downstream is not hammered.
func (c *Consumer) pause(ctx context.Context) {
	if c.requeueDelay <= 0 {
		return
	}
	t := time.NewTimer(c.requeueDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// deliveryCount reads the quorum queue's x-delivery-count header, which is
// absent on the first delivery.
func deliveryCount(d amqp.Delivery) int64 {
	switch v := d.Headers["x-delivery-count"].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}
