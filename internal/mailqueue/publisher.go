package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishAttempts = 3
	publishBackoff  = 200 * time.Millisecond

	// maxDeliveries bounds how often the broker hands out one job before
	// discarding it.
	maxDeliveries = 5
)

var errNacked = errors.New("broker did not confirm publish")

// channel is one broker channel in confirm mode.
type channel interface {
	publish(ctx context.Context, queue string, msg amqp.Publishing) error
	closed() bool
	Close() error
}

type dialFunc func() (channel, error)

// Publisher enqueues jobs on a durable queue with persistent delivery and
// publisher confirms. A dead connection or channel is redialed on the next
// attempt.
type Publisher struct {
	mu      sync.Mutex
	dial    dialFunc
	ch      channel
	queue   string
	now     func() time.Time
	backoff time.Duration
}

func DialPublisher(url, queue string) (*Publisher, error) {
	p := newPublisher(func() (channel, error) {
		c, err := dialChannel(url, queue)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, queue)

	ch, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return p, nil
}

func newPublisher(dial dialFunc, queue string) *Publisher {
	return &Publisher{dial: dial, queue: queue, now: time.Now, backoff: publishBackoff}
}

func queueArgs() amqp.Table {
	return amqp.Table{
		"x-queue-type":     "quorum",
		"x-delivery-limit": int32(maxDeliveries),
	}
}

func DeclareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		queueArgs(),
	)
	if err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	return nil
}

// Enqueue publishes a job and waits for the broker to confirm it, retrying a
// few times and redialing when the channel is gone.
func (p *Publisher) Enqueue(ctx context.Context, kind string, payload any) error {
	job, err := NewJob(kind, payload, p.now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Type:         job.Kind,
		Timestamp:    job.EnqueuedAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 1; ; attempt++ {
		err = p.publishOnce(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt == publishAttempts {
			return fmt.Errorf("publish %s after %d attempts: %w", kind, attempt, err)
		}
		t := time.NewTimer(time.Duration(attempt) * p.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("publish %s: %w", kind, ctx.Err())
		case <-t.C:
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context, msg amqp.Publishing) error {
	if p.ch != nil && p.ch.closed() {
		p.drop()
	}
	if p.ch == nil {
		ch, err := p.dial()
		if err != nil {
			return fmt.Errorf("redial: %w", err)
		}
		p.ch = ch
	}

	err := p.ch.publish(ctx, p.queue, msg)
	if err != nil && !errors.Is(err, errNacked) {
		// a failed publish may leave the channel closed by the broker
		p.drop()
	}
	return err
}

func (p *Publisher) drop() {
	_ = p.ch.Close()
	p.ch = nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

type amqpChannel struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	connClosed chan *amqp.Error
	chClosed   chan *amqp.Error
}

func dialChannel(url, queue string) (*amqpChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	return &amqpChannel{
		conn:       conn,
		ch:         ch,
		connClosed: conn.NotifyClose(make(chan *amqp.Error, 1)),
		chClosed:   ch.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (c *amqpChannel) publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, msg)
	if err != nil {
		return err
	}
	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNacked
	}
	return nil
}

func (c *amqpChannel) closed() bool {
	select {
	case <-c.connClosed:
		return true
	case <-c.chClosed:
		return true
	default:
		return c.conn.IsClosed()
	}
}

func (c *amqpChannel) Close() error {
	chErr := c.ch.Close()
	connErr := c.conn.Close()
	if chErr != nil && !errors.Is(chErr, amqp.ErrClosed) {
		return chErr
	}
	if connErr != nil && !errors.Is(connErr, amqp.ErrClosed) {
		return connErr
	}
	return nil
}
