// Package amqpqueue implements queue.NoticeSource and queue.UpdateSink over
// RabbitMQ, adapted from the teacher's queue.RabbitMQService
// (queue/rabbit.go and queue/amqp_interface.go): the same dial/channel/
// declare-queue lifecycle, dialing through amqp.Dial directly rather than
// an injected dialer, generalized from a single FlowProcessMessage
// publisher to a bidirectional notices-in/updates-out binding over the
// Externalizer wire codec.
package amqpqueue

import (
	"bytes"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/evalgo/rvpf/codec"
	"github.com/evalgo/rvpf/queue"
	"github.com/evalgo/rvpf/value"
)

// Config names the RabbitMQ URL and the three durable queues this binding
// reads notices from and writes updates and signals to.
type Config struct {
	URL           string
	NoticesQueue  string
	UpdatesQueue  string
	SignalsQueue  string // optional; defaults to UpdatesQueue+".signals"
}

// Queue is a RabbitMQ-backed NoticeSource+UpdateSink pair sharing one
// connection and channel, matching the teacher's one-connection-one-channel
// RabbitMQService shape.
type Queue struct {
	cfg        Config
	connection *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
	out        chan queue.Delivery
	stopChan   chan struct{}
}

// Dial connects to RabbitMQ, declares the notices/updates/signals queues as
// durable, and starts consuming notices.
func Dial(cfg Config) (*Queue, error) {
	if cfg.SignalsQueue == "" {
		cfg.SignalsQueue = cfg.UpdatesQueue + ".signals"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqpqueue: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqpqueue: open channel: %w", err)
	}
	for _, name := range []string{cfg.NoticesQueue, cfg.UpdatesQueue, cfg.SignalsQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("amqpqueue: declare queue %s: %w", name, err)
		}
	}
	deliveries, err := ch.Consume(cfg.NoticesQueue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqpqueue: consume %s: %w", cfg.NoticesQueue, err)
	}

	q := &Queue{
		cfg:        cfg,
		connection: conn,
		channel:    ch,
		deliveries: deliveries,
		out:        make(chan queue.Delivery),
		stopChan:   make(chan struct{}),
	}
	go q.pump()
	return q, nil
}

func (q *Queue) pump() {
	for {
		select {
		case <-q.stopChan:
			return
		case d, ok := <-q.deliveries:
			if !ok {
				close(q.out)
				return
			}
			notice, err := queue.DecodeNotice(d.Body)
			if err != nil {
				d.Nack(false, false)
				continue
			}
			q.out <- queue.Delivery{Notice: notice, Token: d}
		}
	}
}

// Notices implements queue.NoticeSource.
func (q *Queue) Notices() <-chan queue.Delivery { return q.out }

// Ack implements queue.NoticeSource.
func (q *Queue) Ack(d queue.Delivery) error {
	del, ok := d.Token.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("amqpqueue: ack: unexpected token type %T", d.Token)
	}
	return del.Ack(false)
}

// Nack implements queue.NoticeSource.
func (q *Queue) Nack(d queue.Delivery, requeue bool) error {
	del, ok := d.Token.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("amqpqueue: nack: unexpected token type %T", d.Token)
	}
	return del.Nack(false, requeue)
}

// PublishUpdate implements queue.UpdateSink.
func (q *Queue) PublishUpdate(v value.PointValue) error {
	body, err := queue.EncodeNotice(v)
	if err != nil {
		return fmt.Errorf("amqpqueue: encode update: %w", err)
	}
	return q.publish(q.cfg.UpdatesQueue, body)
}

// PublishSignal implements queue.UpdateSink, encoding the signal name and
// info through the same Externalizer codec used for updates.
func (q *Queue) PublishSignal(name string, info any) error {
	var buf bytes.Buffer
	if err := codec.Externalize(&buf, name); err != nil {
		return fmt.Errorf("amqpqueue: encode signal name: %w", err)
	}
	if err := codec.Externalize(&buf, fmt.Sprint(info)); err != nil {
		return fmt.Errorf("amqpqueue: encode signal info: %w", err)
	}
	return q.publish(q.cfg.SignalsQueue, buf.Bytes())
}

// Close implements both queue.NoticeSource and queue.UpdateSink.
func (q *Queue) Close() error {
	close(q.stopChan)
	if q.channel != nil {
		q.channel.Close()
	}
	if q.connection != nil {
		q.connection.Close()
	}
	return nil
}

func (q *Queue) publish(routingKey string, body []byte) error {
	return q.channel.Publish("", routingKey, false, false, amqp.Publishing{
		ContentType: "application/octet-stream",
		Body:        body,
	})
}
