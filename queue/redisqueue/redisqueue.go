// Package redisqueue implements queue.NoticeSource and queue.UpdateSink
// over Redis lists, adapted from the teacher's redis.Queue
// (queue/redis/queue.go): the same BLPop-blocking-dequeue/RPush-enqueue
// list shape and key-prefix convention, generalized from a job-ID struct to
// Externalizer-encoded notices and updates.
package redisqueue

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evalgo/rvpf/queue"
	"github.com/evalgo/rvpf/value"
)

// Config configures the Redis connection and the list keys used for
// notices, updates, and signals.
type Config struct {
	RedisURL     string // defaults to RVPF_REDIS_URL or redis://localhost:6379/0
	KeyPrefix    string // defaults to "rvpf:"
	NoticesQueue string
	UpdatesQueue string
	SignalsQueue string // defaults to UpdatesQueue+":signals"
	DequeueWait  time.Duration // BLPop timeout per poll; defaults to 5s
}

// Queue is a Redis-backed NoticeSource+UpdateSink pair.
type Queue struct {
	client *redis.Client
	cfg    Config
	out    chan queue.Delivery
	stop   chan struct{}
}

// Dial connects to Redis and starts a background poller pushing decoded
// notices onto the NoticeSource channel.
func Dial(ctx context.Context, cfg Config) (*Queue, error) {
	url := cfg.RedisURL
	if url == "" {
		url = os.Getenv("RVPF_REDIS_URL")
	}
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rvpf:"
	}
	if cfg.SignalsQueue == "" {
		cfg.SignalsQueue = cfg.UpdatesQueue + ":signals"
	}
	if cfg.DequeueWait <= 0 {
		cfg.DequeueWait = 5 * time.Second
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisqueue: connect: %w", err)
	}

	q := &Queue{
		client: client,
		cfg:    cfg,
		out:    make(chan queue.Delivery),
		stop:   make(chan struct{}),
	}
	go q.pump()
	return q, nil
}

func (q *Queue) listKey(name string) string { return q.cfg.KeyPrefix + name }

func (q *Queue) pump() {
	for {
		select {
		case <-q.stop:
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), q.cfg.DequeueWait)
		result, err := q.client.BLPop(ctx, q.cfg.DequeueWait, q.listKey(q.cfg.NoticesQueue)).Result()
		cancel()
		if err == redis.Nil || len(result) < 2 {
			continue
		}
		if err != nil {
			continue
		}
		notice, err := queue.DecodeNotice([]byte(result[1]))
		if err != nil {
			continue
		}
		select {
		case q.out <- queue.Delivery{Notice: notice, Token: nil}:
		case <-q.stop:
			return
		}
	}
}

// Notices implements queue.NoticeSource.
func (q *Queue) Notices() <-chan queue.Delivery { return q.out }

// Ack implements queue.NoticeSource: Redis' BLPop already removed the
// element, so Ack is a no-op (matching the teacher's CompleteJob being a
// separate, optional processing-set bookkeeping step, not a redelivery
// mechanism for this list-based queue).
func (q *Queue) Ack(d queue.Delivery) error { return nil }

// Nack re-enqueues the raw notice for redelivery when requeue is true.
func (q *Queue) Nack(d queue.Delivery, requeue bool) error {
	if !requeue {
		return nil
	}
	ref := value.RefByName(d.Notice.PointKey)
	if d.Notice.ByUUID {
		if id, err := uuid.Parse(d.Notice.PointKey); err == nil {
			ref = value.RefByUUID(id)
		}
	}
	body, err := queue.EncodeNotice(d.Notice.Resolve(ref))
	if err != nil {
		return fmt.Errorf("redisqueue: re-encode for requeue: %w", err)
	}
	return q.client.RPush(context.Background(), q.listKey(q.cfg.NoticesQueue), body).Err()
}

// Close implements both queue.NoticeSource and queue.UpdateSink.
func (q *Queue) Close() error {
	close(q.stop)
	return q.client.Close()
}

// PublishUpdate implements queue.UpdateSink.
func (q *Queue) PublishUpdate(v value.PointValue) error {
	body, err := queue.EncodeNotice(v)
	if err != nil {
		return fmt.Errorf("redisqueue: encode update: %w", err)
	}
	return q.client.RPush(context.Background(), q.listKey(q.cfg.UpdatesQueue), body).Err()
}

// PublishSignal implements queue.UpdateSink by pushing a small encoded
// "name\x00info" record onto the signals list.
func (q *Queue) PublishSignal(name string, info any) error {
	line := fmt.Sprintf("%s\x00%v", name, info)
	return q.client.RPush(context.Background(), q.listKey(q.cfg.SignalsQueue), line).Err()
}

