package redisqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/rvpf/queue"
	"github.com/evalgo/rvpf/value"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := Dial(context.Background(), Config{
		RedisURL:     "redis://" + mr.Addr(),
		NoticesQueue: "notices",
		UpdatesQueue: "updates",
		DequeueWait:  100 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q, mr
}

func TestDial_DefaultsSignalsQueueAndDequeueWait(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := Dial(context.Background(), Config{RedisURL: "redis://" + mr.Addr(), UpdatesQueue: "updates"})
	require.NoError(t, err)
	defer q.Close()

	assert.Equal(t, "updates:signals", q.cfg.SignalsQueue)
	assert.Equal(t, 5*time.Second, q.cfg.DequeueWait)
	assert.Equal(t, "rvpf:", q.cfg.KeyPrefix)
}

func TestQueue_PublishUpdatePushesEncodedNotice(t *testing.T) {
	q, mr := newTestQueue(t)

	v := value.NewSynthesized(value.RefByName("flow.derived"), time.Now(), 7.0)
	require.NoError(t, q.PublishUpdate(v))

	raw, err := mr.Lpop(q.listKey(q.cfg.UpdatesQueue))
	require.NoError(t, err)

	wire, err := queue.DecodeNotice([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "flow.derived", wire.PointKey)
	assert.Equal(t, 7.0, wire.Value)
}

func TestQueue_PublishSignalPushesNameAndInfo(t *testing.T) {
	q, mr := newTestQueue(t)

	require.NoError(t, q.PublishSignal("progress", 42))

	raw, err := mr.Lpop(q.listKey(q.cfg.SignalsQueue))
	require.NoError(t, err)
	assert.Equal(t, "progress\x0042", raw)
}

func TestQueue_NoticesDeliversPushedNotice(t *testing.T) {
	q, mr := newTestQueue(t)

	v := value.NewSynthesized(value.RefByName("flow.source"), time.Now(), 1.5)
	body, err := queue.EncodeNotice(v)
	require.NoError(t, err)
	mr.Lpush(q.listKey(q.cfg.NoticesQueue), string(body))

	select {
	case d := <-q.Notices():
		assert.Equal(t, "flow.source", d.Notice.PointKey)
		assert.Equal(t, 1.5, d.Notice.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice delivery")
	}
}

func TestQueue_NackRequeueRePushesNotice(t *testing.T) {
	q, mr := newTestQueue(t)

	v := value.NewSynthesized(value.RefByName("flow.source"), time.Now(), 9.0)
	body, err := queue.EncodeNotice(v)
	require.NoError(t, err)
	wire, err := queue.DecodeNotice(body)
	require.NoError(t, err)

	require.NoError(t, q.Nack(queue.Delivery{Notice: wire}, true))

	raw, err := mr.Lpop(q.listKey(q.cfg.NoticesQueue))
	require.NoError(t, err)
	again, err := queue.DecodeNotice([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "flow.source", again.PointKey)
	assert.Equal(t, 9.0, again.Value)
}

func TestQueue_NackWithoutRequeueIsNoop(t *testing.T) {
	q, mr := newTestQueue(t)

	require.NoError(t, q.Nack(queue.Delivery{Notice: queue.WireValue{PointKey: "flow.source"}}, false))

	_, err := mr.Lpop(q.listKey(q.cfg.NoticesQueue))
	assert.Error(t, err, "nothing should have been pushed back when requeue is false")
}

func TestQueue_AckIsAlwaysNoop(t *testing.T) {
	q, _ := newTestQueue(t)
	assert.NoError(t, q.Ack(queue.Delivery{}))
}
