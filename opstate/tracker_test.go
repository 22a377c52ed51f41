package opstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_StartComplete(t *testing.T) {
	tr := New(Config{MaxBatches: 10})

	b := tr.Start("batch-1", 3, map[string]interface{}{"driver": "amqp"})
	require.NotNil(t, b)
	assert.Equal(t, StatusRunning, b.Status)
	assert.Equal(t, 3, b.NoticeCount)

	tr.Complete("batch-1", 2, nil)
	got := tr.Get("batch-1")
	require.NotNil(t, got)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 2, got.UpdateCount)
	assert.NotNil(t, got.CompletedAt)
}

func TestTracker_CompleteWithError(t *testing.T) {
	tr := New(Config{MaxBatches: 10})
	tr.Start("batch-err", 1, nil)
	tr.Complete("batch-err", 0, errors.New("boom"))

	got := tr.Get("batch-err")
	require.NotNil(t, got)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestTracker_CompleteUnknownIsNoop(t *testing.T) {
	tr := New(Config{MaxBatches: 10})
	tr.Complete("does-not-exist", 1, nil)
	assert.Nil(t, tr.Get("does-not-exist"))
}

func TestTracker_EvictsOldestAtCapacity(t *testing.T) {
	tr := New(Config{MaxBatches: 2})
	tr.Start("first", 1, nil)
	tr.Start("second", 1, nil)
	tr.Start("third", 1, nil)

	assert.Nil(t, tr.Get("first"), "oldest batch should have been evicted")
	assert.NotNil(t, tr.Get("second"))
	assert.NotNil(t, tr.Get("third"))
	assert.Len(t, tr.List(), 2)
}

func TestTracker_Stats(t *testing.T) {
	tr := New(Config{MaxBatches: 10})
	tr.Start("a", 1, nil)
	tr.Start("b", 1, nil)
	tr.Complete("a", 1, nil)
	tr.Complete("b", 0, errors.New("fail"))

	stats := tr.Stats()
	assert.Equal(t, 2, stats.TotalBatches)
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[StatusFailed])
}

func TestTracker_DefaultsCapacity(t *testing.T) {
	tr := New(Config{})
	assert.Equal(t, 1000, tr.maxBatches)
}
