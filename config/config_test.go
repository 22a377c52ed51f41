package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsAndLoad_AppliesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	BindFlags(cmd)

	cfg := Load()
	assert.Equal(t, "amqp", cfg.Queue.Driver)
	assert.Equal(t, "rvpf.notices", cfg.Queue.NoticesQueue)
	assert.Equal(t, "rvpf.updates", cfg.Queue.UpdatesQueue)
	assert.Equal(t, 6, cfg.Batch.MaxSplitDepth)
	assert.Equal(t, 4, cfg.Batch.WorkerCount)
	assert.Equal(t, 1000, cfg.State.Capacity)
	assert.Equal(t, ":8089", cfg.State.HTTPAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestBindFlagsAndLoad_FlagOverridesDefault(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	BindFlags(cmd)
	require.NoError(t, cmd.PersistentFlags().Set("queue-driver", "redis"))
	require.NoError(t, cmd.PersistentFlags().Set("batch-max-memory", "500"))

	cfg := Load()
	assert.Equal(t, "redis", cfg.Queue.Driver)
	assert.Equal(t, 500, cfg.Batch.MaxMemory)
}

func TestCheck_PassesForCompleteValidConfig(t *testing.T) {
	cfg := Config{
		Queue: QueueConfig{Driver: "amqp", URL: "amqp://localhost", NoticesQueue: "n", UpdatesQueue: "u"},
		Batch: BatchConfig{WorkerCount: 2},
		State: StateConfig{Capacity: 10},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
	assert.NoError(t, Check(cfg))
}

func TestCheck_CollectsEveryViolation(t *testing.T) {
	cfg := Config{
		Queue: QueueConfig{Driver: "carrier-pigeon"},
		Batch: BatchConfig{WorkerCount: 0},
		State: StateConfig{Capacity: 0},
		Log:   LogConfig{Level: "verbose", Format: "xml"},
	}
	err := Check(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "queue.driver")
	assert.Contains(t, msg, "queue.url")
	assert.Contains(t, msg, "queue.notices_queue")
	assert.Contains(t, msg, "batch.worker_count")
	assert.Contains(t, msg, "state.capacity")
	assert.Contains(t, msg, "log.level")
	assert.Contains(t, msg, "log.format")
}

func TestValidator_RequireOneOfAcceptsAllowedValue(t *testing.T) {
	v := NewValidator()
	v.RequireOneOf("field", "b", []string{"a", "b", "c"})
	assert.NoError(t, v.Validate())
}

func TestValidator_RequirePositiveIntRejectsZeroAndNegative(t *testing.T) {
	v := NewValidator()
	v.RequirePositiveInt("count", 0)
	v.RequirePositiveInt("other", -1)
	err := v.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count must be positive")
	assert.Contains(t, err.Error(), "other must be positive")
}

func TestValidator_RequireNonEmptyRejectsEmptyString(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("name", "")
	err := v.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}
