// Package config implements layered configuration loading via Viper and
// Cobra, adapted from the teacher's cli.RootCmd/initConfig
// (cli/root.go: flag > environment variable > config file > default
// precedence) and its config.Validator fluent-validation pattern
// (config/config.go), re-scoped from the HTTP flow service's
// RabbitMQ/CouchDB/JWT keys to the processor's queue/batch/state/trace
// keys.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the fully-resolved ambient configuration for an rvpf process.
type Config struct {
	Queue QueueConfig
	Batch BatchConfig
	State StateConfig
	Trace TraceConfig
	Log   LogConfig
}

// QueueConfig selects and configures the notice/update transport.
type QueueConfig struct {
	Driver       string // "amqp" or "redis"
	URL          string
	NoticesQueue string
	UpdatesQueue string
}

// BatchConfig bounds a single Driver.Process invocation.
type BatchConfig struct {
	MaxMemory     int
	MaxSplitDepth int
	WorkerCount   int
}

// StateConfig configures the opstate HTTP surface.
type StateConfig struct {
	Capacity int
	HTTPAddr string
}

// TraceConfig configures the trace journal's storage location.
type TraceConfig struct {
	Root string
	Dir  string
}

// LogConfig configures obslog.
type LogConfig struct {
	Level  string
	Format string
}

// ShutdownTimeout is the graceful-shutdown budget for the HTTP server,
// matching the teacher's 10-second shutdown window
// (cli/root.go's runServer).
const ShutdownTimeout = 10 * time.Second

// BindFlags registers every configuration flag on cmd's persistent flag set
// and binds each to its Viper key, mirroring cli/root.go's
// PersistentFlags+BindPFlag pairing.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.String("queue-driver", "amqp", "notice/update transport: amqp or redis")
	flags.String("queue-url", "", "broker connection URL")
	flags.String("queue-notices", "rvpf.notices", "inbound notices queue name")
	flags.String("queue-updates", "rvpf.updates", "outbound updates queue name")

	flags.Int("batch-max-memory", 0, "maximum notices per batch before splitting (0 = unbounded)")
	flags.Int("batch-max-split-depth", 6, "maximum recursive split depth on memory pressure")
	flags.Int("batch-worker-count", 4, "concurrent batch worker goroutines")

	flags.Int("state-capacity", 1000, "maximum tracked batch states retained in memory")
	flags.String("state-http-addr", ":8089", "opstate HTTP listen address")

	flags.String("trace-root", "traces", "trace journal root directory")
	flags.String("trace-dir", "", "trace journal category subdirectory override")

	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")

	bindings := map[string]string{
		"queue.driver":          "queue-driver",
		"queue.url":             "queue-url",
		"queue.notices_queue":   "queue-notices",
		"queue.updates_queue":   "queue-updates",
		"batch.max_memory":      "batch-max-memory",
		"batch.max_split_depth": "batch-max-split-depth",
		"batch.worker_count":    "batch-worker-count",
		"state.capacity":        "state-capacity",
		"state.http_addr":       "state-http-addr",
		"trace.root":            "trace-root",
		"trace.dir":             "trace-dir",
		"log.level":             "log-level",
		"log.format":            "log-format",
	}
	for key, flag := range bindings {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// Init returns a cobra.OnInitialize callback that sets up Viper's config
// file search path (home directory and current directory, named
// .rvpf.yaml) plus automatic RVPF_-prefixed environment variable mapping.
func Init(cfgFile string) func() {
	return func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			if home, err := os.UserHomeDir(); err == nil {
				viper.AddConfigPath(home)
			}
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".rvpf")
		}
		viper.SetEnvPrefix("RVPF")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err == nil {
			fmt.Fprintln(os.Stderr, "config: using file", viper.ConfigFileUsed())
		}
	}
}

// Load reads the fully-resolved Config from Viper after flags, environment,
// and any config file have all been merged.
func Load() Config {
	return Config{
		Queue: QueueConfig{
			Driver:       viper.GetString("queue.driver"),
			URL:          viper.GetString("queue.url"),
			NoticesQueue: viper.GetString("queue.notices_queue"),
			UpdatesQueue: viper.GetString("queue.updates_queue"),
		},
		Batch: BatchConfig{
			MaxMemory:     viper.GetInt("batch.max_memory"),
			MaxSplitDepth: viper.GetInt("batch.max_split_depth"),
			WorkerCount:   viper.GetInt("batch.worker_count"),
		},
		State: StateConfig{
			Capacity: viper.GetInt("state.capacity"),
			HTTPAddr: viper.GetString("state.http_addr"),
		},
		Trace: TraceConfig{
			Root: viper.GetString("trace.root"),
			Dir:  viper.GetString("trace.dir"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
}

// Validator accumulates configuration validation errors, carried over
// from the teacher's config.Validator fluent-check pattern
// (config/config.go).
type Validator struct {
	errors []string
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator { return &Validator{} }

// RequireOneOf records an error unless value is one of allowed.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s (got %q)", field, strings.Join(allowed, ", "), value))
}

// RequirePositiveInt records an error unless value > 0.
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireNonEmpty records an error unless value is non-empty.
func (v *Validator) RequireNonEmpty(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// Validate returns a single combined error, or nil if every check passed.
func (v *Validator) Validate() error {
	if len(v.errors) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(v.errors, "; "))
}

// Check runs the standard cross-field validation for a resolved Config.
func Check(cfg Config) error {
	v := NewValidator()
	v.RequireOneOf("queue.driver", cfg.Queue.Driver, []string{"amqp", "redis"})
	v.RequireNonEmpty("queue.url", cfg.Queue.URL)
	v.RequireNonEmpty("queue.notices_queue", cfg.Queue.NoticesQueue)
	v.RequireNonEmpty("queue.updates_queue", cfg.Queue.UpdatesQueue)
	v.RequirePositiveInt("batch.worker_count", cfg.Batch.WorkerCount)
	v.RequirePositiveInt("state.capacity", cfg.State.Capacity)
	v.RequireOneOf("log.level", cfg.Log.Level, []string{"debug", "info", "warn", "error"})
	v.RequireOneOf("log.format", cfg.Log.Format, []string{"text", "json"})
	return v.Validate()
}
