package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/evalgo/rvpf/behavior"
	"github.com/evalgo/rvpf/config"
	"github.com/evalgo/rvpf/internal/obslog"
	"github.com/evalgo/rvpf/metadata"
	"github.com/evalgo/rvpf/processor"
	"github.com/evalgo/rvpf/queue"
	"github.com/evalgo/rvpf/queue/amqpqueue"
	"github.com/evalgo/rvpf/queue/redisqueue"
	"github.com/evalgo/rvpf/store/redisstore"
	"github.com/evalgo/rvpf/timeoutmon"
	"github.com/evalgo/rvpf/trace"
	"github.com/evalgo/rvpf/opstate"
	"github.com/evalgo/rvpf/value"
)

var pointsFile string
var storeRedisURL string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "consume notices, drive the compute/replicate pipeline, publish updates",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&pointsFile, "points-file", "", "point definitions file (required)")
	runCmd.Flags().StringVar(&storeRedisURL, "store-redis-url", "redis://localhost:6379/1", "Redis URL backing the point-value store")
	runCmd.MarkFlagRequired("points-file")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := config.Check(cfg); err != nil {
		return err
	}

	log := obslog.New(obslog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "rvpfprocessor"})
	defer obslog.LogPanic(log)

	behaviorReg := behavior.NewRegistry()
	behavior.RegisterBuiltins(behaviorReg)

	transformReg := metadata.NewTransformRegistry()
	metadata.RegisterBuiltins(transformReg)

	arena, err := metadata.LoadFile(pointsFile, transformReg)
	if err != nil {
		return fmt.Errorf("run: load metadata: %w", err)
	}
	if err := metadata.SetUp(arena, log); err != nil {
		return fmt.Errorf("run: set up metadata: %w", err)
	}
	log.WithField("points", arena.Len()).Info("run: metadata loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := redisstore.Dial(ctx, redisstore.Config{RedisURL: storeRedisURL})
	cancel()
	if err != nil {
		return fmt.Errorf("run: connect point-value store: %w", err)
	}
	defer store.Close()

	driver, err := processor.New(processor.Config{
		Arena:         arena,
		Fetcher:       store,
		MaxMemory:     cfg.Batch.MaxMemory,
		MaxSplitDepth: cfg.Batch.MaxSplitDepth,
		Log:           log,
	}, behaviorReg)
	if err != nil {
		return fmt.Errorf("run: build driver: %w", err)
	}

	pool := processor.NewWorkerPool(driver, cfg.Batch.WorkerCount, log)
	defer pool.Stop()

	tracer := trace.New(trace.Config{Root: cfg.Trace.Root, Dir: cfg.Trace.Dir}, trace.Listener{})
	defer tracer.Close()

	tracker := opstate.New(opstate.Config{MaxBatches: cfg.State.Capacity})
	monitor := timeoutmon.New()
	defer monitor.Shutdown()

	var source queue.NoticeSource
	var sink queue.UpdateSink
	switch cfg.Queue.Driver {
	case "redis":
		q, err := redisqueue.Dial(context.Background(), redisqueue.Config{
			RedisURL:     cfg.Queue.URL,
			NoticesQueue: cfg.Queue.NoticesQueue,
			UpdatesQueue: cfg.Queue.UpdatesQueue,
		})
		if err != nil {
			return fmt.Errorf("run: dial redis queue: %w", err)
		}
		source, sink = q, q
	default:
		q, err := amqpqueue.Dial(amqpqueue.Config{
			URL:          cfg.Queue.URL,
			NoticesQueue: cfg.Queue.NoticesQueue,
			UpdatesQueue: cfg.Queue.UpdatesQueue,
		})
		if err != nil {
			return fmt.Errorf("run: dial amqp queue: %w", err)
		}
		source, sink = q, q
	}
	defer source.Close()
	defer sink.Close()

	httpServer := echo.New()
	httpServer.HideBanner = true
	httpServer.Use(middleware.Recover())
	tracker.RegisterRoutes(httpServer.Group(""))
	go func() {
		if err := httpServer.Start(cfg.State.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("run: opstate server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go consumeLoop(log, arena, pool, tracer, tracker, monitor, source, sink, done)

	<-stop
	log.Info("run: shutdown signal received")
	close(done)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("run: opstate server shutdown error")
	}
	return nil
}

func consumeLoop(
	log *logrus.Entry,
	arena *metadata.Arena,
	pool *processor.WorkerPool,
	tracer *trace.Traces,
	tracker *opstate.Tracker,
	monitor *timeoutmon.Monitor,
	source queue.NoticeSource,
	sink queue.UpdateSink,
	done <-chan struct{},
) {
	for {
		select {
		case <-done:
			return
		case d, ok := <-source.Notices():
			if !ok {
				log.Warn("run: notice source channel closed")
				return
			}
			handleDelivery(log, arena, pool, tracer, tracker, monitor, source, sink, d)
		}
	}
}

// batchDeadline bounds how long a single notice may sit in the worker
// pool before timeoutmon declares it stuck and the batch is force-failed.
const batchDeadline = 30 * time.Second

func handleDelivery(
	log *logrus.Entry,
	arena *metadata.Arena,
	pool *processor.WorkerPool,
	tracer *trace.Traces,
	tracker *opstate.Tracker,
	monitor *timeoutmon.Monitor,
	source queue.NoticeSource,
	sink queue.UpdateSink,
	d queue.Delivery,
) {
	ref, ok := resolveRef(arena, d.Notice)
	if !ok {
		log.WithField("pointKey", d.Notice.PointKey).Warn("run: unresolved point reference, dropping notice")
		source.Nack(d, false)
		return
	}
	notice := d.Notice.Resolve(ref)

	batchID := uuid.New().String()
	state := tracker.Start(batchID, 1, map[string]any{"point": ref.Key()})
	tracer.Add(trace.Entry{Category: "notice", Stamp: notice.Stamp(), Text: ref.Key()})

	monitor.AddClient(timeoutmon.Client{
		ID:       batchID,
		Deadline: time.Now().Add(batchDeadline),
		OnTimeout: func(id string) {
			log.WithField("batch", id).Warn("run: batch exceeded deadline")
			tracer.Rollback()
			tracker.Complete(id, 0, fmt.Errorf("run: batch %s timed out", id))
			source.Nack(d, true)
		},
	})

	pool.Submit(processor.Job{
		Notices: []value.PointValue{notice},
		Done: func(updates []value.PointValue, ok bool, err error) {
			monitor.RemoveClient(batchID)
			defer func() {
				if !ok || err != nil {
					source.Nack(d, true)
					tracer.Rollback()
					tracker.Complete(state.ID, 0, err)
					return
				}
				source.Ack(d)
				if cErr := tracer.Commit(); cErr != nil {
					err = cErr
				}
				tracker.Complete(state.ID, len(updates), err)
			}()
			for _, u := range updates {
				if pubErr := sink.PublishUpdate(u); pubErr != nil {
					err = pubErr
					return
				}
			}
		},
	})

	if stats := tracker.Stats(); stats.TotalBatches%100 == 0 {
		log.WithField("batches", humanize.Comma(int64(stats.TotalBatches))).Info("run: throughput checkpoint")
	}
}

func resolveRef(arena *metadata.Arena, w queue.WireValue) (value.PointRef, bool) {
	if w.ByUUID {
		if id, err := uuid.Parse(w.PointKey); err == nil {
			if p, ok := arena.ByUUID(id); ok {
				return value.RefResolved(p), true
			}
		}
		return value.PointRef{}, false
	}
	if p, ok := arena.ByName(w.PointKey); ok {
		return value.RefResolved(p), true
	}
	return value.PointRef{}, false
}
