package processor

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/evalgo/rvpf/value"
)

// Job is one unit of work submitted to the WorkerPool: a notice slice to
// drive through a Driver, plus a callback invoked with the result.
type Job struct {
	Notices []value.PointValue
	Done    func(updates []value.PointValue, ok bool, err error)
}

// WorkerPool runs multiple concurrent batches on disjoint notice slices,
// generalized from the teacher's worker.Pool/Worker start/stop/processNext
// shape (worker/pool.go): one worker goroutine per configured slot instead
// of one per named queue, each pulling jobs off a shared channel instead of
// a named Redis/AMQP queue — dispatch is left to the caller (typically the
// queue.NoticeSource consumer), keeping this pool transport-agnostic.
type WorkerPool struct {
	driver   *Driver
	jobs     chan Job
	stopChan chan struct{}
	log      *logrus.Entry
}

// NewWorkerPool builds a pool of `workers` goroutines, all driving the same
// Driver (metadata is shared immutably across all batches, per the
// concurrency model).
func NewWorkerPool(driver *Driver, workers int, log *logrus.Entry) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	p := &WorkerPool{
		driver:   driver,
		jobs:     make(chan Job, workers*2),
		stopChan: make(chan struct{}),
		log:      log,
	}
	for i := 0; i < workers; i++ {
		go p.runWorker(i)
	}
	return p
}

// Submit enqueues a Job for processing by the next free worker.
func (p *WorkerPool) Submit(job Job) {
	select {
	case p.jobs <- job:
	case <-p.stopChan:
	}
}

// Stop signals every worker to exit after its current job completes.
func (p *WorkerPool) Stop() {
	close(p.stopChan)
}

func (p *WorkerPool) runWorker(id int) {
	log := p.log.WithField("worker", id)
	log.Info("processor: worker started")
	for {
		select {
		case <-p.stopChan:
			log.Info("processor: worker stopped")
			return
		case job := <-p.jobs:
			updates, ok, err := p.driver.Process(context.Background(), job.Notices)
			if err != nil {
				log.WithError(err).Warn("processor: batch failed")
			}
			if job.Done != nil {
				job.Done(updates, ok, err)
			}
		}
	}
}
