package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-files/pkg/simplefiles"
	"golang.org/x/sync/errgroup"
)

// Job states reported in the log. Jobs are queued by the service that
// enqueues them.
const (
	StateQueued    = "queued"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

const (
	defaultConcurrency = 4
	defaultPollWait    = 5 * time.Second
	receiveBackoff     = time.Second
)

// Worker consumes topics of a simplefiles.JobQueue with a fixed number of
// consumers per topic.
type Worker struct {
	queue       simplefiles.JobQueue
	processors  map[string]Processor
	concurrency int
	pollWait    time.Duration
	logger      *slog.Logger
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithConcurrency sets the number of consumers per topic
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithPollWait sets how long one Receive call blocks
func WithPollWait(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollWait = d
		}
	}
}

// WithLogger sets the logger for job state transitions
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithProcessor registers the processor for topic
func WithProcessor(topic string, p Processor) WorkerOption {
	return func(w *Worker) {
		w.processors[topic] = p
	}
}

// NewWorker creates a worker over queue
func NewWorker(queue simplefiles.JobQueue, opts ...WorkerOption) (*Worker, error) {
	w := &Worker{
		queue:       queue,
		processors:  make(map[string]Processor),
		concurrency: defaultConcurrency,
		pollWait:    defaultPollWait,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if queue == nil {
		return nil, fmt.Errorf("job queue is required")
	}
	if len(w.processors) == 0 {
		return nil, fmt.Errorf("at least one processor is required")
	}
	return w, nil
}

// Run consumes jobs until ctx is cancelled. Jobs already running when ctx
// ends are finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "topics", len(w.processors), "concurrency", w.concurrency)

	eg, egCtx := errgroup.WithContext(ctx)
	for topic, processor := range w.processors {
		for i := 0; i < w.concurrency; i++ {
			eg.Go(func() error {
				w.consume(egCtx, topic, processor)
				return nil
			})
		}
	}
	err := eg.Wait()

	w.logger.Info("worker stopped")
	return err
}

func (w *Worker) consume(ctx context.Context, topic string, processor Processor) {
	for ctx.Err() == nil {
		delivery, err := w.queue.Receive(ctx, topic, w.pollWait)
		if err != nil {
			if errors.Is(err, simplefiles.ErrNoJob) || ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to receive job", "topic", topic, "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}
		w.handle(context.WithoutCancel(ctx), topic, processor, delivery)
	}
}

// handle runs one delivery and settles it with the queue
func (w *Worker) handle(ctx context.Context, topic string, processor Processor, delivery simplefiles.Delivery) {
	log := w.logger.With("topic", topic, "job_id", delivery.ID(), "attempt", delivery.Attempt())
	log.Info("job state", "state", StateRunning)

	start := time.Now()
	err := processor.Process(ctx, delivery.Payload())
	if err == nil {
		log.Info("job state", "state", StateCompleted, "duration", time.Since(start))
		if ackErr := delivery.Ack(ctx); ackErr != nil {
			log.Error("failed to ack job", "err", ackErr)
		}
		return
	}

	retry := !IsPermanent(err)
	log.Warn("job state", "state", StateFailed, "retry", retry, "err", err)
	if failErr := delivery.Fail(ctx, err, retry); failErr != nil {
		log.Error("failed to fail job", "err", failErr)
	}
}
