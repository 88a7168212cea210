// Package memory provides an in-process simplefiles.JobQueue with the same
// lease and redelivery semantics as the Redis queue.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// Defaults
const (
	DefaultMaxAttempts       = 5
	DefaultVisibilityTimeout = 5 * time.Minute
)

type job struct {
	id       string
	payload  []byte
	attempts int
	lease    uuid.UUID
	deadline time.Time
	lastErr  string
}

type topicState struct {
	pending  []*job
	inflight map[string]*job
	failed   []*job
}

// Queue implements simplefiles.JobQueue in memory
type Queue struct {
	mu                sync.Mutex
	topics            map[string]*topicState
	notify            chan struct{}
	maxAttempts       int
	visibilityTimeout time.Duration
	now               func() time.Time
	closed            bool
}

// Option configures a Queue
type Option func(*Queue)

// WithMaxAttempts bounds deliveries before a job is dead-lettered
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithVisibilityTimeout sets how long a received job stays leased
func WithVisibilityTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.visibilityTimeout = d
		}
	}
}

// WithClock overrides time.Now for lease expiry
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

var _ simplefiles.JobQueue = (*Queue)(nil)

// New creates an empty queue
func New(opts ...Option) *Queue {
	q := &Queue{
		topics:            make(map[string]*topicState),
		notify:            make(chan struct{}),
		maxAttempts:       DefaultMaxAttempts,
		visibilityTimeout: DefaultVisibilityTimeout,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) topic(name string) *topicState {
	t, ok := q.topics[name]
	if !ok {
		t = &topicState{inflight: make(map[string]*job)}
		q.topics[name] = t
	}
	return t
}

// wake releases every receiver blocked on the current notify channel.
// Callers hold q.mu.
func (q *Queue) wake() {
	close(q.notify)
	q.notify = make(chan struct{})
}

// Enqueue appends payload to topic
func (q *Queue) Enqueue(ctx context.Context, topic string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return simplefiles.Unavailable("enqueue", errQueueClosed)
	}

	data := make([]byte, len(payload))
	copy(data, payload)
	t := q.topic(topic)
	t.pending = append(t.pending, &job{id: uuid.NewString(), payload: data})
	q.wake()
	return nil
}

// Receive leases the oldest pending job on topic
func (q *Queue) Receive(ctx context.Context, topic string, wait time.Duration) (simplefiles.Delivery, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, simplefiles.Unavailable("receive", errQueueClosed)
		}
		t := q.topic(topic)
		q.reapLocked(t)
		if len(t.pending) > 0 {
			j := t.pending[0]
			t.pending = t.pending[1:]
			j.attempts++
			j.lease = uuid.New()
			j.deadline = q.now().Add(q.visibilityTimeout)
			t.inflight[j.id] = j
			d := &delivery{queue: q, topic: topic, job: j, lease: j.lease, attempt: j.attempts}
			q.mu.Unlock()
			return d, nil
		}
		notify := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, simplefiles.ErrNoJob
		case <-notify:
		}
	}
}

// reapLocked returns expired leases to the pending list
func (q *Queue) reapLocked(t *topicState) {
	now := q.now()
	for id, j := range t.inflight {
		if now.Before(j.deadline) {
			continue
		}
		delete(t.inflight, id)
		j.lease = uuid.Nil
		if j.attempts >= q.maxAttempts {
			j.lastErr = "visibility timeout expired"
			t.failed = append(t.failed, j)
			continue
		}
		t.pending = append(t.pending, j)
	}
}

// settle removes the leased job and optionally moves it elsewhere. A stale
// lease, one that expired and was handed out again, is ignored.
func (q *Queue) settle(topic string, j *job, lease uuid.UUID, requeue bool, cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := q.topic(topic)
	current, ok := t.inflight[j.id]
	if !ok || current.lease != lease {
		return
	}
	delete(t.inflight, j.id)
	j.lease = uuid.Nil

	switch {
	case cause == nil:
	case requeue && j.attempts < q.maxAttempts:
		j.lastErr = cause.Error()
		t.pending = append(t.pending, j)
		q.wake()
	default:
		j.lastErr = cause.Error()
		t.failed = append(t.failed, j)
	}
}

// Pending returns the number of jobs waiting on topic
func (q *Queue) Pending(topic string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.topic(topic).pending)
}

// InFlight returns the number of leased jobs on topic
func (q *Queue) InFlight(topic string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.topic(topic).inflight)
}

// Failed returns the payloads of dead-lettered jobs on topic
func (q *Queue) Failed(topic string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	failed := q.topic(topic).failed
	payloads := make([][]byte, 0, len(failed))
	for _, j := range failed {
		payloads = append(payloads, j.payload)
	}
	return payloads
}

// Close wakes blocked receivers and rejects further use
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.wake()
	}
	return nil
}

type delivery struct {
	queue   *Queue
	topic   string
	job     *job
	lease   uuid.UUID
	attempt int
}

func (d *delivery) ID() string      { return d.job.id }
func (d *delivery) Payload() []byte { return d.job.payload }
func (d *delivery) Attempt() int    { return d.attempt }

func (d *delivery) Ack(ctx context.Context) error {
	d.queue.settle(d.topic, d.job, d.lease, false, nil)
	return nil
}

func (d *delivery) Fail(ctx context.Context, cause error, retry bool) error {
	if cause == nil {
		cause = errUnknownFailure
	}
	d.queue.settle(d.topic, d.job, d.lease, retry, cause)
	return nil
}
