// Package redis implements simplefiles.JobQueue on Redis lists. Received
// jobs are moved to a processing list and leased in a sorted set scored by
// their deadline; expired leases are returned to the pending list. A job
// left on the processing list without a lease (the receiver died between
// the move and the lease) is given one by the next Reap, so it expires and
// is redelivered like any other.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// Defaults
const (
	DefaultKeyPrefix         = "queue"
	DefaultMaxAttempts       = 5
	DefaultVisibilityTimeout = 5 * time.Minute
)

// settleScript removes a leased job and, when ARGV[2] is set, pushes the
// replacement envelope onto KEYS[3]. It returns 0 for a stale lease.
var settleScript = redis.NewScript(`
local removed = redis.call('LREM', KEYS[1], 1, ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
if removed > 0 and ARGV[2] ~= '' then
	redis.call('LPUSH', KEYS[3], ARGV[2])
end
return removed
`)

// adoptScript leases every entry of KEYS[1] missing from KEYS[2] until
// ARGV[1]. It returns the number of entries adopted.
var adoptScript = redis.NewScript(`
local adopted = 0
for _, raw in ipairs(redis.call('LRANGE', KEYS[1], 0, -1)) do
	if not redis.call('ZSCORE', KEYS[2], raw) then
		redis.call('ZADD', KEYS[2], ARGV[1], raw)
		adopted = adopted + 1
	end
end
return adopted
`)

// envelope is the stored form of a job
type envelope struct {
	ID        string `json:"id"`
	Payload   []byte `json:"payload"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
}

// Config options for the Redis queue
type Config struct {
	URL               string        // redis://[user:pass@]host:port/db
	KeyPrefix         string        // Prefix of every queue key (default: "queue")
	MaxAttempts       int           // Deliveries before a job is dead-lettered (default: 5)
	VisibilityTimeout time.Duration // Lease length of a received job (default: 5m)
}

// Queue is a Redis implementation of simplefiles.JobQueue
type Queue struct {
	client            *redis.Client
	keyPrefix         string
	maxAttempts       int
	visibilityTimeout time.Duration
	now               func() time.Time
}

var _ simplefiles.JobQueue = (*Queue)(nil)

// New connects to Redis and verifies the connection
func New(ctx context.Context, config Config) (*Queue, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, config), nil
}

// NewWithClient wraps an existing client. config.URL is ignored.
func NewWithClient(client *redis.Client, config Config) *Queue {
	q := &Queue{
		client:            client,
		keyPrefix:         config.KeyPrefix,
		maxAttempts:       config.MaxAttempts,
		visibilityTimeout: config.VisibilityTimeout,
		now:               time.Now,
	}
	if q.keyPrefix == "" {
		q.keyPrefix = DefaultKeyPrefix
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = DefaultMaxAttempts
	}
	if q.visibilityTimeout <= 0 {
		q.visibilityTimeout = DefaultVisibilityTimeout
	}
	return q
}

func (q *Queue) pendingKey(topic string) string    { return q.keyPrefix + ":" + topic + ":pending" }
func (q *Queue) processingKey(topic string) string { return q.keyPrefix + ":" + topic + ":processing" }
func (q *Queue) leasesKey(topic string) string     { return q.keyPrefix + ":" + topic + ":leases" }
func (q *Queue) failedKey(topic string) string     { return q.keyPrefix + ":" + topic + ":failed" }

// Enqueue appends payload to topic
func (q *Queue) Enqueue(ctx context.Context, topic string, payload []byte) error {
	raw, err := json.Marshal(envelope{ID: uuid.NewString(), Payload: payload})
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.pendingKey(topic), raw).Err(); err != nil {
		return simplefiles.Unavailable("redis enqueue", err)
	}
	return nil
}

// Receive leases the oldest pending job on topic, waiting up to wait
func (q *Queue) Receive(ctx context.Context, topic string, wait time.Duration) (simplefiles.Delivery, error) {
	if err := q.Reap(ctx, topic); err != nil {
		return nil, err
	}

	raw, err := q.client.BLMove(ctx, q.pendingKey(topic), q.processingKey(topic), "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, simplefiles.ErrNoJob
	} else if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, simplefiles.Unavailable("redis receive", err)
	}

	deadline := q.now().Add(q.visibilityTimeout)
	if err := q.client.ZAdd(ctx, q.leasesKey(topic), redis.Z{Score: float64(deadline.UnixMilli()), Member: raw}).Err(); err != nil {
		return nil, simplefiles.Unavailable("redis lease", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// Undecodable envelopes can never succeed
		_ = q.settle(ctx, topic, raw, q.failedKey(topic), raw)
		return nil, fmt.Errorf("corrupt job envelope: %w", err)
	}

	return &delivery{queue: q, topic: topic, raw: raw, env: env}, nil
}

// Reap leases orphaned processing entries, then returns jobs whose lease
// expired to the pending list, or dead-letters them once they used up their
// attempts.
func (q *Queue) Reap(ctx context.Context, topic string) error {
	deadline := strconv.FormatInt(q.now().Add(q.visibilityTimeout).UnixMilli(), 10)
	keys := []string{q.processingKey(topic), q.leasesKey(topic)}
	if err := adoptScript.Run(ctx, q.client, keys, deadline).Err(); err != nil {
		return simplefiles.Unavailable("redis adopt", err)
	}

	expired, err := q.client.ZRangeByScore(ctx, q.leasesKey(topic), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return simplefiles.Unavailable("redis reap", err)
	}

	for _, raw := range expired {
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			if err := q.settle(ctx, topic, raw, q.failedKey(topic), raw); err != nil {
				return err
			}
			continue
		}
		env.Attempts++
		env.LastError = "visibility timeout expired"
		target := q.pendingKey(topic)
		if env.Attempts >= q.maxAttempts {
			target = q.failedKey(topic)
		}
		next, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := q.settle(ctx, topic, raw, target, string(next)); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) settle(ctx context.Context, topic, raw, target, replacement string) error {
	keys := []string{q.processingKey(topic), q.leasesKey(topic), target}
	if err := settleScript.Run(ctx, q.client, keys, raw, replacement).Err(); err != nil {
		return simplefiles.Unavailable("redis settle", err)
	}
	return nil
}

// Failed returns the payloads of dead-lettered jobs on topic
func (q *Queue) Failed(ctx context.Context, topic string) ([][]byte, error) {
	raws, err := q.client.LRange(ctx, q.failedKey(topic), 0, -1).Result()
	if err != nil {
		return nil, simplefiles.Unavailable("redis failed", err)
	}
	payloads := make([][]byte, 0, len(raws))
	for _, raw := range raws {
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		payloads = append(payloads, env.Payload)
	}
	return payloads, nil
}

// Close closes the underlying client
func (q *Queue) Close() error {
	return q.client.Close()
}

type delivery struct {
	queue *Queue
	topic string
	raw   string
	env   envelope
}

func (d *delivery) ID() string      { return d.env.ID }
func (d *delivery) Payload() []byte { return d.env.Payload }
func (d *delivery) Attempt() int    { return d.env.Attempts + 1 }

func (d *delivery) Ack(ctx context.Context) error {
	return d.queue.settle(ctx, d.topic, d.raw, d.queue.processingKey(d.topic), "")
}

func (d *delivery) Fail(ctx context.Context, cause error, retry bool) error {
	next := d.env
	next.Attempts++
	if cause != nil {
		next.LastError = cause.Error()
	}

	target := d.queue.failedKey(d.topic)
	if retry && next.Attempts < d.queue.maxAttempts {
		target = d.queue.pendingKey(d.topic)
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return d.queue.settle(ctx, d.topic, d.raw, target, string(raw))
}
