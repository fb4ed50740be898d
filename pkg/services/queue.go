package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kerbaras/otakulog/pkg/config"
	"github.com/kerbaras/otakulog/pkg/data"
)

// Enqueuer is the queue boundary exposed to the rest of the pipeline.
// Delivery is at-least-once; ordering holds only within one queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any) (jobID string, err error)
}

// HandlerFunc processes one job payload and returns a JSON result for the
// ledger. A transient error gets the job retried under the queue's policy.
type HandlerFunc func(ctx context.Context, payload []byte) (result string, err error)

type job struct {
	id      string
	payload []byte
}

// Queue is a single-worker, rate-limited job loop. Jobs within one queue run
// strictly one at a time, which is what keeps us inside the external API's
// quota; separate queues run independently of each other.
type Queue struct {
	name    string
	limiter *rate.Limiter
	retry   RetryPolicy
	ledger  *Ledger
	handler HandlerFunc
	log     *zap.SugaredLogger

	jobs    chan job
	seq     atomic.Int64
	pending sync.WaitGroup
	worker  sync.WaitGroup
}

// NewQueue builds a queue dispatching at most cfg.Rate job starts per
// cfg.Window. Starts are spaced evenly (window/rate apart, burst 1), which
// bounds every sliding window of that duration at cfg.Rate starts.
func NewQueue(name string, cfg config.QueueConfig, retry RetryPolicy, ledger *Ledger, handler HandlerFunc, log *zap.SugaredLogger) *Queue {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 256
	}
	interval := cfg.Window / time.Duration(cfg.Rate)
	return &Queue{
		name:    name,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		retry:   retry,
		ledger:  ledger,
		handler: handler,
		log:     log.With("queue", name),
		jobs:    make(chan job, buffer),
	}
}

func (q *Queue) Name() string { return q.name }

// Start launches the worker loop. The loop exits when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.worker.Add(1)
	go q.run(ctx)
}

// Enqueue records the job in the ledger and hands it to the worker. The
// returned id identifies the ledger row.
func (q *Queue) Enqueue(ctx context.Context, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", q.name, err)
	}
	id := fmt.Sprintf("%s-%d-%s", q.name, q.seq.Add(1), uuid.NewString())

	q.ledger.LogStart(ctx, id, q.name, string(raw))

	q.pending.Add(1)
	select {
	case q.jobs <- job{id: id, payload: raw}:
		return id, nil
	case <-ctx.Done():
		q.pending.Done()
		q.ledger.Settle(ctx, id, data.JobFailed, "", "enqueue cancelled")
		return "", ctx.Err()
	}
}

// Drain blocks until every job enqueued so far has settled.
func (q *Queue) Drain() {
	q.pending.Wait()
}

// Wait blocks until the worker loop has exited.
func (q *Queue) Wait() {
	q.worker.Wait()
}

func (q *Queue) run(ctx context.Context) {
	defer q.worker.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			q.process(ctx, j)
		}
	}
}

func (q *Queue) process(ctx context.Context, j job) {
	defer q.pending.Done()

	if err := q.limiter.Wait(ctx); err != nil {
		q.ledger.Settle(context.WithoutCancel(ctx), j.id, data.JobFailed, "", "worker stopped: "+err.Error())
		return
	}

	var result string
	err := q.retry.Do(ctx, func(ctx context.Context) error {
		r, err := q.handler(ctx, j.payload)
		if err == nil {
			result = r
		}
		return err
	})
	if err != nil {
		q.log.Warnw("job failed", "job", j.id, "error", err)
		q.ledger.Settle(context.WithoutCancel(ctx), j.id, data.JobFailed, "", err.Error())
		return
	}
	q.ledger.Settle(ctx, j.id, data.JobCompleted, result, "")
}
