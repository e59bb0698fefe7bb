package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/notify"
)

const QueueNotify = "jobs:notify"

// Job types
const (
	JobEmail = "email"
	JobSMS   = "sms"
)

const defaultMaxAttempts = 3

// Job is the envelope stored in the queue
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Sender delivers one customer notification over one channel
type Sender interface {
	Send(ctx context.Context, n *notify.CustomerNotification) error
}

// Dispatcher enqueues notification jobs into Redis lists. The pool dequeues
// them with BRPOP.
type Dispatcher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewDispatcher(rdb *redis.Client, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{rdb: rdb, logger: logger}
}

// EnqueueNotification queues one job per channel the customer can be reached on.
func (d *Dispatcher) EnqueueNotification(ctx context.Context, n *notify.CustomerNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	var errs []error
	if n.Email != "" {
		errs = append(errs, d.push(ctx, Job{Type: JobEmail, Payload: payload}))
	}
	if n.Phone != "" {
		errs = append(errs, d.push(ctx, Job{Type: JobSMS, Payload: payload}))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) push(ctx context.Context, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueNotify, encoded).Err()
}

// Pool consumes the notification queue
type Pool struct {
	rdb         *redis.Client
	senders     map[string]Sender
	maxAttempts int
	logger      *zap.Logger
}

func NewPool(rdb *redis.Client, email, sms Sender, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	senders := make(map[string]Sender, 2)
	if email != nil {
		senders[JobEmail] = email
	}
	if sms != nil {
		senders[JobSMS] = sms
	}
	return &Pool{rdb: rdb, senders: senders, maxAttempts: defaultMaxAttempts, logger: logger}
}

// Start launches numWorkers goroutines and returns a wait function.
func (p *Pool) Start(ctx context.Context, numWorkers int) (wait func()) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(ctx, id)
		}(i)
	}
	p.logger.Info("Notification worker pool started", zap.Int("workers", numWorkers))
	return wg.Wait
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Notification worker shutting down", zap.Int("worker", id))
			return
		default:
			if _, err := p.ProcessNext(ctx, 5*time.Second); err != nil && ctx.Err() == nil {
				p.logger.Warn("Notification worker pop failed", zap.Int("worker", id), zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

// ProcessNext blocks up to timeout for one job and handles it. It reports
// whether a job was taken.
func (p *Pool) ProcessNext(ctx context.Context, timeout time.Duration) (bool, error) {
	result, err := p.rdb.BRPop(ctx, timeout, QueueNotify).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(result) < 2 {
		return false, nil
	}
	p.handle(ctx, result[1])
	return true, nil
}

func (p *Pool) handle(ctx context.Context, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		p.logger.Error("Failed to unmarshal job", zap.Error(err))
		SendToDLQ(ctx, p.rdb, p.logger, QueueNotify, "unknown", json.RawMessage(raw), "invalid job envelope", 0)
		return
	}
	sender, ok := p.senders[job.Type]
	if !ok {
		SendToDLQ(ctx, p.rdb, p.logger, QueueNotify, job.Type, job.Payload, "no sender for job type", job.Attempts)
		return
	}

	var n notify.CustomerNotification
	if err := json.Unmarshal(job.Payload, &n); err != nil {
		SendToDLQ(ctx, p.rdb, p.logger, QueueNotify, job.Type, job.Payload, "invalid payload: "+err.Error(), job.Attempts)
		return
	}

	job.Attempts++
	if err := sender.Send(ctx, &n); err != nil {
		p.logger.Warn("Notification send failed",
			zap.String("type", job.Type),
			zap.String("split_id", n.SplitID),
			zap.Int("attempt", job.Attempts),
			zap.Error(err),
		)
		if job.Attempts >= p.maxAttempts {
			SendToDLQ(ctx, p.rdb, p.logger, QueueNotify, job.Type, job.Payload, err.Error(), job.Attempts)
			return
		}
		encoded, mErr := json.Marshal(job)
		if mErr == nil {
			mErr = p.rdb.LPush(ctx, QueueNotify, encoded).Err()
		}
		if mErr != nil {
			p.logger.Error("Failed to requeue notification", zap.Error(mErr))
		}
		return
	}
}
