// Package taskqueue implements the Redis-backed asynchronous work queue.
// Producers enqueue opaque JSON tasks; worker processes consume them with
// bounded exponential-backoff retries and a dead-letter list. When Redis is
// unavailable the queue degrades to synchronous inline execution so
// aggregates still converge.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"quill/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "tasks:queue"
	delayedKey = "tasks:delayed"
	deadKey    = "tasks:dead"
)

// ErrSkip tells the queue the task's subject no longer exists (race with a
// delete). The task completes without retry; this is a no-op, not a failure.
var ErrSkip = errors.New("task skipped: subject no longer exists")

// Task is the wire format of a queued unit of work.
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// HandlerFunc processes one task payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Queue is a durable at-least-once work queue on Redis lists. Retries use
// exponential backoff via a delayed sorted set promoted by the worker loop.
type Queue struct {
	rdb         *redis.Client
	mu          sync.RWMutex
	handlers    map[string]HandlerFunc
	maxAttempts int
	baseBackoff time.Duration
}

// New creates a queue bound to the given Redis client. A nil client puts
// the queue in inline mode: Enqueue executes the handler synchronously.
func New(rdb *redis.Client) *Queue {
	return &Queue{
		rdb:         rdb,
		handlers:    make(map[string]HandlerFunc),
		maxAttempts: 5,
		baseBackoff: 2 * time.Second,
	}
}

// Register binds a handler to a task type. Must happen before Run.
func (q *Queue) Register(taskType string, h HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

func (q *Queue) handler(taskType string) (HandlerFunc, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[taskType]
	return h, ok
}

// Enqueue pushes a task onto the queue. The payload is marshaled to JSON.
func (q *Queue) Enqueue(ctx context.Context, taskType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal task payload: %w", err)
	}

	task := Task{
		ID:         uuid.New().String(),
		Type:       taskType,
		Payload:    body,
		EnqueuedAt: time.Now(),
	}

	if q.rdb == nil {
		// Inline mode: run the handler on the caller's goroutine.
		h, ok := q.handler(taskType)
		if !ok {
			return fmt.Errorf("no handler registered for task type %q", taskType)
		}
		if err := h(ctx, task.Payload); err != nil && !errors.Is(err, ErrSkip) {
			return err
		}
		return nil
	}

	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.rdb.LPush(ctx, queueKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue task %s: %w", taskType, err)
	}
	return nil
}

// Run consumes the queue until the context is cancelled. It may be called
// from several goroutines; tasks run in parallel across aggregates while
// handlers themselves take any per-aggregate locks they need.
func (q *Queue) Run(ctx context.Context) {
	if q.rdb == nil {
		<-ctx.Done()
		return
	}

	go q.promoteLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := q.rdb.BRPop(ctx, time.Second, queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			middleware.Logger.ErrorContext(ctx, "task queue pop failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}
		if len(res) != 2 {
			continue
		}
		q.process(ctx, []byte(res[1]))
	}
}

func (q *Queue) process(ctx context.Context, raw []byte) {
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		middleware.Logger.ErrorContext(ctx, "discarding malformed task", slog.String("error", err.Error()))
		return
	}

	h, ok := q.handler(task.Type)
	if !ok {
		middleware.Logger.ErrorContext(ctx, "no handler for task type, dead-lettering",
			slog.String("type", task.Type), slog.String("task_id", task.ID))
		q.deadLetter(ctx, raw, task)
		return
	}

	err := h(ctx, task.Payload)
	switch {
	case err == nil:
		middleware.TasksProcessed.WithLabelValues(task.Type, "ok").Inc()
	case errors.Is(err, ErrSkip):
		middleware.TasksProcessed.WithLabelValues(task.Type, "skipped").Inc()
	default:
		q.retry(ctx, task, err)
	}
}

func (q *Queue) retry(ctx context.Context, task Task, cause error) {
	task.Attempts++
	if task.Attempts >= q.maxAttempts {
		middleware.Logger.ErrorContext(ctx, "task permanently failed",
			slog.String("type", task.Type),
			slog.String("task_id", task.ID),
			slog.Int("attempts", task.Attempts),
			slog.String("error", cause.Error()),
		)
		raw, _ := json.Marshal(task)
		q.deadLetter(ctx, raw, task)
		return
	}

	backoff := q.baseBackoff << (task.Attempts - 1)
	readyAt := time.Now().Add(backoff)
	raw, err := json.Marshal(task)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to re-marshal task for retry", slog.String("error", err.Error()))
		return
	}

	if zerr := q.rdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: raw,
	}).Err(); zerr != nil {
		middleware.Logger.ErrorContext(ctx, "failed to schedule retry, dead-lettering",
			slog.String("type", task.Type), slog.String("error", zerr.Error()))
		q.deadLetter(ctx, raw, task)
		return
	}

	middleware.TasksProcessed.WithLabelValues(task.Type, "retried").Inc()
	middleware.Logger.WarnContext(ctx, "task failed, retry scheduled",
		slog.String("type", task.Type),
		slog.String("task_id", task.ID),
		slog.Int("attempt", task.Attempts),
		slog.Duration("backoff", backoff),
		slog.String("error", cause.Error()),
	)
}

func (q *Queue) deadLetter(ctx context.Context, raw []byte, task Task) {
	middleware.TasksProcessed.WithLabelValues(task.Type, "dead").Inc()
	if err := q.rdb.LPush(ctx, deadKey, raw).Err(); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to dead-letter task",
			slog.String("task_id", task.ID), slog.String("error", err.Error()))
	}
}

// promoteLoop moves delayed tasks whose backoff has elapsed back onto the
// main queue.
func (q *Queue) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.promoteDelayed(ctx)
		}
	}
}

func (q *Queue) promoteDelayed(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}

	for _, member := range due {
		// ZREM first so concurrent promoters never double-enqueue.
		removed, err := q.rdb.ZRem(ctx, delayedKey, member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, queueKey, member).Err(); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to promote delayed task", slog.String("error", err.Error()))
		}
	}
}
