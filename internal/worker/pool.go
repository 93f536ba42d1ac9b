package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueLedgerEvents = "jobs:ledger_events"

	JobLedgerEvent = "ledger_event"
)

// MaxJobAttempts is how many times a job may fail before the DLQ replay cron
// parks it for manual inspection.
const MaxJobAttempts = 5

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job. A returned error sends the job to the DLQ.
type Handler func(ctx context.Context, job Job) error

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PublishLedgerEvent pushes a committed ledger change to Redis.
func (d *Dispatcher) PublishLedgerEvent(ctx context.Context, ev LedgerEvent) error {
	return d.enqueue(ctx, QueueLedgerEvents, JobLedgerEvent, ev)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return pushJob(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func pushJob(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the ledger event
// queue. Each goroutine blocks on BRPOP: zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]Handler) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers map[string]Handler) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueLedgerEvents).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			if err := processJob(ctx, handlers, result[0], result[1]); err != nil {
				var job Job
				_ = json.Unmarshal([]byte(result[1]), &job)
				SendToDLQ(ctx, rdb, result[0], job.Type, job.Payload, err.Error(), job.Attempts+1)
			}
		}
	}
}

// processJob decodes raw and runs the handler registered for its type.
func processJob(ctx context.Context, handlers map[string]Handler, queue, raw string) error {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return err
	}
	h, ok := handlers[job.Type]
	if !ok {
		return fmt.Errorf("no handler for job type %q", job.Type)
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Int("attempts", job.Attempts).Msg("processing job")
	return h(ctx, job)
}
