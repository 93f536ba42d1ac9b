package worker

// retry_cron.go
// Background goroutine that periodically drains the ledger event DLQ back
// into the live queue. Uses the Circuit Breaker guarding Redis so a downed
// Redis is not hammered every tick.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ledgerpos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const replayBatchSize = 50

// ReplayCronConfig holds all dependencies for the replay goroutine.
type ReplayCronConfig struct {
	RDB      *redis.Client
	CB       *infra.CircuitBreaker
	Interval time.Duration
	Queues   []string
}

// StartDLQReplayCron launches a background goroutine that ticks every
// cfg.Interval and replays DLQ entries. It respects the context for
// graceful shutdown.
func StartDLQReplayCron(ctx context.Context, cfg ReplayCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if len(cfg.Queues) == 0 {
		cfg.Queues = []string{QueueLedgerEvents}
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("dlq_replay: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("dlq_replay: shutting down")
				return
			case <-ticker.C:
				for _, q := range cfg.Queues {
					replayQueue(ctx, cfg, q)
				}
			}
		}
	}()
}

func replayQueue(ctx context.Context, cfg ReplayCronConfig, queue string) {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("dlq_replay: circuit breaker is open, skipping tick")
		return
	}

	replayed, parked := 0, 0
	for i := 0; i < replayBatchSize; i++ {
		var raw string
		pop := func() error {
			var err error
			raw, err = cfg.RDB.RPop(ctx, DLQPrefix+queue).Result()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		var err error
		if cfg.CB != nil {
			err = cfg.CB.Execute(pop)
		} else {
			err = pop()
		}
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq_replay: failed to pop entry")
			return
		}
		if raw == "" {
			break
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq_replay: dropping undecodable entry")
			continue
		}

		if !replayDecision(entry) {
			if err := cfg.RDB.LPush(ctx, ParkedDLQPrefix+queue, raw).Err(); err != nil {
				log.Error().Err(err).Msg("dlq_replay: failed to park entry")
			}
			parked++
			continue
		}

		target := entry.OriginalQueue
		if target == "" {
			target = queue
		}
		job := Job{Type: entry.JobType, Payload: entry.Payload, Attempts: entry.Attempts}
		if err := pushJob(ctx, cfg.RDB, target, job); err != nil {
			log.Error().Err(err).Str("queue", target).Msg("dlq_replay: failed to requeue job")
			// Put it back so the next tick sees it again.
			_ = cfg.RDB.LPush(ctx, DLQPrefix+queue, raw).Err()
			return
		}
		replayed++
	}

	if replayed > 0 || parked > 0 {
		log.Info().
			Str("queue", queue).
			Int("replayed", replayed).
			Int("parked", parked).
			Msg("dlq_replay: tick processed")
	}
}
