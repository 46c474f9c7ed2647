package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueClosingReports = "jobs:closing_reports"

	JobClosingReport = "closing_report"

	// MaxJobAttempts is how many times a job runs before it goes to the DLQ.
	MaxJobAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// JobHandler processes one job payload. A returned error schedules a retry.
type JobHandler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// ClosingReportPayload is the job sent to QueueClosingReports.
type ClosingReportPayload struct {
	RegisterID string `json:"register_id"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// RegisterClosed enqueues the closing report of a register.
func (d *Dispatcher) RegisterClosed(ctx context.Context, registerID uuid.UUID) error {
	return d.enqueue(ctx, QueueClosingReports, JobClosingReport, ClosingReportPayload{RegisterID: registerID.String()})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes job queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]JobHandler
	queues   []string
}

// NewPool maps job types to handlers. Jobs of unknown type are dropped to the DLQ.
func NewPool(rdb *redis.Client, handlers map[string]JobHandler) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, queues: []string{QueueClosingReports}}
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle workers
// cost nothing; all of them stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Error().Err(err).Int("worker", id).Msg("dequeue failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

// process runs one raw job, re-queueing it on failure until MaxJobAttempts.
func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.deadLetterRaw(ctx, queue, raw, "malformed job: "+err.Error())
		return
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		p.deadLetter(ctx, queue, job, "no handler for job type")
		return
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Info().Str("type", job.Type).Str("queue", queue).Int("attempt", job.Attempts).Msg("job processed")
		return
	}

	if job.Attempts >= MaxJobAttempts {
		p.deadLetter(ctx, queue, job, fmt.Sprintf("max attempts (%d) exceeded: %s", MaxJobAttempts, err))
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, re-queued")
	if err := push(ctx, p.rdb, queue, job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to re-queue job")
	}
}
