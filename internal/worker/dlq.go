package worker

// dlq.go
// Jobs that exhaust MaxJobAttempts, or that cannot be decoded or routed, are
// parked in dlq:{queue} for an operator to inspect. Nothing consumes them
// automatically.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is a dead job plus the context needed to replay it by hand.
type DLQEntry struct {
	Queue    string          `json:"queue"`
	Job      Job             `json:"job"`
	Reason   string          `json:"reason"`
	FailedAt time.Time       `json:"failed_at"`
	Raw      json.RawMessage `json:"raw,omitempty"` // set when the job could not be decoded
}

func (p *Pool) deadLetter(ctx context.Context, queue string, job Job, reason string) {
	p.pushDead(ctx, DLQEntry{Queue: queue, Job: job, Reason: reason, FailedAt: time.Now().UTC()})
}

func (p *Pool) deadLetterRaw(ctx context.Context, queue, raw, reason string) {
	entry := DLQEntry{Queue: queue, Reason: reason, FailedAt: time.Now().UTC()}
	if json.Valid([]byte(raw)) {
		entry.Raw = json.RawMessage(raw)
	} else {
		entry.Raw, _ = json.Marshal(raw)
	}
	p.pushDead(ctx, entry)
}

func (p *Pool) pushDead(ctx context.Context, entry DLQEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", entry.Queue).Msg("dlq: marshal entry")
		return
	}
	key := DLQPrefix + entry.Queue
	if err := p.rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed, job lost")
		return
	}
	log.Warn().
		Str("queue", entry.Queue).
		Str("job_type", entry.Job.Type).
		Int("attempts", entry.Job.Attempts).
		Str("reason", entry.Reason).
		Msg("dlq: job dead-lettered")
}

// DLQLength reports how many dead jobs a queue has accumulated.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// PeekDLQ returns up to n of the most recent dead jobs of a queue.
func PeekDLQ(ctx context.Context, rdb *redis.Client, queue string, n int64) ([]DLQEntry, error) {
	raws, err := rdb.LRange(ctx, DLQPrefix+queue, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raws))
	for _, raw := range raws {
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
