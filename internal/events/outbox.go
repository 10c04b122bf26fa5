package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gymdesk/internal/logger"
	"gymdesk/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey    = "events"
	failedKey   = "events:failed"
	maxAttempts = 3
)

// Sink delivers an event to its final destination.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

type Outbox struct {
	redis      *redis.Client
	sink       Sink
	retryDelay time.Duration
	// errorDelay pauses the worker after a failed queue read.
	errorDelay time.Duration
	// statsEvery is how often Start refreshes the queue length gauge.
	statsEvery time.Duration
}

func NewOutbox(rdb *redis.Client, sink Sink) *Outbox {
	return &Outbox{
		redis:      rdb,
		sink:       sink,
		retryDelay: 5 * time.Second,
		errorDelay: time.Second,
		statsEvery: 15 * time.Second,
	}
}

func (o *Outbox) Publish(ctx context.Context, eventType string, payload interface{}) {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		logger.Errorf("Failed to marshal %s event: %v", eventType, err)
		metrics.RecordEvent(eventType, "dropped")
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("Failed to marshal %s event: %v", eventType, err)
		metrics.RecordEvent(eventType, "dropped")
		return
	}

	if err := o.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue %s event: %v", eventType, err)
		metrics.RecordEvent(eventType, "dropped")
		return
	}

	metrics.RecordEvent(eventType, "queued")
	logger.Debugf("Event queued: %s (%s)", eventType, ev.ID)
}

// Start forwards queued events until ctx is cancelled.
func (o *Outbox) Start(ctx context.Context) {
	logger.Info("Event worker started")

	var statsAt time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info("Event worker stopped")
			return
		default:
			if time.Since(statsAt) >= o.statsEvery {
				o.QueueLength(ctx)
				statsAt = time.Now()
			}
			o.processNext(ctx)
		}
	}
}

func (o *Outbox) processNext(ctx context.Context) {
	result, err := o.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		logger.Warn("Event queue read failed", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(o.errorDelay):
		}
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		logger.Errorf("Bad event data: %v", err)
		return
	}

	ev.Tries++
	if err := o.sink.Send(ctx, ev); err != nil {
		logger.Errorf("Failed to forward %s event %s (attempt %d): %v", ev.Type, ev.ID, ev.Tries, err)

		if ev.Tries < maxAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(o.retryDelay):
			}
			data, _ := json.Marshal(ev)
			o.redis.LPush(context.Background(), queueKey, string(data))
			return
		}

		o.saveFailed(ev, err)
		return
	}

	metrics.RecordEvent(ev.Type, "published")
	logger.Debugf("Event published: %s (%s)", ev.Type, ev.ID)
}

func (o *Outbox) saveFailed(ev Event, err error) {
	failed := map[string]interface{}{
		"event": ev,
		"error": err.Error(),
		"time":  time.Now().UTC(),
	}
	data, _ := json.Marshal(failed)
	o.redis.LPush(context.Background(), failedKey, string(data))
	metrics.RecordEvent(ev.Type, "failed")
	logger.Errorf("Event %s moved to failed queue after %d attempts", ev.ID, ev.Tries)
}

func (o *Outbox) QueueLength(ctx context.Context) int64 {
	length, err := o.redis.LLen(ctx, queueKey).Result()
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Failed to read event queue length", "error", err)
		}
		return 0
	}
	metrics.EventQueueLength.Set(float64(length))
	return length
}
