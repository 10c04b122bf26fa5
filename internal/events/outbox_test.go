package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"gymdesk/internal/logger"
	"gymdesk/internal/metrics"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type recordingSink struct {
	sent []Event
	err  error
}

func (s *recordingSink) Send(_ context.Context, ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, ev)
	return nil
}

func newTestOutbox(rdb *redis.Client, sink Sink) *Outbox {
	return &Outbox{redis: rdb, sink: sink}
}

func encoded(t *testing.T, ev Event) string {
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return string(data)
}

func TestPublishQueuesEvent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	metrics.EventsTotal.Reset()

	mock.Regexp().ExpectLPush("events", `booking\.confirmed`).SetVal(1)

	newTestOutbox(db, &recordingSink{}).Publish(context.Background(), BookingConfirmed, map[string]int{"booking_id": 1})

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsTotal.WithLabelValues(BookingConfirmed, "queued")))
}

func TestPublishSwallowsRedisErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	metrics.EventsTotal.Reset()

	mock.Regexp().ExpectLPush("events", `.*`).SetErr(errors.New("connection refused"))

	assert.NotPanics(t, func() {
		newTestOutbox(db, &recordingSink{}).Publish(context.Background(), SlotCancelled, map[string]int{"slot_id": 2})
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsTotal.WithLabelValues(SlotCancelled, "dropped")))
}

func TestProcessNextForwardsToSink(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := &recordingSink{}

	ev, err := NewEvent(CheckInRecorded, map[string]int{"user_id": 3})
	require.NoError(t, err)
	mock.ExpectBRPop(2*time.Second, "events").SetVal([]string{"events", encoded(t, ev)})

	newTestOutbox(db, sink).processNext(context.Background())

	require.Len(t, sink.sent, 1)
	assert.Equal(t, ev.ID, sink.sent[0].ID)
	assert.Equal(t, 1, sink.sent[0].Tries)
	assert.JSONEq(t, `{"user_id":3}`, string(sink.sent[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextRequeuesOnFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := &recordingSink{err: errors.New("broker down")}

	ev, err := NewEvent(BookingCancelled, map[string]int{"booking_id": 9})
	require.NoError(t, err)
	mock.ExpectBRPop(2*time.Second, "events").SetVal([]string{"events", encoded(t, ev)})
	mock.Regexp().ExpectLPush("events", `"tries":1`).SetVal(1)

	newTestOutbox(db, sink).processNext(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextMovesExhaustedEventToFailed(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := &recordingSink{err: errors.New("broker down")}

	ev, err := NewEvent(BookingCancelled, map[string]int{"booking_id": 9})
	require.NoError(t, err)
	ev.Tries = maxAttempts - 1
	mock.ExpectBRPop(2*time.Second, "events").SetVal([]string{"events", encoded(t, ev)})
	mock.Regexp().ExpectLPush("events:failed", `broker down`).SetVal(1)

	newTestOutbox(db, sink).processNext(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectLLen("events").SetVal(4)

	assert.Equal(t, int64(4), newTestOutbox(db, nil).QueueLength(context.Background()))
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.EventQueueLength))
}

func TestStartStopsOnCancel(t *testing.T) {
	db, _ := redismock.NewClientMock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		newTestOutbox(db, &recordingSink{}).Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestProcessNextBacksOffOnReadError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := &recordingSink{}
	o := newTestOutbox(db, sink)
	o.errorDelay = 50 * time.Millisecond

	mock.ExpectBRPop(2*time.Second, "events").SetErr(errors.New("connection reset by peer"))

	start := time.Now()
	o.processNext(context.Background())

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Empty(t, sink.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextBackoffEndsOnCancel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	o := newTestOutbox(db, &recordingSink{})
	o.errorDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	mock.ExpectBRPop(2*time.Second, "events").SetErr(errors.New("connection reset by peer"))

	done := make(chan struct{})
	go func() {
		o.processNext(ctx)
		close(done)
	}()
	time.AfterFunc(20*time.Millisecond, cancel)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("backoff ignored cancellation")
	}
}

func TestProcessNextEmptyQueueDoesNotWait(t *testing.T) {
	db, mock := redismock.NewClientMock()
	o := newTestOutbox(db, &recordingSink{})
	o.errorDelay = time.Hour

	mock.ExpectBRPop(2*time.Second, "events").RedisNil()

	done := make(chan struct{})
	go func() {
		o.processNext(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("empty queue should not back off")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartRefreshesQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	metrics.EventQueueLength.Set(0)

	o := newTestOutbox(db, &recordingSink{})
	o.statsEvery = time.Hour
	o.errorDelay = 10 * time.Millisecond

	mock.ExpectLLen("events").SetVal(7)
	mock.ExpectBRPop(2*time.Second, "events").RedisNil()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.EventQueueLength) == 7
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRetryWaitEndsOnCancel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	o := newTestOutbox(db, &recordingSink{err: errors.New("broker down")})
	o.retryDelay = time.Hour

	ev, err := NewEvent(BookingCancelled, map[string]int{"booking_id": 9})
	require.NoError(t, err)
	mock.ExpectBRPop(2*time.Second, "events").SetVal([]string{"events", encoded(t, ev)})
	mock.Regexp().ExpectLPush("events", `"tries":1`).SetVal(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.processNext(ctx)
		close(done)
	}()
	time.AfterFunc(20*time.Millisecond, cancel)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry wait ignored cancellation")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "gymdesk.events.booking.confirmed", QueueName(BookingConfirmed))
}
