package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventSource struct {
	events    []*domain.OrderEvent
	fetchErr  error
	markErr   error
	processed []uuid.UUID
}

func (f *fakeEventSource) GetUnprocessedEvents(_ context.Context, _ int) ([]*domain.OrderEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.events, nil
}

func (f *fakeEventSource) MarkEventProcessed(_ context.Context, eventID uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.processed = append(f.processed, eventID)
	return nil
}

type fakeWriter struct {
	written  []kafka.Message
	writeErr error
	closed   bool
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, msgs...)
	return nil
}

func newEvent(orderID uuid.UUID) *domain.OrderEvent {
	return &domain.OrderEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		Payload:   []byte(`{"status":"PROCESSING"}`),
		CreatedAt: time.Now(),
	}
}

func TestProcessUnpublishedEvents(t *testing.T) {
	orderID := uuid.New()
	source := &fakeEventSource{events: []*domain.OrderEvent{newEvent(orderID), newEvent(orderID)}}
	writer := &fakeWriter{}
	p := &Poller{timeout: time.Second, tick: time.Millisecond, source: source, writer: writer}

	p.processUnpublishedEvents(context.Background())

	require.Len(t, writer.written, 2)
	assert.Equal(t, []byte(orderID.String()), writer.written[0].Key)
	assert.JSONEq(t, `{"status":"PROCESSING"}`, string(writer.written[0].Value))
	assert.Len(t, source.processed, 2)
	assert.Equal(t, source.events[0].ID, source.processed[0])
}

func TestProcessUnpublishedEvents_PublishFailureLeavesEventUnprocessed(t *testing.T) {
	source := &fakeEventSource{events: []*domain.OrderEvent{newEvent(uuid.New())}}
	writer := &fakeWriter{writeErr: errors.New("broker down")}
	p := &Poller{timeout: time.Second, tick: time.Millisecond, source: source, writer: writer}

	p.processUnpublishedEvents(context.Background())

	assert.Empty(t, source.processed)
}

func TestProcessUnpublishedEvents_FetchFailure(t *testing.T) {
	source := &fakeEventSource{fetchErr: errors.New("db down")}
	writer := &fakeWriter{}
	p := &Poller{timeout: time.Second, tick: time.Millisecond, source: source, writer: writer}

	p.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.written)
}

func TestClose_ClosesWriter(t *testing.T) {
	writer := &fakeWriter{}
	p := &Poller{timeout: time.Second, tick: time.Millisecond, source: &fakeEventSource{}, writer: writer}

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	source := &fakeEventSource{}
	writer := &fakeWriter{}
	p := &Poller{timeout: time.Second, tick: 5 * time.Millisecond, source: source, writer: writer}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
