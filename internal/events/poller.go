// Package events publishes order-placed facts to Kafka through a
// polled outbox, so the status transition and the event stay atomic in
// the database even when the broker is down.
package events

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Ahmedbennaya/fini-storefront/internal/order/repository"
	"github.com/segmentio/kafka-go"
)

// messageWriter matches *kafka.Writer; the indirection keeps the poller
// testable without a broker.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Poller struct {
	timeout time.Duration
	tick    time.Duration
	source  repository.EventSource
	writer  messageWriter
}

func NewPoller(source repository.EventSource, brokers ...string) *Poller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "fini.orders.placed",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Poller{
		timeout: 5 * time.Second,
		tick:    time.Second,
		source:  source,
		writer:  w,
	}
}

// Close flushes and closes the underlying writer. Call after Run has
// stopped so buffered messages are not lost on shutdown.
func (p *Poller) Close() error {
	if c, ok := p.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.source.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		errPublish := p.writer.WriteMessages(writeCtx, kafka.Message{
			Key:   []byte(event.OrderID.String()),
			Value: event.Payload,
		})
		cancel()
		if errPublish != nil {
			slog.ErrorContext(ctx, "failed to publish order event", "event_id", event.ID, "error", errPublish)
			continue
		}

		if errMark := p.source.MarkEventProcessed(ctx, event.ID); errMark != nil {
			slog.ErrorContext(ctx, "failed to mark order event processed", "event_id", event.ID, "error", errMark)
			continue
		}
	}
}
