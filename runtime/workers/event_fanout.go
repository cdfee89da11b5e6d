package workers

import (
	"context"
	"log/slog"

	"pair-lab/contract"
	"pair-lab/domain/event"
)

// EventFanout broadcasts domain events to multiple in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. EventFanout is not a message broker.
//
// It is intended for observability and side effects (audit, logs),
// not for core domain logic.
type EventFanout struct {
	Log          *slog.Logger
	DomainEvents chan event.DomainEvent
	sinks        []contract.EventSink
}

func NewEventFanout(log *slog.Logger, domainEvents chan event.DomainEvent) *EventFanout {
	return &EventFanout{Log: log, DomainEvents: domainEvents}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.DomainEvents:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout One sink for each event
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.Log.Warn("Sink failed to consume event", "err", err)
		}
	}
}
