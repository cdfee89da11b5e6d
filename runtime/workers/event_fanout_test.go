package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"pair-lab/domain"
	"pair-lab/domain/event"
	"pair-lab/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Consumes_All_Sinks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink1 := mocks.NewMockEventSink(ctrl)
	sink2 := mocks.NewMockEventSink(ctrl)

	evt := event.SessionEnded{
		Session: domain.NewSessionID(),
		Reason:  domain.EndTimeout,
		At:      time.Now().UTC(),
	}

	// Given two registered sinks
	sink1.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	sink2.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout := NewEventFanout(log, make(chan event.DomainEvent, 1)).Add(sink1, sink2)

	// When an event is fanned out
	fanout.Fanout(context.Background(), evt)

	req.Len(fanout.sinks, 2)
}

func TestEventFanout_Run_Drains_Channel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockEventSink(ctrl)
	events := make(chan event.DomainEvent, 4)

	done := make(chan struct{})
	sink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		Do(func(context.Context, event.DomainEvent) { close(done) }).
		Return(nil).
		Times(1)

	fanout := NewEventFanout(log, events).Add(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	// When an event lands on the channel
	events <- event.Paired{Session: domain.NewSessionID(), At: time.Now().UTC()}

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Sink was not consumed in time")
	}
}
