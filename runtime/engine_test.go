package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"pair-lab/contract"
	"pair-lab/domain"
	"pair-lab/domain/event"
	"pair-lab/errors"
	"pair-lab/mocks"
	"pair-lab/observability"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testTimeout        = 120 * time.Second
	testWaitingTimeout = 120 * time.Second
)

func newTestEngine(t *testing.T) (*Engine, *mocks.MockNotifier, *Registry, *Queue) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	registry := NewRegistry(log)
	queue := NewQueue()
	monitoring := observability.NewMonitoringManager(log)
	engine := NewEngine(log, queue, registry, notifier, monitoring, 64, testTimeout, testWaitingTimeout)
	return engine, notifier, registry, queue
}

func TestEngine_RequestPairing_Rejects_Double_Enqueue(t *testing.T) {
	req := require.New(t)
	engine, _, _, _ := newTestEngine(t)
	pid := domain.ParticipantID(uuid.NewString())
	now := time.Now().UTC()

	req.NoError(engine.RequestPairing(pid, now))

	err := engine.RequestPairing(pid, now)

	req.ErrorIs(err, errors.ErrAlreadyWaiting)
}

func TestEngine_RequestPairing_Rejects_Session_Member(t *testing.T) {
	req := require.New(t)
	engine, _, registry, _ := newTestEngine(t)
	now := time.Now().UTC()
	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())

	// Given a and b already chat together
	_, err := registry.Create(a, b, now)
	req.NoError(err)

	// When a requests a new pairing
	err = engine.RequestPairing(a, now)

	req.ErrorIs(err, errors.ErrAlreadyInSession)
}

func TestEngine_PairSweep_Pairs_In_FIFO_Order(t *testing.T) {
	req := require.New(t)
	engine, notifier, registry, queue := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())
	c := domain.ParticipantID(uuid.NewString())
	d := domain.ParticipantID(uuid.NewString())

	// Given [a, b, c, d] waiting in that order
	for i, pid := range []domain.ParticipantID{a, b, c, d} {
		req.NoError(engine.RequestPairing(pid, now.Add(time.Duration(i)*time.Millisecond)))
	}

	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any(), gomock.AssignableToTypeOf(contract.PairedNotification{})).
		Return(nil).
		Times(4)

	// When one matchmaker tick runs
	engine.PairSweep(ctx, now)

	// Then (a,b) and (c,d) are paired, never (a,c)
	partnerOfA, _, err := registry.PartnerOf(a)
	req.NoError(err)
	req.Equal(b, partnerOfA)

	partnerOfC, _, err := registry.PartnerOf(c)
	req.NoError(err)
	req.Equal(d, partnerOfC)

	req.Equal(0, queue.Size())
	req.Equal(2, registry.ActiveCount())
}

func TestEngine_PairSweep_Requeues_Free_Loser_On_Busy(t *testing.T) {
	req := require.New(t)
	engine, _, registry, queue := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())
	other := domain.ParticipantID(uuid.NewString())

	arrivalOfB := now.Add(time.Millisecond)
	req.NoError(engine.RequestPairing(a, now))
	req.NoError(engine.RequestPairing(b, arrivalOfB))

	// Given a was concurrently placed into a session after enqueueing
	_, err := registry.Create(a, other, now)
	req.NoError(err)

	// When the sweep hits the (a,b) pair
	engine.PairSweep(ctx, now)

	// Then b is back in the queue with its original timestamp and a is gone
	req.Equal(1, queue.Size())
	stale := queue.RemoveStale(arrivalOfB)
	req.Len(stale, 1)
	req.Equal(b, stale[0].ID)
	req.Equal(arrivalOfB, stale[0].EnqueuedAt)
}

func TestEngine_Relay_Delivers_And_Refreshes_Activity(t *testing.T) {
	req := require.New(t)
	engine, notifier, registry, _ := newTestEngine(t)
	ctx := context.Background()
	createdAt := time.Now().UTC()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())
	_, err := registry.Create(a, b, createdAt)
	req.NoError(err)

	notifier.EXPECT().Deliver(gomock.Any(), b, "hello there").Return(nil).Times(1)

	// When a relays a message at t+100s
	sentAt := createdAt.Add(100 * time.Second)
	req.NoError(engine.Relay(ctx, a, "hello there", sentAt))

	// Then the activity clock moved: not stale at t+121s
	req.Empty(registry.StaleSessions(createdAt.Add(121*time.Second), testTimeout))
}

func TestEngine_Relay_Fails_When_Unpaired(t *testing.T) {
	req := require.New(t)
	engine, _, _, _ := newTestEngine(t)

	// A participant still waiting (or unknown) cannot relay
	err := engine.Relay(context.Background(), domain.ParticipantID(uuid.NewString()), "hello", time.Now().UTC())

	req.ErrorIs(err, errors.ErrNoActiveSession)
}

func TestEngine_Relay_Loses_Race_Against_End(t *testing.T) {
	req := require.New(t)
	engine, notifier, registry, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())
	sid, err := registry.Create(a, b, now)
	req.NoError(err)

	_, err = registry.End(sid, domain.EndUserRequested)
	req.NoError(err)

	notifier.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// When a relay arrives after the end
	err = engine.Relay(ctx, a, "too late", now)

	// Then it fails and the session is not resurrected
	req.ErrorIs(err, errors.ErrNoActiveSession)
	req.Equal(0, registry.ActiveCount())
}

func TestEngine_EndSession_Differentiates_Reasons(t *testing.T) {
	req := require.New(t)
	engine, notifier, registry, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())
	_, err := registry.Create(a, b, now)
	req.NoError(err)

	// The requester hears user_requested, the partner partner_disconnected
	notifier.EXPECT().
		Notify(gomock.Any(), a, contract.SessionEndedNotification{Reason: domain.EndUserRequested}).
		Return(nil).
		Times(1)
	notifier.EXPECT().
		Notify(gomock.Any(), b, contract.SessionEndedNotification{Reason: domain.EndPartnerDisconnected}).
		Return(nil).
		Times(1)

	req.NoError(engine.EndSession(ctx, a, now.Add(time.Minute)))
	req.Equal(0, registry.ActiveCount())
}

func TestEngine_EndSession_Fails_When_Unpaired(t *testing.T) {
	req := require.New(t)
	engine, _, _, _ := newTestEngine(t)

	err := engine.EndSession(context.Background(), domain.ParticipantID(uuid.NewString()), time.Now().UTC())

	req.ErrorIs(err, errors.ErrNoActiveSession)
}

func TestEngine_HandleDisconnect_Notifies_Partner_Only(t *testing.T) {
	req := require.New(t)
	engine, notifier, registry, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())
	_, err := registry.Create(a, b, now)
	req.NoError(err)

	// Only the reachable side gets a notification
	notifier.EXPECT().
		Notify(gomock.Any(), b, contract.SessionEndedNotification{Reason: domain.EndPartnerDisconnected}).
		Return(nil).
		Times(1)

	engine.HandleDisconnect(ctx, a, now)

	req.Equal(0, registry.ActiveCount())
}

func TestEngine_ReapSweep_Expires_Idle_Session(t *testing.T) {
	req := require.New(t)
	engine, notifier, registry, _ := newTestEngine(t)
	ctx := context.Background()
	createdAt := time.Now().UTC()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())
	sid, err := registry.Create(a, b, createdAt)
	req.NoError(err)

	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any(), contract.SessionEndedNotification{Reason: domain.EndTimeout}).
		Return(nil).
		Times(2)

	// When the reaper ticks past the timeout
	engine.ReapSweep(ctx, createdAt.Add(121*time.Second))

	req.Equal(0, registry.ActiveCount())
	req.False(registry.IsMember(a))
	req.False(registry.IsMember(b))

	// And the ended event carries the timeout reason
	select {
	case evt := <-engine.Events():
		ended, ok := evt.(event.SessionEnded)
		req.True(ok)
		req.Equal(sid, ended.Session)
		req.Equal(domain.EndTimeout, ended.Reason)
	default:
		req.Fail("expected a SessionEnded event")
	}
}

func TestEngine_ReapSweep_Leaves_Fresh_Session_Alone(t *testing.T) {
	req := require.New(t)
	engine, _, registry, _ := newTestEngine(t)
	createdAt := time.Now().UTC()

	_, err := registry.Create(
		domain.ParticipantID(uuid.NewString()),
		domain.ParticipantID(uuid.NewString()),
		createdAt,
	)
	req.NoError(err)

	// A tick at t=119 with TIMEOUT=120 leaves the session active
	engine.ReapSweep(context.Background(), createdAt.Add(119*time.Second))

	req.Equal(1, registry.ActiveCount())
}

func TestEngine_ReapSweep_Drops_Abandoned_Waiters(t *testing.T) {
	req := require.New(t)
	engine, notifier, _, queue := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := domain.ParticipantID(uuid.NewString())
	fresh := domain.ParticipantID(uuid.NewString())
	req.NoError(engine.RequestPairing(stale, now.Add(-121*time.Second)))
	req.NoError(engine.RequestPairing(fresh, now.Add(-time.Second)))

	notifier.EXPECT().
		Notify(gomock.Any(), stale, contract.NoPartnerFoundNotification{}).
		Return(nil).
		Times(1)

	engine.ReapSweep(ctx, now)

	req.Equal(1, queue.Size())
}
