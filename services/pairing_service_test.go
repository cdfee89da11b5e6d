package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"pair-lab/contract"
	"pair-lab/domain"
	"pair-lab/errors"
	"pair-lab/mocks"
	"pair-lab/observability"
	"pair-lab/runtime"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newService(t *testing.T) (*PairingService, *mocks.MockNotifier, *runtime.Engine) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	engine := runtime.NewEngine(
		log,
		runtime.NewQueue(),
		runtime.NewRegistry(log),
		notifier,
		observability.NewMonitoringManager(log),
		64,
		120*time.Second,
		120*time.Second,
	)
	return NewPairingService(engine), notifier, engine
}

func TestPairingService_Message_While_Waiting_Is_Rejected(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newService(t)
	ctx := context.Background()
	pid := domain.ParticipantID(uuid.NewString())

	// Given a participant queued but not yet paired
	req.NoError(svc.RequestPairing(ctx, pid))

	// When they send a chat message
	err := svc.SendMessage(ctx, pid, "anyone there?")

	// Then they are told they are not currently paired
	req.ErrorIs(err, errors.ErrNoActiveSession)
}

func TestPairingService_Next_Ends_And_Requeues(t *testing.T) {
	req := require.New(t)
	svc, notifier, engine := newService(t)
	ctx := context.Background()

	a := domain.ParticipantID(uuid.NewString())
	b := domain.ParticipantID(uuid.NewString())

	// Given a and b paired by a sweep
	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any(), gomock.AssignableToTypeOf(contract.PairedNotification{})).
		Return(nil).
		Times(2)
	req.NoError(svc.RequestPairing(ctx, a))
	req.NoError(svc.RequestPairing(ctx, b))
	engine.PairSweep(ctx, time.Now().UTC())

	// When a skips to the next stranger
	notifier.EXPECT().
		Notify(gomock.Any(), a, contract.SessionEndedNotification{Reason: domain.EndUserRequested}).
		Return(nil).
		Times(1)
	notifier.EXPECT().
		Notify(gomock.Any(), b, contract.SessionEndedNotification{Reason: domain.EndPartnerDisconnected}).
		Return(nil).
		Times(1)
	req.NoError(svc.Next(ctx, a))

	// Then the old session is gone and a waits again
	stats := svc.Stats(ctx)
	req.Equal(0, stats.ActiveSessions)
	req.Equal(1, stats.QueueDepth)
	req.ErrorIs(svc.RequestPairing(ctx, a), errors.ErrAlreadyWaiting)
}

func TestPairingService_Next_Without_Session_Just_Queues(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newService(t)
	ctx := context.Background()
	pid := domain.ParticipantID(uuid.NewString())

	req.NoError(svc.Next(ctx, pid))

	req.Equal(1, svc.Stats(ctx).QueueDepth)
}

func TestPairingService_Stats_Snapshot(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newService(t)
	ctx := context.Background()

	req.NoError(svc.RequestPairing(ctx, domain.ParticipantID(uuid.NewString())))

	stats := svc.Stats(ctx)

	req.Equal(1, stats.QueueDepth)
	req.Equal(0, stats.ActiveSessions)
}
