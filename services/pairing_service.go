package services

import (
	"context"
	"time"

	"pair-lab/domain"
	"pair-lab/observability"
	"pair-lab/runtime"
)

// IPairingService is the inbound contract the chat-platform gateway
// invokes on user commands and messages.
type IPairingService interface {
	RequestPairing(ctx context.Context, pid domain.ParticipantID) error
	CancelSearch(ctx context.Context, pid domain.ParticipantID)
	EndSession(ctx context.Context, pid domain.ParticipantID) error
	Next(ctx context.Context, pid domain.ParticipantID) error
	SendMessage(ctx context.Context, pid domain.ParticipantID, content string) error
	Disconnect(ctx context.Context, pid domain.ParticipantID)
	Stats(ctx context.Context) observability.MonitoringStats
}

type PairingService struct {
	engine *runtime.Engine
}

func NewPairingService(engine *runtime.Engine) *PairingService {
	return &PairingService{engine: engine}
}

func (s *PairingService) RequestPairing(_ context.Context, pid domain.ParticipantID) error {
	return s.engine.RequestPairing(pid, time.Now().UTC())
}

func (s *PairingService) CancelSearch(_ context.Context, pid domain.ParticipantID) {
	s.engine.CancelSearch(pid)
}

func (s *PairingService) EndSession(ctx context.Context, pid domain.ParticipantID) error {
	return s.engine.EndSession(ctx, pid, time.Now().UTC())
}

// Next ends the current session, if any, and immediately queues the
// requester again. An unpaired requester is simply queued.
func (s *PairingService) Next(ctx context.Context, pid domain.ParticipantID) error {
	now := time.Now().UTC()
	_ = s.engine.EndSession(ctx, pid, now)
	return s.engine.RequestPairing(pid, now)
}

// SendMessage relays content to the sender's partner. A message sent
// while still waiting for a partner fails like any other unpaired send.
func (s *PairingService) SendMessage(ctx context.Context, pid domain.ParticipantID, content string) error {
	return s.engine.Relay(ctx, pid, content, time.Now().UTC())
}

func (s *PairingService) Disconnect(ctx context.Context, pid domain.ParticipantID) {
	s.engine.HandleDisconnect(ctx, pid, time.Now().UTC())
}

func (s *PairingService) Stats(_ context.Context) observability.MonitoringStats {
	return s.engine.Stats()
}
