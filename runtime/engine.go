package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"pair-lab/contract"
	"pair-lab/domain"
	"pair-lab/domain/event"
	"pair-lab/errors"
	"pair-lab/observability"
)

// Engine ties the waiting queue and the session registry together and
// performs every state transition of the pairing lifecycle. In-memory
// transitions are short critical sections inside the queue/registry;
// notifier and sink calls always happen after the transition committed,
// outside any lock.
type Engine struct {
	log            *slog.Logger
	queue          contract.IQueue
	registry       contract.IRegistry
	notifier       contract.Notifier
	monitoring     *observability.MonitoringManager
	events         chan event.DomainEvent
	timeout        time.Duration
	waitingTimeout time.Duration
}

func NewEngine(
	log *slog.Logger,
	queue contract.IQueue,
	registry contract.IRegistry,
	notifier contract.Notifier,
	monitoring *observability.MonitoringManager,
	bufferSize int,
	timeout, waitingTimeout time.Duration,
) *Engine {
	return &Engine{
		log:            log,
		queue:          queue,
		registry:       registry,
		notifier:       notifier,
		monitoring:     monitoring,
		events:         make(chan event.DomainEvent, bufferSize),
		timeout:        timeout,
		waitingTimeout: waitingTimeout,
	}
}

// Events exposes the fanout channel consumed by the EventFanout worker.
func (e *Engine) Events() chan event.DomainEvent {
	return e.events
}

// RequestPairing puts a participant into the waiting queue.
// The membership check and the enqueue are two critical sections; a
// pairing racing in between is resolved later as ParticipantBusy and a
// requeue, never as corruption.
func (e *Engine) RequestPairing(pid domain.ParticipantID, now time.Time) error {
	if e.registry.IsMember(pid) {
		return errors.ErrAlreadyInSession
	}
	if err := e.queue.Enqueue(pid, now); err != nil {
		return err
	}
	e.monitoring.SetQueueDepth(e.queue.Size())
	e.log.Info("participant enqueued", "participant", pid)
	return nil
}

// CancelSearch drops a waiting participant. Idempotent.
func (e *Engine) CancelSearch(pid domain.ParticipantID) {
	e.queue.Remove(pid)
	e.monitoring.SetQueueDepth(e.queue.Size())
}

// EndSession terminates pid's active session on their explicit request.
// The requester hears user_requested, the partner partner_disconnected.
func (e *Engine) EndSession(ctx context.Context, pid domain.ParticipantID, now time.Time) error {
	_, sid, err := e.registry.PartnerOf(pid)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotInSession) {
			return errors.ErrNoActiveSession
		}
		return err
	}

	session, err := e.registry.End(sid, domain.EndUserRequested)
	if err != nil {
		// Lost the race against another end; nothing left to do.
		if stderrors.Is(err, errors.ErrNotFound) {
			return errors.ErrNoActiveSession
		}
		return err
	}

	e.afterEnd(ctx, session, domain.EndUserRequested, now)

	partner, _ := session.PartnerOf(pid)
	e.notify(ctx, pid, contract.SessionEndedNotification{Reason: domain.EndUserRequested})
	e.notify(ctx, partner, contract.SessionEndedNotification{Reason: domain.EndPartnerDisconnected})
	return nil
}

// HandleDisconnect reacts to the gateway reporting a participant as
// unreachable: their queue entry is dropped and their session, if any,
// is ended. Only the still-reachable partner is notified.
func (e *Engine) HandleDisconnect(ctx context.Context, pid domain.ParticipantID, now time.Time) {
	e.CancelSearch(pid)

	_, sid, err := e.registry.PartnerOf(pid)
	if err != nil {
		return
	}
	session, err := e.registry.End(sid, domain.EndPartnerDisconnected)
	if err != nil {
		return
	}

	e.afterEnd(ctx, session, domain.EndPartnerDisconnected, now)

	partner, _ := session.PartnerOf(pid)
	e.notify(ctx, partner, contract.SessionEndedNotification{Reason: domain.EndPartnerDisconnected})
}

// Relay forwards content from sender to their partner, refreshing the
// session's activity clock. No content inspection, no storage.
// A relay losing the race against an end fails with ErrNoActiveSession
// and must not resurrect the session.
func (e *Engine) Relay(ctx context.Context, sender domain.ParticipantID, content string, now time.Time) error {
	partner, sid, err := e.registry.PartnerOf(sender)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotInSession) {
			return errors.ErrNoActiveSession
		}
		return err
	}

	if err = e.registry.Touch(sid, now); err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return errors.ErrNoActiveSession
		}
		return err
	}

	e.monitoring.IncrRelayed()
	e.emit(event.MessageRelayed{Session: sid, Sender: sender, At: now})

	if err = e.notifier.Deliver(ctx, partner, content); err != nil {
		// The touch is already committed; delivery retries belong to
		// the gateway side of the boundary.
		e.log.Warn("delivery failed", "participant", partner, "err", err)
	}
	return nil
}

// PairSweep drains the queue pairwise and creates sessions, FIFO within
// one sweep. A ParticipantBusy loser goes back to the queue with its
// original arrival timestamp.
func (e *Engine) PairSweep(ctx context.Context, now time.Time) {
	for {
		first, second, ok := e.queue.DequeuePair()
		if !ok {
			break
		}

		sid, err := e.registry.Create(first.ID, second.ID, now)
		if err != nil {
			e.requeueFree(first, second)
			continue
		}

		e.monitoring.IncrPairings()
		e.emit(event.Paired{Session: sid, A: first.ID, B: second.ID, At: now})
		e.log.Info("paired", "session", sid, "a", first.ID, "b", second.ID)

		session := domain.Session{ID: sid, A: first.ID, B: second.ID}
		e.notify(ctx, first.ID, contract.PairedNotification{
			Session:       sid,
			PartnerHandle: session.Handle(second.ID),
		})
		e.notify(ctx, second.ID, contract.PairedNotification{
			Session:       sid,
			PartnerHandle: session.Handle(first.ID),
		})
	}

	e.monitoring.SetQueueDepth(e.queue.Size())
	e.monitoring.SetActiveSessions(e.registry.ActiveCount())
}

// requeueFree puts back whichever side of a failed pairing attempt is
// still unpaired.
func (e *Engine) requeueFree(first, second domain.WaitingEntry) {
	for _, entry := range []domain.WaitingEntry{first, second} {
		if !e.registry.IsMember(entry.ID) {
			e.queue.Requeue(entry)
		} else {
			e.log.Debug("dropping waiter already in a session", "participant", entry.ID)
		}
	}
}

// ReapSweep expires sessions past the inactivity timeout and waiters
// past the waiting timeout.
func (e *Engine) ReapSweep(ctx context.Context, now time.Time) {
	for _, sid := range e.registry.StaleSessions(now, e.timeout) {
		session, err := e.registry.End(sid, domain.EndTimeout)
		if err != nil {
			// Ended (or touched and re-checked) since the scan; skip.
			continue
		}
		e.monitoring.IncrTimeouts()
		e.afterEnd(ctx, session, domain.EndTimeout, now)
		e.notify(ctx, session.A, contract.SessionEndedNotification{Reason: domain.EndTimeout})
		e.notify(ctx, session.B, contract.SessionEndedNotification{Reason: domain.EndTimeout})
	}

	for _, entry := range e.queue.RemoveStale(now.Add(-e.waitingTimeout)) {
		e.monitoring.IncrNoPartner()
		e.emit(event.NoPartnerFound{
			Participant: entry.ID,
			WaitedFor:   now.Sub(entry.EnqueuedAt),
			At:          now,
		})
		e.notify(ctx, entry.ID, contract.NoPartnerFoundNotification{})
		e.log.Info("no partner found in time", "participant", entry.ID)
	}

	e.monitoring.SetQueueDepth(e.queue.Size())
	e.monitoring.SetActiveSessions(e.registry.ActiveCount())
}

// Stats returns a point-in-time snapshot for the stats surfaces.
func (e *Engine) Stats() observability.MonitoringStats {
	e.monitoring.SetQueueDepth(e.queue.Size())
	e.monitoring.SetActiveSessions(e.registry.ActiveCount())
	return e.monitoring.GetLatest()
}

// afterEnd records the bookkeeping shared by every way a session ends.
func (e *Engine) afterEnd(_ context.Context, session domain.Session, reason domain.EndReason, now time.Time) {
	duration := now.Sub(session.CreatedAt)
	e.monitoring.IncrEnded()
	e.monitoring.ObserveSessionDuration(duration)
	e.monitoring.SetActiveSessions(e.registry.ActiveCount())
	e.emit(event.SessionEnded{
		Session:  session.ID,
		A:        session.A,
		B:        session.B,
		Reason:   reason,
		Duration: duration,
		At:       now,
	})
}

func (e *Engine) notify(ctx context.Context, pid domain.ParticipantID, n contract.Notification) {
	if err := e.notifier.Notify(ctx, pid, n); err != nil {
		e.log.Warn("notification failed", "participant", pid, "err", err)
	}
}

func (e *Engine) emit(evt event.DomainEvent) {
	select {
	case e.events <- evt:
	default:
		e.log.Warn(fmt.Sprintf("Event channel full, dropping %T", evt))
	}
}
