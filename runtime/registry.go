package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pair-lab/domain"
	"pair-lab/errors"
)

// Registry is the authoritative map of active sessions.
// It owns both lookup indices and keeps them consistent as a single
// atomic unit per operation: nothing else mutates session state.
type Registry struct {
	mu            sync.RWMutex
	log           *slog.Logger
	sessions      map[domain.SessionID]*domain.Session
	byParticipant map[domain.ParticipantID]domain.SessionID
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:           log,
		sessions:      make(map[domain.SessionID]*domain.Session),
		byParticipant: make(map[domain.ParticipantID]domain.SessionID),
	}
}

// Create allocates a new active session for a and b.
// Returns ErrParticipantBusy if either one already belongs to a session;
// the matchmaker treats that as a recoverable retry, never corruption.
func (r *Registry) Create(a, b domain.ParticipantID, now time.Time) (domain.SessionID, error) {
	if a == b {
		return "", fmt.Errorf("%w: cannot pair %s with itself", errors.ErrParticipantBusy, a)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.byParticipant[a]; busy {
		return "", fmt.Errorf("%w: %s", errors.ErrParticipantBusy, a)
	}
	if _, busy := r.byParticipant[b]; busy {
		return "", fmt.Errorf("%w: %s", errors.ErrParticipantBusy, b)
	}

	session := &domain.Session{
		ID:           domain.NewSessionID(),
		A:            a,
		B:            b,
		CreatedAt:    now,
		LastActivity: now,
		State:        domain.SessionActive,
	}
	r.sessions[session.ID] = session
	r.byParticipant[a] = session.ID
	r.byParticipant[b] = session.ID
	return session.ID, nil
}

// Touch refreshes last-activity. Last writer wins: a touch racing the
// reaper is an accepted best-effort timeout, not a hard deadline.
func (r *Registry) Touch(sid domain.SessionID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sid]
	if !ok || session.State != domain.SessionActive {
		return errors.ErrNotFound
	}
	session.LastActivity = now
	return nil
}

// PartnerOf resolves the other member of pid's active session.
func (r *Registry) PartnerOf(pid domain.ParticipantID) (domain.ParticipantID, domain.SessionID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sid, ok := r.byParticipant[pid]
	if !ok {
		return "", "", errors.ErrNotInSession
	}
	session, ok := r.sessions[sid]
	if !ok {
		r.log.Error("participant index points to a missing session", "participant", pid, "session", sid)
		return "", "", errors.ErrRegistryInconsistent
	}
	partner, member := session.PartnerOf(pid)
	if !member {
		r.log.Error("participant index points to a foreign session", "participant", pid, "session", sid)
		return "", "", errors.ErrRegistryInconsistent
	}
	return partner, sid, nil
}

// End transitions a session to Ended and unlinks both members from the
// by-participant index. A second call for the same id fails with
// ErrNotFound and leaves the first call's effects unchanged.
func (r *Registry) End(sid domain.SessionID, reason domain.EndReason) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sid]
	if !ok || session.State != domain.SessionActive {
		return domain.Session{}, errors.ErrNotFound
	}
	session.State = domain.SessionEnded
	delete(r.byParticipant, session.A)
	delete(r.byParticipant, session.B)
	delete(r.sessions, sid)
	r.log.Debug("session ended", "session", sid, "reason", string(reason))
	return *session, nil
}

func (r *Registry) IsMember(pid domain.ParticipantID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byParticipant[pid]
	return ok
}

func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StaleSessions returns the ids of active sessions whose last activity
// is at least timeout old. The caller ends them one by one; each End is
// atomic on its own, so a session touched in between simply survives.
func (r *Registry) StaleSessions(now time.Time, timeout time.Duration) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []domain.SessionID
	for sid, session := range r.sessions {
		if now.Sub(session.LastActivity) >= timeout {
			stale = append(stale, sid)
		}
	}
	return stale
}
