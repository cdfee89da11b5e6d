// Package domain contains core concepts of the pairing system.
// This file defines the Session lifecycle and related invariants.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

type SessionState int

const (
	SessionActive SessionState = iota
	SessionEnded
)

// EndReason is surfaced to the notifier for differentiated messaging.
type EndReason string

const (
	EndUserRequested       EndReason = "user_requested"
	EndTimeout             EndReason = "timeout"
	EndPartnerDisconnected EndReason = "partner_disconnected"
)

// Session is a bidirectional pairing between exactly two participants.
// Invariants: A != B, and a participant belongs to at most one active
// session. The registry owns all mutations.
type Session struct {
	ID           SessionID
	A            ParticipantID
	B            ParticipantID
	CreatedAt    time.Time
	LastActivity time.Time
	State        SessionState
}

// PartnerOf returns the other member. The boolean is false when pid is
// not a member at all.
func (s Session) PartnerOf(pid ParticipantID) (ParticipantID, bool) {
	switch pid {
	case s.A:
		return s.B, true
	case s.B:
		return s.A, true
	default:
		return "", false
	}
}

// Handle returns the opaque display handle shown to the partner.
// It is derived from the session id so it cannot be correlated with
// the platform identity across sessions.
func (s Session) Handle(pid ParticipantID) string {
	suffix := string(s.ID)
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if pid == s.A {
		return fmt.Sprintf("stranger-a-%s", suffix)
	}
	return fmt.Sprintf("stranger-b-%s", suffix)
}
