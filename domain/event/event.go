package event

import (
	"time"

	"pair-lab/domain"
)

type DomainEvent interface {
	SessionID() domain.SessionID
}

type Paired struct {
	Session domain.SessionID
	A       domain.ParticipantID
	B       domain.ParticipantID
	At      time.Time
}

func (e Paired) SessionID() domain.SessionID { return e.Session }

type SessionEnded struct {
	Session  domain.SessionID
	A        domain.ParticipantID
	B        domain.ParticipantID
	Reason   domain.EndReason
	Duration time.Duration
	At       time.Time
}

func (e SessionEnded) SessionID() domain.SessionID { return e.Session }

// NoPartnerFound is emitted when a waiter is dropped by the reaper
// before being paired. It carries no session.
type NoPartnerFound struct {
	Participant domain.ParticipantID
	WaitedFor   time.Duration
	At          time.Time
}

func (e NoPartnerFound) SessionID() domain.SessionID { return "" }

type MessageRelayed struct {
	Session domain.SessionID
	Sender  domain.ParticipantID
	At      time.Time
}

func (e MessageRelayed) SessionID() domain.SessionID { return e.Session }
