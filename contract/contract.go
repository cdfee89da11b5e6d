//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"pair-lab/domain"
	"pair-lab/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Notification events pushed to participants through the gateway.
type Notification interface{ notification() }

type PairedNotification struct {
	Session       domain.SessionID
	PartnerHandle string
}

type SessionEndedNotification struct {
	Reason domain.EndReason
}

type NoPartnerFoundNotification struct{}

func (PairedNotification) notification()         {}
func (SessionEndedNotification) notification()   {}
func (NoPartnerFoundNotification) notification() {}

// Notifier is the outbound boundary to the chat-platform gateway.
// The engine considers a state transition committed once the in-memory
// update succeeds; delivery failures are the caller's retry problem.
type Notifier interface {
	Notify(ctx context.Context, pid domain.ParticipantID, n Notification) error
	Deliver(ctx context.Context, pid domain.ParticipantID, content string) error
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IQueue interface {
	Enqueue(pid domain.ParticipantID, now time.Time) error
	DequeuePair() (domain.WaitingEntry, domain.WaitingEntry, bool)
	Requeue(entry domain.WaitingEntry)
	Remove(pid domain.ParticipantID)
	Size() int
	RemoveStale(olderThan time.Time) []domain.WaitingEntry
}

type IRegistry interface {
	Create(a, b domain.ParticipantID, now time.Time) (domain.SessionID, error)
	Touch(sid domain.SessionID, now time.Time) error
	PartnerOf(pid domain.ParticipantID) (domain.ParticipantID, domain.SessionID, error)
	End(sid domain.SessionID, reason domain.EndReason) (domain.Session, error)
	IsMember(pid domain.ParticipantID) bool
	ActiveCount() int
	StaleSessions(now time.Time, timeout time.Duration) []domain.SessionID
}
