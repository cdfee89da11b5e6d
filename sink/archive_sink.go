package sink

import (
	"context"
	"fmt"
	"log/slog"

	"pair-lab/domain/event"
	"pair-lab/repositories"
)

// ArchiveSink writes ended-session audit records to disk. It only cares
// about SessionEnded events; everything else passes through.
type ArchiveSink struct {
	repository repositories.IArchiveRepository
	log        *slog.Logger
}

func NewArchiveSink(repository repositories.IArchiveRepository, log *slog.Logger) ArchiveSink {
	return ArchiveSink{repository: repository, log: log}
}

func (a ArchiveSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.SessionEnded:
		return a.repository.StoreEnded(toEndedSession(evt))
	default:
		a.log.Debug(fmt.Sprintf("Not archived event : %T", evt))
		return nil
	}
}

func toEndedSession(evt event.SessionEnded) repositories.EndedSession {
	return repositories.EndedSession{
		Session:  evt.Session,
		A:        evt.A,
		B:        evt.B,
		Reason:   evt.Reason,
		Duration: evt.Duration,
		EndedAt:  evt.At,
	}
}
