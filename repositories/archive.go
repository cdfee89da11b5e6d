//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pair-lab/domain"

	"github.com/dgraph-io/badger/v4"
)

type IArchiveRepository interface {
	StoreEnded(record EndedSession) error
	ListRecent(limit int) ([]EndedSession, error)
}

// EndedSession is the audit record written once a session terminates.
// This is an append-only trail for operators; live state never reads it
// back, so losing it across restarts is harmless.
type EndedSession struct {
	Session  domain.SessionID     `json:"session"`
	A        domain.ParticipantID `json:"a"`
	B        domain.ParticipantID `json:"b"`
	Reason   domain.EndReason     `json:"reason"`
	Duration time.Duration        `json:"duration"`
	EndedAt  time.Time            `json:"ended_at"`
}

type ArchiveRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewArchiveRepository(db *badger.DB, log *slog.Logger) ArchiveRepository {
	return ArchiveRepository{db: db, log: log}
}

// StoreEnded persists an audit record.
// The key is formatted as "ended:{timestamp_padded}:{session_id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Use the session id as a collision disconnector if two sessions
//     end at the same nanosecond.
func (a ArchiveRepository) StoreEnded(record EndedSession) error {
	key := fmt.Sprintf("ended:%019d:%s", record.EndedAt.UnixNano(), record.Session)
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// ListRecent returns up to limit audit records, newest first, using a
// reverse prefix scan over the time-sorted keys.
func (a ArchiveRepository) ListRecent(limit int) ([]EndedSession, error) {
	var records []EndedSession
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := []byte("ended:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the last possible key for the prefix, then walk back.
		seekKey := append([]byte{}, prefix...)
		seekKey = append(seekKey, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				a.log.Debug(fmt.Sprintf("Maximum of %d records reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var record EndedSession
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
