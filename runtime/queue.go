// Package runtime hosts the concurrency-safe state of the pairing engine
// and orchestrates its periodic sweeps. Business rules live in domain,
// boundary contracts in contract.
package runtime

import (
	"sync"
	"time"

	"pair-lab/domain"
	"pair-lab/errors"
)

// Queue is the FIFO of participants awaiting a partner.
// A single mutex serializes every operation; the slice keeps insertion
// order while the index set enforces at-most-once membership.
type Queue struct {
	mu      sync.Mutex
	entries []domain.WaitingEntry
	present map[domain.ParticipantID]struct{}
}

func NewQueue() *Queue {
	return &Queue{present: make(map[domain.ParticipantID]struct{})}
}

// Enqueue appends a waiting entry in arrival order.
// Returns ErrAlreadyWaiting if the participant is already queued.
// The in-session check belongs to the engine, which consults the
// registry before calling here.
func (q *Queue) Enqueue(pid domain.ParticipantID, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.present[pid]; ok {
		return errors.ErrAlreadyWaiting
	}
	q.present[pid] = struct{}{}
	q.entries = append(q.entries, domain.WaitingEntry{ID: pid, EnqueuedAt: now})
	return nil
}

// DequeuePair removes and returns the two oldest entries.
// The boolean is false when fewer than two participants are waiting,
// in which case nothing is removed.
func (q *Queue) DequeuePair() (domain.WaitingEntry, domain.WaitingEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) < 2 {
		return domain.WaitingEntry{}, domain.WaitingEntry{}, false
	}
	first, second := q.entries[0], q.entries[1]
	q.entries = q.entries[2:]
	delete(q.present, first.ID)
	delete(q.present, second.ID)
	return first, second, true
}

// Requeue puts back an entry whose pairing attempt failed, preserving
// its original arrival timestamp so the reaper still sees its true age.
// Appending at the back keeps FIFO semantics simple; the entry competes
// again on the next sweep.
func (q *Queue) Requeue(entry domain.WaitingEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.present[entry.ID]; ok {
		return
	}
	q.present[entry.ID] = struct{}{}
	q.entries = append(q.entries, entry)
}

// Remove drops a participant from the queue. Idempotent: absent ids
// are not an error.
func (q *Queue) Remove(pid domain.ParticipantID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remove(pid)
}

func (q *Queue) remove(pid domain.ParticipantID) {
	if _, ok := q.present[pid]; !ok {
		return
	}
	delete(q.present, pid)
	for i, e := range q.entries {
		if e.ID == pid {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// RemoveStale drops and returns every entry enqueued at or before olderThan.
// Used by the reaper to keep abandoned requests from growing the queue.
func (q *Queue) RemoveStale(olderThan time.Time) []domain.WaitingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stale []domain.WaitingEntry
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !e.EnqueuedAt.After(olderThan) {
			stale = append(stale, e)
			delete(q.present, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return stale
}
