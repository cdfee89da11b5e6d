// Package domain contains core concepts of the pairing system.
// This file defines Participant identities and queue membership.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// ParticipantID identifies a platform user. It is opaque to the engine;
// the gateway collaborator owns its real meaning.
type ParticipantID string

// WaitingEntry is a participant awaiting a partner.
// The timestamp is metadata for the reaper, not a sort key:
// the queue stays in insertion order.
type WaitingEntry struct {
	ID         ParticipantID
	EnqueuedAt time.Time
}
