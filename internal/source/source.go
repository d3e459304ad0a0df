// Package source defines the boundary between the resolution engine and
// the two external data sources: the contact export and the messaging
// database. The engine consumes raw rows; everything source-native
// (file formats, schemas, epochs) stays on this side of the line.
package source

// Contact is one parsed record from the contact export: a display name
// plus every phone and email the export attributes to it.
type Contact struct {
	Name   string   `json:"name"`
	Phones []string `json:"phones"`
	Emails []string `json:"emails"`
}

// RawMessage is one message row as the messaging database stores it,
// before any identity or thread resolution.
type RawMessage struct {
	// ID is the source-assigned monotonic row id. It is the authoritative
	// in-thread ordering key, robust to device clock skew.
	ID            int64
	Text          string
	HasText       bool // false when the source stored NULL (attachment-only rows)
	Timestamp     int64 // unix seconds
	FromMe        bool
	Handle        string // originating identifier; empty for self-sent rows
	ThreadID      int64
	HasAttachment bool
}

// ContactSource feeds parsed contact records into the identity graph.
type ContactSource interface {
	Contacts() ([]Contact, error)
}

// MessageSource exposes the messaging database's handle, thread, and
// message tables to the conversation assembler.
type MessageSource interface {
	// HandleIDs maps identifier strings to source-side handle row ids.
	// Unknown identifiers are skipped, not errors.
	HandleIDs(identifiers []string) ([]int64, error)

	// Handles lists every distinct identifier seen in message traffic,
	// used to seed the identity graph from the message side.
	Handles() ([]string, error)

	// RecentThreads returns up to limit thread ids involving any of the
	// given handles, most recently active first.
	RecentThreads(handleIDs []int64, limit int) ([]int64, error)

	// ThreadParticipants returns every handle identifier ever associated
	// with the thread.
	ThreadParticipants(threadID int64) ([]string, error)

	// ThreadMessages returns up to limit messages for the thread, newest
	// first by source timestamp.
	ThreadMessages(threadID int64, limit int) ([]RawMessage, error)

	Close() error
}
