// Package conversation groups raw message rows into threaded
// conversations with per-message sender identity resolved through the
// identity graph.
package conversation

import (
	"time"
)

// Default bounds applied when the caller leaves Options zero-valued.
const (
	DefaultConversationLimit = 3
	DefaultMessageLimit      = 20
)

// UnknownContactName labels senders and participants whose handle does not
// resolve to any identity.
const UnknownContactName = "Unknown Contact"

// Participant is a resolved identity reference inside one conversation.
type Participant struct {
	// Key is the identity's canonical key; empty for handles that never
	// resolved ("Unknown Contact" entries) and for the local user.
	Key         string
	DisplayName string
	// Handle is the source-side identifier the participant was discovered
	// under; empty for the queried identity and the local user.
	Handle string
}

// Message is one resolved message: who said it, when, and what.
type Message struct {
	ID        int64
	Sender    string
	Timestamp time.Time
	Text      string
}

// Conversation is one reconstructed thread.
type Conversation struct {
	ThreadID     int64
	Participants []Participant
	Messages     []Message
}

// Options bounds an assembly request.
type Options struct {
	ConversationLimit int
	MessageLimit      int
	// Optional inclusive date range applied to resolved timestamps.
	Since *time.Time
	Until *time.Time
}

func (o Options) withDefaults() Options {
	if o.ConversationLimit <= 0 {
		o.ConversationLimit = DefaultConversationLimit
	}
	if o.MessageLimit <= 0 {
		o.MessageLimit = DefaultMessageLimit
	}
	return o
}

// Result is what an assembly request produces. Absence is explicit: an
// unresolvable target or unavailable source yields an empty conversation
// list with Detail set, never fabricated data.
type Result struct {
	Conversations []Conversation
	// Detail explains an empty or degraded result.
	Detail string
	// Degraded is set when the message source failed mid-assembly. The
	// conversations list is empty in that case.
	Degraded bool
}
