package conversation

import (
	"fmt"
	"sort"
	"time"

	"github.com/whosaid/whosaid/internal/identity"
	"github.com/whosaid/whosaid/internal/source"
)

// Assembler reconstructs conversations for one target identity. It reads
// raw rows from the message source and resolves names through the
// identity store; it never writes to either.
type Assembler struct {
	Store  *identity.Store
	Source source.MessageSource
	// LocalName labels messages flagged sent-by-self. Defaults to "Me".
	LocalName string
}

// NewAssembler wires an assembler to its store and message source.
func NewAssembler(store *identity.Store, src source.MessageSource, localName string) *Assembler {
	if localName == "" {
		localName = "Me"
	}
	return &Assembler{Store: store, Source: src, LocalName: localName}
}

// Assemble builds up to opts.ConversationLimit conversations involving
// the target identity.
//
// Thread selection walks most-recently-active first, but the returned
// list is ordered by highest contained message id ascending, and messages
// within a conversation are ordered by message id ascending. The
// selection/presentation asymmetry is deliberate, observable behavior.
func (a *Assembler) Assemble(target *identity.Identity, opts Options) Result {
	opts = opts.withDefaults()

	if a.Source == nil {
		return Result{Degraded: true, Detail: "message source unavailable"}
	}
	if target == nil {
		return Result{Detail: "no target identity"}
	}

	handleIDs, err := a.Source.HandleIDs(identifierStrings(target))
	if err != nil {
		return Result{Degraded: true, Detail: fmt.Sprintf("message source error: %v", err)}
	}
	if len(handleIDs) == 0 {
		return Result{Detail: fmt.Sprintf("no message handle found for %s", target.DisplayName)}
	}

	threadIDs, err := a.Source.RecentThreads(handleIDs, opts.ConversationLimit)
	if err != nil {
		return Result{Degraded: true, Detail: fmt.Sprintf("message source error: %v", err)}
	}
	if len(threadIDs) == 0 {
		return Result{Detail: fmt.Sprintf("no conversations found for %s", target.DisplayName)}
	}

	var convos []Conversation
	for _, threadID := range threadIDs {
		convo, ok, err := a.assembleThread(target, threadID, opts)
		if err != nil {
			return Result{Degraded: true, Detail: fmt.Sprintf("message source error: %v", err)}
		}
		if ok {
			convos = append(convos, convo)
		}
	}

	// Present oldest-activity-first: ascending by the highest message id
	// each conversation contains.
	sort.SliceStable(convos, func(i, j int) bool {
		return maxMessageID(convos[i]) < maxMessageID(convos[j])
	})

	if len(convos) == 0 {
		return Result{Detail: fmt.Sprintf("no conversations with text messages found for %s", target.DisplayName)}
	}
	return Result{Conversations: convos}
}

// assembleThread resolves one thread. ok is false when every message was
// filtered out; such conversations are not emitted.
func (a *Assembler) assembleThread(target *identity.Identity, threadID int64, opts Options) (Conversation, bool, error) {
	handles, err := a.Source.ThreadParticipants(threadID)
	if err != nil {
		return Conversation{}, false, err
	}
	raw, err := a.Source.ThreadMessages(threadID, opts.MessageLimit)
	if err != nil {
		return Conversation{}, false, err
	}

	var msgs []Message
	for _, r := range raw {
		// Attachment-only rows carry no content and are invisible to this
		// engine.
		if !r.HasText {
			continue
		}
		ts := time.Unix(r.Timestamp, 0)
		if opts.Since != nil && ts.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && ts.After(*opts.Until) {
			continue
		}
		msgs = append(msgs, Message{
			ID:        r.ID,
			Sender:    a.senderName(r),
			Timestamp: ts,
			Text:      r.Text,
		})
	}
	if len(msgs) == 0 {
		return Conversation{}, false, nil
	}

	// Final in-thread order is the monotonic source id, not the clock.
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	return Conversation{
		ThreadID:     threadID,
		Participants: a.participants(target, handles),
		Messages:     msgs,
	}, true, nil
}

func (a *Assembler) senderName(r source.RawMessage) string {
	if r.FromMe {
		return a.LocalName
	}
	if id, ok := a.Store.Find(r.Handle); ok {
		return id.DisplayName
	}
	return UnknownContactName
}

// participants lists the queried identity first, then the local user,
// then every third party discovered in the thread's participant handles.
// Handles resolving to the same identity collapse into one entry.
func (a *Assembler) participants(target *identity.Identity, handles []string) []Participant {
	out := []Participant{
		{Key: target.Key, DisplayName: target.DisplayName},
		{DisplayName: a.LocalName},
	}
	seen := map[string]struct{}{target.Key: {}}

	for _, h := range handles {
		id, ok := a.Store.Find(h)
		if ok {
			if _, dup := seen[id.Key]; dup {
				continue
			}
			seen[id.Key] = struct{}{}
			out = append(out, Participant{Key: id.Key, DisplayName: id.DisplayName, Handle: h})
			continue
		}
		out = append(out, Participant{DisplayName: UnknownContactName, Handle: h})
	}
	return out
}

func identifierStrings(target *identity.Identity) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ident := range target.Identifiers {
		for _, v := range []string{ident.Normalized, ident.Raw} {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func maxMessageID(c Conversation) int64 {
	// Messages are already ascending by id.
	return c.Messages[len(c.Messages)-1].ID
}
