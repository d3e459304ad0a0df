// Package engine owns one resolution session: the identity graph, the two
// source adapters, and the conversation assembler. State is explicit and
// caller-owned; there is no process-wide singleton. The graph builds
// lazily on first query and then serves reads until invalidated.
package engine

import (
	"fmt"
	"sync"

	"github.com/whosaid/whosaid/internal/config"
	"github.com/whosaid/whosaid/internal/conversation"
	"github.com/whosaid/whosaid/internal/identity"
	"github.com/whosaid/whosaid/internal/source"
)

// Engine is an explicit, caller-owned resolution instance. Safe for
// concurrent use: a mutex enforces the single-writer discipline between
// graph rebuilds and queries.
type Engine struct {
	mu       sync.Mutex
	cfg      *config.Config
	store    *identity.Store
	contacts source.ContactSource
	messages source.MessageSource
	built    bool
	// buildNotes records source failures from the last build. The engine
	// degrades to whatever data it could load instead of fabricating any.
	buildNotes []string
}

// New wires an engine. Either source may be nil; the engine degrades
// explicitly rather than failing.
func New(cfg *config.Config, contacts source.ContactSource, messages source.MessageSource) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{
		cfg:      cfg,
		store:    identity.NewStore(cfg.DefaultCountryCode),
		contacts: contacts,
		messages: messages,
	}
}

// ensureBuilt populates the identity graph on first use. Contact records
// go in first so fuzzy merges from the handle side land on named
// identities. Source failures are recorded, not fatal: the contract for
// an absent source is an emptier graph, never synthetic data.
func (e *Engine) ensureBuilt() {
	if e.built {
		return
	}
	e.store.Clear()
	e.buildNotes = nil

	if e.contacts != nil {
		cts, err := e.contacts.Contacts()
		if err != nil {
			e.buildNotes = append(e.buildNotes, fmt.Sprintf("contact source: %v", err))
		}
		for _, ct := range cts {
			for _, p := range ct.Phones {
				e.store.Upsert(p, ct.Name, identity.SourceContactFile)
			}
			for _, em := range ct.Emails {
				e.store.Upsert(em, ct.Name, identity.SourceContactFile)
			}
		}
	} else {
		e.buildNotes = append(e.buildNotes, "contact source not configured")
	}

	if e.messages != nil {
		handles, err := e.messages.Handles()
		if err != nil {
			e.buildNotes = append(e.buildNotes, fmt.Sprintf("message source: %v", err))
		}
		for _, h := range handles {
			e.store.Upsert(h, identity.UnknownName, identity.SourceMessageDB)
		}
	} else {
		e.buildNotes = append(e.buildNotes, "message source not configured")
	}

	e.built = true
}

// Resolve maps a free-form query to candidate identities. An identifier
// that resolves directly (exact or fuzzy) yields exactly one candidate;
// otherwise the query falls through to substring search. Zero, one, and
// many are all valid outcomes the caller must distinguish.
func (e *Engine) Resolve(query string) []*identity.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureBuilt()

	if identity.Classify(query) != identity.KindUnknown {
		if id, ok := e.store.Find(query); ok {
			return []*identity.Identity{id}
		}
	}
	return e.store.Search(query)
}

// Find resolves a single raw identifier through the graph.
func (e *Engine) Find(raw string) (*identity.Identity, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureBuilt()
	return e.store.Find(raw)
}

// Search runs a substring search over names and identifiers.
func (e *Engine) Search(query string) []*identity.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureBuilt()
	return e.store.Search(query)
}

// Stats aggregates counts over the graph.
func (e *Engine) Stats() identity.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureBuilt()
	return e.store.Stats()
}

// MergeEvents returns the fuzzy-merge audit trail from the current graph.
func (e *Engine) MergeEvents() []identity.MergeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureBuilt()
	return e.store.MergeEvents()
}

// BuildNotes reports source failures from the last graph build; empty
// when both sources loaded cleanly.
func (e *Engine) BuildNotes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureBuilt()
	return append([]string(nil), e.buildNotes...)
}

// Conversations assembles conversations for a resolved target identity.
func (e *Engine) Conversations(target *identity.Identity, opts conversation.Options) conversation.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureBuilt()

	if opts.ConversationLimit <= 0 {
		opts.ConversationLimit = e.cfg.Limits.Conversations
	}
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = e.cfg.Limits.Messages
	}
	asm := conversation.NewAssembler(e.store, e.messages, e.cfg.Me.Name)
	return asm.Assemble(target, opts)
}

// Invalidate marks the graph stale; the next query rebuilds it from the
// sources. Used by the live watcher when a source file changes.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.built = false
}

// Close releases the message source.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.messages != nil {
		return e.messages.Close()
	}
	return nil
}
