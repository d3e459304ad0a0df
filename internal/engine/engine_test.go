package engine

import (
	"errors"
	"testing"

	"github.com/whosaid/whosaid/internal/config"
	"github.com/whosaid/whosaid/internal/conversation"
	"github.com/whosaid/whosaid/internal/identity"
	"github.com/whosaid/whosaid/internal/source"
)

type fakeContacts struct {
	contacts []source.Contact
	err      error
	calls    int
}

func (f *fakeContacts) Contacts() ([]source.Contact, error) {
	f.calls++
	return f.contacts, f.err
}

type fakeMessages struct {
	handles      []string
	handleIDs    map[string]int64
	threads      []int64
	participants map[int64][]string
	messages     map[int64][]source.RawMessage
	err          error
}

func (f *fakeMessages) Handles() ([]string, error) {
	return f.handles, f.err
}

func (f *fakeMessages) HandleIDs(identifiers []string) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []int64
	for _, id := range identifiers {
		if h, ok := f.handleIDs[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeMessages) RecentThreads(handleIDs []int64, limit int) ([]int64, error) {
	if len(f.threads) > limit {
		return f.threads[:limit], nil
	}
	return f.threads, nil
}

func (f *fakeMessages) ThreadParticipants(threadID int64) ([]string, error) {
	return f.participants[threadID], nil
}

func (f *fakeMessages) ThreadMessages(threadID int64, limit int) ([]source.RawMessage, error) {
	return f.messages[threadID], nil
}

func (f *fakeMessages) Close() error { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Me.Name = "Test User"
	return cfg
}

func TestEngineLazyBuildMergesSources(t *testing.T) {
	contacts := &fakeContacts{contacts: []source.Contact{
		{Name: "Alice Jones", Phones: []string{"+1 (212) 555-1234"}, Emails: []string{"alice@example.com"}},
	}}
	messages := &fakeMessages{handles: []string{"+12125551234", "stranger@example.net"}}

	eng := New(testConfig(), contacts, messages)

	// Nothing loads until first query.
	if contacts.calls != 0 {
		t.Fatal("engine built eagerly")
	}

	id, ok := eng.Find("+12125551234")
	if !ok {
		t.Fatal("known handle did not resolve")
	}
	// Contact names load first, so the handle merges into the named
	// identity instead of creating a placeholder.
	if id.DisplayName != "Alice Jones" {
		t.Errorf("display name = %q, expected contact-file name", id.DisplayName)
	}
	if !id.HasSource(identity.SourceContactFile) || !id.HasSource(identity.SourceMessageDB) {
		t.Errorf("sources = %v", id.Sources)
	}

	// Alice's phone and email are distinct identities (emails never fuzzy
	// match), plus the stranger handle.
	st := eng.Stats()
	if st.Total != 3 {
		t.Errorf("Stats().Total = %d, expected 3", st.Total)
	}

	// Second query reuses the built graph.
	eng.Find("+12125551234")
	if contacts.calls != 1 {
		t.Errorf("contacts loaded %d times, expected 1", contacts.calls)
	}
}

func TestEngineResolveShapes(t *testing.T) {
	contacts := &fakeContacts{contacts: []source.Contact{
		{Name: "John Smith", Phones: []string{"+12125551234"}},
		{Name: "Johnny Cash", Emails: []string{"cash@example.com"}},
	}}
	eng := New(testConfig(), contacts, &fakeMessages{})

	// Identifier queries resolve to exactly one candidate.
	one := eng.Resolve("+12125551234")
	if len(one) != 1 || one[0].DisplayName != "John Smith" {
		t.Errorf("identifier resolve = %v", one)
	}

	// Name queries may return many; caller disambiguates.
	many := eng.Resolve("john")
	if len(many) != 2 {
		t.Errorf("Resolve(\"john\") = %d candidates, expected 2", len(many))
	}

	// And zero is a valid outcome, not an error.
	if none := eng.Resolve("nobody"); len(none) != 0 {
		t.Errorf("Resolve miss = %v", none)
	}
}

func TestEngineBuildNotesOnSourceFailure(t *testing.T) {
	contacts := &fakeContacts{err: errors.New("file vanished")}
	eng := New(testConfig(), contacts, nil)

	if st := eng.Stats(); st.Total != 0 {
		t.Errorf("failed sources must yield an empty graph, got %d identities", st.Total)
	}
	notes := eng.BuildNotes()
	if len(notes) != 2 {
		t.Fatalf("expected notes for both sources, got %v", notes)
	}
}

func TestEngineInvalidateRebuilds(t *testing.T) {
	contacts := &fakeContacts{contacts: []source.Contact{
		{Name: "Alice", Phones: []string{"+12125551234"}},
	}}
	eng := New(testConfig(), contacts, &fakeMessages{})

	eng.Stats()
	contacts.contacts = append(contacts.contacts, source.Contact{
		Name: "Bob", Phones: []string{"+13105550000"},
	})

	// Stale until invalidated.
	if st := eng.Stats(); st.Total != 1 {
		t.Errorf("graph rebuilt without Invalidate: %d", st.Total)
	}
	eng.Invalidate()
	if st := eng.Stats(); st.Total != 2 {
		t.Errorf("graph after Invalidate = %d identities, expected 2", st.Total)
	}
	if contacts.calls != 2 {
		t.Errorf("contacts loaded %d times, expected 2", contacts.calls)
	}
}

func TestEngineConversations(t *testing.T) {
	contacts := &fakeContacts{contacts: []source.Contact{
		{Name: "Alice", Phones: []string{"+12125551234"}},
	}}
	messages := &fakeMessages{
		handles:   []string{"+12125551234"},
		handleIDs: map[string]int64{"+12125551234": 7},
		threads:   []int64{1},
		participants: map[int64][]string{
			1: {"+12125551234"},
		},
		messages: map[int64][]source.RawMessage{
			1: {
				{ID: 2, Text: "hello", HasText: true, Timestamp: 100, Handle: "+12125551234"},
				{ID: 4, Text: "hi", HasText: true, Timestamp: 200, FromMe: true},
			},
		},
	}
	eng := New(testConfig(), contacts, messages)

	target := eng.Resolve("alice")
	if len(target) != 1 {
		t.Fatalf("resolve = %v", target)
	}

	res := eng.Conversations(target[0], conversation.Options{})
	if res.Degraded {
		t.Fatalf("degraded: %s", res.Detail)
	}
	if len(res.Conversations) != 1 {
		t.Fatalf("got %d conversations", len(res.Conversations))
	}
	msgs := res.Conversations[0].Messages
	if len(msgs) != 2 || msgs[0].Sender != "Alice" || msgs[1].Sender != "Test User" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestEngineConversationsWithoutMessageSource(t *testing.T) {
	eng := New(testConfig(), &fakeContacts{contacts: []source.Contact{
		{Name: "Alice", Phones: []string{"+12125551234"}},
	}}, nil)

	target := eng.Resolve("alice")
	res := eng.Conversations(target[0], conversation.Options{})
	if !res.Degraded {
		t.Error("missing message source must produce a degraded result")
	}
}
