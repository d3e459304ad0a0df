package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source tags recording where an identifier was first seen.
const (
	SourceContactFile = "contact-file"
	SourceMessageDB   = "message-db"
)

// UnknownName is the placeholder display name for identities known only
// from message traffic.
const UnknownName = "Unknown"

// Identity is the merged record for one real-world person. It aggregates
// every identifier resolved to that person plus provenance tags.
type Identity struct {
	// Key is the canonical key of the first identifier that created this
	// identity. It never changes, even after merges.
	Key         string
	DisplayName string
	Identifiers []Identifier
	Sources     []string
	UpdatedAt   time.Time
}

// HasSource reports whether the identity carries the given provenance tag.
func (i *Identity) HasSource(tag string) bool {
	for _, s := range i.Sources {
		if s == tag {
			return true
		}
	}
	return false
}

func (i *Identity) hasIdentifierKey(key string) bool {
	for _, id := range i.Identifiers {
		if id.Key == key {
			return true
		}
	}
	return false
}

// MergeEvent records one fuzzy reconciliation that folded a new identifier
// into an existing identity. Kept as an audit trail so merges can be
// reviewed after the fact.
type MergeEvent struct {
	ID        string
	SourceKey string // key of the incoming identifier
	TargetKey string // primary key of the identity it merged into
	Score     float64
	MatchedOn string // raw value of the incoming identifier
	CreatedAt time.Time
}

// Stats aggregates counts over the identity graph.
type Stats struct {
	Total     int
	WithPhone int
	WithEmail int
	BySource  map[string]int
}

// Store is the in-memory identity graph: canonical key -> identity, plus a
// reverse index from every known identifier key to its owning identity.
//
// The store itself is not safe for concurrent use; callers sharing one
// store must serialize writers against readers (the engine does this).
type Store struct {
	defaultCountry string
	identities     map[string]*Identity
	order          []string          // identity insertion order (primary keys)
	index          map[string]string // identifier key -> owning primary key
	merges         []MergeEvent
	now            func() time.Time
}

// NewStore creates an empty identity graph. defaultCountry is the country
// code assumed for unprefixed phone numbers ("1" if empty).
func NewStore(defaultCountry string) *Store {
	if defaultCountry == "" {
		defaultCountry = DefaultCountryCode
	}
	return &Store{
		defaultCountry: defaultCountry,
		identities:     make(map[string]*Identity),
		index:          make(map[string]string),
		now:            time.Now,
	}
}

// Upsert adds one (identifier, display name, source) observation to the
// graph and returns the identity it landed on.
//
// Resolution order: exact key match, then fuzzy reconciliation against
// every identifier already in the graph, then a fresh identity. The
// returned identity is nil only for empty input.
func (s *Store) Upsert(raw, displayName, source string) *Identity {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	ident := Normalize(raw, s.defaultCountry)

	if pk, ok := s.index[ident.Key]; ok {
		return s.mergeInto(s.identities[pk], ident, displayName, source)
	}

	if pk, score, ok := s.bestMatch(ident); ok {
		target := s.identities[pk]
		s.merges = append(s.merges, MergeEvent{
			ID:        uuid.New().String(),
			SourceKey: ident.Key,
			TargetKey: target.Key,
			Score:     score,
			MatchedOn: raw,
			CreatedAt: s.now(),
		})
		return s.mergeInto(target, ident, displayName, source)
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = UnknownName
	}
	id := &Identity{
		Key:         ident.Key,
		DisplayName: name,
		Identifiers: []Identifier{ident},
		Sources:     []string{source},
		UpdatedAt:   s.now(),
	}
	s.identities[ident.Key] = id
	s.order = append(s.order, ident.Key)
	s.index[ident.Key] = ident.Key
	return id
}

// mergeInto folds an identifier observation into an existing identity.
// Identifiers and source tags accumulate monotonically; the display name
// is replaced only when the current one is the placeholder, or when the
// incoming observation is from the contact file and the identity has no
// contact-file provenance yet.
func (s *Store) mergeInto(target *Identity, ident Identifier, displayName, source string) *Identity {
	if !target.hasIdentifierKey(ident.Key) {
		target.Identifiers = append(target.Identifiers, ident)
		s.index[ident.Key] = target.Key
	}
	name := strings.TrimSpace(displayName)
	if name != "" && name != UnknownName {
		if target.DisplayName == "" || target.DisplayName == UnknownName ||
			(source == SourceContactFile && !target.HasSource(SourceContactFile)) {
			target.DisplayName = name
		}
	}
	if !target.HasSource(source) {
		target.Sources = append(target.Sources, source)
	}
	target.UpdatedAt = s.now()
	return target
}

// bestMatch runs fuzzy reconciliation for an unowned identifier. It scans
// identities in insertion order and keeps the single highest score; ties
// go to the first identity found. A match is accepted only when the score
// is strictly greater than MatchThreshold.
func (s *Store) bestMatch(ident Identifier) (pk string, score float64, ok bool) {
	best := 0.0
	bestPK := ""
	for _, key := range s.order {
		id := s.identities[key]
		for _, existing := range id.Identifiers {
			if sc := matchScore(ident, existing); sc > best {
				best = sc
				bestPK = key
			}
		}
	}
	if best > MatchThreshold {
		return bestPK, best, true
	}
	return "", 0, false
}

// Find resolves a raw identifier to its identity. Exact key lookup first,
// then the same fuzzy reconciliation Upsert uses, without mutating the
// graph. The second return is false when nothing clears the threshold.
func (s *Store) Find(raw string) (*Identity, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	ident := Normalize(raw, s.defaultCountry)
	if pk, ok := s.index[ident.Key]; ok {
		return s.identities[pk], true
	}
	if pk, _, ok := s.bestMatch(ident); ok {
		return s.identities[pk], true
	}
	return nil, false
}

// Search returns identities whose display name or any identifier (raw or
// normalized) contains the query, case-insensitively, in identity
// insertion order.
func (s *Store) Search(query string) []*Identity {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []*Identity
	for _, key := range s.order {
		id := s.identities[key]
		if s.matchesQuery(id, q) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) matchesQuery(id *Identity, q string) bool {
	if strings.Contains(strings.ToLower(id.DisplayName), q) {
		return true
	}
	for _, ident := range id.Identifiers {
		if strings.Contains(strings.ToLower(ident.Raw), q) ||
			strings.Contains(strings.ToLower(ident.Normalized), q) {
			return true
		}
	}
	return false
}

// All returns every identity in insertion order.
func (s *Store) All() []*Identity {
	out := make([]*Identity, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.identities[key])
	}
	return out
}

// Stats aggregates counts over the graph.
func (s *Store) Stats() Stats {
	st := Stats{BySource: make(map[string]int)}
	for _, key := range s.order {
		id := s.identities[key]
		st.Total++
		hasPhone, hasEmail := false, false
		for _, ident := range id.Identifiers {
			switch ident.Kind {
			case KindPhone:
				hasPhone = true
			case KindEmail:
				hasEmail = true
			}
		}
		if hasPhone {
			st.WithPhone++
		}
		if hasEmail {
			st.WithEmail++
		}
		for _, src := range id.Sources {
			st.BySource[src]++
		}
	}
	return st
}

// MergeEvents returns the fuzzy-merge audit trail in the order the merges
// happened.
func (s *Store) MergeEvents() []MergeEvent {
	out := make([]MergeEvent, len(s.merges))
	copy(out, s.merges)
	return out
}

// Clear resets the graph to empty.
func (s *Store) Clear() {
	s.identities = make(map[string]*Identity)
	s.index = make(map[string]string)
	s.order = nil
	s.merges = nil
}
