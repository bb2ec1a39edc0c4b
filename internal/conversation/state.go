// Package conversation holds per-session concierge state. State is mutated
// only by the action dispatcher and read by the intent resolver.
package conversation

import (
	"sync"
	"time"

	"seraphine-concierge-backend/internal/catalog"
	"seraphine-concierge-backend/internal/intent"
)

type Message struct {
	Role    string
	Content string
}

type chosenIntent struct {
	Kind     intent.Kind
	Explicit bool
}

type orderFields struct {
	Number string
	Email  string
}

// EscalationDraft survives failed submits so the user never retypes.
type EscalationDraft struct {
	Name      string
	Email     string
	Notes     string
	UpdatedAt time.Time
}

// draftTTL matches how long a half-filled form stays useful.
var draftTTL = 7 * time.Minute

type Store struct {
	mu            sync.RWMutex
	transcripts   map[string][]Message
	maxTranscript int
	intents       map[string]chosenIntent
	filters       map[string]catalog.Filters
	orders        map[string]orderFields
	drafts        map[string]EscalationDraft
	inFlight      map[string]bool
}

func NewStore(maxTranscript int) *Store {
	return &Store{
		transcripts:   make(map[string][]Message),
		maxTranscript: maxTranscript,
		intents:       make(map[string]chosenIntent),
		filters:       make(map[string]catalog.Filters),
		orders:        make(map[string]orderFields),
		drafts:        make(map[string]EscalationDraft),
		inFlight:      make(map[string]bool),
	}
}

func (s *Store) Append(sessionID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[sessionID] = append(s.transcripts[sessionID], msg)
	if s.maxTranscript > 0 {
		msgs := s.transcripts[sessionID]
		if len(msgs) > s.maxTranscript {
			s.transcripts[sessionID] = msgs[len(msgs)-s.maxTranscript:]
		}
	}
}

func (s *Store) Transcript(sessionID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.transcripts[sessionID]...)
}

// SetIntent records the session intent. Explicit choices stick: an inferred
// intent never replaces an explicit one.
func (s *Store) SetIntent(sessionID string, kind intent.Kind, explicit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.intents[sessionID]; ok && cur.Explicit && !explicit {
		return
	}
	s.intents[sessionID] = chosenIntent{Kind: kind, Explicit: explicit}
}

func (s *Store) Intent(sessionID string) (intent.Kind, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ci, ok := s.intents[sessionID]
	if !ok {
		return intent.KindUnknown, false
	}
	return ci.Kind, ci.Explicit
}

func (s *Store) SetFilters(sessionID string, f catalog.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[sessionID] = catalog.Filters{
		Categories:    append([]string(nil), f.Categories...),
		Metals:        append([]string(nil), f.Metals...),
		Gemstones:     append([]string(nil), f.Gemstones...),
		MaxPriceCents: f.MaxPriceCents,
	}
}

func (s *Store) Filters(sessionID string) catalog.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.filters[sessionID]
	return catalog.Filters{
		Categories:    append([]string(nil), f.Categories...),
		Metals:        append([]string(nil), f.Metals...),
		Gemstones:     append([]string(nil), f.Gemstones...),
		MaxPriceCents: f.MaxPriceCents,
	}
}

func (s *Store) SetOrderFields(sessionID, number, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	of := s.orders[sessionID]
	if number != "" {
		of.Number = number
	}
	if email != "" {
		of.Email = email
	}
	s.orders[sessionID] = of
}

func (s *Store) OrderFields(sessionID string) (number, email string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	of := s.orders[sessionID]
	return of.Number, of.Email
}

// SetDraft stores the escalation draft with a fresh TTL.
func (s *Store) SetDraft(sessionID string, d EscalationDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.UpdatedAt = time.Now()
	s.drafts[sessionID] = d
}

// Draft returns the escalation draft if it has not expired.
func (s *Store) Draft(sessionID string) (EscalationDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[sessionID]
	if !ok {
		return EscalationDraft{}, false
	}
	if time.Since(d.UpdatedAt) > draftTTL {
		delete(s.drafts, sessionID)
		return EscalationDraft{}, false
	}
	return d, true
}

func (s *Store) ClearDraft(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
}

// BeginTurn marks a turn in flight. Returns false when one already is, which
// is the server-side guard against duplicate rapid submissions.
func (s *Store) BeginTurn(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *Store) EndTurn(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

// Reset drops everything the session accumulated.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, sessionID)
	delete(s.intents, sessionID)
	delete(s.filters, sessionID)
	delete(s.orders, sessionID)
	delete(s.drafts, sessionID)
}

// Snapshot assembles the read-only view the resolver routes on.
func (s *Store) Snapshot(sessionID string) intent.Snapshot {
	s.mu.RLock()
	ci := s.intents[sessionID]
	f := s.filters[sessionID]
	of := s.orders[sessionID]
	s.mu.RUnlock()
	snap := intent.Snapshot{
		SessionID:   sessionID,
		Intent:      ci.Kind,
		Explicit:    ci.Explicit,
		Filters:     f,
		OrderNumber: of.Number,
		Email:       of.Email,
	}
	if snap.Intent == "" {
		snap.Intent = intent.KindUnknown
	}
	if d, ok := s.Draft(sessionID); ok {
		snap.DraftName = d.Name
		snap.DraftEmail = d.Email
		snap.DraftNotes = d.Notes
	}
	return snap
}
