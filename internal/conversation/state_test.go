package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seraphine-concierge-backend/internal/catalog"
	"seraphine-concierge-backend/internal/intent"
)

func TestExplicitIntentSticks(t *testing.T) {
	s := NewStore(10)
	s.SetIntent("s1", intent.KindTrackOrder, true)
	s.SetIntent("s1", intent.KindFindProduct, false)
	kind, explicit := s.Intent("s1")
	assert.Equal(t, intent.KindTrackOrder, kind)
	assert.True(t, explicit)

	// A later explicit choice does replace it.
	s.SetIntent("s1", intent.KindStylistContact, true)
	kind, _ = s.Intent("s1")
	assert.Equal(t, intent.KindStylistContact, kind)
}

func TestInferredIntentUpgradesToExplicit(t *testing.T) {
	s := NewStore(10)
	s.SetIntent("s1", intent.KindFindProduct, false)
	s.SetIntent("s1", intent.KindFindProduct, true)
	_, explicit := s.Intent("s1")
	assert.True(t, explicit)
}

func TestTranscriptIsBoundedAndCopied(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		s.Append("s1", Message{Role: "user", Content: "m"})
	}
	got := s.Transcript("s1")
	require.Len(t, got, 3)
	got[0] = Message{Role: "hacker", Content: "x"}
	assert.Equal(t, "user", s.Transcript("s1")[0].Role)
}

func TestFiltersAreCopiedOut(t *testing.T) {
	s := NewStore(10)
	s.SetFilters("s1", catalog.Filters{Categories: []string{"rings"}})
	f := s.Filters("s1")
	f.Categories[0] = "mutated"
	assert.Equal(t, "rings", s.Filters("s1").Categories[0])
}

func TestOrderFieldsMergeAcrossTurns(t *testing.T) {
	s := NewStore(10)
	s.SetOrderFields("s1", "SR-1", "")
	s.SetOrderFields("s1", "", "ada@example.com")
	number, email := s.OrderFields("s1")
	assert.Equal(t, "SR-1", number)
	assert.Equal(t, "ada@example.com", email)
}

func TestDraftExpires(t *testing.T) {
	s := NewStore(10)
	old := draftTTL
	draftTTL = 10 * time.Millisecond
	defer func() { draftTTL = old }()

	s.SetDraft("s1", EscalationDraft{Name: "Ada"})
	_, ok := s.Draft("s1")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = s.Draft("s1")
	assert.False(t, ok)
}

func TestBeginTurnGuardsDuplicates(t *testing.T) {
	s := NewStore(10)
	require.True(t, s.BeginTurn("s1"))
	assert.False(t, s.BeginTurn("s1"))
	// Other sessions are unaffected.
	assert.True(t, s.BeginTurn("s2"))
	s.EndTurn("s1")
	assert.True(t, s.BeginTurn("s1"))
}

func TestResetDropsEverything(t *testing.T) {
	s := NewStore(10)
	s.SetIntent("s1", intent.KindTrackOrder, true)
	s.SetOrderFields("s1", "SR-1", "a@b.c")
	s.SetDraft("s1", EscalationDraft{Name: "Ada"})
	s.Append("s1", Message{Role: "user", Content: "hi"})

	s.Reset("s1")
	snap := s.Snapshot("s1")
	assert.Equal(t, intent.KindUnknown, snap.Intent)
	assert.Empty(t, snap.OrderNumber)
	assert.Empty(t, snap.DraftName)
	assert.Empty(t, s.Transcript("s1"))
}

func TestSnapshotReflectsState(t *testing.T) {
	s := NewStore(10)
	s.SetIntent("s1", intent.KindTrackOrder, true)
	s.SetOrderFields("s1", "SR-10412", "ada@example.com")
	snap := s.Snapshot("s1")
	assert.Equal(t, intent.KindTrackOrder, snap.Intent)
	assert.True(t, snap.Explicit)
	assert.Equal(t, "SR-10412", snap.OrderNumber)
	assert.Equal(t, "ada@example.com", snap.Email)
}
