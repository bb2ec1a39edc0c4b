package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"seraphine-concierge-backend/internal/catalog"
	"seraphine-concierge-backend/internal/conversation"
	"seraphine-concierge-backend/internal/intent"
	"seraphine-concierge-backend/internal/module"
	"seraphine-concierge-backend/internal/types"
)

// flakyProvider fails selected mutations to exercise retry semantics.
type flakyProvider struct {
	*catalog.MemoryProvider
	failEscalations bool
	csatCalls       int
}

func (f *flakyProvider) CreateEscalation(ctx context.Context, e catalog.Escalation) (string, error) {
	if f.failEscalations {
		return "", errors.New("db down")
	}
	return f.MemoryProvider.CreateEscalation(ctx, e)
}

func (f *flakyProvider) RecordCSAT(ctx context.Context, r catalog.CSATResponse) error {
	f.csatCalls++
	return f.MemoryProvider.RecordCSAT(ctx, r)
}

func newTestDispatcher(p catalog.Provider) (*Dispatcher, *conversation.Store) {
	state := conversation.NewStore(40)
	return New(state, p, nil, zap.NewNop().Sugar()), state
}

func TestUnknownActionIsIgnoredAndStateUntouched(t *testing.T) {
	d, state := newTestDispatcher(catalog.NewMemoryProvider())
	state.SetIntent("s1", intent.KindTrackOrder, true)
	state.SetOrderFields("s1", "SR-10412", "ada@example.com")
	before := state.Snapshot("s1")

	m, err := d.Dispatch(context.Background(), "s1", types.Action{Type: "launch-rocket", Data: map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.Equal(t, before, state.Snapshot("s1"))
	// Resolver runs on unchanged state, so the turn still produces a module.
	assert.Equal(t, module.KindOrderTimeline, m.Kind)
}

func TestIntentChooserSelectSetsExplicitIntent(t *testing.T) {
	d, state := newTestDispatcher(catalog.NewMemoryProvider())
	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "intent-chooser-select", Data: map[string]any{"intent": "find_product"},
	})
	require.NoError(t, err)
	assert.Equal(t, module.KindProductFilter, m.Kind)
	kind, explicit := state.Intent("s1")
	assert.Equal(t, intent.KindFindProduct, kind)
	assert.True(t, explicit)
}

func TestIntentChooserSelectUnknownValueReoffersChooser(t *testing.T) {
	d, state := newTestDispatcher(catalog.NewMemoryProvider())
	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "intent-chooser-select", Data: map[string]any{"intent": "win_lottery"},
	})
	require.NoError(t, err)
	assert.Equal(t, module.KindIntentChooser, m.Kind)
	_, explicit := state.Intent("s1")
	assert.False(t, explicit)
}

func TestIntentChooserSelectMissingIntentIsValidationError(t *testing.T) {
	d, _ := newTestDispatcher(catalog.NewMemoryProvider())
	_, err := d.Dispatch(context.Background(), "s1", types.Action{Type: "intent-chooser-select"})
	require.ErrorIs(t, err, types.ErrInvalidAction)
}

func TestFreeTextInfersIntentButExplicitWins(t *testing.T) {
	d, state := newTestDispatcher(catalog.NewMemoryProvider())

	_, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "free-text", Data: map[string]any{"message": "where is my order?"},
	})
	require.NoError(t, err)
	kind, explicit := state.Intent("s1")
	assert.Equal(t, intent.KindTrackOrder, kind)
	assert.False(t, explicit)

	// The user then picks explicitly; later free text must not override it.
	_, err = d.Dispatch(context.Background(), "s1", types.Action{
		Type: "intent-chooser-select", Data: map[string]any{"intent": "find_product"},
	})
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), "s1", types.Action{
		Type: "free-text", Data: map[string]any{"message": "actually where is my order"},
	})
	require.NoError(t, err)
	kind, explicit = state.Intent("s1")
	assert.Equal(t, intent.KindFindProduct, kind)
	assert.True(t, explicit)
}

func TestSubmitFilterShowsCarousel(t *testing.T) {
	d, _ := newTestDispatcher(catalog.NewMemoryProvider())
	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "submit-filter", Data: map[string]any{"categories": []any{"earrings"}},
	})
	require.NoError(t, err)
	require.Equal(t, module.KindProductCarousel, m.Kind)
	assert.Len(t, m.ProductCarousel.Products, 2)
}

func TestShortlistRoundTrip(t *testing.T) {
	d, _ := newTestDispatcher(catalog.NewMemoryProvider())
	_, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "add-to-shortlist", Data: map[string]any{"productId": "p-vesper-hoops"},
	})
	require.NoError(t, err)

	m, err := d.Dispatch(context.Background(), "s1", types.Action{Type: "view-shortlist"})
	require.NoError(t, err)
	require.Equal(t, module.KindShortlist, m.Kind)
	require.Len(t, m.Shortlist.Items, 1)
	assert.Equal(t, "p-vesper-hoops", m.Shortlist.Items[0].ID)

	m, err = d.Dispatch(context.Background(), "s1", types.Action{
		Type: "remove-from-shortlist", Data: map[string]any{"productId": "p-vesper-hoops"},
	})
	require.NoError(t, err)
	require.Equal(t, module.KindShortlist, m.Kind)
	assert.Empty(t, m.Shortlist.Items)
}

func TestAddUnknownProductIsValidationError(t *testing.T) {
	d, _ := newTestDispatcher(catalog.NewMemoryProvider())
	_, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "add-to-shortlist", Data: map[string]any{"productId": "p-nope"},
	})
	require.ErrorIs(t, err, types.ErrInvalidAction)
}

func TestOrderLookupIncompleteKeepsFieldsInline(t *testing.T) {
	d, state := newTestDispatcher(catalog.NewMemoryProvider())
	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "submit-order-lookup", Data: map[string]any{"orderNumber": "SR-10412"},
	})
	require.NoError(t, err)
	require.Equal(t, module.KindOrderLookup, m.Kind)
	assert.Equal(t, "SR-10412", m.OrderLookup.OrderNumber)
	assert.NotEmpty(t, m.OrderLookup.Error)
	number, _ := state.OrderFields("s1")
	assert.Equal(t, "SR-10412", number)
}

func TestOrderLookupCompleteShowsTimeline(t *testing.T) {
	d, _ := newTestDispatcher(catalog.NewMemoryProvider())
	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "submit-order-lookup",
		Data: map[string]any{"orderNumber": "SR-10412", "email": "ada@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, module.KindOrderTimeline, m.Kind)
	assert.Equal(t, "shipped", m.OrderTimeline.Status)
}

func TestFailedEscalationPreservesDraft(t *testing.T) {
	p := &flakyProvider{MemoryProvider: catalog.NewMemoryProvider(), failEscalations: true}
	d, state := newTestDispatcher(p)

	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "submit-escalation",
		Data: map[string]any{"name": "Ada", "email": "ada@example.com", "notes": "my clasp broke"},
	})
	require.NoError(t, err)
	require.Equal(t, module.KindEscalationForm, m.Kind)
	assert.NotEmpty(t, m.EscalationForm.Error)
	assert.Equal(t, "Ada", m.EscalationForm.Name)
	assert.Equal(t, "my clasp broke", m.EscalationForm.Notes)

	draft, ok := state.Draft("s1")
	require.True(t, ok)
	assert.Equal(t, "Ada", draft.Name)
	assert.Equal(t, "ada@example.com", draft.Email)
	assert.Equal(t, "my clasp broke", draft.Notes)

	// Provider recovers; resubmitting the same draft succeeds and clears it.
	p.failEscalations = false
	m, err = d.Dispatch(context.Background(), "s1", types.Action{
		Type: "submit-escalation",
		Data: map[string]any{"name": "Ada", "email": "ada@example.com", "notes": "my clasp broke"},
	})
	require.NoError(t, err)
	require.Equal(t, module.KindEscalationReceived, m.Kind)
	assert.NotEmpty(t, m.EscalationReceived.TicketRef)
	_, ok = state.Draft("s1")
	assert.False(t, ok)
}

func TestIncompleteEscalationKeepsFormAndDraft(t *testing.T) {
	d, state := newTestDispatcher(catalog.NewMemoryProvider())
	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "submit-escalation", Data: map[string]any{"name": "Ada", "notes": "help"},
	})
	require.NoError(t, err)
	require.Equal(t, module.KindEscalationForm, m.Kind)
	assert.NotEmpty(t, m.EscalationForm.Error)
	draft, ok := state.Draft("s1")
	require.True(t, ok)
	assert.Equal(t, "help", draft.Notes)
}

func TestSubmitCSATRecordsExactlyOnce(t *testing.T) {
	p := &flakyProvider{MemoryProvider: catalog.NewMemoryProvider()}
	d, _ := newTestDispatcher(p)
	m, err := d.Dispatch(context.Background(), "s1", types.Action{
		Type: "submit-csat", Data: map[string]any{"response": map[string]any{"rating": "great"}},
	})
	require.NoError(t, err)
	assert.Equal(t, module.KindMessage, m.Kind)
	assert.Equal(t, 1, p.csatCalls)
	assert.Equal(t, 1, p.CSATCount("s1"))
}

func TestSubmitCSATMissingRatingIsValidationError(t *testing.T) {
	p := &flakyProvider{MemoryProvider: catalog.NewMemoryProvider()}
	d, _ := newTestDispatcher(p)
	_, err := d.Dispatch(context.Background(), "s1", types.Action{Type: "submit-csat"})
	require.ErrorIs(t, err, types.ErrInvalidAction)
	assert.Zero(t, p.csatCalls)
}

func TestResetReturnsDefaultChooser(t *testing.T) {
	d, state := newTestDispatcher(catalog.NewMemoryProvider())
	state.SetIntent("s1", intent.KindTrackOrder, true)
	m, err := d.Dispatch(context.Background(), "s1", types.Action{Type: "reset"})
	require.NoError(t, err)
	assert.Equal(t, module.KindIntentChooser, m.Kind)
	kind, _ := state.Intent("s1")
	assert.Equal(t, intent.KindUnknown, kind)
}
