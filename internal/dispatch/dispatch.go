// Package dispatch executes typed conversation actions: it validates the
// action data, folds the result into conversation state, and asks the intent
// resolver for the next module.
package dispatch

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"seraphine-concierge-backend/internal/catalog"
	"seraphine-concierge-backend/internal/conversation"
	"seraphine-concierge-backend/internal/intent"
	"seraphine-concierge-backend/internal/module"
	"seraphine-concierge-backend/internal/types"
)

const retryMessage = "That didn't go through on our side. Please try again."

// handler returns nil to mean "state updated, run the resolver".
type handler func(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error)

type Dispatcher struct {
	state    *conversation.Store
	provider catalog.Provider
	inferrer *intent.Inferrer // optional; nil falls back to keyword heuristics
	log      *zap.SugaredLogger
	handlers map[string]handler
}

func New(state *conversation.Store, provider catalog.Provider, inferrer *intent.Inferrer, log *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{state: state, provider: provider, inferrer: inferrer, log: log}
	d.handlers = map[string]handler{
		"intent-chooser-select": d.handleIntentSelect,
		"free-text":             d.handleFreeText,
		"submit-filter":         d.handleSubmitFilter,
		"add-to-shortlist":      d.handleAddToShortlist,
		"remove-from-shortlist": d.handleRemoveFromShortlist,
		"view-shortlist":        d.handleViewShortlist,
		"submit-order-lookup":   d.handleOrderLookup,
		"submit-escalation":     d.handleEscalation,
		"show-csat":             d.handleShowCSAT,
		"submit-csat":           d.handleSubmitCSAT,
		"reset":                 d.handleReset,
		"retry":                 d.handleRetry,
	}
	return d
}

// Dispatch runs one conversation turn. The only errors it returns are
// *types.ValidationError for structurally malformed action data; provider
// failures come back as error-shaped modules with state intact.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, act types.Action) (module.Module, error) {
	h, ok := d.handlers[act.Type]
	if !ok {
		// Unknown action types must never crash the conversation.
		d.log.Warnw("ignoring unknown action type", "type", act.Type, "session", sessionID)
		return d.resolve(ctx, sessionID), nil
	}
	m, err := h(ctx, sessionID, act.Data)
	if err != nil {
		return module.Module{}, err
	}
	if m != nil {
		return *m, nil
	}
	return d.resolve(ctx, sessionID), nil
}

// Resolve exposes the current module for a session without an action
// (page reload, duplicate-submit suppression).
func (d *Dispatcher) Resolve(ctx context.Context, sessionID string) module.Module {
	return d.resolve(ctx, sessionID)
}

func (d *Dispatcher) resolve(ctx context.Context, sessionID string) module.Module {
	m, err := intent.Resolve(ctx, d.state.Snapshot(sessionID), d.provider)
	if err != nil {
		d.log.Errorw("resolver failed", "session", sessionID, "err", err)
		return module.NewErrorMessage(retryMessage)
	}
	return m
}

func (d *Dispatcher) handleIntentSelect(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	raw := strField(data, "intent")
	if raw == "" {
		verr := &types.ValidationError{}
		verr.Add("intent", "is required")
		return nil, verr
	}
	kind := intent.ParseKind(raw)
	if kind == intent.KindUnknown {
		// Likely a newer client; re-offer the chooser instead of erroring.
		d.log.Warnw("unrecognized intent selection", "intent", raw, "session", sessionID)
		m := module.DefaultIntentChooser()
		return &m, nil
	}
	d.state.SetIntent(sessionID, kind, true)
	return nil, nil
}

func (d *Dispatcher) handleFreeText(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	msg := strings.TrimSpace(strField(data, "message"))
	if msg == "" {
		verr := &types.ValidationError{}
		verr.Add("message", "is required")
		return nil, verr
	}
	d.state.Append(sessionID, conversation.Message{Role: "user", Content: msg})

	// Explicit user-selected intent always beats anything inferred from text.
	if _, explicit := d.state.Intent(sessionID); !explicit {
		kind, args := d.infer(ctx, sessionID, msg)
		if kind != intent.KindUnknown {
			d.state.SetIntent(sessionID, kind, false)
		}
		if n := strField(args, "order_number"); n != "" {
			d.state.SetOrderFields(sessionID, n, "")
		}
		if e := strField(args, "email"); e != "" {
			d.state.SetOrderFields(sessionID, "", e)
		}
	}
	return nil, nil
}

func (d *Dispatcher) infer(ctx context.Context, sessionID, msg string) (intent.Kind, map[string]any) {
	if d.inferrer == nil {
		return intent.Detect(msg), nil
	}
	transcript := []string{}
	for _, t := range d.state.Transcript(sessionID) {
		transcript = append(transcript, t.Role+": "+t.Content)
	}
	kind, args, err := d.inferrer.Infer(ctx, transcript, msg)
	if err != nil {
		d.log.Warnw("intent inference failed, using heuristics", "err", err)
		return intent.Detect(msg), nil
	}
	return kind, args
}

func (d *Dispatcher) handleSubmitFilter(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	filters := catalog.Filters{
		Categories:    strSlice(data, "categories"),
		Metals:        strSlice(data, "metals"),
		Gemstones:     strSlice(data, "gemstones"),
		MaxPriceCents: int64Field(data, "maxPriceCents"),
	}
	if filters.MaxPriceCents < 0 {
		verr := &types.ValidationError{}
		verr.Add("maxPriceCents", "must not be negative")
		return nil, verr
	}
	d.state.SetFilters(sessionID, filters)
	d.state.SetIntent(sessionID, intent.KindFindProduct, true)
	return nil, nil
}

func (d *Dispatcher) handleAddToShortlist(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	productID := strField(data, "productId")
	if productID == "" {
		verr := &types.ValidationError{}
		verr.Add("productId", "is required")
		return nil, verr
	}
	if err := d.provider.AddToShortlist(ctx, sessionID, productID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			verr := &types.ValidationError{}
			verr.Add("productId", "unknown product")
			return nil, verr
		}
		d.log.Errorw("shortlist add failed", "session", sessionID, "err", err)
		m := module.NewErrorMessage(retryMessage)
		return &m, nil
	}
	return nil, nil
}

func (d *Dispatcher) handleRemoveFromShortlist(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	productID := strField(data, "productId")
	if productID == "" {
		verr := &types.ValidationError{}
		verr.Add("productId", "is required")
		return nil, verr
	}
	if err := d.provider.RemoveFromShortlist(ctx, sessionID, productID); err != nil {
		d.log.Errorw("shortlist remove failed", "session", sessionID, "err", err)
		m := module.NewErrorMessage(retryMessage)
		return &m, nil
	}
	return d.handleViewShortlist(ctx, sessionID, data)
}

func (d *Dispatcher) handleViewShortlist(ctx context.Context, sessionID string, _ map[string]any) (*module.Module, error) {
	m, err := intent.ShortlistModule(ctx, sessionID, d.provider)
	if err != nil {
		d.log.Errorw("shortlist load failed", "session", sessionID, "err", err)
		em := module.NewErrorMessage(retryMessage)
		return &em, nil
	}
	return &m, nil
}

func (d *Dispatcher) handleOrderLookup(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	number := strings.TrimSpace(strField(data, "orderNumber"))
	email := strings.TrimSpace(strField(data, "email"))
	// Remember whatever the user gave us before judging it.
	d.state.SetOrderFields(sessionID, number, email)
	d.state.SetIntent(sessionID, intent.KindTrackOrder, true)

	if number == "" || email == "" || !strings.Contains(email, "@") {
		m := module.NewOrderLookup("Let's find your order", number, email).
			WithError("We need both your order number and the email used at checkout.")
		return &m, nil
	}
	return nil, nil
}

func (d *Dispatcher) handleEscalation(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	draft := conversation.EscalationDraft{
		Name:  strings.TrimSpace(strField(data, "name")),
		Email: strings.TrimSpace(strField(data, "email")),
		Notes: strings.TrimSpace(strField(data, "notes")),
	}
	// Persist first: a failed submit must not cost the user their text.
	d.state.SetDraft(sessionID, draft)
	d.state.SetIntent(sessionID, intent.KindStylistContact, true)

	if draft.Name == "" || draft.Email == "" || !strings.Contains(draft.Email, "@") || draft.Notes == "" {
		m := module.NewEscalationForm(draft.Name, draft.Email, draft.Notes).
			WithError("Name, a valid email, and a few words about what you need are all required.")
		return &m, nil
	}

	ref, err := d.provider.CreateEscalation(ctx, catalog.Escalation{
		SessionID: sessionID,
		Name:      draft.Name,
		Email:     draft.Email,
		Notes:     draft.Notes,
	})
	if err != nil {
		d.log.Errorw("escalation create failed", "session", sessionID, "err", err)
		m := module.NewEscalationForm(draft.Name, draft.Email, draft.Notes).WithError(retryMessage)
		return &m, nil
	}
	d.state.ClearDraft(sessionID)
	m := module.NewEscalationReceived(ref)
	return &m, nil
}

func (d *Dispatcher) handleShowCSAT(ctx context.Context, sessionID string, _ map[string]any) (*module.Module, error) {
	m := module.NewCSATPrompt()
	return &m, nil
}

func (d *Dispatcher) handleSubmitCSAT(ctx context.Context, sessionID string, data map[string]any) (*module.Module, error) {
	rating := strField(data, "rating")
	if rating == "" {
		if resp, ok := data["response"].(map[string]any); ok {
			rating = strField(resp, "rating")
		}
	}
	if rating == "" {
		verr := &types.ValidationError{}
		verr.Add("response.rating", "is required")
		return nil, verr
	}
	if err := d.provider.RecordCSAT(ctx, catalog.CSATResponse{SessionID: sessionID, Rating: rating}); err != nil {
		d.log.Errorw("csat record failed", "session", sessionID, "err", err)
		m := module.NewErrorMessage(retryMessage)
		return &m, nil
	}
	m := module.NewMessage("Thank you — that helps us take better care of you.")
	return &m, nil
}

// handleRetry re-runs the resolver on unchanged state.
func (d *Dispatcher) handleRetry(ctx context.Context, sessionID string, _ map[string]any) (*module.Module, error) {
	return nil, nil
}

func (d *Dispatcher) handleReset(ctx context.Context, sessionID string, _ map[string]any) (*module.Module, error) {
	d.state.Reset(sessionID)
	m := module.DefaultIntentChooser()
	return &m, nil
}

func strField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

func strSlice(data map[string]any, key string) []string {
	if data == nil {
		return nil
	}
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func int64Field(data map[string]any, key string) int64 {
	if data == nil {
		return 0
	}
	switch v := data[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
