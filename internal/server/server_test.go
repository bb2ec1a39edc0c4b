package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"seraphine-concierge-backend/internal/config"
	"seraphine-concierge-backend/internal/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.Config{
		Port:          "0",
		AllowedOrigin: "*",
		ShopName:      "Seraphine",
		SessionCookie: "seraphine_test",
		SessionTTL:    30 * time.Minute,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func converse(t *testing.T, s *Server, sessionID string, action types.Action) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(types.ConverseRequest{Action: action})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/concierge/converse", bytes.NewReader(body))
	if sessionID != "" {
		req.Header.Set("X-Session-Id", sessionID)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) types.Envelope {
	t.Helper()
	var env types.Envelope
	require.NoErrorf(t, json.Unmarshal(rr.Body.Bytes(), &env), "body=%s", rr.Body.String())
	return env
}

func moduleType(t *testing.T, env types.Envelope) string {
	t.Helper()
	data, ok := env.Data.(map[string]any)
	require.True(t, ok, "envelope data should be an object")
	mod, ok := data["module"].(map[string]any)
	require.True(t, ok, "envelope data should carry a module")
	typ, _ := mod["type"].(string)
	return typ
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ok"`)
}

func TestConverseFirstTurnOffersChooser(t *testing.T) {
	s := newTestServer(t)
	rr := converse(t, s, "s_test", types.Action{Type: "free-text", Data: map[string]any{"message": "hello"}})
	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	require.True(t, env.Success)
	assert.Equal(t, "intent-chooser", moduleType(t, env))
	data := env.Data.(map[string]any)
	assert.Contains(t, data["html"], "cz-intent-chooser")
	assert.Equal(t, "s_test", env.Meta.SessionID)
	assert.NotEmpty(t, env.Meta.RequestID)
}

func TestConverseFullOrderTrackingFlow(t *testing.T) {
	s := newTestServer(t)
	sid := "s_flow"

	rr := converse(t, s, sid, types.Action{Type: "intent-chooser-select", Data: map[string]any{"intent": "track_order"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "order-lookup", moduleType(t, decodeEnvelope(t, rr)))

	rr = converse(t, s, sid, types.Action{
		Type: "submit-order-lookup",
		Data: map[string]any{"orderNumber": "SR-10412", "email": "ada@example.com"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "order-timeline", moduleType(t, env))
	assert.Contains(t, env.Data.(map[string]any)["html"], "cz-order-timeline")
}

func TestConverseMissingActionTypeIs400(t *testing.T) {
	s := newTestServer(t)
	rr := converse(t, s, "s_bad", types.Action{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Code)
}

func TestConverseValidationErrorIs400Envelope(t *testing.T) {
	s := newTestServer(t)
	rr := converse(t, s, "s_bad2", types.Action{Type: "submit-csat", Data: map[string]any{}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Code)
	assert.Contains(t, env.Error.Message, "response.rating")
}

func TestConverseInvalidJSONIs400(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/concierge/converse", bytes.NewReader([]byte("{nope")))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "invalid_json", env.Error.Code)
}

func TestDuplicateSubmissionIsSuppressed(t *testing.T) {
	s := newTestServer(t)
	sid := "s_dup"
	// First submission still in flight.
	require.True(t, s.state.BeginTurn(sid))
	defer s.state.EndTurn(sid)

	rr := converse(t, s, sid, types.Action{
		Type: "submit-csat", Data: map[string]any{"response": map[string]any{"rating": "great"}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	require.True(t, env.Success)
	// The duplicate consumed no action: no CSAT was recorded and the session
	// just gets its current module back.
	assert.Equal(t, "intent-chooser", moduleType(t, env))
}

func TestCurrentModuleSurvivesReload(t *testing.T) {
	s := newTestServer(t)
	sid := "s_reload"
	converse(t, s, sid, types.Action{Type: "intent-chooser-select", Data: map[string]any{"intent": "stylist_contact"}})

	req := httptest.NewRequest(http.MethodGet, "/api/concierge/module", nil)
	req.Header.Set("X-Session-Id", sid)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "escalation-form", moduleType(t, decodeEnvelope(t, rr)))
}

func TestResetEndpointClearsSession(t *testing.T) {
	s := newTestServer(t)
	sid := "s_reset"
	converse(t, s, sid, types.Action{Type: "intent-chooser-select", Data: map[string]any{"intent": "find_product"}})

	req := httptest.NewRequest(http.MethodPost, "/api/concierge/reset", nil)
	req.Header.Set("X-Session-Id", sid)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "intent-chooser", moduleType(t, decodeEnvelope(t, rr)))
}

func TestNewSessionGetsCookie(t *testing.T) {
	s := newTestServer(t)
	rr := converse(t, s, "", types.Action{Type: "free-text", Data: map[string]any{"message": "hi"}})
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "seraphine_test", cookies[0].Name)
	assert.NotEmpty(t, rr.Header().Get("X-Session-Id"))
}

func TestShortlistEndpoint(t *testing.T) {
	s := newTestServer(t)
	sid := "s_short"
	converse(t, s, sid, types.Action{Type: "add-to-shortlist", Data: map[string]any{"productId": "p-selene-pendant"}})

	req := httptest.NewRequest(http.MethodGet, "/api/concierge/shortlist", nil)
	req.Header.Set("X-Session-Id", sid)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "shortlist", moduleType(t, env))
	assert.Contains(t, env.Data.(map[string]any)["html"], "p-selene-pendant")
}
