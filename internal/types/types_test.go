package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorAccumulatesIssues(t *testing.T) {
	verr := &ValidationError{}
	require.NoError(t, verr.OrNil())

	verr.Add("email", "is required")
	verr.Add("notes", "is required")
	err := verr.OrNil()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAction))
	assert.Contains(t, err.Error(), "email: is required")
	assert.Contains(t, err.Error(), "notes: is required")
}

func TestActionTolerateUnknownDataFields(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"submit-csat","data":{"response":{"rating":"great"},"futureField":true}}`), &a))
	assert.Equal(t, "submit-csat", a.Type)
	assert.Contains(t, a.Data, "futureField")
}

func TestEnvelopeShape(t *testing.T) {
	b, err := json.Marshal(Envelope{Success: false, Error: &ErrorBody{Code: "validation_failed", Message: "nope"}})
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, false, raw["success"])
	assert.NotContains(t, raw, "data")
	errObj := raw["error"].(map[string]any)
	assert.Equal(t, "validation_failed", errObj["code"])
}
