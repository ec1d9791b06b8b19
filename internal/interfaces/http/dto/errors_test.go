package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestStatusForDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      *shared.DomainError
		expected int
	}{
		{"validation", shared.NewValidationError(shared.CodeInvalidQuantity, "bad quantity"), http.StatusBadRequest},
		{"not found", shared.NewNotFoundError("purchase order", "x"), http.StatusNotFound},
		{"conflict", shared.NewConflictError("stale"), http.StatusConflict},
		{"compliance", shared.NewComplianceError(shared.CodeInsufficientCoreRatio, "below", nil), http.StatusUnprocessableEntity},
		{"state", shared.NewStateError(shared.CodeInvalidTransition, "illegal", nil), http.StatusUnprocessableEntity},
		{"policy", shared.NewPolicyError(shared.CodeNoActiveAgreement, "none", nil), http.StatusUnprocessableEntity},
		{"capability", shared.NewDomainError(shared.CodeCapabilityRequired, "no"), http.StatusForbidden},
		{"timeout", shared.NewDomainError(shared.CodePersistenceTimeout, "slow"), http.StatusServiceUnavailable},
		{"unknown kind", &shared.DomainError{Code: "X", Kind: "ODD"}, http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForDomainError(tt.err))
		})
	}
}

func TestEveryKindIsMapped(t *testing.T) {
	kinds := []shared.ErrorKind{
		shared.KindValidation, shared.KindCompliance, shared.KindState, shared.KindPolicy,
		shared.KindConflict, shared.KindNotFound, shared.KindForbidden, shared.KindInfra,
	}
	for _, k := range kinds {
		_, ok := ErrorKindHTTPStatus[k]
		assert.True(t, ok, "kind %s has no status", k)
	}
}

func TestNewDomainErrorResponse(t *testing.T) {
	err := shared.NewComplianceError(shared.CodeInsufficientCoreRatio, "core ratio below threshold",
		map[string]any{"core_pct": "79.9600", "required_pct": "80.0"})

	resp := NewDomainErrorResponse(err).WithRequestID("req-1")
	assert.False(t, resp.Success)

	body, jerr := json.Marshal(resp)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	info := decoded["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_CORE_RATIO", info["code"])
	assert.Equal(t, "COMPLIANCE", info["kind"])
	assert.Equal(t, false, info["retryable"])
	assert.Equal(t, "req-1", info["request_id"])
	assert.Equal(t, "79.9600", info["details"].(map[string]any)["core_pct"])
}

func TestConflictResponseIsRetryable(t *testing.T) {
	resp := NewDomainErrorResponse(shared.NewConflictError("version mismatch"))
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, shared.CodeConcurrencyConflict, resp.Error.Code)
}
