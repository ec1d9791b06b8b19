package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name          string
		total         int64
		pageSize      int
		expectedPages int
	}{
		{"exact pages", 40, 20, 2},
		{"partial page", 41, 20, 3},
		{"empty", 0, 20, 0},
		{"zero page size", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
			assert.True(t, resp.Success)
			require.NotNil(t, resp.Meta)
			assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
			assert.Equal(t, tt.total, resp.Meta.Total)
		})
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("invalid request", []ValidationDetail{{Field: "period", Message: "period is required"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "VALIDATION", resp.Error.Kind)
	assert.Len(t, resp.Error.Fields, 1)
}

func TestWithRequestID(t *testing.T) {
	t.Run("success response unchanged", func(t *testing.T) {
		resp := NewSuccessResponse("ok").WithRequestID("abc")
		assert.Nil(t, resp.Error)
	})

	t.Run("does not mutate the original", func(t *testing.T) {
		original := NewErrorResponse(ErrCodeInternal, "boom")
		stamped := original.WithRequestID("abc")
		assert.Equal(t, "abc", stamped.Error.RequestID)
		assert.Empty(t, original.Error.RequestID)
	})
}

func TestNormalizePagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PageSize: DefaultPageSize}, NormalizePagination(0, 0))
	assert.Equal(t, Pagination{Page: 3, PageSize: 50}, NormalizePagination(3, 50))
}
