package valueobject

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2025-08", false},
		{"1999-12", false},
		{"2025-13", true},
		{"2025-00", true},
		{"2025-8", true},
		{"25-08", true},
		{"2025/08", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var de *shared.DomainError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, shared.CodeInvalidPeriod, de.Code)
				assert.Equal(t, shared.KindValidation, de.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, p.String())
		})
	}
}

func TestPeriod_Bounds(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	t.Run("half open month in the given zone", func(t *testing.T) {
		start, end := MustParsePeriod("2025-08").Bounds(paris)
		assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, paris), start)
		assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, paris), end)
	})

	t.Run("december rolls into next year", func(t *testing.T) {
		_, end := MustParsePeriod("2024-12").Bounds(time.UTC)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("contains respects zone and end exclusivity", func(t *testing.T) {
		p := MustParsePeriod("2025-08")
		// 2025-07-31T22:30Z is 00:30 on Aug 1 in Paris (UTC+2)
		assert.True(t, p.Contains(time.Date(2025, 7, 31, 22, 30, 0, 0, time.UTC), paris))
		assert.False(t, p.Contains(time.Date(2025, 7, 31, 22, 30, 0, 0, time.UTC), time.UTC))
		assert.False(t, p.Contains(time.Date(2025, 9, 1, 0, 0, 0, 0, paris), paris))
	})
}

func TestPeriod_Navigation(t *testing.T) {
	assert.Equal(t, "2024-12", MustParsePeriod("2025-01").Previous().String())
	assert.Equal(t, "2026-01", MustParsePeriod("2025-12").Next().String())
	assert.Equal(t, "2025-08", PeriodOf(time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC), time.UTC).String())
	assert.True(t, Period{}.IsZero())
}

func TestPeriod_JSON(t *testing.T) {
	var v struct {
		Period Period `json:"period"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"period":"2025-08"}`), &v))
	assert.Equal(t, 2025, v.Period.Year())
	assert.Equal(t, time.August, v.Period.Month())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2025-08"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"period":"2025-8"}`), &v))
}
