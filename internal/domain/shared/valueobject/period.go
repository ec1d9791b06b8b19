package valueobject

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
)

var periodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// Period is a calendar month billing period, keyed as YYYY-MM
type Period struct {
	year  int
	month time.Month
}

// ParsePeriod parses a YYYY-MM key
func ParsePeriod(s string) (Period, error) {
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return Period{}, shared.NewValidationError(shared.CodeInvalidPeriod,
			fmt.Sprintf("period %q must be formatted as YYYY-MM", s))
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Period{}, shared.NewValidationError(shared.CodeInvalidPeriod,
			fmt.Sprintf("period %q has an invalid month", s))
	}
	if year < 1 {
		return Period{}, shared.NewValidationError(shared.CodeInvalidPeriod,
			fmt.Sprintf("period %q has an invalid year", s))
	}
	return Period{year: year, month: time.Month(month)}, nil
}

// MustParsePeriod is ParsePeriod for constants and tests
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PeriodOf returns the period containing t when observed in loc
func PeriodOf(t time.Time, loc *time.Location) Period {
	local := t.In(loc)
	return Period{year: local.Year(), month: local.Month()}
}

// Year returns the calendar year
func (p Period) Year() int { return p.year }

// Month returns the calendar month
func (p Period) Month() time.Month { return p.month }

// IsZero reports whether the period is unset
func (p Period) IsZero() bool { return p.year == 0 }

// String returns the YYYY-MM key
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
}

// Start returns midnight on the first day of the period in loc.
// This is also the reference date used to resolve the agreement in force.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.year, p.month, 1, 0, 0, 0, 0, loc)
}

// Bounds returns the half-open interval [start, next period start) in loc
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := p.Start(loc)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the period as observed in loc
func (p Period) Contains(t time.Time, loc *time.Location) bool {
	start, end := p.Bounds(loc)
	return !t.Before(start) && t.Before(end)
}

// Previous returns the month before p
func (p Period) Previous() Period {
	return PeriodOf(p.Start(time.UTC).AddDate(0, -1, 0), time.UTC)
}

// Next returns the month after p
func (p Period) Next() Period {
	return PeriodOf(p.Start(time.UTC).AddDate(0, 1, 0), time.UTC)
}

// MarshalText implements encoding.TextMarshaler
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
