package persistence

import (
	"strings"
)

// sortColumns whitelists the columns a list query may be ordered by.
// Anything else falls back, so caller input never reaches ORDER BY.
type sortColumns struct {
	allowed  map[string]bool
	fallback string
}

func newSortColumns(fallback string, columns ...string) sortColumns {
	allowed := make(map[string]bool, len(columns)+1)
	allowed[fallback] = true
	for _, c := range columns {
		allowed[c] = true
	}
	return sortColumns{allowed: allowed, fallback: fallback}
}

// column returns field when whitelisted, else the fallback.
func (s sortColumns) column(field string) string {
	if field = strings.TrimSpace(field); s.allowed[field] {
		return field
	}
	return s.fallback
}

// clause builds "<column> <dir>, id <dir>". Direction defaults to DESC; id
// breaks ties so pages stay stable.
func (s sortColumns) clause(field, dir string) string {
	d := sortDirection(dir)
	col := s.column(field)
	if col == "id" {
		return col + " " + d
	}
	return col + " " + d + ", id " + d
}

func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

var (
	purchaseOrderSort = newSortColumns("created_at",
		"updated_at", "order_number", "status", "total_excl_tax", "submitted_at", "delivered_at")
	royaltyReportSort = newSortColumns("period",
		"generated_at", "amount_due", "gross_sales", "created_at")
)
