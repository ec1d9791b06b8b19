package procurement

import (
	"github.com/shopspring/decimal"
)

// CoreThresholdPct is the minimum share of order value, in percent, that must
// be sourced from the core catalog for an order to be submitted.
var CoreThresholdPct = decimal.NewFromInt(80)

const (
	// PercentScale is the precision percentages are stored and transmitted with.
	PercentScale int32 = 4
	// PercentDisplayScale is the precision percentages are shown with.
	PercentDisplayScale int32 = 1
)

var hundred = decimal.NewFromInt(100)

// LineInput is the minimal line shape the ratio calculator needs
type LineInput struct {
	ProductID        string
	Quantity         decimal.Decimal
	UnitPriceExclTax decimal.Decimal
	TaxRatePct       decimal.Decimal
	IsCoreItem       bool
}

// AmountExclTax returns quantity × unit price, unrounded
func (l LineInput) AmountExclTax() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPriceExclTax)
}

// TaxAmount returns the line's tax, unrounded
func (l LineInput) TaxAmount() decimal.Decimal {
	return l.AmountExclTax().Mul(l.TaxRatePct).Div(hundred)
}

// RatioResult is the core/free split of a set of order lines.
// CorePct and FreePct are nil when TotalAmount is zero.
type RatioResult struct {
	CoreAmount  decimal.Decimal
	FreeAmount  decimal.Decimal
	TotalAmount decimal.Decimal
	TaxAmount   decimal.Decimal
	CorePct     *decimal.Decimal
	FreePct     *decimal.Decimal
}

// ComputeRatios aggregates line amounts and derives the core percentage.
// It has no side effects and may be called any number of times.
func ComputeRatios(lines []LineInput) RatioResult {
	core := decimal.Zero
	total := decimal.Zero
	tax := decimal.Zero
	for _, l := range lines {
		amount := l.AmountExclTax()
		total = total.Add(amount)
		tax = tax.Add(l.TaxAmount())
		if l.IsCoreItem {
			core = core.Add(amount)
		}
	}

	result := RatioResult{
		CoreAmount:  core,
		FreeAmount:  total.Sub(core),
		TotalAmount: total,
		TaxAmount:   tax,
	}
	if total.IsZero() {
		return result
	}

	corePct := core.Mul(hundred).DivRound(total, PercentScale)
	freePct := hundred.Sub(corePct)
	result.CorePct = &corePct
	result.FreePct = &freePct
	return result
}

// HasDefinedRatio reports whether the core percentage is defined
func (r RatioResult) HasDefinedRatio() bool {
	return r.CorePct != nil
}

// MeetsThreshold reports whether core value is at least thresholdPct of the
// total. The comparison is made on the exact amounts (core × 100 ≥ threshold ×
// total) so no rounding can move an order across the boundary.
func (r RatioResult) MeetsThreshold(thresholdPct decimal.Decimal) bool {
	if !r.TotalAmount.IsPositive() {
		return false
	}
	return r.CoreAmount.Mul(hundred).GreaterThanOrEqual(thresholdPct.Mul(r.TotalAmount))
}

// IsCompliant applies the network-wide core threshold
func (r RatioResult) IsCompliant() bool {
	return r.MeetsThreshold(CoreThresholdPct)
}

// DisplayCorePct returns the core percentage rounded for display, or "" when undefined
func (r RatioResult) DisplayCorePct() string {
	return formatPct(r.CorePct, PercentDisplayScale)
}

// DisplayFreePct returns the free percentage rounded for display, or "" when undefined
func (r RatioResult) DisplayFreePct() string {
	return formatPct(r.FreePct, PercentDisplayScale)
}

func formatPct(p *decimal.Decimal, scale int32) string {
	if p == nil {
		return ""
	}
	return p.StringFixed(scale)
}
