package scoring

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Fixed rule parameters the calibration does not expose as config.
const (
	// highProfitThreshold is the net profit above which a thin market is
	// suspicious (ISK).
	highProfitThreshold = 10_000_000

	// highProfitVolumeCeiling is the volume at or below which the
	// high-profit rule applies.
	highProfitVolumeCeiling = 5
)

// ReasonInsufficientData is the single reason attached when a record carries
// no usable signal.
const ReasonInsufficientData = "Insufficient data for analysis"

// evaluateRules applies the built-in heuristics to a fact set. The rules are
// independent and additive: all are evaluated, never short-circuited against
// each other, so the explanation trail surfaces every red flag in rule order.
//
// The volume bands are deliberately non-overlapping at the 1-unit boundary:
// a volume of exactly 1 triggers only the single-unit rule. Widening the
// very-low band to include 1 would double-count single-unit trades and shift
// the calibrated default scores.
func evaluateRules(f domain.TradeFact, cfg domain.ScoringConfig) []domain.RuleContribution {
	var out []domain.RuleContribution

	switch {
	case f.Volume == 1:
		out = append(out, domain.RuleContribution{
			Points: cfg.SingleUnitPoints,
			Reason: "Single item volume - classic scam indicator",
		})
	case f.Volume > 1 && f.Volume <= cfg.VeryLowVolumeThreshold:
		out = append(out, domain.RuleContribution{
			Points: cfg.VeryLowVolumePoints,
			Reason: fmt.Sprintf("Very low volume (%.0f units)", f.Volume),
		})
	case f.Volume > cfg.VeryLowVolumeThreshold && f.Volume <= cfg.LowVolumeThreshold:
		out = append(out, domain.RuleContribution{
			Points: cfg.LowVolumePoints,
			Reason: fmt.Sprintf("Low volume (%.0f units)", f.Volume),
		})
	}

	switch {
	case f.MarginPercent > cfg.ExtremeMarginThreshold:
		out = append(out, domain.RuleContribution{
			Points: cfg.ExtremeMarginPoints,
			Reason: fmt.Sprintf("Extremely high margin (%.1f%%) - too good to be true", f.MarginPercent),
		})
	case f.MarginPercent > cfg.VeryHighMarginThreshold:
		out = append(out, domain.RuleContribution{
			Points: cfg.VeryHighMarginPoints,
			Reason: fmt.Sprintf("Very high margin (%.1f%%)", f.MarginPercent),
		})
	}

	if f.BuyPrice > 0 && f.SellPrice > f.BuyPrice*cfg.ExtremeSpreadMultiplier {
		out = append(out, domain.RuleContribution{
			Points: cfg.ExtremeSpreadPoints,
			Reason: "Extreme price spread - possible manipulation",
		})
	}

	if f.NetProfit > highProfitThreshold && f.Volume <= highProfitVolumeCeiling {
		out = append(out, domain.RuleContribution{
			Points: cfg.HighProfitLowVolumePoints,
			Reason: "High profit with low volume - suspicious combination",
		})
	}

	return out
}
