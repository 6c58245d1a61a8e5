// Package domain defines the core interfaces and types for Kestrel.
package domain

// TradeFact is the normalized, strongly-typed input to scoring.
// It is derived fresh from a source record per evaluation and owns no
// references to the record it came from. Absent fields default to zero.
type TradeFact struct {
	// Volume is the number of units traded.
	Volume float64 `json:"volume"`

	// MarginPercent is the gross margin as a percentage of buy cost
	// (60.0 means 60%).
	MarginPercent float64 `json:"marginPercent"`

	// Prices in ISK (an opaque numeric unit as far as scoring is concerned).
	BuyPrice  float64 `json:"buyPrice"`
	SellPrice float64 `json:"sellPrice"`

	// NetProfit is the total profit of the trade after fees.
	NetProfit float64 `json:"netProfit"`
}

// Empty reports whether the fact set carries no usable signal.
// NetProfit alone is not enough to score a trade, so it is excluded.
func (f TradeFact) Empty() bool {
	return f.Volume == 0 && f.MarginPercent == 0 && f.BuyPrice == 0 && f.SellPrice == 0
}

// RuleContribution is one evaluated rule outcome: a non-negative point delta
// plus a human-readable explanation. The ordered list of contributions forms
// the explanation trail for a score.
type RuleContribution struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// PopulationStats holds aggregate statistics over a peer population,
// computed once per batch and discarded after the call that produced it.
// Volume and margin samples are counted separately because the two
// population checks filter peers differently (volume > 0 vs margin > 0).
type PopulationStats struct {
	MeanVolume    float64 `json:"meanVolume"`
	VolumeSamples int     `json:"volumeSamples"`
	MeanMargin    float64 `json:"meanMargin"`
	MarginStddev  float64 `json:"marginStddev"`
	MarginSamples int     `json:"marginSamples"`
}
