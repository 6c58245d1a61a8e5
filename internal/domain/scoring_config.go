package domain

import "fmt"

// ScoringConfig holds every tunable threshold and point weight used by the
// scoring engine. It is constructed once (defaults or caller overrides),
// validated, and then shared read-only across all evaluations in a session.
type ScoringConfig struct {
	// Volume rule bands. A volume of exactly 1 triggers only the
	// single-unit rule; the very-low band starts strictly above 1.
	VeryLowVolumeThreshold float64 `json:"veryLowVolumeThreshold"`
	LowVolumeThreshold     float64 `json:"lowVolumeThreshold"`

	// Margin rule bands, in percent.
	VeryHighMarginThreshold float64 `json:"veryHighMarginThreshold"`
	ExtremeMarginThreshold  float64 `json:"extremeMarginThreshold"`

	// Sell price above buy price times this multiplier flags the spread rule.
	ExtremeSpreadMultiplier float64 `json:"extremeSpreadMultiplier"`

	// Point weights per rule.
	SingleUnitPoints          int `json:"singleUnitPoints"`
	VeryLowVolumePoints       int `json:"veryLowVolumePoints"`
	LowVolumePoints           int `json:"lowVolumePoints"`
	ExtremeMarginPoints       int `json:"extremeMarginPoints"`
	VeryHighMarginPoints      int `json:"veryHighMarginPoints"`
	ExtremeSpreadPoints       int `json:"extremeSpreadPoints"`
	HighProfitLowVolumePoints int `json:"highProfitLowVolumePoints"`

	// Population comparison. Both the minimum valid-peer sample size and
	// the mean-volume floor share MinMarketSampleSize, which keeps the
	// volume-deviation rule quiet in genuinely illiquid markets.
	MinMarketSampleSize   int     `json:"minMarketSampleSize"`
	VolumeDeviationRatio  float64 `json:"volumeDeviationRatio"`
	VolumeDeviationPoints int     `json:"volumeDeviationPoints"`

	// Classification thresholds against the final, clamped score.
	// Must satisfy medium <= high <= extreme.
	MediumRiskThreshold  int `json:"mediumRiskThreshold"`
	HighRiskThreshold    int `json:"highRiskThreshold"`
	ExtremeRiskThreshold int `json:"extremeRiskThreshold"`

	// ScamThreshold feeds the boolean high-risk predicate. It is
	// deliberately decoupled from the four-level classification so callers
	// can tune the yes/no gate without altering the display taxonomy.
	ScamThreshold int `json:"scamThreshold"`
}

// DefaultScoringConfig returns the calibrated default configuration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		VeryLowVolumeThreshold:  5,
		LowVolumeThreshold:      20,
		VeryHighMarginThreshold: 40,
		ExtremeMarginThreshold:  50,
		ExtremeSpreadMultiplier: 10,

		SingleUnitPoints:          60,
		VeryLowVolumePoints:       30,
		LowVolumePoints:           10,
		ExtremeMarginPoints:       25,
		VeryHighMarginPoints:      15,
		ExtremeSpreadPoints:       20,
		HighProfitLowVolumePoints: 10,

		MinMarketSampleSize:   100,
		VolumeDeviationRatio:  0.1,
		VolumeDeviationPoints: 15,

		MediumRiskThreshold:  30,
		HighRiskThreshold:    50,
		ExtremeRiskThreshold: 70,
		ScamThreshold:        50,
	}
}

// ConfigError describes an invalid ScoringConfig field. It is a load-time
// failure surfaced at construction, never mid-scoring.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scoring config: %s: %s", e.Field, e.Reason)
}

// Validate rejects inverted threshold orderings and negative weights.
func (c ScoringConfig) Validate() error {
	if c.MediumRiskThreshold > c.HighRiskThreshold {
		return &ConfigError{Field: "mediumRiskThreshold", Reason: "must not exceed highRiskThreshold"}
	}
	if c.HighRiskThreshold > c.ExtremeRiskThreshold {
		return &ConfigError{Field: "highRiskThreshold", Reason: "must not exceed extremeRiskThreshold"}
	}

	points := []struct {
		field string
		value int
	}{
		{"singleUnitPoints", c.SingleUnitPoints},
		{"veryLowVolumePoints", c.VeryLowVolumePoints},
		{"lowVolumePoints", c.LowVolumePoints},
		{"extremeMarginPoints", c.ExtremeMarginPoints},
		{"veryHighMarginPoints", c.VeryHighMarginPoints},
		{"extremeSpreadPoints", c.ExtremeSpreadPoints},
		{"highProfitLowVolumePoints", c.HighProfitLowVolumePoints},
		{"volumeDeviationPoints", c.VolumeDeviationPoints},
	}
	for _, p := range points {
		if p.value < 0 {
			return &ConfigError{Field: p.field, Reason: "must not be negative"}
		}
	}

	if c.VolumeDeviationRatio < 0 {
		return &ConfigError{Field: "volumeDeviationRatio", Reason: "must not be negative"}
	}
	if c.MinMarketSampleSize < 0 {
		return &ConfigError{Field: "minMarketSampleSize", Reason: "must not be negative"}
	}

	return nil
}
