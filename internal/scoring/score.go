package scoring

import (
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Score bounds. Sums can exceed the ceiling when several rules fire at once;
// clamping keeps the score interpretable as a percentage-like confidence.
const (
	minScore = 0
	maxScore = 100
)

// Score evaluates a single record against the built-in heuristics, plus the
// peer population when one is supplied. The result is a complete value even
// for degenerate input: a record with no usable facts yields score 0, level
// low, and a single insufficient-data reason.
func Score(record RecordLike, peers []RecordLike, cfg domain.ScoringConfig) domain.RiskAssessment {
	if len(peers) == 0 {
		return ScoreWithStats(record, nil, cfg)
	}
	stats := ComputePopulationStats(PeerFacts(peers))
	return ScoreWithStats(record, &stats, cfg)
}

// ScoreWithStats is the precomputed-stats path for batch callers that reuse
// one peer population across many subjects. A nil stats skips the population
// comparison entirely.
func ScoreWithStats(record RecordLike, stats *domain.PopulationStats, cfg domain.ScoringConfig) domain.RiskAssessment {
	return scoreFacts(Facts(record), stats, cfg)
}

func scoreFacts(f domain.TradeFact, stats *domain.PopulationStats, cfg domain.ScoringConfig) domain.RiskAssessment {
	if f.Empty() {
		return domain.RiskAssessment{
			Score:   0,
			Level:   domain.RiskLow,
			Reasons: []string{ReasonInsufficientData},
			Facts:   f,
		}
	}

	contributions := evaluateRules(f, cfg)
	if stats != nil {
		contributions = append(contributions, comparePopulation(f, *stats, cfg)...)
	}

	return Aggregate(f, contributions, cfg)
}

// ScoreWithExtras merges externally evaluated contributions (operator-defined
// CEL rules) into the same additive sum as the built-in heuristics. Extras
// are ignored for records with no usable facts, which keeps the
// insufficient-data short-circuit authoritative.
func ScoreWithExtras(record RecordLike, stats *domain.PopulationStats, extras []domain.RuleContribution, cfg domain.ScoringConfig) domain.RiskAssessment {
	f := Facts(record)
	if f.Empty() {
		return scoreFacts(f, stats, cfg)
	}

	contributions := evaluateRules(f, cfg)
	if stats != nil {
		contributions = append(contributions, comparePopulation(f, *stats, cfg)...)
	}
	contributions = append(contributions, extras...)

	return Aggregate(f, contributions, cfg)
}

// Aggregate sums rule contributions, clamps the total to [0, 100], and
// classifies the final clamped score. Exposed so extension rules evaluated
// outside this package can be merged into the same additive sum.
func Aggregate(f domain.TradeFact, contributions []domain.RuleContribution, cfg domain.ScoringConfig) domain.RiskAssessment {
	total := 0
	reasons := make([]string, 0, len(contributions))
	for _, c := range contributions {
		total += c.Points
		reasons = append(reasons, c.Reason)
	}

	score := clamp(total)
	return domain.RiskAssessment{
		Score:   score,
		Level:   Classify(score, cfg),
		Reasons: reasons,
		Facts:   f,
	}
}

// Classify maps a final, clamped score to a risk level via the ordered
// thresholds. Classification always uses the post-clamp score.
func Classify(score int, cfg domain.ScoringConfig) domain.RiskLevel {
	switch {
	case score >= cfg.ExtremeRiskThreshold:
		return domain.RiskExtreme
	case score >= cfg.HighRiskThreshold:
		return domain.RiskHigh
	case score >= cfg.MediumRiskThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// IsHighRisk reports whether the record clears the scam threshold. The
// threshold is independent of the four-level classification.
func IsHighRisk(record RecordLike, peers []RecordLike, cfg domain.ScoringConfig) bool {
	return Score(record, peers, cfg).Score >= cfg.ScamThreshold
}

// Explain returns only the ordered explanation trail.
func Explain(record RecordLike, peers []RecordLike, cfg domain.ScoringConfig) []string {
	return Score(record, peers, cfg).Reasons
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
