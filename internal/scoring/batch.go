package scoring

import (
	"math"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Scored pairs an input record with its assessment in batch output.
type Scored struct {
	Record     RecordLike
	Assessment domain.RiskAssessment
}

// AnalyzeAll scores every record using the rest of the batch as its peer
// population (leave-one-out), then returns the results sorted by descending
// score. Ties keep the original input order. Empty input yields an empty
// slice.
//
// Population sums are accumulated once and each subject's own contribution
// subtracted, so the batch costs O(n) stats work instead of O(n^2).
func AnalyzeAll(records []RecordLike, cfg domain.ScoringConfig) []Scored {
	if len(records) == 0 {
		return nil
	}

	facts := make([]domain.TradeFact, len(records))
	for i, r := range records {
		facts[i] = Facts(r)
	}

	var (
		volSum   float64
		volCount int
		mSum     float64
		mSumSq   float64
		mCount   int
	)
	for _, f := range facts {
		if f.Volume > 0 {
			volSum += f.Volume
			volCount++
		}
		if f.MarginPercent > 0 {
			mSum += f.MarginPercent
			mSumSq += f.MarginPercent * f.MarginPercent
			mCount++
		}
	}

	out := make([]Scored, len(records))
	for i, r := range records {
		stats := leaveOneOut(facts[i], volSum, volCount, mSum, mSumSq, mCount)
		out[i] = Scored{
			Record:     r,
			Assessment: scoreFacts(facts[i], &stats, cfg),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Assessment.Score > out[j].Assessment.Score
	})

	return out
}

// leaveOneOut derives the peer statistics for one subject by removing its
// own contribution from the batch-wide sums.
func leaveOneOut(f domain.TradeFact, volSum float64, volCount int, mSum, mSumSq float64, mCount int) domain.PopulationStats {
	if f.Volume > 0 {
		volSum -= f.Volume
		volCount--
	}
	if f.MarginPercent > 0 {
		mSum -= f.MarginPercent
		mSumSq -= f.MarginPercent * f.MarginPercent
		mCount--
	}

	stats := domain.PopulationStats{
		VolumeSamples: volCount,
		MarginSamples: mCount,
	}
	if volCount > 0 {
		stats.MeanVolume = volSum / float64(volCount)
	}
	if mCount > 0 {
		stats.MeanMargin = mSum / float64(mCount)
		variance := mSumSq/float64(mCount) - stats.MeanMargin*stats.MeanMargin
		if variance > 0 {
			stats.MarginStddev = math.Sqrt(variance)
		}
	}
	return stats
}

// Statistics reduces a batch to per-level counts and the average score.
func Statistics(records []RecordLike, cfg domain.ScoringConfig) domain.BatchStats {
	return Reduce(AnalyzeAll(records, cfg))
}

// Reduce computes batch statistics from already-scored results.
func Reduce(scored []Scored) domain.BatchStats {
	stats := domain.BatchStats{Total: len(scored)}
	if len(scored) == 0 {
		return stats
	}

	sum := 0
	for _, s := range scored {
		sum += s.Assessment.Score
		switch s.Assessment.Level {
		case domain.RiskExtreme:
			stats.ExtremeCount++
		case domain.RiskHigh:
			stats.HighCount++
		case domain.RiskMedium:
			stats.MediumCount++
		default:
			stats.LowCount++
		}
	}
	stats.AverageScore = float64(sum) / float64(stats.Total)

	return stats
}
