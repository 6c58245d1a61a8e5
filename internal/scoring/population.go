package scoring

import (
	"fmt"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Margin-outlier parameters. The points are fixed by calibration; the
// minimum sample count keeps the z-test meaningless on tiny populations.
const (
	marginOutlierMinSamples = 10
	marginOutlierPoints     = 10
	marginOutlierSigmas     = 2.0
)

// ComputePopulationStats aggregates peer facts in a single pass. Peers with
// zero volume are excluded from the volume mean; peers with zero margin are
// excluded from the margin mean and stddev. The stddev is the population
// standard deviation, not the sample one.
func ComputePopulationStats(peers []domain.TradeFact) domain.PopulationStats {
	var (
		volSum    float64
		volCount  int
		mSum      float64
		mSumSq    float64
		mCount    int
	)

	for _, p := range peers {
		if p.Volume > 0 {
			volSum += p.Volume
			volCount++
		}
		if p.MarginPercent > 0 {
			mSum += p.MarginPercent
			mSumSq += p.MarginPercent * p.MarginPercent
			mCount++
		}
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

// PeerFacts extracts the fact set from every peer record.
func PeerFacts(peers []RecordLike) []domain.TradeFact {
	if len(peers) == 0 {
		return nil
	}
	facts := make([]domain.TradeFact, len(peers))
	for i, p := range peers {
		facts[i] = Facts(p)
	}
	return facts
}

// comparePopulation contributes points when the subject deviates
// significantly from its peer population. Both checks are independently
// gated on sample size so low-volume/illiquid markets never penalize their
// own members, and the stddev > 0 guard is mandatory: without it every
// member of a zero-variance population would flag as an outlier.
func comparePopulation(f domain.TradeFact, stats domain.PopulationStats, cfg domain.ScoringConfig) []domain.RuleContribution {
	var out []domain.RuleContribution

	if stats.VolumeSamples >= cfg.MinMarketSampleSize &&
		stats.MeanVolume > float64(cfg.MinMarketSampleSize) &&
		f.Volume < stats.MeanVolume*cfg.VolumeDeviationRatio {
		out = append(out, domain.RuleContribution{
			Points: cfg.VolumeDeviationPoints,
			Reason: fmt.Sprintf("Volume far below market average (%.0f units)", stats.MeanVolume),
		})
	}

	if stats.MarginSamples >= marginOutlierMinSamples &&
		stats.MarginStddev > 0 &&
		f.MarginPercent > stats.MeanMargin+marginOutlierSigmas*stats.MarginStddev {
		out = append(out, domain.RuleContribution{
			Points: marginOutlierPoints,
			Reason: fmt.Sprintf("Margin is a statistical outlier (market average %.1f%%)", stats.MeanMargin),
		})
	}

	return out
}
