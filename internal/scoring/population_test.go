package scoring

import (
	"math"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestComputePopulationStats(t *testing.T) {
	t.Run("ExcludesZeroSamples", func(t *testing.T) {
		peers := []domain.TradeFact{
			{Volume: 10, MarginPercent: 10},
			{Volume: 20, MarginPercent: 20},
			{Volume: 0, MarginPercent: 0}, // contributes to neither mean
		}

		stats := ComputePopulationStats(peers)

		if stats.VolumeSamples != 2 {
			t.Errorf("expected 2 volume samples, got %d", stats.VolumeSamples)
		}
		if stats.MeanVolume != 15 {
			t.Errorf("expected mean volume 15, got %f", stats.MeanVolume)
		}
		if stats.MarginSamples != 2 {
			t.Errorf("expected 2 margin samples, got %d", stats.MarginSamples)
		}
		if stats.MeanMargin != 15 {
			t.Errorf("expected mean margin 15, got %f", stats.MeanMargin)
		}
		// population stddev of {10, 20} is 5
		if math.Abs(stats.MarginStddev-5) > 1e-9 {
			t.Errorf("expected margin stddev 5, got %f", stats.MarginStddev)
		}
	})

	t.Run("SplitSampleCounts", func(t *testing.T) {
		peers := []domain.TradeFact{
			{Volume: 100, MarginPercent: 0},
			{Volume: 0, MarginPercent: 8},
		}

		stats := ComputePopulationStats(peers)

		if stats.VolumeSamples != 1 || stats.MarginSamples != 1 {
			t.Errorf("expected split 1/1 samples, got %d/%d", stats.VolumeSamples, stats.MarginSamples)
		}
		if stats.MeanVolume != 100 || stats.MeanMargin != 8 {
			t.Errorf("unexpected means: %f / %f", stats.MeanVolume, stats.MeanMargin)
		}
	})

	t.Run("ZeroVariance", func(t *testing.T) {
		peers := []domain.TradeFact{
			{MarginPercent: 7},
			{MarginPercent: 7},
			{MarginPercent: 7},
		}

		stats := ComputePopulationStats(peers)

		if stats.MarginStddev != 0 {
			t.Errorf("expected stddev 0 for identical margins, got %f", stats.MarginStddev)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		stats := ComputePopulationStats(nil)
		if stats.VolumeSamples != 0 || stats.MarginSamples != 0 {
			t.Errorf("expected zero samples, got %+v", stats)
		}
		if stats.MeanVolume != 0 || stats.MeanMargin != 0 || stats.MarginStddev != 0 {
			t.Errorf("expected zero means, got %+v", stats)
		}
	})
}

func TestPeerFacts(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		if got := PeerFacts(nil); got != nil {
			t.Errorf("expected nil for empty input, got %v", got)
		}
	})

	t.Run("ExtractsEachPeer", func(t *testing.T) {
		peers := []RecordLike{
			MapRecord{"volume": 10.0},
			MapRecord{"Volume": "20"},
		}

		facts := PeerFacts(peers)

		if len(facts) != 2 {
			t.Fatalf("expected 2 fact sets, got %d", len(facts))
		}
		if facts[0].Volume != 10 || facts[1].Volume != 20 {
			t.Errorf("unexpected volumes: %f / %f", facts[0].Volume, facts[1].Volume)
		}
	})
}
