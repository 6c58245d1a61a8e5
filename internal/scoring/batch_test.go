package scoring

import (
	"strings"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestAnalyzeAll(t *testing.T) {
	cfg := domain.DefaultScoringConfig()

	t.Run("RanksByDescendingScore", func(t *testing.T) {
		safe := MapRecord{"volume": 250000.0, "marginPercent": 4.2, "buyPrice": 5.01, "sellPrice": 5.22}
		scam := MapRecord{"volume": 1.0, "marginPercent": 180.0, "buyPrice": 100.0, "sellPrice": 280.0, "netProfit": 20000000.0}
		shady := MapRecord{"volume": 3.0, "marginPercent": 55.0, "buyPrice": 1000.0, "sellPrice": 1550.0}

		scored := AnalyzeAll([]RecordLike{safe, scam, shady}, cfg)

		if len(scored) != 3 {
			t.Fatalf("expected 3 results, got %d", len(scored))
		}
		for i := 1; i < len(scored); i++ {
			if scored[i].Assessment.Score > scored[i-1].Assessment.Score {
				t.Errorf("results not in descending order at index %d", i)
			}
		}

		// single-unit (60) + extreme margin (25) + high profit low volume (10)
		if scored[0].Assessment.Score != 95 {
			t.Errorf("expected top score 95, got %d", scored[0].Assessment.Score)
		}
		// very-low volume (30) + extreme margin (25)
		if scored[1].Assessment.Score != 55 {
			t.Errorf("expected middle score 55, got %d", scored[1].Assessment.Score)
		}
		if scored[2].Assessment.Score != 0 {
			t.Errorf("expected bottom score 0, got %d", scored[2].Assessment.Score)
		}
	})

	t.Run("TiesKeepInputOrder", func(t *testing.T) {
		first := MapRecord{"volume": 1.0}
		second := MapRecord{"volume": 1.0}

		scored := AnalyzeAll([]RecordLike{first, second}, cfg)

		if len(scored) != 2 {
			t.Fatalf("expected 2 results, got %d", len(scored))
		}
		if _, ok := scored[0].Record.(MapRecord); !ok {
			t.Fatal("expected MapRecord results")
		}
		// Stable sort: equal scores preserve the original order. MapRecord is
		// a map, so identify by mutating the first input.
		first["marker"] = true
		if _, ok := scored[0].Record.(MapRecord)["marker"]; !ok {
			t.Error("expected tie to preserve input order")
		}
	})

	t.Run("LeaveOneOutPopulation", func(t *testing.T) {
		// 120 liquid peers and one thin subject: the subject should flag on
		// volume deviation, the peers should not flag against themselves.
		records := make([]RecordLike, 0, 121)
		for i := 0; i < 120; i++ {
			records = append(records, MapRecord{"volume": 10000.0, "marginPercent": 5.0})
		}
		subject := MapRecord{"volume": 50.0, "marginPercent": 5.0}
		records = append(records, subject)

		scored := AnalyzeAll(records, cfg)

		top := scored[0]
		if top.Assessment.Score != 15 {
			t.Fatalf("expected deviation points 15 for the thin subject, got %d", top.Assessment.Score)
		}
		if top.Record.(MapRecord)["volume"] != 50.0 {
			t.Error("expected the thin subject ranked first")
		}
		if len(top.Assessment.Reasons) != 1 || !strings.Contains(top.Assessment.Reasons[0], "below market average") {
			t.Errorf("unexpected reasons: %v", top.Assessment.Reasons)
		}

		for _, s := range scored[1:] {
			if s.Assessment.Score != 0 {
				t.Errorf("expected liquid peers to score 0, got %d (%v)", s.Assessment.Score, s.Assessment.Reasons)
			}
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if got := AnalyzeAll(nil, cfg); got != nil {
			t.Errorf("expected nil for empty input, got %v", got)
		}
	})
}

func TestStatistics(t *testing.T) {
	cfg := domain.DefaultScoringConfig()

	t.Run("CountsAndAverage", func(t *testing.T) {
		records := []RecordLike{
			MapRecord{"volume": 250000.0, "marginPercent": 4.2},                       // 0, low
			MapRecord{"volume": 1.0, "marginPercent": 180.0, "netProfit": 20000000.0}, // 95, extreme
			MapRecord{"volume": 3.0, "marginPercent": 55.0},                           // 55, high
		}

		stats := Statistics(records, cfg)

		if stats.Total != 3 {
			t.Errorf("expected total 3, got %d", stats.Total)
		}
		if stats.ExtremeCount != 1 || stats.HighCount != 1 || stats.MediumCount != 0 || stats.LowCount != 1 {
			t.Errorf("unexpected level counts: %+v", stats)
		}
		if stats.AverageScore != 50 {
			t.Errorf("expected average 50, got %f", stats.AverageScore)
		}
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		stats := Statistics(nil, cfg)
		if stats.Total != 0 || stats.AverageScore != 0 {
			t.Errorf("expected zero stats, got %+v", stats)
		}
	})
}

func TestReduce(t *testing.T) {
	scored := []Scored{
		{Assessment: domain.RiskAssessment{Score: 80, Level: domain.RiskExtreme}},
		{Assessment: domain.RiskAssessment{Score: 40, Level: domain.RiskMedium}},
		{Assessment: domain.RiskAssessment{Score: 0, Level: domain.RiskLow}},
	}

	stats := Reduce(scored)

	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
	if stats.ExtremeCount != 1 || stats.MediumCount != 1 || stats.LowCount != 1 || stats.HighCount != 0 {
		t.Errorf("unexpected level counts: %+v", stats)
	}
	if stats.AverageScore != 40 {
		t.Errorf("expected average 40, got %f", stats.AverageScore)
	}
}
