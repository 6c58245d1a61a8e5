package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestScoringConfigValidate(t *testing.T) {
	t.Run("DefaultsAreValid", func(t *testing.T) {
		if err := DefaultScoringConfig().Validate(); err != nil {
			t.Errorf("expected default config to validate, got %v", err)
		}
	})

	t.Run("InvalidFields", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*ScoringConfig)
			field  string
		}{
			{
				"MediumAboveHigh",
				func(c *ScoringConfig) { c.MediumRiskThreshold = 80 },
				"mediumRiskThreshold",
			},
			{
				"HighAboveExtreme",
				func(c *ScoringConfig) { c.HighRiskThreshold = 90 },
				"highRiskThreshold",
			},
			{
				"NegativeSingleUnitPoints",
				func(c *ScoringConfig) { c.SingleUnitPoints = -1 },
				"singleUnitPoints",
			},
			{
				"NegativeDeviationPoints",
				func(c *ScoringConfig) { c.VolumeDeviationPoints = -5 },
				"volumeDeviationPoints",
			},
			{
				"NegativeDeviationRatio",
				func(c *ScoringConfig) { c.VolumeDeviationRatio = -0.1 },
				"volumeDeviationRatio",
			},
			{
				"NegativeSampleSize",
				func(c *ScoringConfig) { c.MinMarketSampleSize = -1 },
				"minMarketSampleSize",
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				cfg := DefaultScoringConfig()
				tc.mutate(&cfg)

				err := cfg.Validate()
				if err == nil {
					t.Fatal("expected validation error")
				}

				var cerr *ConfigError
				if !errors.As(err, &cerr) {
					t.Fatalf("expected *ConfigError, got %T", err)
				}
				if cerr.Field != tc.field {
					t.Errorf("expected field %q, got %q", tc.field, cerr.Field)
				}
			})
		}
	})

	t.Run("EqualThresholdsAllowed", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		cfg.MediumRiskThreshold = 50
		cfg.HighRiskThreshold = 50
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected equal thresholds to validate, got %v", err)
		}
	})

	t.Run("ErrorMessage", func(t *testing.T) {
		err := &ConfigError{Field: "scamThreshold", Reason: "broken"}
		if !strings.Contains(err.Error(), "scamThreshold") || !strings.Contains(err.Error(), "broken") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tier != TierCommunity {
		t.Errorf("expected community tier, got %s", cfg.Tier)
	}
	if cfg.Repository.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Repository.Driver)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("expected memory cache, got %s", cfg.Cache.Type)
	}
	if cfg.EventBus.Type != "channel" {
		t.Errorf("expected channel bus, got %s", cfg.EventBus.Type)
	}
	if err := cfg.Scoring.Validate(); err != nil {
		t.Errorf("expected valid scoring defaults, got %v", err)
	}
}

func TestProConfig(t *testing.T) {
	cfg := ProConfig()

	if cfg.Tier != TierPro {
		t.Errorf("expected pro tier, got %s", cfg.Tier)
	}
	if cfg.Repository.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.Repository.Driver)
	}
	if cfg.Cache.Type != "redis" || !cfg.Cache.EnableTwoPhase {
		t.Errorf("expected two-phase redis cache, got %+v", cfg.Cache)
	}
	if cfg.EventBus.Type != "nats" {
		t.Errorf("expected nats bus, got %s", cfg.EventBus.Type)
	}
}

func TestTradeFactEmpty(t *testing.T) {
	if !(TradeFact{}).Empty() {
		t.Error("zero facts should be empty")
	}
	if !(TradeFact{NetProfit: 100}).Empty() {
		t.Error("profit alone should still be empty")
	}
	if (TradeFact{Volume: 1}).Empty() {
		t.Error("facts with a volume should not be empty")
	}
	if (TradeFact{SellPrice: 5}).Empty() {
		t.Error("facts with a price should not be empty")
	}
}

func TestTradeRequestToTrade(t *testing.T) {
	req := TradeRequest{
		TypeID:        34,
		TypeName:      "Tritanium",
		RegionID:      10000002,
		Volume:        1000,
		MarginPercent: 12.5,
		BuyPrice:      4.5,
		SellPrice:     5.1,
	}

	trade := req.ToTrade()

	if trade.TypeID != 34 || trade.RegionID != 10000002 {
		t.Errorf("unexpected market identifiers: %d/%d", trade.TypeID, trade.RegionID)
	}
	if trade.Timestamp.IsZero() || trade.CreatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	f := trade.Fact()
	if f.Volume != 1000 || f.MarginPercent != 12.5 {
		t.Errorf("unexpected facts: %+v", f)
	}
}

func TestTradeRecordValue(t *testing.T) {
	trade := &TradeRecord{
		Volume:   42,
		Metadata: map[string]interface{}{"listingAge": 3},
	}

	if v, ok := trade.Value("volume"); !ok || v != 42.0 {
		t.Errorf("expected volume 42, got %v (%v)", v, ok)
	}
	if v, ok := trade.Value("listingAge"); !ok || v != 3 {
		t.Errorf("expected metadata lookup to work, got %v (%v)", v, ok)
	}
	if _, ok := trade.Value("missing"); ok {
		t.Error("expected missing key to report absent")
	}
}
