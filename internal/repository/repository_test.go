package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetTrade", func(t *testing.T) {
		trade := &domain.TradeRecord{
			ID:            "trade-001",
			TenantID:      tenantID,
			TypeID:        34,
			TypeName:      "Tritanium",
			RegionID:      10000002,
			Volume:        250000,
			MarginPercent: 4.2,
			BuyPrice:      5.01,
			SellPrice:     5.22,
			NetProfit:     52500,
			Timestamp:     time.Now().UTC(),
			CreatedAt:     time.Now().UTC(),
			Metadata:      map[string]any{"source": "api"},
		}

		if err := repo.SaveTrade(ctx, tenantID, trade); err != nil {
			t.Fatalf("SaveTrade failed: %v", err)
		}

		retrieved, err := repo.GetTrade(ctx, tenantID, trade.ID)
		if err != nil {
			t.Fatalf("GetTrade failed: %v", err)
		}

		if retrieved.ID != trade.ID {
			t.Errorf("expected ID %s, got %s", trade.ID, retrieved.ID)
		}
		if retrieved.Volume != trade.Volume {
			t.Errorf("expected Volume %.0f, got %.0f", trade.Volume, retrieved.Volume)
		}
		if retrieved.MarginPercent != trade.MarginPercent {
			t.Errorf("expected MarginPercent %.2f, got %.2f", trade.MarginPercent, retrieved.MarginPercent)
		}
		if retrieved.TenantID != tenantID {
			t.Errorf("expected TenantID %s, got %s", tenantID, retrieved.TenantID)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		otherTenant := "tenant-002"

		// Try to get trade from different tenant
		_, err := repo.GetTrade(ctx, otherTenant, "trade-001")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		trade := &domain.TradeRecord{ID: "trade-test"}

		err := repo.SaveTrade(ctx, "", trade)
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = repo.GetTrade(ctx, "", "trade-001")
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("GetPeerTrades", func(t *testing.T) {
		// Same market as trade-001
		trade2 := &domain.TradeRecord{
			ID:            "trade-002",
			TenantID:      tenantID,
			TypeID:        34,
			TypeName:      "Tritanium",
			RegionID:      10000002,
			Volume:        180000,
			MarginPercent: 3.8,
			BuyPrice:      5.00,
			SellPrice:     5.19,
			NetProfit:     34200,
			Timestamp:     time.Now().UTC(),
			CreatedAt:     time.Now().UTC(),
		}

		if err := repo.SaveTrade(ctx, tenantID, trade2); err != nil {
			t.Fatalf("SaveTrade failed: %v", err)
		}

		// Different market, must not appear
		trade3 := &domain.TradeRecord{
			ID:            "trade-003",
			TenantID:      tenantID,
			TypeID:        35,
			TypeName:      "Pyerite",
			RegionID:      10000002,
			Volume:        90000,
			MarginPercent: 6.1,
			BuyPrice:      10.2,
			SellPrice:     10.9,
			NetProfit:     63000,
			Timestamp:     time.Now().UTC(),
			CreatedAt:     time.Now().UTC(),
		}

		if err := repo.SaveTrade(ctx, tenantID, trade3); err != nil {
			t.Fatalf("SaveTrade failed: %v", err)
		}

		since := time.Now().Add(-1 * time.Hour)
		trades, err := repo.GetPeerTrades(ctx, tenantID, 34, 10000002, since)
		if err != nil {
			t.Fatalf("GetPeerTrades failed: %v", err)
		}

		if len(trades) != 2 {
			t.Errorf("expected 2 trades, got %d", len(trades))
		}
	})

	t.Run("SaveAndGetAssessment", func(t *testing.T) {
		a := &domain.RiskAssessment{
			ID:       "assess-001",
			TenantID: tenantID,
			TradeID:  "trade-001",
			Score:    65,
			Level:    domain.RiskHigh,
			Reasons:  []string{"Very high margin (120.0%)"},
			Facts: domain.TradeFact{
				Volume:        3,
				MarginPercent: 120,
				BuyPrice:      1000,
				SellPrice:     2200,
			},
			Timestamp: time.Now().UTC(),
			Metadata:  domain.AssessmentMetadata{TraceID: "trace-001", PeerCount: 12},
		}

		if err := repo.SaveAssessment(ctx, tenantID, a); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		retrieved, err := repo.GetAssessment(ctx, tenantID, a.ID)
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}

		if retrieved.ID != a.ID {
			t.Errorf("expected ID %s, got %s", a.ID, retrieved.ID)
		}
		if retrieved.Score != a.Score {
			t.Errorf("expected Score %d, got %d", a.Score, retrieved.Score)
		}
		if retrieved.Level != a.Level {
			t.Errorf("expected Level %s, got %s", a.Level, retrieved.Level)
		}
		if len(retrieved.Reasons) != 1 {
			t.Fatalf("expected 1 reason, got %d", len(retrieved.Reasons))
		}
		if retrieved.Facts.MarginPercent != a.Facts.MarginPercent {
			t.Errorf("expected facts margin %.1f, got %.1f", a.Facts.MarginPercent, retrieved.Facts.MarginPercent)
		}
	})

	t.Run("ScoringConfigRoundTrip", func(t *testing.T) {
		// No override yet
		_, err := repo.GetScoringConfig(ctx, tenantID)
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound before save, got: %v", err)
		}

		cfg := domain.DefaultScoringConfig()
		cfg.ScamThreshold = 60

		if err := repo.SaveScoringConfig(ctx, tenantID, cfg); err != nil {
			t.Fatalf("SaveScoringConfig failed: %v", err)
		}

		got, err := repo.GetScoringConfig(ctx, tenantID)
		if err != nil {
			t.Fatalf("GetScoringConfig failed: %v", err)
		}
		if got.ScamThreshold != 60 {
			t.Errorf("expected ScamThreshold 60, got %d", got.ScamThreshold)
		}

		// Upsert overwrites
		cfg.ScamThreshold = 45
		if err := repo.SaveScoringConfig(ctx, tenantID, cfg); err != nil {
			t.Fatalf("SaveScoringConfig upsert failed: %v", err)
		}

		got, err = repo.GetScoringConfig(ctx, tenantID)
		if err != nil {
			t.Fatalf("GetScoringConfig failed: %v", err)
		}
		if got.ScamThreshold != 45 {
			t.Errorf("expected ScamThreshold 45 after upsert, got %d", got.ScamThreshold)
		}
	})

	t.Run("CustomRules", func(t *testing.T) {
		rule := &domain.CustomRule{
			ID:         "rule-001",
			TenantID:   tenantID,
			Name:       "round-number-price",
			Version:    "1.0.0",
			Expression: "sell_price >= 1000000.0 && margin_percent > 200.0",
			Points:     20,
			Reason:     "Suspicious round-number listing",
			Enabled:    true,
		}

		if err := repo.SaveCustomRule(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveCustomRule failed: %v", err)
		}

		retrieved, err := repo.GetCustomRule(ctx, tenantID, rule.ID)
		if err != nil {
			t.Fatalf("GetCustomRule failed: %v", err)
		}
		if retrieved.Expression != rule.Expression {
			t.Errorf("expected expression %q, got %q", rule.Expression, retrieved.Expression)
		}
		if retrieved.Points != 20 {
			t.Errorf("expected points 20, got %d", retrieved.Points)
		}

		rules, err := repo.ListCustomRules(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListCustomRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Errorf("expected 1 rule, got %d", len(rules))
		}

		// Other tenant sees nothing
		rules, err = repo.ListCustomRules(ctx, "tenant-002")
		if err != nil {
			t.Fatalf("ListCustomRules failed: %v", err)
		}
		if len(rules) != 0 {
			t.Errorf("expected 0 rules for other tenant, got %d", len(rules))
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetTrade(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetAssessment(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
