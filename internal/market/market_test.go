package market

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// fakeRepo serves a canned peer population and counts queries.
type fakeRepo struct {
	domain.Repository
	trades []*domain.TradeRecord
	calls  int
}

func (f *fakeRepo) GetPeerTrades(ctx context.Context, tenantID string, typeID, regionID int64, since time.Time) ([]*domain.TradeRecord, error) {
	f.calls++
	return f.trades, nil
}

// fakeCache is a minimal stats-only cache.
type fakeCache struct {
	domain.Cache
	stats map[string]*domain.PopulationStats
	sets  int
}

func (f *fakeCache) GetPopulationStats(ctx context.Context, tenantID, marketKey string) (*domain.PopulationStats, error) {
	return f.stats[tenantID+":"+marketKey], nil
}

func (f *fakeCache) SetPopulationStats(ctx context.Context, tenantID, marketKey string, stats *domain.PopulationStats, ttl time.Duration) error {
	f.stats[tenantID+":"+marketKey] = stats
	f.sets++
	return nil
}

func peerTrades(n int, volume float64) []*domain.TradeRecord {
	trades := make([]*domain.TradeRecord, n)
	for i := range trades {
		trades[i] = &domain.TradeRecord{
			TypeID:        34,
			RegionID:      10000002,
			Volume:        volume,
			MarginPercent: 5,
		}
	}
	return trades
}

func TestMarketKey(t *testing.T) {
	if got := MarketKey(34, 10000002); got != "market:34:10000002" {
		t.Errorf("unexpected market key: %s", got)
	}
}

func TestPeerFacts(t *testing.T) {
	t.Run("ExtractsFacts", func(t *testing.T) {
		repo := &fakeRepo{trades: peerTrades(3, 1000)}
		svc := NewService(repo, nil)

		facts, err := svc.PeerFacts(context.Background(), "tenant-001", 34, 10000002)
		if err != nil {
			t.Fatalf("PeerFacts failed: %v", err)
		}
		if len(facts) != 3 {
			t.Fatalf("expected 3 fact sets, got %d", len(facts))
		}
		if facts[0].Volume != 1000 || facts[0].MarginPercent != 5 {
			t.Errorf("unexpected facts: %+v", facts[0])
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		svc := NewService(&fakeRepo{}, nil)
		if _, err := svc.PeerFacts(context.Background(), "", 34, 10000002); err == nil {
			t.Error("expected error for missing tenantID")
		}
	})

	t.Run("RequiresRepository", func(t *testing.T) {
		svc := NewService(nil, nil)
		if _, err := svc.PeerFacts(context.Background(), "tenant-001", 34, 10000002); err == nil {
			t.Error("expected error without a data source")
		}
	})
}

func TestPopulationStats(t *testing.T) {
	t.Run("ComputesAndCaches", func(t *testing.T) {
		repo := &fakeRepo{trades: peerTrades(10, 1000)}
		cache := &fakeCache{stats: make(map[string]*domain.PopulationStats)}
		svc := NewService(repo, cache)

		stats, err := svc.PopulationStats(context.Background(), "tenant-001", 34, 10000002)
		if err != nil {
			t.Fatalf("PopulationStats failed: %v", err)
		}
		if stats == nil {
			t.Fatal("expected stats")
		}
		if stats.VolumeSamples != 10 || stats.MeanVolume != 1000 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if cache.sets != 1 {
			t.Errorf("expected stats to be cached once, got %d sets", cache.sets)
		}

		// Second call is served from cache, no repository round trip.
		if _, err := svc.PopulationStats(context.Background(), "tenant-001", 34, 10000002); err != nil {
			t.Fatalf("cached PopulationStats failed: %v", err)
		}
		if repo.calls != 1 {
			t.Errorf("expected 1 repository query, got %d", repo.calls)
		}
	})

	t.Run("NilForEmptyMarket", func(t *testing.T) {
		svc := NewService(&fakeRepo{}, nil)

		stats, err := svc.PopulationStats(context.Background(), "tenant-001", 34, 10000002)
		if err != nil {
			t.Fatalf("PopulationStats failed: %v", err)
		}
		if stats != nil {
			t.Errorf("expected nil stats for a market with no peers, got %+v", stats)
		}
	})

	t.Run("WorksWithoutCache", func(t *testing.T) {
		repo := &fakeRepo{trades: peerTrades(2, 500)}
		svc := NewService(repo, nil)

		stats, err := svc.PopulationStats(context.Background(), "tenant-001", 34, 10000002)
		if err != nil || stats == nil {
			t.Fatalf("expected stats without cache, got %+v / %v", stats, err)
		}
	})

	t.Run("TenantScopedCacheKeys", func(t *testing.T) {
		repo := &fakeRepo{trades: peerTrades(5, 100)}
		cache := &fakeCache{stats: make(map[string]*domain.PopulationStats)}
		svc := NewService(repo, cache)

		svc.PopulationStats(context.Background(), "tenant-a", 34, 10000002)
		svc.PopulationStats(context.Background(), "tenant-b", 34, 10000002)

		if repo.calls != 2 {
			t.Errorf("expected separate cache entries per tenant, got %d repo calls", repo.calls)
		}
	})
}
