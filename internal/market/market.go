// Package market supplies peer populations for statistical comparison.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// Service fetches peer trades for a market and derives population
// statistics, caching the result per market key so batch traffic against the
// same market does not recompute them per record.
type Service struct {
	repo  domain.Repository
	cache domain.Cache

	// Window is how far back peer trades are considered.
	Window time.Duration

	// StatsTTL is the cache lifetime of derived population statistics.
	StatsTTL time.Duration
}

// NewService creates a new market peers service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		Window:   24 * time.Hour,
		StatsTTL: 5 * time.Minute,
	}
}

// PeerFacts returns the fact sets of recent trades in the same market.
func (s *Service) PeerFacts(ctx context.Context, tenantID string, typeID, regionID int64) ([]domain.TradeFact, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	if s.repo == nil {
		return nil, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-s.Window)
	trades, err := s.repo.GetPeerTrades(ctx, tenantID, typeID, regionID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get peer trades: %w", err)
	}

	facts := make([]domain.TradeFact, len(trades))
	for i, t := range trades {
		facts[i] = t.Fact()
	}
	return facts, nil
}

// PopulationStats returns cached statistics for a market, computing and
// caching them on a miss. The peer count behind the stats is returned
// alongside for assessment metadata.
func (s *Service) PopulationStats(ctx context.Context, tenantID string, typeID, regionID int64) (*domain.PopulationStats, error) {
	key := MarketKey(typeID, regionID)

	if s.cache != nil {
		stats, err := s.cache.GetPopulationStats(ctx, tenantID, key)
		if err == nil && stats != nil {
			return stats, nil
		}
	}

	facts, err := s.PeerFacts(ctx, tenantID, typeID, regionID)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}

	stats := scoring.ComputePopulationStats(facts)

	if s.cache != nil {
		_ = s.cache.SetPopulationStats(ctx, tenantID, key, &stats, s.StatsTTL)
	}

	return &stats, nil
}

// MarketKey builds the cache key for a type/region market.
func MarketKey(typeID, regionID int64) string {
	return fmt.Sprintf("market:%d:%d", typeID, regionID)
}
