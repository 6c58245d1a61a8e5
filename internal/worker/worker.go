// Package worker provides async trade scoring from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/market"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// Worker scores ingested trades asynchronously from the EventBus.
// Intended for deployments where trades arrive from external producers
// rather than the synchronous /score endpoint.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	cache    domain.Cache
	engine   *rules.Engine
	markets  *market.Service
	defaults domain.ScoringConfig

	// AlertBurstThreshold is the number of alerts in one market within
	// AlertBurstWindow that gets flagged as a coordinated burst.
	AlertBurstThreshold int64
	AlertBurstWindow    time.Duration

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, engine *rules.Engine, markets *market.Service, defaults domain.ScoringConfig) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:                 bus,
		repo:                repo,
		cache:               cache,
		engine:              engine,
		markets:             markets,
		defaults:            defaults,
		AlertBurstThreshold: 5,
		AlertBurstWindow:    10 * time.Minute,
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicTradeIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicTradeIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processTrade(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicTradeIngested,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processTrade(ctx, msg.TenantID, msg)
}

// processTrade scores an ingested trade through the full pipeline.
func (w *Worker) processTrade(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var trade domain.TradeRecord
	if err := json.Unmarshal(msg.Payload, &trade); err != nil {
		slog.Error("failed to parse trade message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if trade.TenantID != "" {
		tenantID = trade.TenantID
	}
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}

	slog.Debug("processing trade",
		"trade_id", trade.ID,
		"tenant_id", tenantID,
		"type_id", trade.TypeID,
		"region_id", trade.RegionID,
	)

	// 1. Resolve the tenant's effective scoring config
	cfg := w.defaults
	if w.repo != nil {
		if stored, err := w.repo.GetScoringConfig(ctx, tenantID); err == nil {
			cfg = stored
		}
	}

	// 2. Peer population statistics (best effort)
	var stats *domain.PopulationStats
	if w.markets != nil {
		s, err := w.markets.PopulationStats(ctx, tenantID, trade.TypeID, trade.RegionID)
		if err != nil {
			slog.Warn("population stats unavailable",
				"trade_id", trade.ID,
				"error", err,
			)
		} else {
			stats = s
		}
	}

	// 3. Custom rules, merged into the same additive sum
	var extras []domain.RuleContribution
	if w.engine != nil {
		extras = w.engine.EvaluateAll(ctx, trade.Fact())
	}

	// 4. Score
	assessment := scoring.ScoreWithExtras(&trade, stats, extras, cfg)
	assessment.ID = uuid.New().String()
	assessment.TenantID = tenantID
	assessment.TradeID = trade.ID
	assessment.Timestamp = time.Now().UTC()
	assessment.Metadata.CustomRules = len(extras)
	assessment.Metadata.TotalMs = time.Since(start).Milliseconds()

	// 5. Save assessment
	if w.repo != nil {
		if err := w.repo.SaveAssessment(ctx, tenantID, &assessment); err != nil {
			slog.Error("failed to save assessment",
				"trade_id", trade.ID,
				"error", err,
			)
		}
	}

	// 6. Publish result
	resultPayload, _ := json.Marshal(assessment)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicAssessment, resultPayload); err != nil {
		slog.Error("failed to publish assessment",
			"trade_id", trade.ID,
			"error", err,
		)
	}

	// 7. If the trade clears the scam threshold, publish an alert and track
	// the per-market burst counter.
	if assessment.Score >= cfg.ScamThreshold {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicAlert, resultPayload); err != nil {
			slog.Error("failed to publish alert",
				"trade_id", trade.ID,
				"error", err,
			)
		}

		if w.cache != nil {
			key := "alerts:" + market.MarketKey(trade.TypeID, trade.RegionID)
			count, err := w.cache.IncrementCounter(ctx, tenantID, key, w.AlertBurstWindow)
			if err == nil && count >= w.AlertBurstThreshold {
				slog.Warn("alert burst in market",
					"tenant_id", tenantID,
					"type_id", trade.TypeID,
					"region_id", trade.RegionID,
					"alerts_in_window", count,
				)
			}
		}
	}

	slog.Info("trade processed",
		"trade_id", trade.ID,
		"tenant_id", tenantID,
		"score", assessment.Score,
		"level", assessment.Level,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
