package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/market"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// GlobalTenantID is used for custom rules that apply to all tenants.
const GlobalTenantID = "*"

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	markets  *market.Service
	defaults domain.ScoringConfig
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, markets *market.Service, defaults domain.ScoringConfig, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   engine,
		markets:  markets,
		defaults: defaults,
		version:  version,
	}
}

// configFor resolves the effective scoring config for a tenant: the tenant's
// stored override when present, the server defaults otherwise.
func (h *Handler) configFor(r *http.Request, tenantID string) domain.ScoringConfig {
	if h.repo == nil {
		return h.defaults
	}
	cfg, err := h.repo.GetScoringConfig(r.Context(), tenantID)
	if err != nil {
		return h.defaults
	}
	return cfg
}

// Score handles POST /score requests: the full single-trade pipeline of
// persistence, peer statistics, built-in heuristics, custom rules, and event
// publication.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.TypeID <= 0 || req.RegionID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "typeId and regionId are required",
		})
		return
	}
	if req.Volume < 0 || req.BuyPrice < 0 || req.SellPrice < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "volume and prices must not be negative",
		})
		return
	}

	trade := req.ToTrade()
	trade.ID = uuid.New().String()
	trade.TenantID = tenantID

	if h.repo != nil {
		if err := h.repo.SaveTrade(ctx, tenantID, trade); err != nil {
			slog.Error("failed to save trade", "error", err)
			// Scoring proceeds; persistence failure degrades history, not answers.
		}
	}

	if h.bus != nil {
		if payload, err := json.Marshal(trade); err == nil {
			_ = h.bus.Publish(ctx, tenantID, domain.TopicTradeIngested, payload)
		}
	}

	cfg := h.configFor(r, tenantID)

	// Peer population for the trade's market. Missing stats are not an
	// error: the built-in heuristics still apply.
	var stats *domain.PopulationStats
	if h.markets != nil {
		s, err := h.markets.PopulationStats(ctx, tenantID, trade.TypeID, trade.RegionID)
		if err != nil {
			slog.Warn("population stats unavailable", "type_id", trade.TypeID, "region_id", trade.RegionID, "error", err)
		} else {
			stats = s
		}
	}

	scoreStart := time.Now()

	var extras []domain.RuleContribution
	if h.engine != nil {
		extras = h.engine.EvaluateAll(ctx, trade.Fact())
	}

	assessment := scoring.ScoreWithExtras(trade, stats, extras, cfg)
	scoreMs := time.Since(scoreStart).Milliseconds()

	assessment.ID = uuid.New().String()
	assessment.TenantID = tenantID
	assessment.TradeID = trade.ID
	assessment.Timestamp = time.Now().UTC()
	assessment.Metadata = domain.AssessmentMetadata{
		TraceID:       traceID,
		PeerCount:     peerCount(stats),
		CustomRules:   len(extras),
		ScoreMs:       scoreMs,
		TotalMs:       time.Since(start).Milliseconds(),
		EngineVersion: h.version,
	}

	if h.repo != nil {
		if err := h.repo.SaveAssessment(ctx, tenantID, &assessment); err != nil {
			slog.Error("failed to save assessment", "error", err)
		}
	}

	if h.bus != nil {
		if payload, err := json.Marshal(assessment); err == nil {
			_ = h.bus.Publish(ctx, tenantID, domain.TopicAssessment, payload)
			if assessment.Score >= cfg.ScamThreshold {
				_ = h.bus.Publish(ctx, tenantID, domain.TopicAlert, payload)
			}
		}
	}

	resp := domain.AssessmentResponse{
		AssessmentID: assessment.ID,
		TradeID:      trade.ID,
		Score:        assessment.Score,
		Level:        assessment.Level,
		HighRisk:     assessment.Score >= cfg.ScamThreshold,
		Reasons:      assessment.Reasons,
		Metadata:     assessment.Metadata,
	}

	writeJSON(w, http.StatusOK, resp)
}

// AnalyzeRequest is the request body for POST /analyze.
type AnalyzeRequest struct {
	Trades []domain.TradeRequest `json:"trades"`
}

// AnalyzeResponse is the response for POST /analyze: results ranked by
// descending score plus the batch reduction.
type AnalyzeResponse struct {
	Results []domain.ScoredRecord `json:"results"`
	Stats   domain.BatchStats     `json:"stats"`
}

// Analyze handles POST /analyze requests. Each trade in the batch is scored
// against the rest of the batch as its peer population.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	cfg := h.configFor(r, tenantID)

	trades := make([]*domain.TradeRecord, len(req.Trades))
	records := make([]scoring.RecordLike, len(req.Trades))
	for i := range req.Trades {
		trade := req.Trades[i].ToTrade()
		trade.ID = uuid.New().String()
		trade.TenantID = tenantID
		trades[i] = trade
		records[i] = trade
	}

	scored := scoring.AnalyzeAll(records, cfg)

	results := make([]domain.ScoredRecord, len(scored))
	for i, s := range scored {
		trade, _ := s.Record.(*domain.TradeRecord)
		a := s.Assessment
		a.ID = uuid.New().String()
		a.TenantID = tenantID
		if trade != nil {
			a.TradeID = trade.ID
		}
		a.Timestamp = time.Now().UTC()
		results[i] = domain.ScoredRecord{Trade: trade, Assessment: a}
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Results: results,
		Stats:   scoring.Reduce(scored),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetAssessment retrieves an assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	assessmentID := chi.URLParam(r, "id")

	if assessmentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAssessment(ctx, tenantID, assessmentID)
	if err != nil {
		slog.Error("failed to get assessment", "id", assessmentID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// GetTrade retrieves a trade by ID.
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	tradeID := chi.URLParam(r, "id")

	if tradeID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "trade id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	trade, err := h.repo.GetTrade(ctx, tenantID, tradeID)
	if err != nil {
		slog.Error("failed to get trade", "id", tradeID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "trade not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

// GetConfig returns the tenant's effective scoring configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	source := "default"
	cfg := h.defaults

	if h.repo != nil {
		stored, err := h.repo.GetScoringConfig(ctx, tenantID)
		if err == nil {
			cfg = stored
			source = "tenant"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config": cfg,
		"source": source,
	})
}

// UpdateConfig stores a scoring configuration override for the tenant.
// Invalid configurations are rejected before anything is persisted.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var cfg domain.ScoringConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := cfg.Validate(); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": cfgErr.Error(),
				"field": cfgErr.Field,
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.SaveScoringConfig(ctx, tenantID, cfg); err != nil {
		slog.Error("failed to save scoring config", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save scoring config",
		})
		return
	}

	slog.Info("scoring config updated", "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config": cfg,
	})
}

// ListRules returns all loaded custom rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a custom rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a custom rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Points      int    `json:"points"`
	Reason      string `json:"reason,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule creates a new custom rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	rule := &domain.CustomRule{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Points:      req.Points,
		Reason:      req.Reason,
		Enabled:     req.Enabled,
	}

	// Validate the CEL expression and point weight before persisting
	if err := h.engine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveCustomRule(ctx, GlobalTenantID, rule); err != nil {
			slog.Error("failed to save custom rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("custom rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all custom rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListCustomRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("custom rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

func peerCount(stats *domain.PopulationStats) int {
	if stats == nil {
		return 0
	}
	if stats.VolumeSamples > stats.MarginSamples {
		return stats.VolumeSamples
	}
	return stats.MarginSamples
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
