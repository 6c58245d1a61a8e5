// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTrade stores a trade record with tenant isolation.
func (r *SQLRepository) SaveTrade(ctx context.Context, tenantID string, trade *domain.TradeRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	metadata, _ := json.Marshal(trade.Metadata)

	query := `
		INSERT INTO trades (
			id, tenant_id, type_id, type_name, region_id,
			volume, margin_percent, buy_price, sell_price, net_profit,
			timestamp, created_at, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		trade.ID, tenantID, trade.TypeID, trade.TypeName, trade.RegionID,
		trade.Volume, trade.MarginPercent, trade.BuyPrice, trade.SellPrice, trade.NetProfit,
		trade.Timestamp, trade.CreatedAt, string(metadata),
	)
	return err
}

// GetTrade retrieves a trade by ID with tenant isolation.
func (r *SQLRepository) GetTrade(ctx context.Context, tenantID string, tradeID string) (*domain.TradeRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, type_id, type_name, region_id,
			   volume, margin_percent, buy_price, sell_price, net_profit,
			   timestamp, created_at, metadata
		FROM trades
		WHERE tenant_id = ? AND id = ?
	`

	var trade domain.TradeRecord
	var metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, tradeID).Scan(
		&trade.ID, &trade.TenantID, &trade.TypeID, &trade.TypeName, &trade.RegionID,
		&trade.Volume, &trade.MarginPercent, &trade.BuyPrice, &trade.SellPrice, &trade.NetProfit,
		&trade.Timestamp, &trade.CreatedAt, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if metadata != "" {
		json.Unmarshal([]byte(metadata), &trade.Metadata)
	}

	return &trade, nil
}

// GetPeerTrades retrieves recent trades for a market with tenant isolation.
func (r *SQLRepository) GetPeerTrades(ctx context.Context, tenantID string, typeID, regionID int64, since time.Time) ([]*domain.TradeRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, type_id, type_name, region_id,
			   volume, margin_percent, buy_price, sell_price, net_profit,
			   timestamp, created_at, metadata
		FROM trades
		WHERE tenant_id = ?
		  AND type_id = ?
		  AND region_id = ?
		  AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, typeID, regionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.TradeRecord
	for rows.Next() {
		var trade domain.TradeRecord
		var metadata string

		if err := rows.Scan(
			&trade.ID, &trade.TenantID, &trade.TypeID, &trade.TypeName, &trade.RegionID,
			&trade.Volume, &trade.MarginPercent, &trade.BuyPrice, &trade.SellPrice, &trade.NetProfit,
			&trade.Timestamp, &trade.CreatedAt, &metadata,
		); err != nil {
			return nil, err
		}

		if metadata != "" {
			json.Unmarshal([]byte(metadata), &trade.Metadata)
		}

		trades = append(trades, &trade)
	}

	return trades, rows.Err()
}

// SaveAssessment stores an assessment with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.RiskAssessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	reasons, _ := json.Marshal(a.Reasons)
	facts, _ := json.Marshal(a.Facts)
	metadata, _ := json.Marshal(a.Metadata)

	query := `
		INSERT INTO assessments (
			id, tenant_id, trade_id, score, level, reasons, facts, timestamp, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.TradeID, a.Score, string(a.Level),
		string(reasons), string(facts), a.Timestamp, string(metadata),
	)
	return err
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*domain.RiskAssessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, trade_id, score, level, reasons, facts, timestamp, metadata
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	var a domain.RiskAssessment
	var level, reasons, facts, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, assessmentID).Scan(
		&a.ID, &a.TenantID, &a.TradeID, &a.Score, &level,
		&reasons, &facts, &a.Timestamp, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Level = domain.RiskLevel(level)
	json.Unmarshal([]byte(reasons), &a.Reasons)
	json.Unmarshal([]byte(facts), &a.Facts)
	json.Unmarshal([]byte(metadata), &a.Metadata)

	return &a, nil
}

// SaveScoringConfig stores a tenant's scoring config override.
func (r *SQLRepository) SaveScoringConfig(ctx context.Context, tenantID string, cfg domain.ScoringConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO scoring_configs (tenant_id, config, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query), tenantID, string(payload), now, now)
	return err
}

// GetScoringConfig retrieves a tenant's scoring config override.
func (r *SQLRepository) GetScoringConfig(ctx context.Context, tenantID string) (domain.ScoringConfig, error) {
	var cfg domain.ScoringConfig

	if tenantID == "" {
		return cfg, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT config FROM scoring_configs WHERE tenant_id = ?`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return cfg, ErrNotFound
	}
	if err != nil {
		return cfg, err
	}

	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse scoring config: %w", err)
	}

	return cfg, nil
}

// SaveCustomRule stores a custom rule with tenant isolation.
func (r *SQLRepository) SaveCustomRule(ctx context.Context, tenantID string, rule *domain.CustomRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO custom_rules (
			id, tenant_id, name, description, version, expression, points, reason, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			points = excluded.points,
			reason = excluded.reason,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Points, rule.Reason, enabled,
		now, now,
	)
	return err
}

// GetCustomRule retrieves a custom rule with tenant isolation.
func (r *SQLRepository) GetCustomRule(ctx context.Context, tenantID string, ruleID string) (*domain.CustomRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, points, reason, enabled
		FROM custom_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var rule domain.CustomRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &rule.Points, &rule.Reason, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1

	return &rule, nil
}

// ListCustomRules retrieves all active custom rules for a tenant.
func (r *SQLRepository) ListCustomRules(ctx context.Context, tenantID string) ([]*domain.CustomRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, points, reason, enabled
		FROM custom_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.CustomRule
	for rows.Next() {
		var rule domain.CustomRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
			&rule.Version, &rule.Expression, &rule.Points, &rule.Reason, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
