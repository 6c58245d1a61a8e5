package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Trade operations
	SaveTrade(ctx context.Context, tenantID string, trade *TradeRecord) error
	GetTrade(ctx context.Context, tenantID string, tradeID string) (*TradeRecord, error)

	// GetPeerTrades returns recent trades for the same market (type+region),
	// used as the peer population for statistical comparison.
	GetPeerTrades(ctx context.Context, tenantID string, typeID, regionID int64, since time.Time) ([]*TradeRecord, error)

	// Assessment results
	SaveAssessment(ctx context.Context, tenantID string, a *RiskAssessment) error
	GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*RiskAssessment, error)

	// Per-tenant scoring config overrides. GetScoringConfig returns
	// ErrNotFound when the tenant has no override.
	SaveScoringConfig(ctx context.Context, tenantID string, cfg ScoringConfig) error
	GetScoringConfig(ctx context.Context, tenantID string) (ScoringConfig, error)

	// Custom rule operations
	SaveCustomRule(ctx context.Context, tenantID string, rule *CustomRule) error
	GetCustomRule(ctx context.Context, tenantID string, ruleID string) (*CustomRule, error)
	ListCustomRules(ctx context.Context, tenantID string) ([]*CustomRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
