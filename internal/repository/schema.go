package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaTrades = `
CREATE TABLE IF NOT EXISTS trades (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    type_id BIGINT NOT NULL,
    type_name TEXT NOT NULL,
    region_id BIGINT NOT NULL,
    volume REAL NOT NULL,
    margin_percent REAL NOT NULL,
    buy_price REAL NOT NULL,
    sell_price REAL NOT NULL,
    net_profit REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_trades_tenant ON trades(tenant_id);
CREATE INDEX IF NOT EXISTS idx_trades_market ON trades(tenant_id, type_id, region_id);
CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(tenant_id, timestamp);
`

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    trade_id TEXT NOT NULL,
    score INTEGER NOT NULL,
    level TEXT NOT NULL,
    reasons TEXT NOT NULL,
    facts TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_trade ON assessments(tenant_id, trade_id);
CREATE INDEX IF NOT EXISTS idx_assessments_level ON assessments(tenant_id, level);
CREATE INDEX IF NOT EXISTS idx_assessments_timestamp ON assessments(tenant_id, timestamp);
`

const schemaScoringConfigs = `
CREATE TABLE IF NOT EXISTS scoring_configs (
    tenant_id TEXT PRIMARY KEY,
    config TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaCustomRules = `
CREATE TABLE IF NOT EXISTS custom_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    points INTEGER NOT NULL DEFAULT 0,
    reason TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_custom_rules_tenant ON custom_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_custom_rules_enabled ON custom_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTrades,
		schemaAssessments,
		schemaScoringConfigs,
		schemaCustomRules,
	}
}
