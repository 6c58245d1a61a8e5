package domain

// CustomRule defines an operator-supplied scoring rule on top of the
// built-in heuristics. The expression is a CEL formula over the fact set;
// when it evaluates truthy the rule contributes Points to the additive sum.
type CustomRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression over volume, margin_percent, buy_price, sell_price,
	// net_profit. Must return bool, int, or double.
	Expression string `json:"expression"`

	// Points added when the expression is truthy (bool true or numeric > 0).
	Points int `json:"points"`

	// Reason is the explanation appended to the assessment trail.
	Reason string `json:"reason"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}
