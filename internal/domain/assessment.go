package domain

import (
	"time"
)

// RiskLevel is the discrete classification of an assessment's score.
type RiskLevel string

// Risk levels, ordered from least to most severe.
const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

// RiskAssessment is the engine's output for a single record: a clamped
// 0-100 score, its level, the ordered explanation trail, and the fact set
// the score was derived from. It is constructed once per evaluation and
// never mutated afterward.
type RiskAssessment struct {
	ID       string    `json:"id,omitempty"`
	TenantID string    `json:"tenantId,omitempty"`
	TradeID  string    `json:"tradeId,omitempty"`
	Score    int       `json:"score"`
	Level    RiskLevel `json:"level"`
	Reasons  []string  `json:"reasons"`
	Facts    TradeFact `json:"facts"`

	Timestamp time.Time `json:"timestamp,omitempty"`

	// Processing metadata, populated by the service layer.
	Metadata AssessmentMetadata `json:"metadata,omitzero"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID       string `json:"traceId,omitempty"`
	PeerCount     int    `json:"peerCount"`
	CustomRules   int    `json:"customRules"`
	ScoreMs       int64  `json:"scoreMs"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion,omitempty"`
}

// ScoredRecord pairs a record with its assessment in batch output.
type ScoredRecord struct {
	Trade      *TradeRecord   `json:"trade"`
	Assessment RiskAssessment `json:"assessment"`
}

// BatchStats is the single-pass reduction over a batch of assessments.
// An empty batch yields all-zero counts and a zero average, never a
// division error.
type BatchStats struct {
	Total        int     `json:"total"`
	ExtremeCount int     `json:"extremeCount"`
	HighCount    int     `json:"highCount"`
	MediumCount  int     `json:"mediumCount"`
	LowCount     int     `json:"lowCount"`
	AverageScore float64 `json:"averageScore"`
}

// AssessmentResponse is the API response for a scoring request.
type AssessmentResponse struct {
	AssessmentID string             `json:"assessmentId"`
	TradeID      string             `json:"tradeId,omitempty"`
	Score        int                `json:"score"`
	Level        RiskLevel          `json:"level"`
	HighRisk     bool               `json:"highRisk"`
	Reasons      []string           `json:"reasons,omitempty"`
	Metadata     AssessmentMetadata `json:"metadata"`
}
