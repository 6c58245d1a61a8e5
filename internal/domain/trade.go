package domain

import (
	"time"
)

// TradeRecord represents an incoming market trade to be scored.
type TradeRecord struct {
	// Core identifiers
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`

	// Market identifiers
	TypeID   int64  `json:"typeId"`
	TypeName string `json:"typeName"`
	RegionID int64  `json:"regionId"`

	// Trade figures
	Volume        float64 `json:"volume"`
	MarginPercent float64 `json:"marginPercent"`
	BuyPrice      float64 `json:"buyPrice"`
	SellPrice     float64 `json:"sellPrice"`
	NetProfit     float64 `json:"netProfit"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`

	// Optional metadata from the upstream market-data source
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Fact returns the normalized fact set for this record.
func (t *TradeRecord) Fact() TradeFact {
	return TradeFact{
		Volume:        t.Volume,
		MarginPercent: t.MarginPercent,
		BuyPrice:      t.BuyPrice,
		SellPrice:     t.SellPrice,
		NetProfit:     t.NetProfit,
	}
}

// Value implements key lookup for the value extractor, so a TradeRecord can
// be scored through the same path as untyped upstream payloads.
func (t *TradeRecord) Value(key string) (any, bool) {
	switch key {
	case "volume":
		return t.Volume, true
	case "marginPercent":
		return t.MarginPercent, true
	case "buyPrice":
		return t.BuyPrice, true
	case "sellPrice":
		return t.SellPrice, true
	case "netProfit":
		return t.NetProfit, true
	default:
		if v, ok := t.Metadata[key]; ok {
			return v, true
		}
		return nil, false
	}
}

// TradeRequest is the API request payload for trade scoring.
type TradeRequest struct {
	TypeID        int64                  `json:"typeId"`
	TypeName      string                 `json:"typeName"`
	RegionID      int64                  `json:"regionId"`
	Volume        float64                `json:"volume"`
	MarginPercent float64                `json:"marginPercent"`
	BuyPrice      float64                `json:"buyPrice"`
	SellPrice     float64                `json:"sellPrice"`
	NetProfit     float64                `json:"netProfit"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// ToTrade converts a request to a TradeRecord domain object.
func (r *TradeRequest) ToTrade() *TradeRecord {
	now := time.Now().UTC()
	return &TradeRecord{
		TypeID:        r.TypeID,
		TypeName:      r.TypeName,
		RegionID:      r.RegionID,
		Volume:        r.Volume,
		MarginPercent: r.MarginPercent,
		BuyPrice:      r.BuyPrice,
		SellPrice:     r.SellPrice,
		NetProfit:     r.NetProfit,
		Timestamp:     now,
		CreatedAt:     now,
		Metadata:      r.Metadata,
	}
}
