// Package scoring implements the rule-based trade risk scoring engine.
// Every public operation is a pure function of its inputs and an immutable
// ScoringConfig: no shared state, no I/O, safe to call concurrently.
package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// RecordLike is any input shape the value extractor can read. Upstream trade
// sources use inconsistent key naming (display keys like "Buy Price" next to
// programmatic keys like "buyPrice"), so extraction probes a primary key and
// an ordered list of aliases.
type RecordLike interface {
	// Value returns the raw value for a key, and whether the key exists.
	Value(key string) (any, bool)
}

// MapRecord adapts an untyped upstream payload (e.g. decoded JSON) to
// RecordLike.
type MapRecord map[string]any

// Value implements RecordLike.
func (m MapRecord) Value(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Field key tables. The primary key is the programmatic form; aliases cover
// the display-key and snake_case variants seen in upstream exports.
var (
	volumeKeys    = fieldKeys{"volume", []string{"Volume", "dailyVolume", "daily_volume"}}
	marginKeys    = fieldKeys{"marginPercent", []string{"Margin %", "margin", "margin_percent"}}
	buyPriceKeys  = fieldKeys{"buyPrice", []string{"Buy Price", "buy_price", "buy"}}
	sellPriceKeys = fieldKeys{"sellPrice", []string{"Sell Price", "sell_price", "sell"}}
	netProfitKeys = fieldKeys{"netProfit", []string{"Net Profit", "net_profit", "profit"}}
)

type fieldKeys struct {
	primary string
	alts    []string
}

// Extract looks up primary in the record, then each alias in order, and
// returns the first value that parses to a finite number. Missing keys,
// nulls, and unparsable strings all fall through identically. It never
// panics on malformed input; def is returned when no candidate parses.
func Extract(record RecordLike, primary string, alts []string, def float64) float64 {
	if record == nil {
		return def
	}
	if v, ok := record.Value(primary); ok {
		if f, ok := toFinite(v); ok {
			return f
		}
	}
	for _, key := range alts {
		if v, ok := record.Value(key); ok {
			if f, ok := toFinite(v); ok {
				return f
			}
		}
	}
	return def
}

// Facts derives the normalized fact set from a record. Absent fields
// default to zero; the caller never sees an error for a malformed record.
func Facts(record RecordLike) domain.TradeFact {
	return domain.TradeFact{
		Volume:        Extract(record, volumeKeys.primary, volumeKeys.alts, 0),
		MarginPercent: Extract(record, marginKeys.primary, marginKeys.alts, 0),
		BuyPrice:      Extract(record, buyPriceKeys.primary, buyPriceKeys.alts, 0),
		SellPrice:     Extract(record, sellPriceKeys.primary, sellPriceKeys.alts, 0),
		NetProfit:     Extract(record, netProfitKeys.primary, netProfitKeys.alts, 0),
	}
}

// toFinite coerces a raw value to a finite float64.
func toFinite(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, finite(n)
	case float32:
		return float64(n), finite(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && finite(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
