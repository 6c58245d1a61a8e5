package scoring

import (
	"encoding/json"
	"math"
	"testing"
)

func TestExtract(t *testing.T) {
	t.Run("PrimaryKeyWins", func(t *testing.T) {
		record := MapRecord{"volume": 10.0, "Volume": 99.0}
		if got := Extract(record, "volume", []string{"Volume"}, 0); got != 10 {
			t.Errorf("expected primary key value 10, got %f", got)
		}
	})

	t.Run("AliasFallback", func(t *testing.T) {
		record := MapRecord{"Buy Price": 250.5}
		if got := Extract(record, "buyPrice", []string{"Buy Price", "buy_price"}, 0); got != 250.5 {
			t.Errorf("expected alias value 250.5, got %f", got)
		}
	})

	t.Run("AliasOrder", func(t *testing.T) {
		record := MapRecord{"buy_price": 2.0, "Buy Price": 1.0}
		if got := Extract(record, "buyPrice", []string{"Buy Price", "buy_price"}, 0); got != 1 {
			t.Errorf("expected first alias to win, got %f", got)
		}
	})

	t.Run("UnparsableFallsThrough", func(t *testing.T) {
		// The primary key exists but does not parse; the alias should be used.
		record := MapRecord{"volume": "lots", "Volume": "42"}
		if got := Extract(record, "volume", []string{"Volume"}, 0); got != 42 {
			t.Errorf("expected fall-through to alias, got %f", got)
		}
	})

	t.Run("DefaultOnMissing", func(t *testing.T) {
		if got := Extract(MapRecord{}, "volume", []string{"Volume"}, 7); got != 7 {
			t.Errorf("expected default 7, got %f", got)
		}
	})

	t.Run("NilRecord", func(t *testing.T) {
		if got := Extract(nil, "volume", nil, 3); got != 3 {
			t.Errorf("expected default 3 for nil record, got %f", got)
		}
	})

	t.Run("CoercionTable", func(t *testing.T) {
		cases := []struct {
			name  string
			value any
			want  float64
		}{
			{"Float", 12.5, 12.5},
			{"Int", 12, 12},
			{"Int64", int64(12), 12},
			{"JSONNumber", json.Number("12.5"), 12.5},
			{"NumericString", "12.5", 12.5},
			{"PaddedString", "  12.5  ", 12.5},
			{"EmptyString", "", -1},
			{"Garbage", "abc", -1},
			{"Null", nil, -1},
			{"Bool", true, -1},
			{"NaN", math.NaN(), -1},
			{"Inf", math.Inf(1), -1},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				record := MapRecord{"k": tc.value}
				if got := Extract(record, "k", nil, -1); got != tc.want {
					t.Errorf("%v: expected %f, got %f", tc.value, tc.want, got)
				}
			})
		}
	})
}

func TestFacts(t *testing.T) {
	t.Run("DisplayKeys", func(t *testing.T) {
		record := MapRecord{
			"Volume":     "1500",
			"Margin %":   22.5,
			"Buy Price":  4.8,
			"Sell Price": 5.9,
			"Net Profit": 1650.0,
		}

		f := Facts(record)

		if f.Volume != 1500 {
			t.Errorf("expected volume 1500, got %f", f.Volume)
		}
		if f.MarginPercent != 22.5 {
			t.Errorf("expected margin 22.5, got %f", f.MarginPercent)
		}
		if f.BuyPrice != 4.8 || f.SellPrice != 5.9 {
			t.Errorf("expected prices 4.8/5.9, got %f/%f", f.BuyPrice, f.SellPrice)
		}
		if f.NetProfit != 1650 {
			t.Errorf("expected profit 1650, got %f", f.NetProfit)
		}
	})

	t.Run("AbsentFieldsDefaultToZero", func(t *testing.T) {
		f := Facts(MapRecord{"volume": 10.0})
		if f.MarginPercent != 0 || f.BuyPrice != 0 || f.SellPrice != 0 || f.NetProfit != 0 {
			t.Errorf("expected zero defaults, got %+v", f)
		}
		if f.Empty() {
			t.Error("expected facts with a volume to be non-empty")
		}
	})

	t.Run("EmptyRecord", func(t *testing.T) {
		if !Facts(MapRecord{}).Empty() {
			t.Error("expected empty record to yield empty facts")
		}
	})
}
