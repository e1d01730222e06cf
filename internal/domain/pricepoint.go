package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint represents one trading day's OHLCV observation for a symbol.
// Uniqueness key is (symbol, trade date); loading the same point twice
// overwrites rather than duplicates.
type PricePoint struct {
	Symbol   string          `json:"symbol"`
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// Validate checks value and relationship invariants for a price point.
// The reference time bounds the trade date: observations cannot be in
// the future relative to processing time.
func (p *PricePoint) Validate(now time.Time) error {
	if p.Symbol == "" {
		return fmt.Errorf("missing symbol")
	}
	if p.Date.IsZero() {
		return fmt.Errorf("missing trade date")
	}
	if p.Date.After(now) {
		return fmt.Errorf("trade date %s is in the future", p.Date.Format("2006-01-02"))
	}
	if p.Volume < 0 {
		return fmt.Errorf("negative volume %d", p.Volume)
	}

	for _, v := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"open", p.Open},
		{"high", p.High},
		{"low", p.Low},
		{"close", p.Close},
		{"adj_close", p.AdjClose},
	} {
		if v.value.IsNegative() {
			return fmt.Errorf("negative %s price %s", v.name, v.value)
		}
	}

	if p.Low.GreaterThan(p.High) {
		return fmt.Errorf("low %s exceeds high %s", p.Low, p.High)
	}
	if p.Open.LessThan(p.Low) || p.Open.GreaterThan(p.High) {
		return fmt.Errorf("open %s outside [%s, %s]", p.Open, p.Low, p.High)
	}
	if p.Close.LessThan(p.Low) || p.Close.GreaterThan(p.High) {
		return fmt.Errorf("close %s outside [%s, %s]", p.Close, p.Low, p.High)
	}

	return nil
}
