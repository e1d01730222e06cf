package domain_test

import (
	"testing"
	"time"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validPoint() domain.PricePoint {
	return domain.PricePoint{
		Symbol:   "AAPL",
		Date:     time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Open:     decimal.NewFromFloat(230.10),
		High:     decimal.NewFromFloat(234.50),
		Low:      decimal.NewFromFloat(229.00),
		Close:    decimal.NewFromFloat(233.25),
		AdjClose: decimal.NewFromFloat(233.25),
		Volume:   51234500,
	}
}

func TestPricePoint_Validate(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("accepts valid point", func(t *testing.T) {
		p := validPoint()
		assert.NoError(t, p.Validate(now))
	})

	t.Run("rejects future date", func(t *testing.T) {
		p := validPoint()
		p.Date = now.Add(48 * time.Hour)
		assert.Error(t, p.Validate(now))
	})

	t.Run("rejects negative volume", func(t *testing.T) {
		p := validPoint()
		p.Volume = -1
		assert.Error(t, p.Validate(now))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		p := validPoint()
		p.AdjClose = decimal.NewFromFloat(-0.01)
		assert.Error(t, p.Validate(now))
	})

	t.Run("rejects low above high", func(t *testing.T) {
		p := validPoint()
		p.Low = decimal.NewFromFloat(240.00)
		assert.Error(t, p.Validate(now))
	})

	t.Run("rejects open outside range", func(t *testing.T) {
		p := validPoint()
		p.Open = decimal.NewFromFloat(250.00)
		assert.Error(t, p.Validate(now))
	})

	t.Run("rejects close below low", func(t *testing.T) {
		p := validPoint()
		p.Close = decimal.NewFromFloat(100.00)
		assert.Error(t, p.Validate(now))
	})

	t.Run("accepts close equal to high", func(t *testing.T) {
		p := validPoint()
		p.Close = p.High
		assert.NoError(t, p.Validate(now))
	})

	t.Run("rejects missing symbol", func(t *testing.T) {
		p := validPoint()
		p.Symbol = ""
		assert.Error(t, p.Validate(now))
	})
}
