package parser_test

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func tradingRow(date, open, high, low, close, adjClose, volume string) string {
	return fmt.Sprintf(
		"<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
		date, open, high, low, close, adjClose, volume)
}

func document(tableAttrs string, rows ...string) []byte {
	var b strings.Builder
	b.WriteString("<html><body><h1>Historical data</h1>")
	b.WriteString("<table " + tableAttrs + ">")
	b.WriteString("<thead><tr><th>Date</th><th>Open</th><th>High</th><th>Low</th><th>Close</th><th>Adj Close</th><th>Volume</th></tr></thead>")
	b.WriteString("<tbody>")
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString("</tbody></table></body></html>")
	return []byte(b.String())
}

func TestParser_Parse(t *testing.T) {
	p := parser.New(newTestLogger())

	t.Run("parses trading rows in ascending date order", func(t *testing.T) {
		doc := document(`data-test="historical-prices"`,
			tradingRow("Aug 28, 2026", "230.10", "234.50", "229.00", "233.25", "233.25", "51,234,500"),
			tradingRow("Aug 26, 2026", "225.00", "228.90", "224.10", "228.00", "228.00", "48,100,200"),
			tradingRow("Aug 27, 2026", "228.10", "231.00", "227.50", "229.80", "229.80", "50,020,100"),
		)

		points, err := p.Parse("AAPL", doc)
		require.NoError(t, err)
		require.Len(t, points, 3)

		assert.Equal(t, "AAPL", points[0].Symbol)
		assert.Equal(t, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), points[0].Date)
		assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), points[1].Date)
		assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), points[2].Date)

		assert.True(t, points[0].Open.Equal(decimal.NewFromFloat(225.00)))
		assert.Equal(t, int64(48100200), points[0].Volume)
	})

	t.Run("falls back to secondary selectors", func(t *testing.T) {
		row := tradingRow("Aug 28, 2026", "10.00", "11.00", "9.50", "10.50", "10.50", "1000")

		historyDiv := []byte(`<html><body><div id="history"><table><tbody>` + row + `</tbody></table></div></body></html>`)
		points, err := p.Parse("MSFT", historyDiv)
		require.NoError(t, err)
		assert.Len(t, points, 1)

		classed := document(`class="historical-data"`, row)
		points, err = p.Parse("MSFT", classed)
		require.NoError(t, err)
		assert.Len(t, points, 1)
	})

	t.Run("fails when no selector matches", func(t *testing.T) {
		doc := []byte(`<html><body><p>Service temporarily unavailable</p></body></html>`)
		_, err := p.Parse("AAPL", doc)
		assert.ErrorIs(t, err, domain.ErrNoDataTable)
	})

	t.Run("ignores unselected tables", func(t *testing.T) {
		doc := []byte(`<html><body><table class="nav"><tr><td>Home</td></tr></table></body></html>`)
		_, err := p.Parse("AAPL", doc)
		assert.ErrorIs(t, err, domain.ErrNoDataTable)
	})

	t.Run("skips dividend and split annotation rows", func(t *testing.T) {
		doc := document(`data-test="historical-prices"`,
			tradingRow("Aug 28, 2026", "230.10", "234.50", "229.00", "233.25", "233.25", "51,234,500"),
			`<tr><td>Aug 27, 2026</td><td colspan="6">0.26 Dividend</td></tr>`,
			`<tr><td>Aug 25, 2026</td><td colspan="6">4:1 Stock Split</td></tr>`,
			tradingRow("Aug 26, 2026", "225.00", "228.90", "224.10", "228.00", "228.00", "48,100,200"),
		)

		points, err := p.Parse("AAPL", doc)
		require.NoError(t, err)
		assert.Len(t, points, 2)
	})

	t.Run("skips invalid rows without failing the document", func(t *testing.T) {
		// 5 valid rows plus one where high < low: the bad row is dropped,
		// the rest load in ascending order.
		doc := document(`data-test="historical-prices"`,
			tradingRow("Aug 28, 2026", "230.10", "234.50", "229.00", "233.25", "233.25", "51234500"),
			tradingRow("Aug 27, 2026", "228.10", "226.00", "230.00", "229.80", "229.80", "50020100"), // high < low
			tradingRow("Aug 26, 2026", "225.00", "228.90", "224.10", "228.00", "228.00", "48100200"),
			tradingRow("Aug 25, 2026", "224.00", "226.20", "223.40", "225.10", "225.10", "44210000"),
			tradingRow("Aug 24, 2026", "222.30", "224.80", "221.90", "224.00", "224.00", "40100300"),
			tradingRow("Aug 21, 2026", "220.00", "223.10", "219.50", "222.40", "222.40", "39870000"),
		)

		points, err := p.Parse("AAPL", doc)
		require.NoError(t, err)
		require.Len(t, points, 5)

		for i := 1; i < len(points); i++ {
			assert.True(t, points[i-1].Date.Before(points[i].Date))
		}
		for _, pt := range points {
			assert.NotEqual(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), pt.Date)
		}
	})

	t.Run("collapses repeated trading days keeping the later row", func(t *testing.T) {
		// The source occasionally repeats a day; both copies are valid
		// rows, but the loader must see each date exactly once.
		doc := document(`data-test="historical-prices"`,
			tradingRow("Aug 28, 2026", "230.10", "234.50", "229.00", "233.25", "233.25", "51234500"),
			tradingRow("Aug 27, 2026", "228.10", "231.00", "227.50", "229.80", "229.80", "50020100"),
			tradingRow("Aug 27, 2026", "228.10", "231.00", "227.50", "230.40", "230.40", "50111000"),
			tradingRow("Aug 26, 2026", "225.00", "228.90", "224.10", "228.00", "228.00", "48100200"),
		)

		points, err := p.Parse("AAPL", doc)
		require.NoError(t, err)
		require.Len(t, points, 3)

		assert.Equal(t, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), points[0].Date)
		assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), points[1].Date)
		assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), points[2].Date)

		// The second copy of Aug 27 wins
		assert.True(t, points[1].Close.Equal(decimal.NewFromFloat(230.40)))
		assert.Equal(t, int64(50111000), points[1].Volume)
	})

	t.Run("rejects unparseable and future dates", func(t *testing.T) {
		doc := document(`data-test="historical-prices"`,
			tradingRow("someday", "10.00", "11.00", "9.50", "10.50", "10.50", "1000"),
			tradingRow("Jan 02, 2099", "10.00", "11.00", "9.50", "10.50", "10.50", "1000"),
			tradingRow("Aug 28, 2026", "10.00", "11.00", "9.50", "10.50", "10.50", "1000"),
		)

		points, err := p.Parse("AAPL", doc)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), points[0].Date)
	})

	t.Run("rejects negative and unparseable numeric fields", func(t *testing.T) {
		doc := document(`data-test="historical-prices"`,
			tradingRow("Aug 28, 2026", "-10.00", "11.00", "9.50", "10.50", "10.50", "1000"),
			tradingRow("Aug 27, 2026", "10.00", "11.00", "9.50", "10.50", "10.50", "-"),
			tradingRow("Aug 26, 2026", "10.00", "11.00", "9.50", "n/a", "10.50", "1000"),
			tradingRow("Aug 25, 2026", "10.00", "11.00", "9.50", "10.50", "10.50", "1000"),
		)

		points, err := p.Parse("AAPL", doc)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), points[0].Date)
	})

	t.Run("fails when zero valid rows remain", func(t *testing.T) {
		doc := document(`data-test="historical-prices"`,
			tradingRow("someday", "10.00", "11.00", "9.50", "10.50", "10.50", "1000"),
			tradingRow("never", "x", "y", "z", "w", "v", "u"),
		)

		_, err := p.Parse("AAPL", doc)
		assert.ErrorIs(t, err, domain.ErrNoValidRows)
	})

	t.Run("fails on empty table", func(t *testing.T) {
		doc := document(`data-test="historical-prices"`)
		_, err := p.Parse("AAPL", doc)
		assert.ErrorIs(t, err, domain.ErrNoValidRows)
	})
}
