package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/ports"
)

// tableSelectors locate the historical data table. Tried in order,
// stopping at the first match; the source has changed its markup before,
// so the older shapes stay as fallbacks.
var tableSelectors = []string{
	`table[data-test="historical-prices"]`,
	`div#history table`,
	`table.historical-data`,
}

// dateLayouts accepted for the trade date cell
var dateLayouts = []string{
	"Jan 02, 2006",
	"2006-01-02",
	"01/02/2006",
}

// A plain trading row has exactly these cells:
// date, open, high, low, close, adj close, volume.
const cellsPerRow = 7

// Parser turns one raw markup document into validated price points.
// It is a pure function of the document content and performs no I/O.
type Parser struct {
	logger *slog.Logger
}

// New creates a new parser
func New(logger *slog.Logger) *Parser {
	return &Parser{
		logger: logger.With("component", "parser"),
	}
}

// Parse extracts the ordered sequence of price points for a symbol.
// Row-level failures are logged and skipped; the document as a whole
// fails only when no table is found or no valid rows remain.
func (p *Parser) Parse(symbol string, doc []byte) ([]domain.PricePoint, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoDataTable, err)
	}

	var table *goquery.Selection
	for _, sel := range tableSelectors {
		if s := d.Find(sel).First(); s.Length() > 0 {
			table = s
			break
		}
	}
	if table == nil {
		return nil, domain.ErrNoDataTable
	}

	now := time.Now().UTC()
	var points []domain.PricePoint
	rowNum := 0

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			// header/footer row
			return
		}
		rowNum++

		if isAnnotationRow(cells) {
			return
		}

		point, err := parseRow(symbol, cells, now)
		if err != nil {
			p.logger.Warn("skipping invalid row",
				"symbol", symbol,
				"error", domain.NewRowError(rowNum, "%v", err))
			return
		}

		points = append(points, point)
	})

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %d rows rejected", domain.ErrNoValidRows, rowNum)
	}

	// Ascending date order regardless of how the source sorts its table
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return p.dedupeDates(symbol, points), nil
}

// dedupeDates collapses rows sharing a trade date, keeping the last
// occurrence in document order. The source sometimes repeats a day; a
// later copy is a correction of the earlier one, and the loader cannot
// bind two tuples for the same (symbol, date) in one statement anyway.
func (p *Parser) dedupeDates(symbol string, points []domain.PricePoint) []domain.PricePoint {
	out := points[:0]
	for i, pt := range points {
		if i+1 < len(points) && points[i+1].Date.Equal(pt.Date) {
			p.logger.Warn("skipping duplicate date row",
				"symbol", symbol, "date", pt.Date.Format("2006-01-02"))
			continue
		}
		out = append(out, pt)
	}
	return out
}

// isAnnotationRow reports whether a row is a dividend or split marker
// rather than a trading day. Those rows span fewer cells and carry the
// event name in their text.
func isAnnotationRow(cells *goquery.Selection) bool {
	if cells.Length() == cellsPerRow {
		return false
	}
	text := strings.ToLower(cells.Text())
	return strings.Contains(text, "dividend") || strings.Contains(text, "split")
}

func parseRow(symbol string, cells *goquery.Selection, now time.Time) (domain.PricePoint, error) {
	if cells.Length() != cellsPerRow {
		return domain.PricePoint{}, fmt.Errorf("expected %d cells, got %d", cellsPerRow, cells.Length())
	}

	texts := make([]string, cellsPerRow)
	cells.Each(func(i int, c *goquery.Selection) {
		texts[i] = strings.TrimSpace(c.Text())
	})

	date, err := parseDate(texts[0])
	if err != nil {
		return domain.PricePoint{}, err
	}

	prices := make([]decimal.Decimal, 5)
	names := []string{"open", "high", "low", "close", "adj close"}
	for i, name := range names {
		prices[i], err = parsePrice(name, texts[i+1])
		if err != nil {
			return domain.PricePoint{}, err
		}
	}

	volume, err := parseVolume(texts[6])
	if err != nil {
		return domain.PricePoint{}, err
	}

	point := domain.PricePoint{
		Symbol:   symbol,
		Date:     date,
		Open:     prices[0],
		High:     prices[1],
		Low:      prices[2],
		Close:    prices[3],
		AdjClose: prices[4],
		Volume:   volume,
	}

	if err := point.Validate(now); err != nil {
		return domain.PricePoint{}, err
	}

	return point, nil
}

func parseDate(text string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, text); err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", text)
}

func parsePrice(name, text string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(text, ",", "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Decimal{}, fmt.Errorf("missing %s price", name)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable %s price %q", name, text)
	}
	return d, nil
}

func parseVolume(text string) (int64, error) {
	cleaned := strings.ReplaceAll(text, ",", "")
	if cleaned == "" || cleaned == "-" {
		return 0, fmt.Errorf("missing volume")
	}

	v, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable volume %q", text)
	}
	return v, nil
}

// Ensure Parser implements ports.Parser
var _ ports.Parser = (*Parser)(nil)
