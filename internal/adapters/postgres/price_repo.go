package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/ports"
)

// paramsPerRow is the number of bound parameters one price row consumes
// in the upsert statement.
const paramsPerRow = 8

// PriceRepository implements the ports.PriceRepository interface.
// Upserts are chunked so no single statement exceeds the storage
// engine's bound parameter limit, which is configuration rather than a
// property of this code.
type PriceRepository struct {
	db        *DB
	batchRows int
}

// NewPriceRepository creates a new PostgreSQL price repository with the
// given bound parameter limit per statement
func NewPriceRepository(db *DB, maxBoundParams int) ports.PriceRepository {
	return &PriceRepository{
		db:        db,
		batchRows: batchSize(maxBoundParams),
	}
}

// batchSize computes the largest row count per statement that keeps
// rows*paramsPerRow within the parameter limit, never below one row
func batchSize(maxBoundParams int) int {
	n := maxBoundParams / paramsPerRow
	if n < 1 {
		n = 1
	}
	return n
}

// chunkPoints splits points into consecutive batches of at most size rows
func chunkPoints(points []domain.PricePoint, size int) [][]domain.PricePoint {
	var chunks [][]domain.PricePoint
	for len(points) > size {
		chunks = append(chunks, points[:size])
		points = points[size:]
	}
	if len(points) > 0 {
		chunks = append(chunks, points)
	}
	return chunks
}

// upsertStatement builds the multi-row insert with overwrite-on-conflict
// semantics keyed on (symbol, trade_date). Reprocessing the same
// artifact is therefore idempotent: rows are overwritten, never
// duplicated.
func upsertStatement(rows int) string {
	var b strings.Builder
	b.WriteString(`INSERT INTO price_points (symbol, trade_date, open, high, low, close, adj_close, volume) VALUES `)

	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * paramsPerRow
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
	}

	b.WriteString(` ON CONFLICT (symbol, trade_date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		adj_close = EXCLUDED.adj_close,
		volume = EXCLUDED.volume,
		updated_at = NOW()`)

	return b.String()
}

// upsertArgs flattens points into the bound parameter list matching
// upsertStatement's placeholder order
func upsertArgs(points []domain.PricePoint) []any {
	args := make([]any, 0, len(points)*paramsPerRow)
	for _, p := range points {
		args = append(args,
			p.Symbol,
			p.Date,
			p.Open,
			p.High,
			p.Low,
			p.Close,
			p.AdjClose,
			p.Volume,
		)
	}
	return args
}

// Upsert writes all points for one symbol inside a single transaction.
// Any batch failure rolls the whole call back, so the store never holds
// a partially loaded symbol. Returns the number of rows written.
func (r *PriceRepository) Upsert(ctx context.Context, symbol string, points []domain.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	written := 0
	for _, chunk := range chunkPoints(points, r.batchRows) {
		tag, err := tx.Exec(ctx, upsertStatement(len(chunk)), upsertArgs(chunk)...)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert %d rows for %s: %w", len(chunk), symbol, err)
		}
		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return written, nil
}

// History returns stored points for a symbol, newest first
func (r *PriceRepository) History(ctx context.Context, symbol string, limit int) ([]*domain.PricePoint, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT symbol, trade_date, open, high, low, close, adj_close, volume
		FROM price_points
		WHERE symbol = $1
		ORDER BY trade_date DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var points []*domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		var open, high, low, closePrice, adjClose string

		if err := rows.Scan(&p.Symbol, &p.Date, &open, &high, &low, &closePrice, &adjClose, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}

		fields := []struct {
			dst *decimal.Decimal
			src string
		}{
			{&p.Open, open},
			{&p.High, high},
			{&p.Low, low},
			{&p.Close, closePrice},
			{&p.AdjClose, adjClose},
		}
		for _, f := range fields {
			if *f.dst, err = decimal.NewFromString(f.src); err != nil {
				return nil, fmt.Errorf("failed to parse price: %w", err)
			}
		}

		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price points: %w", err)
	}

	return points, nil
}

// CountBySymbol returns number of stored points for a symbol
func (r *PriceRepository) CountBySymbol(ctx context.Context, symbol string) (int64, error) {
	query := `SELECT COUNT(*) FROM price_points WHERE symbol = $1`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, symbol).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count price points by symbol: %w", err)
	}

	return count, nil
}

// Count returns total number of stored points
func (r *PriceRepository) Count(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM price_points`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count price points: %w", err)
	}

	return count, nil
}

// Ensure PriceRepository implements ports.PriceRepository
var _ ports.PriceRepository = (*PriceRepository)(nil)
