package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/ports"
)

// SymbolRepository implements the ports.SymbolRepository interface
type SymbolRepository struct {
	db *DB
}

// NewSymbolRepository creates a new PostgreSQL symbol repository
func NewSymbolRepository(db *DB) ports.SymbolRepository {
	return &SymbolRepository{db: db}
}

const symbolColumns = `id, name, active, last_attempt_at, last_attempt_status, last_error, created_at, updated_at`

func scanSymbol(row pgx.Row) (*domain.TrackedSymbol, error) {
	var s domain.TrackedSymbol
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Active,
		&s.LastAttemptAt,
		&s.LastAttemptStatus,
		&s.LastError,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create adds a new symbol to track
func (r *SymbolRepository) Create(ctx context.Context, symbol *domain.TrackedSymbol) error {
	query := `
		INSERT INTO tracked_symbols (name, active, last_attempt_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		symbol.Name,
		symbol.Active,
		symbol.LastAttemptStatus,
		symbol.CreatedAt,
		symbol.UpdatedAt,
	).Scan(&symbol.ID)

	if err != nil {
		return fmt.Errorf("failed to create symbol: %w", err)
	}

	return nil
}

// GetByName retrieves a symbol by its name
func (r *SymbolRepository) GetByName(ctx context.Context, name string) (*domain.TrackedSymbol, error) {
	query := `
		SELECT ` + symbolColumns + `
		FROM tracked_symbols
		WHERE name = $1
	`

	symbol, err := scanSymbol(r.db.Pool.QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSymbolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}

	return symbol, nil
}

// List returns all tracked symbols
func (r *SymbolRepository) List(ctx context.Context) ([]*domain.TrackedSymbol, error) {
	return r.list(ctx, `
		SELECT `+symbolColumns+`
		FROM tracked_symbols
		ORDER BY name
	`)
}

// ListActive returns only active symbols
func (r *SymbolRepository) ListActive(ctx context.Context) ([]*domain.TrackedSymbol, error) {
	return r.list(ctx, `
		SELECT `+symbolColumns+`
		FROM tracked_symbols
		WHERE active = TRUE
		ORDER BY name
	`)
}

func (r *SymbolRepository) list(ctx context.Context, query string) ([]*domain.TrackedSymbol, error) {
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*domain.TrackedSymbol
	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// Update modifies an existing symbol
func (r *SymbolRepository) Update(ctx context.Context, symbol *domain.TrackedSymbol) error {
	query := `
		UPDATE tracked_symbols
		SET active = $1, last_attempt_at = $2, last_attempt_status = $3, last_error = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.Pool.Exec(ctx, query,
		symbol.Active,
		symbol.LastAttemptAt,
		symbol.LastAttemptStatus,
		symbol.LastError,
		symbol.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update symbol: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSymbolNotFound
	}

	return nil
}

// RecordAttempt stores the outcome of the latest pipeline attempt
func (r *SymbolRepository) RecordAttempt(ctx context.Context, name string, at time.Time, status domain.AttemptStatus, lastError *string) error {
	query := `
		UPDATE tracked_symbols
		SET last_attempt_at = $1, last_attempt_status = $2, last_error = $3, updated_at = NOW()
		WHERE name = $4
	`

	result, err := r.db.Pool.Exec(ctx, query, at, status, lastError, name)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSymbolNotFound
	}

	return nil
}

// Exists checks if a symbol exists
func (r *SymbolRepository) Exists(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tracked_symbols WHERE name = $1)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check symbol existence: %w", err)
	}

	return exists, nil
}

// Count returns total number of symbols
func (r *SymbolRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM tracked_symbols`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}

	return count, nil
}

// CountActive returns number of active symbols
func (r *SymbolRepository) CountActive(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM tracked_symbols WHERE active = TRUE`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active symbols: %w", err)
	}

	return count, nil
}

// Ensure SymbolRepository implements ports.SymbolRepository
var _ ports.SymbolRepository = (*SymbolRepository)(nil)
