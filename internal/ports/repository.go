package ports

import (
	"context"
	"time"

	"github.com/quotevault/histprice-service/internal/domain"
)

// SymbolRepository defines the contract for tracked symbol persistence
type SymbolRepository interface {
	// Create adds a new symbol to track
	Create(ctx context.Context, symbol *domain.TrackedSymbol) error

	// GetByName retrieves a symbol by its name
	GetByName(ctx context.Context, name string) (*domain.TrackedSymbol, error)

	// List returns all tracked symbols
	List(ctx context.Context) ([]*domain.TrackedSymbol, error)

	// ListActive returns only active symbols
	ListActive(ctx context.Context) ([]*domain.TrackedSymbol, error)

	// Update modifies an existing symbol
	Update(ctx context.Context, symbol *domain.TrackedSymbol) error

	// RecordAttempt stores the outcome of the latest pipeline attempt
	RecordAttempt(ctx context.Context, name string, at time.Time, status domain.AttemptStatus, lastError *string) error

	// Exists checks if a symbol exists
	Exists(ctx context.Context, name string) (bool, error)

	// Count returns total number of symbols
	Count(ctx context.Context) (int, error)

	// CountActive returns number of active symbols
	CountActive(ctx context.Context) (int, error)
}

// PriceRepository defines the contract for OHLCV persistence
type PriceRepository interface {
	// Upsert writes price points for one symbol in chunked batches
	// inside a single transaction and returns the number of rows written
	Upsert(ctx context.Context, symbol string, points []domain.PricePoint) (int, error)

	// History returns stored points for a symbol, newest first
	History(ctx context.Context, symbol string, limit int) ([]*domain.PricePoint, error)

	// CountBySymbol returns number of stored points for a symbol
	CountBySymbol(ctx context.Context, symbol string) (int64, error)

	// Count returns total number of stored points
	Count(ctx context.Context) (int64, error)
}
