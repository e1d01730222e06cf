package ports

import (
	"context"

	"github.com/quotevault/histprice-service/internal/domain"
)

// TrackingService defines the contract for symbol tracking management
type TrackingService interface {
	// Track creates or reactivates a tracked symbol; idempotent for a
	// symbol that is already tracked and active
	Track(ctx context.Context, name string) (*domain.TrackedSymbol, error)

	// Deactivate stops tracking a symbol without deleting its history
	Deactivate(ctx context.Context, name string) (*domain.TrackedSymbol, error)

	// List returns all tracked symbols
	List(ctx context.Context) ([]*domain.TrackedSymbol, error)

	// Get retrieves a specific symbol with its tracking status
	Get(ctx context.Context, name string) (*domain.TrackedSymbol, error)
}

// Parser defines the contract for turning one raw markup document into
// validated price points, sorted ascending by date
type Parser interface {
	Parse(symbol string, doc []byte) ([]domain.PricePoint, error)
}

// RetrievalService defines the contract for fetching raw documents for
// tracked symbols and persisting them as raw artifacts
type RetrievalService interface {
	// RetrieveAll fetches history for every active symbol, continuing
	// past per-symbol failures
	RetrieveAll(ctx context.Context) error

	// Retrieve fetches history for a single symbol
	Retrieve(ctx context.Context, name string) error
}

// ProcessorService defines the contract for the artifact lifecycle sweeps
type ProcessorService interface {
	// Sweep processes every artifact currently in the raw area
	Sweep(ctx context.Context) error

	// RequeueDeadletters moves retryable deadletter entries back to the
	// raw area for another processing attempt
	RequeueDeadletters(ctx context.Context) error
}
