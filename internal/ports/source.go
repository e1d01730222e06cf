package ports

import "context"

// SourceClient defines the contract for fetching raw historical data
// documents from the external market data source
type SourceClient interface {
	// FetchHistory retrieves the raw markup document for a symbol
	FetchHistory(ctx context.Context, symbol string) ([]byte, error)

	// Ping checks if the source is reachable
	Ping(ctx context.Context) error
}
