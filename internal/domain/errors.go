package domain

import (
	"errors"
	"fmt"
)

var (
	// Symbol errors
	ErrInvalidSymbol  = errors.New("invalid symbol format")
	ErrSymbolNotFound = errors.New("symbol not found")

	// Source errors
	ErrSourceUnavailable = errors.New("market data source unavailable")
	ErrRateLimited       = errors.New("rate limited by source")
	ErrUnexpectedStatus  = errors.New("unexpected response status from source")

	// Parse errors
	ErrNoDataTable = errors.New("no historical data table found in document")
	ErrNoValidRows = errors.New("document contained no valid price rows")

	// Artifact errors
	ErrMalformedArtifact = errors.New("malformed artifact name")

	// ErrIntegrity aborts an entire sweep: one of the managed directories
	// contains something the pipeline did not put there.
	ErrIntegrity = errors.New("artifact area integrity violation")

	// General errors
	ErrInternal = errors.New("internal error")
)

// RowError reports a single rejected row inside an otherwise parsable
// document. Row-level failures are skipped, never fatal for the document.
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// NewRowError creates a row-level validation error
func NewRowError(row int, format string, args ...any) *RowError {
	return &RowError{Row: row, Reason: fmt.Sprintf(format, args...)}
}
