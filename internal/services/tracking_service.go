package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/ports"
)

// TrackingService implements the ports.TrackingService interface
type TrackingService struct {
	symbols ports.SymbolRepository
	logger  *slog.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(symbols ports.SymbolRepository, logger *slog.Logger) *TrackingService {
	return &TrackingService{
		symbols: symbols,
		logger:  logger.With("component", "tracking_service"),
	}
}

// Track creates or reactivates a tracked symbol. Requesting a symbol
// that is already tracked and active is a no-op returning the existing
// record.
func (s *TrackingService) Track(ctx context.Context, name string) (*domain.TrackedSymbol, error) {
	symbol, err := domain.NewTrackedSymbol(name)
	if err != nil {
		return nil, err
	}

	existing, err := s.symbols.GetByName(ctx, symbol.Name)
	switch {
	case err == nil:
		if existing.Active {
			return existing, nil
		}
		existing.Activate()
		if err := s.symbols.Update(ctx, existing); err != nil {
			s.logger.Error("failed to reactivate symbol", "symbol", existing.Name, "error", err)
			return nil, domain.ErrInternal
		}
		s.logger.Info("symbol reactivated", "symbol", existing.Name)
		return existing, nil

	case errors.Is(err, domain.ErrSymbolNotFound):
		if err := s.symbols.Create(ctx, symbol); err != nil {
			s.logger.Error("failed to create symbol", "symbol", symbol.Name, "error", err)
			return nil, domain.ErrInternal
		}
		s.logger.Info("symbol tracked", "symbol", symbol.Name, "id", symbol.ID)
		return symbol, nil

	default:
		s.logger.Error("failed to look up symbol", "symbol", symbol.Name, "error", err)
		return nil, domain.ErrInternal
	}
}

// Deactivate stops tracking a symbol. The record is kept so attempt
// history and stored prices survive.
func (s *TrackingService) Deactivate(ctx context.Context, name string) (*domain.TrackedSymbol, error) {
	name = domain.NormalizeSymbol(name)

	symbol, err := s.symbols.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrSymbolNotFound) {
			return nil, err
		}
		s.logger.Error("failed to look up symbol", "symbol", name, "error", err)
		return nil, domain.ErrInternal
	}

	if !symbol.Active {
		return symbol, nil
	}

	symbol.Deactivate()
	if err := s.symbols.Update(ctx, symbol); err != nil {
		s.logger.Error("failed to deactivate symbol", "symbol", name, "error", err)
		return nil, domain.ErrInternal
	}

	s.logger.Info("symbol deactivated", "symbol", name)
	return symbol, nil
}

// List returns all tracked symbols
func (s *TrackingService) List(ctx context.Context) ([]*domain.TrackedSymbol, error) {
	symbols, err := s.symbols.List(ctx)
	if err != nil {
		s.logger.Error("failed to list symbols", "error", err)
		return nil, domain.ErrInternal
	}
	return symbols, nil
}

// Get retrieves a specific symbol with its tracking status
func (s *TrackingService) Get(ctx context.Context, name string) (*domain.TrackedSymbol, error) {
	return s.symbols.GetByName(ctx, domain.NormalizeSymbol(name))
}

// Ensure TrackingService implements ports.TrackingService
var _ ports.TrackingService = (*TrackingService)(nil)
