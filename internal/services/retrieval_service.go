package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/quotevault/histprice-service/internal/artifact"
	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/ports"
)

// RetrievalService fetches raw documents for tracked symbols and hands
// them to the artifact store. The raw artifact is what decouples
// downstream processing from network availability: once written, the
// document survives even if every later stage fails.
type RetrievalService struct {
	symbols ports.SymbolRepository
	source  ports.SourceClient
	store   *artifact.Store
	now     func() time.Time
	logger  *slog.Logger
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(
	symbols ports.SymbolRepository,
	source ports.SourceClient,
	store *artifact.Store,
	logger *slog.Logger,
) *RetrievalService {
	return &RetrievalService{
		symbols: symbols,
		source:  source,
		store:   store,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With("component", "retrieval_service"),
	}
}

// RetrieveAll fetches history for every active symbol. Per-symbol
// failures are recorded on the symbol and the iteration continues.
func (s *RetrievalService) RetrieveAll(ctx context.Context) error {
	symbols, err := s.symbols.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active symbols", "error", err)
		return err
	}

	if len(symbols) == 0 {
		s.logger.Debug("no active symbols to retrieve")
		return nil
	}

	fetched, failed := 0, 0
	for _, sym := range symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.Retrieve(ctx, sym.Name); err != nil {
			failed++
			s.logger.Warn("retrieval failed", "symbol", sym.Name, "error", err)
			continue
		}
		fetched++
	}

	s.logger.Info("retrieval pass completed", "fetched", fetched, "failed", failed)
	return nil
}

// Retrieve fetches history for a single symbol, writes the raw artifact
// and records the attempt outcome. No artifact is written on failure.
func (s *RetrievalService) Retrieve(ctx context.Context, name string) error {
	fetchedAt := s.now()

	body, err := s.source.FetchHistory(ctx, name)
	if err != nil {
		s.recordFailure(ctx, name, fetchedAt, err)
		return err
	}

	artifactName, err := s.store.WriteRaw(name, fetchedAt, body)
	if err != nil {
		s.recordFailure(ctx, name, fetchedAt, err)
		return err
	}

	if err := s.symbols.RecordAttempt(ctx, name, fetchedAt, domain.AttemptSuccess, nil); err != nil {
		s.logger.Error("failed to record attempt", "symbol", name, "error", err)
	}

	s.logger.Info("document retrieved", "symbol", name, "artifact", artifactName, "bytes", len(body))
	return nil
}

func (s *RetrievalService) recordFailure(ctx context.Context, name string, at time.Time, cause error) {
	msg := cause.Error()
	if err := s.symbols.RecordAttempt(ctx, name, at, domain.AttemptFailure, &msg); err != nil {
		s.logger.Error("failed to record attempt", "symbol", name, "error", err)
	}
}

// Ensure RetrievalService implements ports.RetrievalService
var _ ports.RetrievalService = (*RetrievalService)(nil)
