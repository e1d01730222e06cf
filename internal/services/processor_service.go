package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/quotevault/histprice-service/internal/artifact"
	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/ports"
)

// ProcessorService drives the artifact lifecycle: raw artifacts are
// claimed, parsed and loaded, then archived on success or deadlettered
// with the failure reason. One bad artifact never stops the sweep; a
// foreign entry in a managed directory always does.
type ProcessorService struct {
	store    *artifact.Store
	parser   ports.Parser
	prices   ports.PriceRepository
	symbols  ports.SymbolRepository
	retryCap int
	logger   *slog.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	store *artifact.Store,
	parser ports.Parser,
	prices ports.PriceRepository,
	symbols ports.SymbolRepository,
	retryCap int,
	logger *slog.Logger,
) *ProcessorService {
	return &ProcessorService{
		store:    store,
		parser:   parser,
		prices:   prices,
		symbols:  symbols,
		retryCap: retryCap,
		logger:   logger.With("component", "processor_service"),
	}
}

// sweepOutcome is the disposition of one artifact within a sweep
type sweepOutcome int

const (
	outcomeProcessed sweepOutcome = iota
	outcomeDeadlettered
	outcomeSkipped
)

// Sweep processes every artifact currently in the raw area. Returns an
// error only for structural integrity failures, which must stop the
// processing loop until an operator intervenes.
func (s *ProcessorService) Sweep(ctx context.Context) error {
	names, err := s.store.ListRaw()
	if err != nil {
		return err
	}

	processed, failed, skipped := 0, 0, 0
	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome, err := s.processOne(ctx, name)
		if err != nil {
			s.logger.Error("artifact processing error", "artifact", name, "error", err)
			failed++
			continue
		}
		switch outcome {
		case outcomeProcessed:
			processed++
		case outcomeDeadlettered:
			failed++
		case outcomeSkipped:
			skipped++
		}
	}

	if processed > 0 || failed > 0 || skipped > 0 {
		s.logger.Info("sweep completed",
			"processed", processed, "failed", failed, "skipped", skipped)
	}
	return nil
}

// processOne handles a single artifact end to end. The returned error
// covers filesystem trouble only; parse and load failures deadletter
// the artifact, and a lost claim race is a skip, not a success.
func (s *ProcessorService) processOne(ctx context.Context, name string) (sweepOutcome, error) {
	claimed, ok, err := s.store.Claim(name)
	if err != nil {
		return outcomeSkipped, err
	}
	if !ok {
		// another sweep owns it
		return outcomeSkipped, nil
	}

	symbol, _, err := domain.ParseArtifactName(name)
	if err != nil {
		// ListRaw validated the name already; treat as corruption
		return outcomeSkipped, err
	}

	body, err := claimed.Read()
	if err != nil {
		return outcomeDeadlettered, s.deadletter(ctx, claimed, symbol, err)
	}

	points, err := s.parser.Parse(symbol, body)
	if err != nil {
		return outcomeDeadlettered, s.deadletter(ctx, claimed, symbol, err)
	}

	written, err := s.prices.Upsert(ctx, symbol, points)
	if err != nil {
		return outcomeDeadlettered, s.deadletter(ctx, claimed, symbol, err)
	}

	if err := claimed.Archive(); err != nil {
		return outcomeSkipped, err
	}

	now := time.Now().UTC()
	if err := s.symbols.RecordAttempt(ctx, symbol, now, domain.AttemptSuccess, nil); err != nil {
		s.logger.Error("failed to record attempt", "symbol", symbol, "error", err)
	}

	s.logger.Info("artifact processed", "artifact", name, "symbol", symbol, "rows", written)
	return outcomeProcessed, nil
}

// deadletter relocates a failed artifact and records the failure on the
// symbol so it never looks healthy while silently failing
func (s *ProcessorService) deadletter(ctx context.Context, claimed *artifact.Claimed, symbol string, cause error) error {
	s.logger.Warn("artifact failed, moving to deadletter",
		"artifact", claimed.Name, "symbol", symbol, "error", cause)

	if err := claimed.Deadletter(cause.Error()); err != nil {
		return err
	}

	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.symbols.RecordAttempt(ctx, symbol, now, domain.AttemptFailure, &msg); err != nil {
		s.logger.Error("failed to record attempt", "symbol", symbol, "error", err)
	}

	return nil
}

// RequeueDeadletters moves deadletter entries below the retry cap back
// to the raw area. Entries at the cap stay put and are reported; they
// need manual inspection, not another automatic spin.
func (s *ProcessorService) RequeueDeadletters(ctx context.Context) error {
	entries, err := s.store.ListDeadletter()
	if err != nil {
		return err
	}

	requeued, stuck := 0, 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if entry.Meta.Attempts >= s.retryCap {
			stuck++
			s.logger.Warn("deadletter entry exceeded retry cap, leaving for manual inspection",
				"artifact", entry.Name,
				"attempts", entry.Meta.Attempts,
				"reason", entry.Meta.Reason)
			continue
		}

		if err := s.store.Requeue(entry.Name); err != nil {
			s.logger.Error("failed to requeue artifact", "artifact", entry.Name, "error", err)
			continue
		}
		requeued++
	}

	if requeued > 0 || stuck > 0 {
		s.logger.Info("deadletter sweep completed", "requeued", requeued, "stuck", stuck)
	}
	return nil
}

// Ensure ProcessorService implements ports.ProcessorService
var _ ports.ProcessorService = (*ProcessorService)(nil)
