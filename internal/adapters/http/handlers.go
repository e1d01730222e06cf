package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/quotevault/histprice-service/internal/ports"
)

// Handler contains all HTTP handlers
type Handler struct {
	tracking ports.TrackingService
	prices   ports.PriceRepository
	source   ports.SourceClient
	logger   *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(
	tracking ports.TrackingService,
	prices ports.PriceRepository,
	source ports.SourceClient,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tracking: tracking,
		prices:   prices,
		source:   source,
		logger:   logger.With("component", "http_handler"),
	}
}

// Health returns service health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "healthy"
	sourceStatus := "healthy"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.source.Ping(checkCtx); err != nil {
		sourceStatus = "unhealthy"
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"source": sourceStatus,
	})
}

// ListSymbols returns all tracked symbols
func (h *Handler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.tracking.List(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": symbols,
	})
}

// TrackSymbolRequest represents the request body for tracking a symbol
type TrackSymbolRequest struct {
	Symbol string `json:"symbol"`
}

// TrackSymbol adds a new symbol to track or reactivates an existing one
func (h *Handler) TrackSymbol(w http.ResponseWriter, r *http.Request) {
	var req TrackSymbolRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	symbol, err := h.tracking.Track(r.Context(), req.Symbol)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, symbol)
}

// GetSymbol returns a single tracked symbol with its attempt status
func (h *Handler) GetSymbol(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("symbol")
	if name == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	symbol, err := h.tracking.Get(r.Context(), name)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, symbol)
}

// DeactivateSymbol stops tracking a symbol. Stored history is kept.
func (h *Handler) DeactivateSymbol(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("symbol")
	if name == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if _, err := h.tracking.Deactivate(r.Context(), name); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HistoryItem represents one trading day in the API response
type HistoryItem struct {
	Date     string `json:"date"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	AdjClose string `json:"adj_close"`
	Volume   int64  `json:"volume"`
}

// GetHistory returns stored price history for a symbol, newest first
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("symbol")
	if name == "" {
		respondError(w, http.StatusBadRequest, "symbol parameter is required")
		return
	}

	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	symbol, err := h.tracking.Get(r.Context(), name)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	history, err := h.prices.History(r.Context(), symbol.Name, limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	items := make([]HistoryItem, len(history))
	for i, p := range history {
		items[i] = HistoryItem{
			Date:     p.Date.Format("2006-01-02"),
			Open:     p.Open.String(),
			High:     p.High.String(),
			Low:      p.Low.String(),
			Close:    p.Close.String(),
			AdjClose: p.AdjClose.String(),
			Volume:   p.Volume,
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol.Name,
		"items":  items,
	})
}
