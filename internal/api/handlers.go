package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/journal"
	"github.com/trogers1052/dilution-tracker/internal/models"
	"github.com/trogers1052/dilution-tracker/internal/watchlist"
)

// MaxAnalyzeTickers caps the number of tickers per /analyze request
const MaxAnalyzeTickers = 10

// Enricher enriches one ticker or a batch of tickers
type Enricher interface {
	Enrich(ctx context.Context, ticker string) (models.EnrichedTicker, error)
	EnrichMany(ctx context.Context, tickers []string) []models.EnrichedTicker
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	enricher  Enricher
	journal   *journal.Service
	watchlist *watchlist.Runner
	log       logrus.FieldLogger
}

// NewHandler creates a new Handler
func NewHandler(enricher Enricher, trades *journal.Service, runner *watchlist.Runner, log logrus.FieldLogger) *Handler {
	return &Handler{
		enricher:  enricher,
		journal:   trades,
		watchlist: runner,
		log:       log,
	}
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Dilution Tracker API is running!"})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "API is running successfully",
	})
}

// EnrichTicker handles GET /enrich/{ticker}. Failures are reported in a
// 200 response with an error field.
func (h *Handler) EnrichTicker(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	result, err := h.enricher.Enrich(r.Context(), ticker)
	if err != nil {
		h.log.WithError(err).WithField("ticker", ticker).Warn("enrichment failed")
		respondJSON(w, http.StatusOK, map[string]string{
			"error": fmt.Sprintf("Failed to enrich ticker %s: %v", ticker, err),
		})
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Analyze handles GET /analyze?tickers=A,B,C
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	tickers := ParseTickers(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 {
		respondError(w, http.StatusBadRequest, "No valid tickers provided")
		return
	}
	if len(tickers) > MaxAnalyzeTickers {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d tickers allowed", MaxAnalyzeTickers))
		return
	}

	results := h.enricher.EnrichMany(r.Context(), tickers)
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ParseTickers splits a comma-separated list, trims and uppercases each
// entry and drops empties. Duplicates are kept.
func ParseTickers(raw string) []string {
	var tickers []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

// CreateTrade handles POST /trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var in models.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := h.journal.Create(r.Context(), in)
	if err != nil {
		h.respondJournalError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, trade)
}

// ListTrades handles GET /trades?offset=&limit=
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", journal.DefaultLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := h.journal.List(r.Context(), offset, limit)
	if err != nil {
		h.respondJournalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// GetTrade handles GET /trades/{id}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.journal.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondJournalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// UpdateTrade handles PUT /trades/{id}
func (h *Handler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	var in models.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := h.journal.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.respondJournalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// DeleteTrade handles DELETE /trades/{id}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.respondJournalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Trade deleted successfully"})
}

// TradeStats handles GET /trades/stats/summary
func (h *Handler) TradeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.journal.Stats(r.Context())
	if err != nil {
		h.respondJournalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// TradeAnalysis handles GET /trades/{id}/analysis
func (h *Handler) TradeAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.journal.Analysis(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondJournalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

// GetWatchlist handles GET /watchlist
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.watchlist.Symbols(r.Context())
	if err != nil {
		h.respondInternal(w, err)
		return
	}
	results, err := h.watchlist.Results(r.Context())
	if err != nil {
		h.respondInternal(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tickers": symbols,
		"results": results,
	})
}

// AddToWatchlist handles POST /watchlist
func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbol, err := h.watchlist.Add(r.Context(), req.Symbol)
	if err != nil {
		h.respondWatchlistError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"symbol": symbol})
}

// RemoveFromWatchlist handles DELETE /watchlist/{symbol}
func (h *Handler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	if _, err := h.watchlist.Remove(r.Context(), mux.Vars(r)["symbol"]); err != nil {
		h.respondWatchlistError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RefreshWatchlist handles POST /watchlist/refresh
func (h *Handler) RefreshWatchlist(w http.ResponseWriter, r *http.Request) {
	results, err := h.watchlist.Refresh(r.Context())
	if err != nil {
		h.respondInternal(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) respondJournalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, journal.ErrTradeNotFound):
		respondError(w, http.StatusNotFound, "Trade not found")
	case errors.Is(err, journal.ErrInvalidTrade):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.respondInternal(w, err)
	}
}

func (h *Handler) respondWatchlistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, watchlist.ErrInvalidSymbol):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, watchlist.ErrNotWatched):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.respondInternal(w, err)
	}
}

func (h *Handler) respondInternal(w http.ResponseWriter, err error) {
	h.log.WithError(err).Error("request failed")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
