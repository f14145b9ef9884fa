package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/hvacquote/internal/metrics"
	"github.com/Simplici0/hvacquote/internal/pricing"
	"github.com/Simplici0/hvacquote/internal/store"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type catalogResponse struct {
	Items      []pricing.PricedItem `json:"items"`
	LaborRules []pricing.LaborRule  `json:"labor_rules"`
}

type adminCatalogResponse struct {
	Items      []store.CatalogItem `json:"items"`
	LaborRules []pricing.LaborRule `json:"labor_rules"`
}

type rebatesResponse struct {
	Programs []pricing.RebateProgram `json:"programs"`
	Total    decimal.Decimal         `json:"total"`
}

// quoteCreateRequest is a quote request plus the details kept with the saved copy.
type quoteCreateRequest struct {
	pricing.QuoteRequest
	Title string `json:"title"`
	Notes string `json:"notes"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := s.engine.Load().Catalog()
	writeJSON(w, http.StatusOK, catalogResponse{
		Items:      catalog.Items(),
		LaborRules: catalog.LaborRules(),
	})
}

func (s *server) handleRebates(w http.ResponseWriter, r *http.Request) {
	category, err := pricing.ParseCategory(strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	rating, err := decimal.NewFromString(strings.TrimSpace(r.URL.Query().Get("efficiency")))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: efficiency must be a number", pricing.ErrValidation))
		return
	}

	programs, total := s.engine.Load().ApplicableRebates(pricing.EquipmentSnapshot{
		Category:         category,
		EfficiencyRating: rating,
	})
	writeJSON(w, http.StatusOK, rebatesResponse{Programs: programs, Total: total})
}

func (s *server) handleROI(w http.ResponseWriter, r *http.Request) {
	var req pricing.ROIRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.ROIComputed(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.engine.Load().ComputeROI(req)
	if err != nil {
		s.metrics.ROIComputed(outcomeOf(err))
		s.writeError(w, err)
		return
	}
	s.metrics.ROIComputed(metrics.OutcomeOK)
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req quoteCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.QuoteBuilt(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	quote, err := s.engine.Load().BuildQuote(req.QuoteRequest)
	if err != nil {
		s.metrics.QuoteBuilt(outcomeOf(err))
		s.writeError(w, err)
		return
	}
	s.metrics.QuoteBuilt(metrics.OutcomeOK)

	urgency, _ := pricing.ParseUrgency(string(req.Urgency))
	saved, err := s.store.SaveQuote(r.Context(), quote, store.QuoteMeta{
		Title:      strings.TrimSpace(req.Title),
		Notes:      strings.TrimSpace(req.Notes),
		Complexity: req.Complexity,
		Urgency:    urgency,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("quote saved", "id", saved.ID, "lines", quote.Len(), "grand_total", quote.GrandTotal().StringFixed(2))
	w.Header().Set("Location", "/api/quotes/"+saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, err := s.store.ListQuotes(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "quotes": quotes})
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	saved, err := s.store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *server) handleQuoteCheckout(w http.ResponseWriter, r *http.Request) {
	saved, err := s.store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCheckoutPayload(saved))
}

func (s *server) handleAdminCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItems(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminCatalogResponse{
		Items:      items,
		LaborRules: s.engine.Load().Catalog().LaborRules(),
	})
}

func (s *server) handleAdminCatalogReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reloadEngine(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	engine := s.engine.Load()
	writeJSON(w, http.StatusOK, map[string]int{
		"items":           len(engine.Catalog().Items()),
		"rebate_programs": len(engine.Rebates().Programs()),
	})
}

// writeError maps engine errors onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricing.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, pricing.ErrValidation), errors.Is(err, pricing.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func outcomeOf(err error) string {
	if errors.Is(err, pricing.ErrNotFound) || errors.Is(err, pricing.ErrValidation) || errors.Is(err, pricing.ErrInvalidInput) {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
