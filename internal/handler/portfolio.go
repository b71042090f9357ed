package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rolecraft/rolecraft/internal/model"
	"github.com/rolecraft/rolecraft/internal/service"
)

// PortfolioHandler serves the /portfolios routes.
type PortfolioHandler struct {
	portfolios *service.PortfolioService
	logger     *slog.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolios *service.PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios, logger: logger}
}

// List returns all portfolios with their count.
// GET /portfolios
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolios.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	count := len(portfolios)
	writeJSON(w, http.StatusOK, model.Response{Success: true, Count: &count, Data: portfolios})
}

// Get returns a single portfolio by ID.
// GET /portfolios/{id}
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolios.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", p)
}

// GetPublic returns an enabled portfolio by slug. No authentication.
// GET /portfolios/public/{slug}
func (h *PortfolioHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolios.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", p)
}

// Create stores a new portfolio. Theme defaults to dark and new portfolios
// are enabled unless the body says otherwise.
// POST /portfolios
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := model.NewPortfolio()
	if err := readJSON(w, r, p); err != nil {
		writeError(w, r, h.logger, service.ErrInvalidInput)
		return
	}

	created, err := h.portfolios.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Portfolio created successfully", created)
}

// Update applies the fields present in the body to a portfolio.
// PUT /portfolios/{id}
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, service.ErrInvalidInput)
		return
	}

	updated, err := h.portfolios.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Portfolio updated successfully", updated)
}

// Delete removes a portfolio.
// DELETE /portfolios/{id}
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolios.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Portfolio deleted successfully", nil)
}

// Toggle flips a portfolio between enabled and disabled.
// PATCH /portfolios/{id}/toggle
func (h *PortfolioHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolios.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	state := "disabled"
	if p.IsEnabled {
		state = "enabled"
	}
	writeSuccess(w, http.StatusOK, "Portfolio "+state+" successfully", p)
}
