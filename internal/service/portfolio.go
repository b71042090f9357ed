package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rolecraft/rolecraft/internal/config"
	"github.com/rolecraft/rolecraft/internal/model"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// PortfolioStore is the persistence PortfolioService needs. *config.Store
// implements it.
type PortfolioStore interface {
	CreatePortfolio(ctx context.Context, p *model.Portfolio) error
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)
	GetPortfolioBySlug(ctx context.Context, slug string) (*model.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, p *model.Portfolio) error
	DeletePortfolio(ctx context.Context, id string) error
	TogglePortfolio(ctx context.Context, id string) (*model.Portfolio, error)
}

// PortfolioService manages the admin's portfolios and resolves the public
// view of an enabled portfolio by slug.
type PortfolioService struct {
	store    PortfolioStore
	logger   *slog.Logger
	validate *validator.Validate
}

// NewPortfolioService creates a PortfolioService.
func NewPortfolioService(store PortfolioStore, logger *slog.Logger) *PortfolioService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return &PortfolioService{store: store, logger: logger, validate: v}
}

// List returns every portfolio, newest first.
func (s *PortfolioService) List(ctx context.Context) ([]model.Portfolio, error) {
	portfolios, err := s.store.ListPortfolios(ctx)
	if err != nil {
		return nil, ErrStoreUnavailable.withCause(err)
	}
	return portfolios, nil
}

// Get returns a portfolio by ID, enabled or not.
func (s *PortfolioService) Get(ctx context.Context, id string) (*model.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	return p, nil
}

// GetPublic returns the portfolio published under slug. Disabled portfolios
// are reported as not found.
func (s *PortfolioService) GetPublic(ctx context.Context, slug string) (*model.Portfolio, error) {
	p, err := s.store.GetPortfolioBySlug(ctx, normalizeSlug(slug))
	if err != nil {
		return nil, s.storeError(err)
	}
	if !p.IsEnabled {
		return nil, ErrPortfolioNotFound
	}
	return p, nil
}

// Create validates and stores p.
func (s *PortfolioService) Create(ctx context.Context, p *model.Portfolio) (*model.Portfolio, error) {
	p.Slug = normalizeSlug(p.Slug)
	if err := s.check(p); err != nil {
		return nil, err
	}
	if err := s.store.CreatePortfolio(ctx, p); err != nil {
		return nil, s.storeError(err)
	}

	s.logger.InfoContext(ctx, "portfolio created", "portfolio_id", p.ID, "slug", p.Slug)
	return p, nil
}

// Update applies the JSON object patch to the stored portfolio. Fields absent
// from patch keep their values; sections present in it are replaced.
func (s *PortfolioService) Update(ctx context.Context, id string, patch json.RawMessage) (*model.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}

	createdAt := p.CreatedAt
	if err := json.Unmarshal(patch, p); err != nil {
		return nil, ErrInvalidInput.withCause(err)
	}
	p.ID = id
	p.CreatedAt = createdAt
	p.Slug = normalizeSlug(p.Slug)

	if err := s.check(p); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePortfolio(ctx, p); err != nil {
		return nil, s.storeError(err)
	}

	s.logger.InfoContext(ctx, "portfolio updated", "portfolio_id", p.ID, "slug", p.Slug)
	return p, nil
}

// Delete removes a portfolio.
func (s *PortfolioService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePortfolio(ctx, id); err != nil {
		return s.storeError(err)
	}
	s.logger.InfoContext(ctx, "portfolio deleted", "portfolio_id", id)
	return nil
}

// Toggle flips whether a portfolio is publicly visible.
func (s *PortfolioService) Toggle(ctx context.Context, id string) (*model.Portfolio, error) {
	p, err := s.store.TogglePortfolio(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	s.logger.InfoContext(ctx, "portfolio toggled", "portfolio_id", id, "enabled", p.IsEnabled)
	return p, nil
}

// check validates the top-level attributes of p and reports the first
// failure with a client-facing message.
func (s *PortfolioService) check(p *model.Portfolio) error {
	err := s.validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrInvalidInput.withCause(err)
	}

	msg := "Invalid portfolio"
	switch fe := verrs[0]; {
	case fe.Field() == "Slug" && fe.Tag() == "required":
		msg = "Slug is required"
	case fe.Field() == "Slug":
		msg = "Slug can only contain lowercase letters, numbers, and hyphens"
	case fe.Field() == "JobRole":
		msg = "Job role is required"
	case fe.Field() == "Theme":
		msg = "Theme must be dark or light"
	}
	return &Error{Kind: KindValidation, Code: ErrInvalidInput.Code, Message: msg, Err: err}
}

func (s *PortfolioService) storeError(err error) error {
	switch {
	case errors.Is(err, config.ErrNotFound):
		return ErrPortfolioNotFound
	case errors.Is(err, config.ErrDuplicateSlug):
		return ErrSlugTaken
	default:
		return ErrStoreUnavailable.withCause(err)
	}
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
