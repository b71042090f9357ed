package config

import (
	"context"
	"errors"
	"testing"

	"github.com/rolecraft/rolecraft/internal/model"
)

func newTestPortfolio(slug string) *model.Portfolio {
	p := model.NewPortfolio()
	p.Slug = slug
	p.JobRole = "Backend Engineer"
	p.Hero = model.Hero{Name: "Ada", Title: "Engineer"}
	p.Skills = []model.SkillGroup{{Category: "Languages", Items: []model.Skill{{Name: "Go", Level: 90}}}}
	p.Contact.Email = "ada@x.com"
	return p
}

func TestPortfolioCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := newTestPortfolio("backend")
	if err := s.CreatePortfolio(ctx, p); err != nil {
		t.Fatalf("CreatePortfolio: %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("expected ID and timestamps, got %+v", p)
	}

	got, err := s.GetPortfolio(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if got.Slug != "backend" || got.Theme != model.ThemeDark || !got.IsEnabled {
		t.Errorf("unexpected portfolio %+v", got)
	}
	if got.Hero.Name != "Ada" || len(got.Skills) != 1 || got.Skills[0].Items[0].Name != "Go" {
		t.Errorf("content not round-tripped: %+v", got.PortfolioContent)
	}

	bySlug, err := s.GetPortfolioBySlug(ctx, "backend")
	if err != nil {
		t.Fatalf("GetPortfolioBySlug: %v", err)
	}
	if bySlug.ID != p.ID {
		t.Errorf("slug lookup returned %s, want %s", bySlug.ID, p.ID)
	}

	got.JobRole = "Platform Engineer"
	got.Theme = model.ThemeLight
	if err := s.UpdatePortfolio(ctx, got); err != nil {
		t.Fatalf("UpdatePortfolio: %v", err)
	}
	updated, _ := s.GetPortfolio(ctx, p.ID)
	if updated.JobRole != "Platform Engineer" || updated.Theme != model.ThemeLight {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := s.DeletePortfolio(ctx, p.ID); err != nil {
		t.Fatalf("DeletePortfolio: %v", err)
	}
	if _, err := s.GetPortfolio(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeletePortfolio(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPortfolioDuplicateSlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := newTestPortfolio("backend")
	if err := s.CreatePortfolio(ctx, first); err != nil {
		t.Fatalf("CreatePortfolio: %v", err)
	}
	if err := s.CreatePortfolio(ctx, newTestPortfolio("backend")); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug on create, got %v", err)
	}

	second := newTestPortfolio("frontend")
	if err := s.CreatePortfolio(ctx, second); err != nil {
		t.Fatalf("CreatePortfolio: %v", err)
	}
	second.Slug = "backend"
	if err := s.UpdatePortfolio(ctx, second); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug on update, got %v", err)
	}
}

func TestListPortfoliosNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, slug := range []string{"one", "two", "three"} {
		if err := s.CreatePortfolio(ctx, newTestPortfolio(slug)); err != nil {
			t.Fatalf("CreatePortfolio %s: %v", slug, err)
		}
	}

	list, err := s.ListPortfolios(ctx)
	if err != nil {
		t.Fatalf("ListPortfolios: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 portfolios, got %d", len(list))
	}
	if list[0].Slug != "three" || list[2].Slug != "one" {
		t.Errorf("unexpected order: %s, %s, %s", list[0].Slug, list[1].Slug, list[2].Slug)
	}
}

func TestTogglePortfolio(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := newTestPortfolio("backend")
	if err := s.CreatePortfolio(ctx, p); err != nil {
		t.Fatalf("CreatePortfolio: %v", err)
	}

	off, err := s.TogglePortfolio(ctx, p.ID)
	if err != nil {
		t.Fatalf("TogglePortfolio: %v", err)
	}
	if off.IsEnabled {
		t.Error("expected portfolio disabled after first toggle")
	}
	on, err := s.TogglePortfolio(ctx, p.ID)
	if err != nil {
		t.Fatalf("TogglePortfolio: %v", err)
	}
	if !on.IsEnabled {
		t.Error("expected portfolio enabled after second toggle")
	}

	if _, err := s.TogglePortfolio(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
