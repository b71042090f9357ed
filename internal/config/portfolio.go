package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rolecraft/rolecraft/internal/model"
)

// portfolioRow maps 1:1 to the portfolios table. Content is the JSON encoding
// of model.PortfolioContent.
type portfolioRow struct {
	ID        string    `db:"id"`
	Slug      string    `db:"slug"`
	JobRole   string    `db:"job_role"`
	Theme     string    `db:"theme"`
	IsEnabled bool      `db:"is_enabled"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const portfolioColumns = `id, slug, job_role, theme, is_enabled, content, created_at, updated_at`

func (r portfolioRow) toModel() (*model.Portfolio, error) {
	p := &model.Portfolio{
		ID:        r.ID,
		Slug:      r.Slug,
		JobRole:   r.JobRole,
		Theme:     r.Theme,
		IsEnabled: r.IsEnabled,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Content), &p.PortfolioContent); err != nil {
		return nil, fmt.Errorf("decode portfolio %s content: %w", r.ID, err)
	}
	return p, nil
}

func portfolioRowFromModel(p *model.Portfolio) (portfolioRow, error) {
	content, err := json.Marshal(p.PortfolioContent)
	if err != nil {
		return portfolioRow{}, fmt.Errorf("encode portfolio content: %w", err)
	}
	return portfolioRow{
		ID:        p.ID,
		Slug:      p.Slug,
		JobRole:   p.JobRole,
		Theme:     p.Theme,
		IsEnabled: p.IsEnabled,
		Content:   string(content),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// CreatePortfolio inserts p. The ID, CreatedAt, and UpdatedAt fields are
// populated before insert. Returns ErrDuplicateSlug if the slug is taken.
func (s *Store) CreatePortfolio(ctx context.Context, p *model.Portfolio) error {
	p.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	row, err := portfolioRowFromModel(p)
	if err != nil {
		return err
	}

	const q = `INSERT INTO portfolios (id, slug, job_role, theme, is_enabled, content, created_at, updated_at)
		VALUES (:id, :slug, :job_role, :theme, :is_enabled, :content, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

func (s *Store) getPortfolio(ctx context.Context, q sqlxQueryer, where string, arg interface{}) (*model.Portfolio, error) {
	var row portfolioRow
	query := s.db.Rebind("SELECT " + portfolioColumns + " FROM portfolios WHERE " + where)
	if err := q.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	return row.toModel()
}

// GetPortfolio returns a portfolio by ID.
func (s *Store) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	return s.getPortfolio(ctx, s.db, "id = ?", id)
}

// GetPortfolioBySlug returns a portfolio by slug, enabled or not.
func (s *Store) GetPortfolioBySlug(ctx context.Context, slug string) (*model.Portfolio, error) {
	return s.getPortfolio(ctx, s.db, "slug = ?", slug)
}

// ListPortfolios returns all portfolios, newest first.
func (s *Store) ListPortfolios(ctx context.Context) ([]model.Portfolio, error) {
	var rows []portfolioRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT "+portfolioColumns+" FROM portfolios ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}

	portfolios := make([]model.Portfolio, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *p)
	}
	return portfolios, nil
}

// UpdatePortfolio overwrites every mutable column of the portfolio with
// p.ID and refreshes UpdatedAt. Returns ErrNotFound or ErrDuplicateSlug.
func (s *Store) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	p.UpdatedAt = time.Now().UTC()
	row, err := portfolioRowFromModel(p)
	if err != nil {
		return err
	}

	err = s.execOne(ctx, "update portfolio",
		`UPDATE portfolios SET slug = ?, job_role = ?, theme = ?, is_enabled = ?, content = ?, updated_at = ?
		WHERE id = ?`,
		row.Slug, row.JobRole, row.Theme, row.IsEnabled, row.Content, row.UpdatedAt, row.ID)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	return err
}

// DeletePortfolio removes a portfolio. Returns ErrNotFound if it does not exist.
func (s *Store) DeletePortfolio(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete portfolio", "DELETE FROM portfolios WHERE id = ?", id)
}

// TogglePortfolio flips the enabled flag of a portfolio and returns the
// updated record. The flip and the read share a transaction.
func (s *Store) TogglePortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("toggle portfolio: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, tx.Rebind(
		"UPDATE portfolios SET is_enabled = NOT is_enabled, updated_at = ? WHERE id = ?"),
		time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("toggle portfolio: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("toggle portfolio rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	p, err := s.getPortfolio(ctx, tx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("toggle portfolio commit: %w", err)
	}
	return p, nil
}

// sqlxQueryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type sqlxQueryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
