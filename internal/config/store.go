package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rolecraft/rolecraft/internal/model"
)

// Store persists administrator accounts and their pending OTP challenges.
// SQLite is the default backend; Postgres and MySQL are selected with Open.
type Store struct {
	db      *sqlx.DB
	dialect *dialect
}

// NewStore creates a SQLite-backed store under dataDir. Pass empty string for
// in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "rolecraft.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return Open("sqlite", dsn)
}

// Open connects to the named backend ("sqlite", "postgres" or "mysql") and
// applies migrations.
func Open(driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if driver == "mysql" {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		// DATETIME columns must scan into time.Time.
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	}

	db, err := sqlx.Connect(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate credential database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Admin rows
// ---------------------------------------------------------------------------

// adminRow maps 1:1 to the admins table. The OTP columns are flattened here
// and folded into model.OTPChallenge by toModel.
type adminRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	OTPHash      sql.NullString `db:"otp_hash"`
	OTPExpiresMs sql.NullInt64  `db:"otp_expires_ms"`
	LastLoginAt  *time.Time     `db:"last_login_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

const adminColumns = `id, email, password_hash, otp_hash, otp_expires_ms, last_login_at, created_at, updated_at`

func (r adminRow) toModel() *model.Admin {
	a := &model.Admin{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		LastLoginAt:  r.LastLoginAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.OTPHash.Valid && r.OTPHash.String != "" && r.OTPExpiresMs.Valid {
		a.OTP = &model.OTPChallenge{
			HashedCode: r.OTPHash.String,
			ExpiresAt:  time.UnixMilli(r.OTPExpiresMs.Int64).UTC(),
		}
	}
	return a
}

func (s *Store) getAdmin(ctx context.Context, where string, arg interface{}) (*model.Admin, error) {
	var row adminRow
	q := s.db.Rebind("SELECT " + adminColumns + " FROM admins WHERE " + where)
	if err := s.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// ---------------------------------------------------------------------------
// Admin CRUD
// ---------------------------------------------------------------------------

// CreateAdmin inserts a new admin account. PasswordHash must already hold a
// hash; the ID, CreatedAt, and UpdatedAt fields are populated after insert.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	if err := prepareInsert(admin); err != nil {
		return err
	}

	const q = `INSERT INTO admins (id, email, password_hash, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, adminRowFromModel(admin)); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// CreateFirstAdmin inserts admin only if the admins table is empty. The
// emptiness check and the insert are one statement, and the row carries the
// unique bootstrap guard, so of two concurrent bootstrap calls at most one
// commits even where both observe an empty table. Returns ErrAdminExists
// otherwise.
func (s *Store) CreateFirstAdmin(ctx context.Context, admin *model.Admin) error {
	if err := prepareInsert(admin); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(s.dialect.insertFirstAdmin),
		admin.ID, admin.Email, admin.PasswordHash, admin.CreatedAt, admin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAdminExists
		}
		return fmt.Errorf("insert first admin: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert first admin rows affected: %w", err)
	}
	if n == 0 {
		return ErrAdminExists
	}
	return nil
}

func prepareInsert(admin *model.Admin) error {
	admin.Email = model.NormalizeEmail(admin.Email)
	if admin.Email == "" {
		return errors.New("insert admin: email is required")
	}
	if admin.PasswordHash == "" {
		return errors.New("insert admin: password hash is required")
	}
	admin.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	admin.OTP = nil
	return nil
}

func adminRowFromModel(a *model.Admin) adminRow {
	return adminRow{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		LastLoginAt:  a.LastLoginAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	a, err := s.getAdmin(ctx, "id = ?", id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, err
}

// GetAdminByEmail returns an admin by email address. The lookup is
// case-insensitive and ignores surrounding whitespace.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a, err := s.getAdmin(ctx, "email = ?", model.NormalizeEmail(email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return a, err
}

// ListAdmins returns all admin accounts ordered by creation time.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var rows []adminRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+adminColumns+" FROM admins ORDER BY created_at, id"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	admins := make([]model.Admin, len(rows))
	for i, r := range rows {
		admins[i] = *r.toModel()
	}
	return admins, nil
}

// CountAdmins returns the number of admin accounts.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

// HasAnyAdmin reports whether at least one admin account exists. This is used
// for first-run detection.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	n, err := s.CountAdmins(ctx)
	return n > 0, err
}

// UpdateAdminLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.execOne(ctx, "update admin last login",
		"UPDATE admins SET last_login_at = ?, updated_at = ? WHERE id = ?", now, now, id)
}

// UpdatePassword replaces the password hash and drops any outstanding OTP
// challenge.
func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.execOne(ctx, "update admin password",
		`UPDATE admins SET password_hash = ?, otp_hash = NULL, otp_expires_ms = NULL, updated_at = ?
		WHERE id = ?`, passwordHash, time.Now().UTC(), id)
}

// ---------------------------------------------------------------------------
// OTP challenges
// ---------------------------------------------------------------------------

// SetOTPChallenge stores hash as the admin's only outstanding challenge,
// replacing any earlier one.
func (s *Store) SetOTPChallenge(ctx context.Context, id, hash string, expiresAt time.Time) error {
	return s.execOne(ctx, "set otp challenge",
		"UPDATE admins SET otp_hash = ?, otp_expires_ms = ?, updated_at = ? WHERE id = ?",
		hash, expiresAt.UnixMilli(), time.Now().UTC(), id)
}

// ClearOTPChallenge removes the admin's challenge if it is still the one
// identified by hash. A challenge that has since been replaced is left alone.
// Returns ErrNotFound when nothing was cleared.
func (s *Store) ClearOTPChallenge(ctx context.Context, id, hash string) error {
	return s.execOne(ctx, "clear otp challenge",
		`UPDATE admins SET otp_hash = NULL, otp_expires_ms = NULL, updated_at = ?
		WHERE id = ? AND otp_hash = ?`, time.Now().UTC(), id, hash)
}

// ConsumeOTPByID atomically checks that admin id holds an unexpired challenge
// matching hash and, if so, sets passwordHash and clears the challenge. The
// check and the mutation are a single UPDATE, so a code can be consumed at
// most once even under concurrent requests. Returns ErrNotFound when the
// challenge does not match, has expired or was already consumed.
func (s *Store) ConsumeOTPByID(ctx context.Context, id, hash string, now time.Time, passwordHash string) error {
	return s.execOne(ctx, "consume otp",
		`UPDATE admins SET password_hash = ?, otp_hash = NULL, otp_expires_ms = NULL, updated_at = ?
		WHERE id = ? AND otp_hash = ? AND otp_expires_ms > ?`,
		passwordHash, now.UTC(), id, hash, now.UnixMilli())
}

// ConsumeOTPByEmail is ConsumeOTPByID keyed on the normalised email address.
func (s *Store) ConsumeOTPByEmail(ctx context.Context, email, hash string, now time.Time, passwordHash string) error {
	return s.execOne(ctx, "consume otp",
		`UPDATE admins SET password_hash = ?, otp_hash = NULL, otp_expires_ms = NULL, updated_at = ?
		WHERE email = ? AND otp_hash = ? AND otp_expires_ms > ?`,
		passwordHash, now.UTC(), model.NormalizeEmail(email), hash, now.UnixMilli())
}

// execOne runs a single-row UPDATE and maps zero affected rows to ErrNotFound.
func (s *Store) execOne(ctx context.Context, op, q string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
