package config

import (
	"fmt"
	"strings"
)

// dialect captures the SQL that differs between the supported backends.
type dialect struct {
	driver     string // database/sql driver name
	migrations []string

	// insertFirstAdmin inserts (id, email, password_hash, created_at, updated_at)
	// only when the admins table is empty, in a single statement.
	insertFirstAdmin string
}

var dialects = map[string]*dialect{
	"sqlite": {
		driver: "sqlite",
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS admins (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				last_login_at DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,

			// v2: inline OTP challenge. Expiry is unix milliseconds so the
			// guarded UPDATE compares integers, not formatted timestamps.
			`ALTER TABLE admins ADD COLUMN otp_hash TEXT`,
			`ALTER TABLE admins ADD COLUMN otp_expires_ms INTEGER`,

			// v3: only the bootstrap insert sets the guard, so a second
			// concurrent bootstrap fails on the unique index.
			`ALTER TABLE admins ADD COLUMN bootstrap_guard INTEGER`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_admins_bootstrap_guard ON admins (bootstrap_guard)`,

			`CREATE TABLE IF NOT EXISTS portfolios (
				id TEXT PRIMARY KEY,
				slug TEXT UNIQUE NOT NULL,
				job_role TEXT NOT NULL,
				theme TEXT NOT NULL DEFAULT 'dark',
				is_enabled INTEGER NOT NULL DEFAULT 1,
				content TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_portfolios_enabled ON portfolios (is_enabled)`,
		},
		insertFirstAdmin: `INSERT INTO admins (id, email, password_hash, created_at, updated_at, bootstrap_guard)
			SELECT ?, ?, ?, ?, ?, 1
			WHERE NOT EXISTS (SELECT 1 FROM admins)`,
	},

	"postgres": {
		driver: "pgx",
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS admins (
				id VARCHAR(36) PRIMARY KEY,
				email VARCHAR(320) UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				last_login_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`ALTER TABLE admins ADD COLUMN IF NOT EXISTS otp_hash VARCHAR(64)`,
			`ALTER TABLE admins ADD COLUMN IF NOT EXISTS otp_expires_ms BIGINT`,
			`ALTER TABLE admins ADD COLUMN IF NOT EXISTS bootstrap_guard SMALLINT`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_admins_bootstrap_guard ON admins (bootstrap_guard)`,
			`CREATE TABLE IF NOT EXISTS portfolios (
				id VARCHAR(36) PRIMARY KEY,
				slug VARCHAR(255) UNIQUE NOT NULL,
				job_role TEXT NOT NULL,
				theme VARCHAR(16) NOT NULL DEFAULT 'dark',
				is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				content TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_portfolios_enabled ON portfolios (is_enabled)`,
		},
		// Parameters in a bare SELECT list have no inferred type in Postgres.
		// Under READ COMMITTED both sides of a race can pass NOT EXISTS; the
		// unique bootstrap_guard makes the later insert fail instead.
		insertFirstAdmin: `INSERT INTO admins (id, email, password_hash, created_at, updated_at, bootstrap_guard)
			SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TIMESTAMPTZ), CAST(? AS TIMESTAMPTZ), 1
			WHERE NOT EXISTS (SELECT 1 FROM admins)`,
	},

	"mysql": {
		driver: "mysql",
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS admins (
				id VARCHAR(36) PRIMARY KEY,
				email VARCHAR(320) NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				last_login_at DATETIME(6) NULL,
				created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
				updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
				UNIQUE KEY uq_admins_email (email)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`ALTER TABLE admins ADD COLUMN otp_hash VARCHAR(64) NULL`,
			`ALTER TABLE admins ADD COLUMN otp_expires_ms BIGINT NULL`,
			`ALTER TABLE admins ADD COLUMN bootstrap_guard TINYINT NULL`,
			`CREATE UNIQUE INDEX uq_admins_bootstrap_guard ON admins (bootstrap_guard)`,
			`CREATE TABLE IF NOT EXISTS portfolios (
				id VARCHAR(36) PRIMARY KEY,
				slug VARCHAR(255) NOT NULL,
				job_role VARCHAR(255) NOT NULL,
				theme VARCHAR(16) NOT NULL DEFAULT 'dark',
				is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				content LONGTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
				updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
				UNIQUE KEY uq_portfolios_slug (slug),
				KEY idx_portfolios_enabled (is_enabled)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		},
		insertFirstAdmin: `INSERT INTO admins (id, email, password_hash, created_at, updated_at, bootstrap_guard)
			SELECT ?, ?, ?, ?, ?, 1 FROM DUAL
			WHERE NOT EXISTS (SELECT 1 FROM admins)`,
	},
}

// Drivers returns the names accepted by Open.
func Drivers() []string {
	return []string{"sqlite", "postgres", "mysql"}
}

func (s *Store) migrate() error {
	for _, m := range s.dialect.migrations {
		if _, err := s.db.Exec(m); err != nil {
			// ALTER TABLE ADD COLUMN and MySQL's CREATE INDEX have no
			// IF NOT EXISTS; an existing column or index is a no-op.
			if isAlreadyApplied(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

func isAlreadyApplied(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "duplicate column") ||
		strings.Contains(lower, "duplicate key name")
}

// isUniqueViolation reports whether err is a unique-constraint failure in any
// of the supported dialects.
func isUniqueViolation(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}
