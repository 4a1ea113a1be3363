// Package sqlite mirrors the Applied-Versions Store into an embedded,
// pure-Go SQLite database for operational inspection. It is supplemental
// to AVS's own file-backed contract, not a replacement for it: the AVS
// remains the source of truth and this mirror is best-effort.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS applied_versions (
	name TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_code TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// Mirror is an optional durable mirror of AVS upserts.
type Mirror struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the sqlite database at path and
// ensures its schema exists.
func Open(path string, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Mirror{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// Record upserts a single AVS entry into the mirror. Failures are logged
// rather than propagated: the mirror is a debugging aid, not a
// consistency requirement of the core engine.
func (m *Mirror) Record(ctx context.Context, e domain.AppliedEntry) {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO applied_versions (name, version, status, error_code, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version=excluded.version, status=excluded.status,
			error_code=excluded.error_code, updated_at=excluded.updated_at`,
		e.Name, e.Version, e.Status, e.ErrorCode, time.Now().UTC(),
	)
	if err != nil {
		m.logger.Warn("sqlite: failed to mirror applied-versions entry", "name", e.Name, "error", err)
	}
}
