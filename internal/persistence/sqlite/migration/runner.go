package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const versionTable = "schema_migrations"

// Runner applies pending migrations and records them in schema_migrations.
type Runner struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner builds a runner for db. placeholder must match the driver.
func NewRunner(db *sql.DB, placeholder sq.PlaceholderFormat, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  logger.With("component", "migration"),
		now:     time.Now,
	}
}

// Run applies every migration in dir that has not been applied yet.
func (r *Runner) Run(ctx context.Context, fsys fs.FS, dir string) error {
	if err := r.initVersionTable(ctx); err != nil {
		return err
	}

	migrations, err := Scan(fsys, dir)
	if err != nil {
		return err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	done := make(map[string]struct{}, len(applied))
	for _, version := range applied {
		done[version] = struct{}{}
	}

	pending := 0
	for _, m := range migrations {
		if _, ok := done[m.Version]; ok {
			continue
		}
		pending++
		started := r.now()
		if err := r.apply(ctx, m); err != nil {
			r.logger.ErrorContext(ctx, "migration failed", "version", m.Version, "file", m.File, "error", err)
			return err
		}
		r.logger.InfoContext(ctx, "migration applied",
			"version", m.Version,
			"description", m.Description,
			"duration", time.Since(started),
		)
	}

	r.logger.InfoContext(ctx, "schema up to date", "applied", len(applied)+pending, "new", pending)
	return nil
}

// Applied returns the applied versions in ascending order.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	query, args, err := r.builder.Select("version").From(versionTable).OrderBy("version").ToSql()
	if err != nil {
		return nil, fmt.Errorf("migration: build select: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("migration: list applied versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("migration: scan version: %w", err)
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (r *Runner) initVersionTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+versionTable+` (
		version TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return &Error{File: versionTable, Operation: "create version table", Err: err}
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, m Migration) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Version: m.Version, File: m.File, Operation: "begin transaction", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range splitStatements(m.SQL) {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return &Error{
				Version:   m.Version,
				File:      m.File,
				Operation: fmt.Sprintf("execute statement %d", i+1),
				Err:       fmt.Errorf("%w: %v", ErrMigrationFailed, execErr),
			}
		}
	}

	query, args, buildErr := r.builder.Insert(versionTable).
		Columns("version", "description", "checksum", "applied_at").
		Values(m.Version, m.Description, m.Checksum, r.now().UTC().Format(time.RFC3339)).
		ToSql()
	if buildErr != nil {
		return &Error{Version: m.Version, File: m.File, Operation: "build record", Err: buildErr}
	}
	if _, execErr := tx.ExecContext(ctx, query, args...); execErr != nil {
		return &Error{Version: m.Version, File: m.File, Operation: "record migration", Err: execErr}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return &Error{Version: m.Version, File: m.File, Operation: "commit", Err: commitErr}
	}
	return nil
}
