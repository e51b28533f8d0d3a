package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/twapstream/indexer/internal/config"
)

const (
	migrationsDir = "migrations"

	// Scripts carrying this directive run statement by statement outside
	// a transaction, for DDL Postgres refuses to wrap (concurrent index
	// builds and the like).
	noTxDirective = "-- +no-transaction"
)

type migration struct {
	version string
	script  string
}

// RunMigrations brings the schema up to date from the embedded SQL
// files. Each file applies once; applied versions are tracked in
// schema_migrations.
func RunMigrations(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) error {
	connConfig, err := pgx.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}
	// Simple protocol lets a multi-statement file run as one Exec.
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return fmt.Errorf("failed to connect for migrations: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(applied)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Debug().Msg("Schema is up to date")
		return nil
	}

	for _, m := range pending {
		if err := applyMigration(ctx, conn, m); err != nil {
			return err
		}
		logger.Info().Str("version", m.version).Msg("Applied migration")
	}

	logger.Info().Int("count", len(pending)).Msg("Migrations complete")
	return nil
}

func appliedVersions(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// pendingMigrations lists the embedded scripts not yet applied, in
// filename order. The numeric filename prefix is the ordering.
func pendingMigrations(applied map[string]bool) ([]migration, error) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var pending []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}

		contents, err := migrationsFS.ReadFile(migrationsDir + "/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", version, err)
		}
		pending = append(pending, migration{
			version: version,
			script:  strings.TrimSpace(string(contents)),
		})
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].version < pending[j].version
	})
	return pending, nil
}

func applyMigration(ctx context.Context, conn *pgx.Conn, m migration) error {
	if hasNoTxDirective(m.script) {
		for _, stmt := range splitStatements(m.script) {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.version, err)
			}
		}
		if _, err := conn.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
		return nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if m.script != "" {
		if _, err := tx.Exec(ctx, m.script); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.version, err)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.version, err)
	}
	return nil
}

func hasNoTxDirective(script string) bool {
	for _, line := range strings.Split(script, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), noTxDirective) {
			return true
		}
	}
	return false
}

// splitStatements breaks a script into single statements on semicolons,
// dropping comment and blank lines first. Good enough for the DDL the
// embedded migrations carry; string literals holding semicolons would
// need a real parser.
func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var statements []string
	for _, part := range strings.Split(b.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
