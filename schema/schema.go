package schema

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed *.sql
var Migrations embed.FS

// VersionTable is the table that tern keeps the schema version in.
const VersionTable = "schema_version"

// Migrate brings the database schema up to the current version.
func Migrate(ctx context.Context, conn *pgx.Conn) (int32, error) {
	m, err := migrate.NewMigrator(ctx, conn, VersionTable)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	err = m.LoadMigrations(Migrations)
	if err != nil {
		return 0, fmt.Errorf("load migrations: %w", err)
	}

	err = m.Migrate(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate to current DB schema: %w", err)
	}

	version, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	return version, nil
}
