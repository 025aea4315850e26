// Package migrations selects the embedded payout schema for a database driver.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	payouts "github.com/goliatone/go-payouts"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	migrationsDir = "data/sql/migrations"
)

// RegisterFunc receives the validated migrations of one dialect.
type RegisterFunc func(ctx context.Context, fsys fs.FS) error

// DialectForDriver maps a database/sql driver name to its migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: unsupported database driver %q", driver)
	}
}

// Filesystem returns the embedded migrations for dialect.
func Filesystem(dialect string) (fs.FS, error) {
	return filesystemFrom(payouts.GetMigrationsFS(), dialect)
}

// filesystemFrom resolves the dialect directory under source and checks that
// every up migration ships with its rollback.
func filesystemFrom(source fs.FS, dialect string) (fs.FS, error) {
	dir := migrationsDir
	switch dialect {
	case DialectPostgres:
	case DialectSQLite:
		dir += "/sqlite"
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	fsys, err := fs.Sub(source, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", dir, err)
	}
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s: %w", dir, err)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("migrations: %s has no *.up.sql files", dir)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(fsys, down); err != nil {
			return nil, fmt.Errorf("migrations: %s/%s has no rollback %s", dir, up, down)
		}
	}
	return fsys, nil
}

// Register hands the migrations for dialect to fn.
func Register(ctx context.Context, dialect string, fn RegisterFunc) error {
	if fn == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	fsys, err := Filesystem(dialect)
	if err != nil {
		return err
	}
	if err := fn(ctx, fsys); err != nil {
		return fmt.Errorf("migrations: register %s: %w", dialect, err)
	}
	return nil
}
