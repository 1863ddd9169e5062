package database

import (
	"context"
	"fmt"
	"strings"
)

// RunLogTable holds one row per completed training run.
const RunLogTable = "training_runs"

// MissingRelations returns the names, out of relations, that are neither a
// table nor a view in the public schema.
func (db *DB) MissingRelations(ctx context.Context, relations ...string) ([]string, error) {
	var missing []string
	for _, name := range relations {
		var exists bool
		query := `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public'
				AND table_name = $1
			)`
		if err := db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", name, err)
		}
		if !exists {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// CheckSchema fails when any relation is missing.
func (db *DB) CheckSchema(ctx context.Context, relations ...string) error {
	missing, err := db.MissingRelations(ctx, relations...)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing relations: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (db *DB) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}
