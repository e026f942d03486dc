package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the embedded schema files in name order.
// Every statement is idempotent, so it is safe to run on each start.
func Migrate(ctx context.Context, dbtx DBTX) error {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("fs.Glob: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		ddl, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("schemaFS.ReadFile[%s]: %w", name, err)
		}

		if _, err := dbtx.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("dbtx.Exec[%s]: %w", name, err)
		}
	}

	return nil
}
