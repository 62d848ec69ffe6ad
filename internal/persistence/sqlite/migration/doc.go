// Package migration applies versioned SQL schema changes.
//
// Migration files are named {version}_{description}.sql (for example
// "001_snapshot_schema.sql") and are read from an fs.FS, usually an embedded
// directory. Applied versions are tracked in the schema_migrations table so
// each file runs once, inside its own transaction.
//
// Example usage:
//
//	runner := migration.NewRunner(db, sq.Question, logger)
//	if err := runner.Run(ctx, files, "migrations"); err != nil {
//		return err
//	}
package migration
