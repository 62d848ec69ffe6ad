package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMigrationFile is returned for files that do not follow the naming convention.
	ErrInvalidMigrationFile = errors.New("migration: invalid migration file")
	// ErrDuplicateVersion is returned when two files share a version.
	ErrDuplicateVersion = errors.New("migration: duplicate version")
	// ErrEmptyMigration is returned for files without statements.
	ErrEmptyMigration = errors.New("migration: no SQL statements found")
	// ErrMigrationFailed is returned when a migration could not be applied.
	ErrMigrationFailed = errors.New("migration: execution failed")
)

// Error adds the version and operation to a migration failure.
type Error struct {
	Version   string
	File      string
	Operation string
	Err       error
}

func (e *Error) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("migration %s: %s: %v", e.File, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.File, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
