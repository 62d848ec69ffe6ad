package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/example/facility-scheduler/internal/persistence"
)

// mapError translates driver errors into persistence sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("sqlite: %s: %w", op, persistence.ErrDuplicate)
		case "23503":
			return fmt.Errorf("sqlite: %s: %w", op, persistence.ErrForeignKeyViolation)
		case "23514", "23502":
			return fmt.Errorf("sqlite: %s: %w", op, persistence.ErrConstraintViolation)
		}
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("sqlite: %s: %w", op, persistence.ErrDuplicate)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("sqlite: %s: %w", op, persistence.ErrForeignKeyViolation)
	case strings.Contains(msg, "CHECK constraint failed"), strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("sqlite: %s: %w", op, persistence.ErrConstraintViolation)
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}
