package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"registrar/internal/apperrors"
)

// isConstraint reports whether err is an integrity violation: SQLite primary
// result code SQLITE_CONSTRAINT or PostgreSQL SQLSTATE class 23
func isConstraint(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}

// wrap classifies a driver error. Integrity violations become
// ErrConstraintViolation, everything else is wrapped as is.
func wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if isConstraint(err) {
		return apperrors.NewConstraintError(msg, err)
	}
	return fmt.Errorf("failed to %s: %w", msg, err)
}
