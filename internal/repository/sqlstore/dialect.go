package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Driver names accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect captures the few places where the two engines disagree
type dialect struct {
	name       string
	driverName string
	schema     []string
	// sb renders statements with the engine's placeholder format
	sb squirrel.StatementBuilderType
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", DriverSQLite:
		return dialect{
			name:       DriverSQLite,
			driverName: "sqlite",
			schema:     sqliteSchema,
			sb:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		}, nil
	case DriverPostgres, "pgx":
		return dialect{
			name:       DriverPostgres,
			driverName: "pgx",
			schema:     postgresSchema,
			sb:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		}, nil
	}
	return dialect{}, fmt.Errorf("unsupported driver %q", driver)
}

// paginate applies LIMIT/OFFSET. SQLite cannot take OFFSET without LIMIT, so
// an unbounded page uses LIMIT -1.
func (d dialect) paginate(b squirrel.SelectBuilder, offset, limit int, hasLimit bool) squirrel.SelectBuilder {
	switch {
	case hasLimit:
		return b.Limit(uint64(limit)).Offset(uint64(offset))
	case offset == 0:
		return b
	case d.name == DriverSQLite:
		return b.Suffix(fmt.Sprintf("LIMIT -1 OFFSET %d", offset))
	default:
		return b.Offset(uint64(offset))
	}
}

// memoryDSN names a private in-memory database that every connection of one
// pool shares
func memoryDSN() string {
	return fmt.Sprintf("file:registrar-%s?mode=memory&cache=shared", uuid.NewString())
}

// sqliteDSN adds the pragmas every connection needs: enforced foreign keys,
// a busy timeout and WAL journaling for file databases
func sqliteDSN(dsn string, busyTimeout time.Duration) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeout.Milliseconds()),
	}
	if !isMemory(dsn) {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS professor (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS course (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		credits REAL NOT NULL DEFAULT 0,
		professor_id INTEGER NOT NULL REFERENCES professor(id)
	)`,
	`CREATE TABLE IF NOT EXISTS student (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS enrollment (
		student_id INTEGER NOT NULL REFERENCES student(id),
		course_id INTEGER NOT NULL REFERENCES course(id),
		PRIMARY KEY (student_id, course_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_course_professor ON course(professor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollment_course ON enrollment(course_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS professor (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS course (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		credits DOUBLE PRECISION NOT NULL DEFAULT 0,
		professor_id BIGINT NOT NULL REFERENCES professor(id)
	)`,
	`CREATE TABLE IF NOT EXISTS student (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS enrollment (
		student_id BIGINT NOT NULL REFERENCES student(id),
		course_id BIGINT NOT NULL REFERENCES course(id),
		PRIMARY KEY (student_id, course_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_course_professor ON course(professor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollment_course ON enrollment(course_id)`,
}
