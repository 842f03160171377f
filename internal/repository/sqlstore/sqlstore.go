// Package sqlstore implements repository.Store over database/sql. It ships
// with two drivers: modernc.org/sqlite (the default, pure Go) and
// PostgreSQL through pgx. Statements are built with squirrel, rendering ?
// placeholders for SQLite and $n for PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"registrar/internal/domain"
	"registrar/internal/query"
	"registrar/internal/repository"
)

// Config selects the engine and connection string
type Config struct {
	// Driver is "sqlite" or "postgres"
	Driver string
	// DSN is a file path or URI for SQLite, a connection URL for PostgreSQL.
	// An empty or ":memory:" SQLite DSN opens a fresh in-memory database.
	DSN string
	// BusyTimeout bounds how long SQLite waits on a locked database
	BusyTimeout time.Duration
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*Tx)(nil)
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store
type Store struct {
	executor
	db *sql.DB
	// pin keeps a shared in-memory database alive while the pool is idle
	pin *sql.Conn
}

// Open connects to the configured engine and creates the schema if needed
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if d.name == DriverSQLite {
		// Each connection to a bare :memory: database gets its own copy, so
		// the pool shares one named database instead
		if dsn == "" || strings.HasPrefix(dsn, ":memory:") {
			dsn = memoryDSN()
		}
		if cfg.BusyTimeout <= 0 {
			cfg.BusyTimeout = 5 * time.Second
		}
		dsn = sqliteDSN(dsn, cfg.BusyTimeout)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger = logger.With().Str("component", "sqlstore").Str("driver", d.name).Logger()
	s := &Store{
		executor: executor{q: db, d: d, log: logger},
		db:       db,
	}
	if d.name == DriverSQLite && isMemory(dsn) {
		if s.pin, err = db.Conn(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Debug().Msg("store opened")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Begin starts a storage transaction
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{executor: executor{q: tx, d: s.d, log: s.log}, tx: tx}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.pin != nil {
		s.pin.Close()
	}
	return s.db.Close()
}

// DB exposes the underlying handle for tooling and tests
func (s *Store) DB() *sql.DB {
	return s.db
}

// ============================================================================
// Reads
// ============================================================================

// executor runs statements against a database or a transaction
type executor struct {
	q   querier
	d   dialect
	log zerolog.Logger
}

func (e *executor) exec(ctx context.Context, b squirrel.Sqlizer) (sql.Result, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build statement: %w", err)
	}
	e.log.Debug().Str("sql", stmt).Int("args", len(args)).Msg("exec")
	return e.q.ExecContext(ctx, stmt, args...)
}

func (e *executor) queryRecords(ctx context.Context, t domain.EntityType, b squirrel.Sqlizer) ([]repository.Record, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", t, err)
	}
	e.log.Debug().Str("sql", stmt).Int("args", len(args)).Msg("query")

	rows, err := e.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrap(err, "query %s", t)
	}
	defer rows.Close()

	var records []repository.Record
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(row.scanArgs(t)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t, err)
		}
		records = append(records, row.toRecord(t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", t, err)
	}
	return records, nil
}

func (e *executor) queryEnrollments(ctx context.Context, column string, ids []int64) ([]repository.Enrollment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	stmt, args, err := e.d.sb.Select("student_id", "course_id").
		From("enrollment").
		Where(squirrel.Eq{column: ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build enrollment query: %w", err)
	}
	e.log.Debug().Str("sql", stmt).Int("args", len(args)).Msg("query")

	rows, err := e.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrap(err, "query enrollments")
	}
	defer rows.Close()

	var out []repository.Enrollment
	for rows.Next() {
		var en repository.Enrollment
		if err := rows.Scan(&en.StudentID, &en.CourseID); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		out = append(out, en)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}
	return out, nil
}

// Fetch loads rows of type t by identity
func (e *executor) Fetch(ctx context.Context, t domain.EntityType, ids []int64) ([]repository.Record, error) {
	tb, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return e.queryRecords(ctx, t, e.d.sb.Select(tb.selectList("")...).
		From(tb.name).
		Where(squirrel.Eq{"id": ids}))
}

// Select runs a query request
func (e *executor) Select(ctx context.Context, q query.Query) ([]repository.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Empty() {
		return nil, nil
	}
	b, err := e.d.buildSelect(q)
	if err != nil {
		return nil, err
	}
	return e.queryRecords(ctx, q.Target, b)
}

// EnrollmentsByStudent loads the join rows owned by the given students
func (e *executor) EnrollmentsByStudent(ctx context.Context, studentIDs []int64) ([]repository.Enrollment, error) {
	return e.queryEnrollments(ctx, "student_id", studentIDs)
}

// EnrollmentsByCourse loads the join rows referencing the given courses
func (e *executor) EnrollmentsByCourse(ctx context.Context, courseIDs []int64) ([]repository.Enrollment, error) {
	return e.queryEnrollments(ctx, "course_id", courseIDs)
}

// CoursesByProfessor loads the courses taught by the given professors
func (e *executor) CoursesByProfessor(ctx context.Context, professorIDs []int64) ([]repository.Record, error) {
	if len(professorIDs) == 0 {
		return nil, nil
	}
	tb := tables[domain.TypeCourse]
	return e.queryRecords(ctx, domain.TypeCourse, e.d.sb.Select(tb.selectList("")...).
		From(tb.name).
		Where(squirrel.Eq{"professor_id": professorIDs}))
}

// ============================================================================
// Writes
// ============================================================================

// Tx implements repository.Tx
type Tx struct {
	executor
	tx *sql.Tx
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return wrap(err, "commit transaction")
	}
	return nil
}

// Rollback aborts the transaction
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Insert writes rec and returns its generated identity
func (t *Tx) Insert(ctx context.Context, rec repository.Record) (int64, error) {
	tb, err := tableFor(rec.Type)
	if err != nil {
		return 0, err
	}
	stmt, args, err := t.d.sb.Insert(tb.name).
		Columns(tb.columns...).
		Values(writeArgs(rec)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert %s: %w", rec.Type, err)
	}
	t.log.Debug().Str("sql", stmt).Str("entity", string(rec.Type)).Msg("insert")

	var id int64
	if err := t.q.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, wrap(err, "insert %s", rec.Type)
	}
	return id, nil
}

// Update overwrites every writable column of rec.ID
func (t *Tx) Update(ctx context.Context, rec repository.Record) (int64, error) {
	tb, err := tableFor(rec.Type)
	if err != nil {
		return 0, err
	}
	b := t.d.sb.Update(tb.name)
	for i, v := range writeArgs(rec) {
		b = b.Set(tb.columns[i], v)
	}

	res, err := t.exec(ctx, b.Where(squirrel.Eq{"id": rec.ID}))
	if err != nil {
		return 0, wrap(err, "update %s %d", rec.Type, rec.ID)
	}
	return rowsAffected(res)
}

// Delete removes one row
func (t *Tx) Delete(ctx context.Context, et domain.EntityType, id int64) (int64, error) {
	tb, err := tableFor(et)
	if err != nil {
		return 0, err
	}
	res, err := t.exec(ctx, t.d.sb.Delete(tb.name).Where(squirrel.Eq{"id": id}))
	if err != nil {
		return 0, wrap(err, "delete %s %d", et, id)
	}
	return rowsAffected(res)
}

// Enroll inserts a join row
func (t *Tx) Enroll(ctx context.Context, e repository.Enrollment) error {
	_, err := t.exec(ctx, t.d.sb.Insert("enrollment").
		Columns("student_id", "course_id").
		Values(e.StudentID, e.CourseID))
	return wrap(err, "enroll student %d in course %d", e.StudentID, e.CourseID)
}

// Unenroll removes a join row
func (t *Tx) Unenroll(ctx context.Context, e repository.Enrollment) error {
	_, err := t.exec(ctx, t.d.sb.Delete("enrollment").
		Where(squirrel.Eq{"student_id": e.StudentID}).
		Where(squirrel.Eq{"course_id": e.CourseID}))
	return wrap(err, "unenroll student %d from course %d", e.StudentID, e.CourseID)
}

// DeleteEnrollments removes every join row referencing a student or course
func (t *Tx) DeleteEnrollments(ctx context.Context, et domain.EntityType, id int64) (int64, error) {
	var column string
	switch et {
	case domain.TypeStudent:
		column = "student_id"
	case domain.TypeCourse:
		column = "course_id"
	default:
		return 0, fmt.Errorf("%s has no enrollments", et)
	}
	res, err := t.exec(ctx, t.d.sb.Delete("enrollment").Where(squirrel.Eq{column: id}))
	if err != nil {
		return 0, wrap(err, "delete enrollments of %s %d", et, id)
	}
	return rowsAffected(res)
}

// UpdateWhere runs a bulk update as one statement
func (t *Tx) UpdateWhere(ctx context.Context, u query.Update) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, err
	}
	if u.Empty() {
		return 0, nil
	}
	b, err := t.d.buildUpdate(u)
	if err != nil {
		return 0, err
	}
	res, err := t.exec(ctx, b)
	if err != nil {
		return 0, wrap(err, "bulk update %s", u.Target)
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
