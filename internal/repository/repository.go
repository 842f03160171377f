package repository

import (
	"context"

	"registrar/internal/domain"
	"registrar/internal/query"
)

// Record is the column state of one entity row. Fields that do not belong to
// Type are left zero.
type Record struct {
	Type        domain.EntityType
	ID          int64
	Name        string
	Email       string
	Credits     float64
	ProfessorID int64
}

// Key returns the identity map key of the row
func (r Record) Key() domain.Key {
	return domain.Key{Type: r.Type, ID: r.ID}
}

// Enrollment is one row of the student/course join table
type Enrollment struct {
	StudentID int64
	CourseID  int64
}

// Reader defines row-level read access
type Reader interface {
	// Fetch returns the rows of type t with the given identities. Missing
	// identities are skipped; order is unspecified.
	Fetch(ctx context.Context, t domain.EntityType, ids []int64) ([]Record, error)

	// Select runs a validated query and returns matching rows in query order
	Select(ctx context.Context, q query.Query) ([]Record, error)

	// Relation loading
	EnrollmentsByStudent(ctx context.Context, studentIDs []int64) ([]Enrollment, error)
	EnrollmentsByCourse(ctx context.Context, courseIDs []int64) ([]Enrollment, error)
	CoursesByProfessor(ctx context.Context, professorIDs []int64) ([]Record, error)
}

// Writer defines row-level write access
type Writer interface {
	// Insert writes rec and returns the identity storage generated for it
	Insert(ctx context.Context, rec Record) (int64, error)
	// Update overwrites the columns of rec.ID and returns the affected row count
	Update(ctx context.Context, rec Record) (int64, error)
	// Delete removes one row and returns the affected row count
	Delete(ctx context.Context, t domain.EntityType, id int64) (int64, error)

	// Join table
	Enroll(ctx context.Context, e Enrollment) error
	Unenroll(ctx context.Context, e Enrollment) error
	// DeleteEnrollments removes every join row referencing the student or course id
	DeleteEnrollments(ctx context.Context, t domain.EntityType, id int64) (int64, error)

	// UpdateWhere runs a validated bulk update as one statement
	UpdateWhere(ctx context.Context, u query.Update) (int64, error)
}

// Tx is a storage transaction. Reads through a Tx see its own writes.
type Tx interface {
	Reader
	Writer
	Commit() error
	Rollback() error
}

// Store is a handle on the relational engine, safe for concurrent use
type Store interface {
	Reader
	Begin(ctx context.Context) (Tx, error)
	Close() error
}
