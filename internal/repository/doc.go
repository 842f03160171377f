// Package repository defines the storage collaborator used by the session layer.
//
// Storage works in flat records rather than entity graphs: one Record per
// professor, course or student row, and one Enrollment per join row. The
// session layer owns identity, relation wiring and change tracking; storage
// only reads and writes rows. The implementation lives in the sqlstore
// subpackage.
//
// # Reads
//
// Fetch loads rows by identity in one batched IN query. Select translates a
// query.Query into SQL, including joins through the enrollment table or the
// course professor column. The Enrollments* and CoursesByProfessor methods
// load the relation rows needed to hydrate a graph of entities.
//
// # Writes
//
// Writes are only available inside a Tx. Insert returns the generated
// identity; Update and Delete return the affected row count so callers can
// detect rows that disappeared. Integrity failures are reported as
// apperrors.ErrConstraintViolation with the driver error as cause.
//
// # Testing
//
// The sqlstore implementation is tested against on-disk SQLite databases
// created per test.
package repository
