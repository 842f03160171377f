// Package session implements the unit of work over a repository.Store.
//
// A Session tracks managed entities in an identity map keyed by
// (type, identity), so a session never holds two instances for the same row.
// Materializing an entity materializes what it references: a student comes
// with its courses and a course with its professor. The Student side owns the
// enrollment relation and the Course side owns the teaching relation. The
// derived sides (Course.Students, Professor.Courses) are read on demand by
// Initialize; until then they hold the managed members only. After every
// session call the derived sides of managed entities agree with the owning
// sides.
//
// Mutating calls require an open transaction. Changes to managed entities are
// detected by comparing their column state with the snapshot taken when they
// were read or last written, and are written on Flush, on Commit and before
// any storage read inside the transaction. Entities are not written while marked
// read-only.
//
// A Session is not safe for concurrent use. Any number of sessions may share
// one Factory.
package session
