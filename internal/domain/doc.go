// Package domain defines the entities of the registrar data access layer.
//
// # Entities
//
// Professor, Course and Student are plain value containers with exported,
// mutable scalar fields (Name, Email, Credits) and an identity that storage
// assigns once on insert.
//
// # Relations
//
// Student owns the many-to-many enrollment relation: Enroll and Drop change
// the owned course set, and the join table is written from that side.
// Course.Students is the derived view of the same relation and has no
// exported mutator. Course owns the many-to-one professor reference, which is
// mandatory; Professor.Courses is derived.
//
// Derived views are kept consistent by the session that manages the entities
// (see AttachEnrollment and friends), never by the entities themselves.
//
// # Identity
//
// Relation sets match elements by identity once an entity is persisted and
// by pointer while it is transient, so a re-fetched instance replaces a stale
// one instead of appearing twice.
//
// # Design Principles
//
// - No database or external dependencies
// - Validation rules are declared as struct tags and enforced by the session
package domain
