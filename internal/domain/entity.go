package domain

import (
	"fmt"
)

// EntityType names one of the three mapped tables
type EntityType string

const (
	TypeProfessor EntityType = "professor"
	TypeCourse    EntityType = "course"
	TypeStudent   EntityType = "student"
)

// EntityTypes lists every entity type in foreign key dependency order:
// professors before the courses that reference them, courses before students
var EntityTypes = []EntityType{TypeProfessor, TypeCourse, TypeStudent}

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	switch t {
	case TypeProfessor, TypeCourse, TypeStudent:
		return true
	}
	return false
}

// Rank returns the position of t in EntityTypes, or -1 if unknown
func (t EntityType) Rank() int {
	for i, et := range EntityTypes {
		if et == t {
			return i
		}
	}
	return -1
}

// Entity is implemented by *Student, *Course and *Professor.
// EntityType must not dereference the receiver so it can be called on a nil pointer.
type Entity interface {
	EntityType() EntityType
	ID() int64
}

// Key identifies an entity within storage and within a session's identity map
type Key struct {
	Type EntityType
	ID   int64
}

// KeyOf returns the key of e
func KeyOf(e Entity) Key {
	return Key{Type: e.EntityType(), ID: e.ID()}
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Type, k.ID)
}

// identifiable is satisfied by all entity pointers in this package
type identifiable interface {
	Entity
	setID(id int64)
}

// AssignIdentity records the identity storage generated for e.
// Identities are assigned once; a second assignment fails.
func AssignIdentity(e Entity, id int64) error {
	ie, ok := e.(identifiable)
	if !ok {
		return fmt.Errorf("unsupported entity %T", e)
	}
	if id <= 0 {
		return fmt.Errorf("invalid identity %d for %s", id, e.EntityType())
	}
	if cur := e.ID(); cur != 0 {
		return fmt.Errorf("%s already has identity %d", e.EntityType(), cur)
	}
	ie.setID(id)
	return nil
}

// RevokeIdentity clears an identity whose inserting transaction never committed
func RevokeIdentity(e Entity) {
	if ie, ok := e.(identifiable); ok {
		ie.setID(0)
	}
}

// member is the element constraint for the relation sets below
type member interface {
	comparable
	ID() int64
}

// indexOf finds x by pointer, or by identity when x is persisted
func indexOf[T member](items []T, x T) int {
	for i, it := range items {
		if it == x {
			return i
		}
	}
	if id := x.ID(); id != 0 {
		for i, it := range items {
			if it.ID() == id {
				return i
			}
		}
	}
	return -1
}

// addMember inserts x, replacing any element with the same identity
func addMember[T member](items []T, x T) []T {
	if i := indexOf(items, x); i >= 0 {
		items[i] = x
		return items
	}
	return append(items, x)
}

func removeMember[T member](items []T, x T) ([]T, bool) {
	i := indexOf(items, x)
	if i < 0 {
		return items, false
	}
	return append(items[:i], items[i+1:]...), true
}

func cloneMembers[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
