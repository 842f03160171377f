package query

import (
	"registrar/internal/apperrors"
	"registrar/internal/domain"
)

// Assignment sets one field to a value
type Assignment struct {
	Field Field
	Value any
}

// Update is a bulk assignment executed as a single statement
type Update struct {
	Target domain.EntityType
	Set     []Assignment
	Filters []Filter
}

// UpdateOf starts a bulk update of entities of type t
func UpdateOf(t domain.EntityType) Update {
	return Update{Target: t}
}

// Assign adds an assignment
func (u Update) Assign(f Field, v any) Update {
	u.Set = append(append([]Assignment(nil), u.Set...), Assignment{Field: f, Value: v})
	return u
}

// Where adds filters; all must match
func (u Update) Where(filters ...Filter) Update {
	u.Filters = append(append([]Filter(nil), u.Filters...), filters...)
	return u
}

// Validate checks target, assignments and filters. Identities cannot be reassigned.
func (u Update) Validate() error {
	if !u.Target.Valid() {
		return apperrors.NewInvalidQueryError("unknown entity type %q", u.Target)
	}
	if len(u.Set) == 0 {
		return apperrors.NewInvalidQueryError("update of %s assigns nothing", u.Target)
	}
	for _, a := range u.Set {
		if a.Field == FieldID {
			return apperrors.NewInvalidQueryError("identity of %s cannot be updated", u.Target)
		}
		if !HasField(u.Target, a.Field) {
			return apperrors.NewInvalidQueryError("%s has no field %q", u.Target, a.Field)
		}
	}
	return validateFilters(u.Target, u.Filters)
}

// Empty reports whether the filters can match no row
func (u Update) Empty() bool {
	return anyEmptySet(u.Filters)
}
