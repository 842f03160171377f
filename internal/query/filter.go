package query

import (
	"registrar/internal/apperrors"
	"registrar/internal/domain"
)

// Op is a comparison operator
type Op string

const (
	OpEq Op = "="
	OpGt Op = ">"
	OpLt Op = "<"
	OpIn Op = "IN"
)

// Filter compares one field against one value, or against a set for OpIn
type Filter struct {
	Field  Field
	Op     Op
	Values []any
}

// Eq matches rows where f equals v
func Eq(f Field, v any) Filter {
	return Filter{Field: f, Op: OpEq, Values: []any{v}}
}

// Gt matches rows where f is greater than v
func Gt(f Field, v any) Filter {
	return Filter{Field: f, Op: OpGt, Values: []any{v}}
}

// Lt matches rows where f is less than v
func Lt(f Field, v any) Filter {
	return Filter{Field: f, Op: OpLt, Values: []any{v}}
}

// In matches rows where f equals any of values. An empty set matches nothing.
func In[T any](f Field, values ...T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Field: f, Op: OpIn, Values: vs}
}

func validateFilters(t domain.EntityType, filters []Filter) error {
	for _, f := range filters {
		if !HasField(t, f.Field) {
			return apperrors.NewInvalidQueryError("%s has no field %q", t, f.Field)
		}
		switch f.Op {
		case OpEq, OpGt, OpLt:
			if len(f.Values) != 1 {
				return apperrors.NewInvalidQueryError("operator %s on %q needs exactly one value", f.Op, f.Field)
			}
		case OpIn:
		default:
			return apperrors.NewInvalidQueryError("unknown operator %q", f.Op)
		}
	}
	return nil
}

func anyEmptySet(filters []Filter) bool {
	for _, f := range filters {
		if f.Op == OpIn && len(f.Values) == 0 {
			return true
		}
	}
	return false
}
