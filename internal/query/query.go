// Package query describes typed query requests against the registrar schema.
//
// A Query names a target entity type, optional filters on the target, an
// optional join through one relation with filters on the related entity,
// ordering, pagination and a read-only flag. An Update describes a bulk
// assignment over the rows matching a set of filters. Both are plain values;
// translating them to SQL is the storage layer's job and executing them
// against the identity map is the session's.
package query

import (
	"registrar/internal/apperrors"
	"registrar/internal/domain"
)

// Field is a mapped scalar column
type Field string

const (
	FieldID      Field = "id"
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldCredits Field = "credits"
)

// fields lists the filterable and orderable columns of each entity type
var fields = map[domain.EntityType][]Field{
	domain.TypeProfessor: {FieldID, FieldName, FieldEmail},
	domain.TypeCourse:    {FieldID, FieldName, FieldCredits},
	domain.TypeStudent:   {FieldID, FieldName, FieldEmail},
}

// HasField reports whether t maps column f
func HasField(t domain.EntityType, f Field) bool {
	for _, known := range fields[t] {
		if known == f {
			return true
		}
	}
	return false
}

// Relation is the join between two entity types
type Relation string

const (
	// RelationEnrollment joins students and courses through the join table
	RelationEnrollment Relation = "enrollment"
	// RelationTeaching joins courses and their professor
	RelationTeaching Relation = "teaching"
)

// RelationBetween returns the relation joining from and to
func RelationBetween(from, to domain.EntityType) (Relation, bool) {
	switch {
	case from == domain.TypeStudent && to == domain.TypeCourse,
		from == domain.TypeCourse && to == domain.TypeStudent:
		return RelationEnrollment, true
	case from == domain.TypeCourse && to == domain.TypeProfessor,
		from == domain.TypeProfessor && to == domain.TypeCourse:
		return RelationTeaching, true
	}
	return "", false
}

// Join restricts the target to entities related to at least one entity of
// type Related that matches Filters
type Join struct {
	Related domain.EntityType
	Filters []Filter
}

// Order sorts results by one field
type Order struct {
	Field Field
	Desc  bool
}

// Asc orders ascending by f
func Asc(f Field) Order { return Order{Field: f} }

// Desc orders descending by f
func Desc(f Field) Order { return Order{Field: f, Desc: true} }

// Query is a typed select request. The zero Limit means no limit unless
// HasLimit is set.
type Query struct {
	Target   domain.EntityType
	Filters  []Filter
	Join     *Join
	Orders   []Order
	Offset   int
	Limit    int
	HasLimit bool
	ReadOnly bool
}

// From starts a query over entities of type t
func From(t domain.EntityType) Query {
	return Query{Target: t}
}

// Where adds filters on the target entity; all filters must match
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// Joined restricts the target to entities related to a related entity
// matching filters. Results are distinct.
func (q Query) Joined(related domain.EntityType, filters ...Filter) Query {
	q.Join = &Join{Related: related, Filters: append([]Filter(nil), filters...)}
	return q
}

// OrderBy sets the result ordering. Without it no order is guaranteed.
func (q Query) OrderBy(orders ...Order) Query {
	q.Orders = append([]Order(nil), orders...)
	return q
}

// Page skips offset results and returns at most limit
func (q Query) Page(offset, limit int) Query {
	q.Offset = offset
	q.Limit = limit
	q.HasLimit = true
	return q
}

// AsReadOnly disables change tracking for the returned entities
func (q Query) AsReadOnly() Query {
	q.ReadOnly = true
	return q
}

// Validate checks fields, relation and pagination
func (q Query) Validate() error {
	if !q.Target.Valid() {
		return apperrors.NewInvalidQueryError("unknown entity type %q", q.Target)
	}
	if err := validateFilters(q.Target, q.Filters); err != nil {
		return err
	}
	if q.Join != nil {
		if _, ok := RelationBetween(q.Target, q.Join.Related); !ok {
			return apperrors.NewInvalidQueryError("no relation between %s and %s", q.Target, q.Join.Related)
		}
		if err := validateFilters(q.Join.Related, q.Join.Filters); err != nil {
			return err
		}
	}
	for _, o := range q.Orders {
		if !HasField(q.Target, o.Field) {
			return apperrors.NewInvalidQueryError("cannot order %s by %q", q.Target, o.Field)
		}
	}
	if q.Offset < 0 {
		return apperrors.NewInvalidQueryError("negative offset %d", q.Offset)
	}
	if q.HasLimit && q.Limit < 0 {
		return apperrors.NewInvalidQueryError("negative limit %d", q.Limit)
	}
	return nil
}

// Empty reports whether the query can be answered without storage: an empty
// IN set or a zero limit matches nothing
func (q Query) Empty() bool {
	if q.HasLimit && q.Limit == 0 {
		return true
	}
	if anyEmptySet(q.Filters) {
		return true
	}
	return q.Join != nil && anyEmptySet(q.Join.Filters)
}
