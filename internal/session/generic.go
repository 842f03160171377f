package session

import (
	"context"

	"registrar/internal/apperrors"
	"registrar/internal/domain"
)

// Model is the set of entity pointer types a session can load
type Model interface {
	*domain.Student | *domain.Course | *domain.Professor
	domain.Entity
}

func typeOf[T Model]() domain.EntityType {
	var zero T
	return zero.EntityType()
}

// Find returns the managed instance of type T with the given identity,
// reading it from storage when it is not managed yet. An identity with no row
// yields the nil entity and a nil error.
func Find[T Model](ctx context.Context, s *Session, id int64) (T, error) {
	var zero T
	if err := s.checkOpen(); err != nil {
		return zero, err
	}
	k := domain.Key{Type: typeOf[T](), ID: id}
	if e, ok := s.lookup(k); ok {
		return e.(T), nil
	}
	if id <= 0 {
		return zero, nil
	}

	r, err := s.read(ctx)
	if err != nil {
		return zero, err
	}
	if err := s.ensure(ctx, r, k.Type, []int64{id}); err != nil {
		return zero, err
	}
	if e, ok := s.lookup(k); ok {
		return e.(T), nil
	}
	return zero, nil
}

// Merge copies the state of e onto the managed instance with the same
// identity and returns that instance. A transient e is copied into a new
// entity that is persisted. e itself stays unmanaged; a detached e whose row
// is gone fails with ErrNotFound.
func Merge[T Model](ctx context.Context, s *Session, e T) (T, error) {
	var zero T
	m, err := s.merge(ctx, e)
	if err != nil {
		return zero, err
	}
	return m.(T), nil
}

// Ref is a reference to an entity that is either already materialized or
// read from storage on first access
type Ref[T Model] struct {
	id      int64
	entity  T
	loaded  bool
	resolve func(ctx context.Context) (T, error)
}

// Load returns a reference to the entity of type T with the given identity.
// A managed entity is returned materialized. Otherwise nothing is read until
// Get, which fails with ErrNotFound if the row does not exist.
func Load[T Model](s *Session, id int64) *Ref[T] {
	if !s.closed {
		if e, ok := s.lookup(domain.Key{Type: typeOf[T](), ID: id}); ok {
			return &Ref[T]{id: id, entity: e.(T), loaded: true}
		}
	}
	return &Ref[T]{
		id: id,
		resolve: func(ctx context.Context) (T, error) {
			e, err := Find[T](ctx, s, id)
			if err != nil {
				return e, err
			}
			if e.ID() == 0 {
				return e, apperrors.NewNotFoundError(string(typeOf[T]()), id)
			}
			return e, nil
		},
	}
}

// ID returns the referenced identity without materializing
func (r *Ref[T]) ID() int64 {
	return r.id
}

// Loaded reports whether the entity has been materialized
func (r *Ref[T]) Loaded() bool {
	return r.loaded
}

// Get returns the entity, materializing it on first call
func (r *Ref[T]) Get(ctx context.Context) (T, error) {
	if r.loaded {
		return r.entity, nil
	}
	e, err := r.resolve(ctx)
	if err != nil {
		return e, err
	}
	r.entity, r.loaded = e, true
	return e, nil
}
