package session

import (
	"context"
	"fmt"
	"iter"

	"registrar/internal/apperrors"
	"registrar/internal/query"
	"registrar/internal/repository"
)

// Iterate runs q and yields the managed instance for each matching row.
// Rows are read when iteration starts; each entity and its related entities
// are materialized only when the iteration reaches it. Iteration stops at the
// first error, which is yielded with the zero entity.
func Iterate[T Model](ctx context.Context, s *Session, q query.Query) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if err := s.checkOpen(); err != nil {
			yield(zero, err)
			return
		}
		if t := typeOf[T](); q.Target != t {
			yield(zero, apperrors.NewInvalidQueryError("query over %s cannot produce %s", q.Target, t))
			return
		}
		if err := q.Validate(); err != nil {
			yield(zero, err)
			return
		}
		if q.Empty() {
			return
		}

		r, err := s.read(ctx)
		if err != nil {
			yield(zero, err)
			return
		}
		recs, err := r.Select(ctx, q)
		if err != nil {
			yield(zero, s.fail(err))
			return
		}

		for _, rec := range recs {
			if s.closed {
				yield(zero, apperrors.ErrClosedSession)
				return
			}
			// Only roots a read-only query materializes become read-only
			_, managed := s.lookup(rec.Key())
			es, err := s.hydrate(ctx, s.reader(), []repository.Record{rec})
			if err != nil {
				yield(zero, err)
				return
			}
			if q.ReadOnly && !managed {
				s.managed[rec.Key()].readOnly = true
			}
			if !yield(es[0].(T), nil) {
				return
			}
		}
	}
}

// List runs q and returns every matching managed instance in query order
func List[T Model](ctx context.Context, s *Session, q query.Query) ([]T, error) {
	var out []T
	for e, err := range Iterate[T](ctx, s, q) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Single runs q and returns its only result. Zero matches fail with
// ErrNotFound and more than one with ErrNonUniqueResult. A limit on q does
// not hide a second match: Single always reads up to two rows from the offset.
func Single[T Model](ctx context.Context, s *Session, q query.Query) (T, error) {
	var zero T
	if !q.HasLimit || q.Limit > 0 {
		q = q.Page(q.Offset, 2)
	}
	results, err := List[T](ctx, s, q)
	if err != nil {
		return zero, err
	}
	switch len(results) {
	case 0:
		return zero, apperrors.NewCustomError(apperrors.ErrNotFound,
			fmt.Sprintf("no %s matches the query", q.Target))
	case 1:
		return results[0], nil
	default:
		return zero, apperrors.NewCustomError(apperrors.ErrNonUniqueResult,
			fmt.Sprintf("more than one %s matches the query", q.Target))
	}
}

// ExecuteUpdate runs a bulk update as one statement inside the open
// transaction and returns the number of rows it matched. Managed instances
// are not refreshed; call Refresh to see the new values.
func (s *Session) ExecuteUpdate(ctx context.Context, u query.Update) (int64, error) {
	if err := s.checkWritable(); err != nil {
		return 0, err
	}
	if err := u.Validate(); err != nil {
		return 0, err
	}
	if err := s.flush(ctx); err != nil {
		return 0, err
	}
	n, err := s.tx.UpdateWhere(ctx, u)
	if err != nil {
		return 0, s.fail(err)
	}
	s.log.Debug().Str("entity", string(u.Target)).Int64("rows", n).Msg("bulk update")
	return n, nil
}
