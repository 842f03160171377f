package session

import (
	"context"

	"registrar/internal/apperrors"
	"registrar/internal/domain"
	"registrar/internal/repository"
)

// Persist inserts a transient entity and makes it managed. The identity
// generated by storage is assigned to e. An entity that already has an
// identity is rejected; use Merge or Update for those.
//
// A course's professor must already have an identity. A student's enrollments
// are written on the next flush, so its courses may still be persisted
// before then.
func (s *Session) Persist(ctx context.Context, e domain.Entity) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if isNil(e) {
		return apperrors.NewInvalidStateError("cannot persist nil entity")
	}
	if e.ID() != 0 {
		return apperrors.NewInvalidStateError("%s already has an identity", describe(e))
	}
	if err := s.validateEntity(e); err != nil {
		return err
	}

	rec := recordOf(e)
	if rec.Type == domain.TypeCourse && rec.ProfessorID == 0 {
		return apperrors.NewInvalidStateError("professor of %s has no identity", describe(e))
	}

	id, err := s.tx.Insert(ctx, rec)
	if err != nil {
		return s.fail(err)
	}
	if err := domain.AssignIdentity(e, id); err != nil {
		return s.fail(err)
	}
	rec.ID = id
	// Nothing in storage refers to a new row yet
	s.register(e, rec, nil).initialized = true
	s.inserted = append(s.inserted, e)
	s.sync()

	s.log.Debug().Str("entity", string(rec.Type)).Int64("id", id).Msg("persisted")
	return nil
}

// Save persists e and returns its new identity
func (s *Session) Save(ctx context.Context, e domain.Entity) (int64, error) {
	if err := s.Persist(ctx, e); err != nil {
		return 0, err
	}
	return e.ID(), nil
}

// Update reattaches a detached entity and writes its state over the stored
// row. The entity must have an identity whose row still exists, and no other
// instance for that identity may be managed.
func (s *Session) Update(ctx context.Context, e domain.Entity) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if isNil(e) || e.ID() == 0 {
		return apperrors.NewInvalidStateError("cannot update %s: no identity", describe(e))
	}
	if cur, ok := s.lookup(domain.KeyOf(e)); ok {
		if cur == e {
			return nil
		}
		return apperrors.NewInvalidStateError("another instance of %s is already managed", describe(e))
	}
	if err := s.validateEntity(e); err != nil {
		return err
	}
	rec := recordOf(e)
	if rec.Type == domain.TypeCourse && rec.ProfessorID == 0 {
		return apperrors.NewInvalidStateError("professor of %s has no identity", describe(e))
	}

	if err := s.flush(ctx); err != nil {
		return err
	}
	n, err := s.tx.Update(ctx, rec)
	if err != nil {
		return s.fail(err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(string(rec.Type), rec.ID)
	}

	var stored []int64
	if rec.Type == domain.TypeStudent {
		ens, err := s.tx.EnrollmentsByStudent(ctx, []int64{rec.ID})
		if err != nil {
			return s.fail(err)
		}
		stored = make([]int64, 0, len(ens))
		for _, en := range ens {
			stored = append(stored, en.CourseID)
		}
	}
	s.register(e, rec, stored)
	s.sync()

	s.log.Debug().Str("entity", string(rec.Type)).Int64("id", rec.ID).Msg("updated")
	return nil
}

// SaveOrUpdate persists e when it has no identity and updates it otherwise
func (s *Session) SaveOrUpdate(ctx context.Context, e domain.Entity) error {
	if !isNil(e) && e.ID() != 0 {
		return s.Update(ctx, e)
	}
	return s.Persist(ctx, e)
}

// Lock reattaches a detached entity that has not been modified since it was
// detached. Nothing is read or written; later changes to e are tracked from
// its current state.
func (s *Session) Lock(e domain.Entity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if isNil(e) || e.ID() == 0 {
		return apperrors.NewInvalidStateError("cannot lock %s: no identity", describe(e))
	}
	if cur, ok := s.lookup(domain.KeyOf(e)); ok {
		if cur == e {
			return nil
		}
		return apperrors.NewInvalidStateError("another instance of %s is already managed", describe(e))
	}
	var stored []int64
	if st, ok := e.(*domain.Student); ok {
		stored = courseIDs(st.Courses())
	}
	s.register(e, recordOf(e), stored)
	s.sync()
	return nil
}

// Delete removes the row of e and every join row referencing it. The managed
// instance becomes detached and is taken out of the relation sets of other
// managed entities. Deleting a professor that still teaches courses fails
// with ErrConstraintViolation.
func (s *Session) Delete(ctx context.Context, e domain.Entity) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if isNil(e) || e.ID() == 0 {
		return apperrors.NewInvalidStateError("cannot delete %s: no identity", describe(e))
	}
	k := domain.KeyOf(e)
	if cur, ok := s.lookup(k); ok {
		e = cur
	}

	if err := s.flush(ctx); err != nil {
		return err
	}
	if k.Type != domain.TypeProfessor {
		if _, err := s.tx.DeleteEnrollments(ctx, k.Type, k.ID); err != nil {
			return s.fail(err)
		}
	}
	n, err := s.tx.Delete(ctx, k.Type, k.ID)
	if err != nil {
		return s.fail(err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(string(k.Type), k.ID)
	}

	delete(s.managed, k)
	s.unlink(e)
	s.log.Debug().Str("entity", string(k.Type)).Int64("id", k.ID).Msg("deleted")
	return nil
}

// unlink removes a deleted entity from the relation sets of managed entities
func (s *Session) unlink(e domain.Entity) {
	switch v := e.(type) {
	case *domain.Student:
		for _, en := range s.managed {
			if c, ok := en.entity.(*domain.Course); ok {
				domain.DetachEnrollment(c, v)
			}
		}
	case *domain.Course:
		for _, en := range s.managed {
			st, ok := en.entity.(*domain.Student)
			if !ok || !st.Drop(v) {
				continue
			}
			kept := en.courses[:0]
			for _, id := range en.courses {
				if id != v.ID() {
					kept = append(kept, id)
				}
			}
			en.courses = kept
		}
		if p := v.Professor(); p != nil {
			domain.DetachTeaching(p, v)
		}
	}
}

// Refresh re-reads e from storage, discarding its pending changes. Pending
// changes to other entities are not flushed first.
func (s *Session) Refresh(ctx context.Context, e domain.Entity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	en, ok := s.entryOf(e)
	if !ok {
		return apperrors.NewInvalidStateError("%s is not managed by this session", describe(e))
	}

	r := s.reader()
	recs, err := r.Fetch(ctx, e.EntityType(), []int64{e.ID()})
	if err != nil {
		return s.fail(err)
	}
	if len(recs) == 0 {
		return apperrors.NewNotFoundError(string(e.EntityType()), e.ID())
	}
	rec := recs[0]

	switch v := e.(type) {
	case *domain.Professor:
		v.Name, v.Email = rec.Name, rec.Email
	case *domain.Course:
		if err := s.ensure(ctx, r, domain.TypeProfessor, []int64{rec.ProfessorID}); err != nil {
			return err
		}
		p, ok := s.lookup(domain.Key{Type: domain.TypeProfessor, ID: rec.ProfessorID})
		if !ok {
			return apperrors.NewNotFoundError(string(domain.TypeProfessor), rec.ProfessorID)
		}
		v.Name, v.Credits = rec.Name, rec.Credits
		if err := v.SetProfessor(p.(*domain.Professor)); err != nil {
			return err
		}
	case *domain.Student:
		ens, err := r.EnrollmentsByStudent(ctx, []int64{rec.ID})
		if err != nil {
			return s.fail(err)
		}
		ids := make([]int64, 0, len(ens))
		for _, row := range ens {
			ids = append(ids, row.CourseID)
		}
		if err := s.ensure(ctx, r, domain.TypeCourse, ids); err != nil {
			return err
		}
		courses := make([]*domain.Course, 0, len(ids))
		for _, id := range ids {
			if c, ok := s.lookup(domain.Key{Type: domain.TypeCourse, ID: id}); ok {
				courses = append(courses, c.(*domain.Course))
			}
		}
		v.Name, v.Email = rec.Name, rec.Email
		v.SetCourses(courses)
		en.courses = ids
	}
	en.snapshot = rec
	s.sync()
	return nil
}

// ============================================================================
// Merge
// ============================================================================

// counterpart returns the managed instance for k, reading it if needed
func (s *Session) counterpart(ctx context.Context, r repository.Reader, k domain.Key) (domain.Entity, error) {
	if k.ID == 0 {
		return nil, apperrors.NewInvalidStateError("cannot merge a reference to a transient %s", k.Type)
	}
	if err := s.ensure(ctx, r, k.Type, []int64{k.ID}); err != nil {
		return nil, err
	}
	m, ok := s.lookup(k)
	if !ok {
		return nil, apperrors.NewNotFoundError(string(k.Type), k.ID)
	}
	return m, nil
}

func (s *Session) counterpartCourses(ctx context.Context, r repository.Reader, courses []*domain.Course) ([]*domain.Course, error) {
	out := make([]*domain.Course, 0, len(courses))
	for _, c := range courses {
		m, err := s.counterpart(ctx, r, domain.Key{Type: domain.TypeCourse, ID: c.ID()})
		if err != nil {
			return nil, err
		}
		out = append(out, m.(*domain.Course))
	}
	return out, nil
}

// merge copies the state of e onto its managed counterpart, creating and
// persisting one when e is transient. e itself never becomes managed.
func (s *Session) merge(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	if err := s.checkWritable(); err != nil {
		return nil, err
	}
	if isNil(e) {
		return nil, apperrors.NewInvalidStateError("cannot merge nil entity")
	}
	if en, ok := s.entryOf(e); ok {
		return en.entity, nil
	}
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	var target domain.Entity
	if e.ID() == 0 {
		switch v := e.(type) {
		case *domain.Professor:
			target = domain.NewProfessor(v.Name, v.Email)
		case *domain.Course:
			p, err := s.counterpart(ctx, r, domain.KeyOf(v.Professor()))
			if err != nil {
				return nil, err
			}
			c, err := domain.NewCourse(v.Name, v.Credits, p.(*domain.Professor))
			if err != nil {
				return nil, err
			}
			target = c
		case *domain.Student:
			courses, err := s.counterpartCourses(ctx, r, v.Courses())
			if err != nil {
				return nil, err
			}
			st := domain.NewStudent(v.Name, v.Email)
			st.SetCourses(courses)
			target = st
		}
		if err := s.Persist(ctx, target); err != nil {
			return nil, err
		}
		return target, nil
	}

	target, err = s.counterpart(ctx, r, domain.KeyOf(e))
	if err != nil {
		return nil, err
	}
	switch v := e.(type) {
	case *domain.Professor:
		m := target.(*domain.Professor)
		m.Name, m.Email = v.Name, v.Email
	case *domain.Course:
		p, err := s.counterpart(ctx, r, domain.KeyOf(v.Professor()))
		if err != nil {
			return nil, err
		}
		m := target.(*domain.Course)
		m.Name, m.Credits = v.Name, v.Credits
		if err := m.SetProfessor(p.(*domain.Professor)); err != nil {
			return nil, err
		}
	case *domain.Student:
		courses, err := s.counterpartCourses(ctx, r, v.Courses())
		if err != nil {
			return nil, err
		}
		m := target.(*domain.Student)
		m.Name, m.Email = v.Name, v.Email
		m.SetCourses(courses)
	}
	s.sync()
	return target, nil
}
