package session

import (
	"context"
	"fmt"

	"registrar/internal/apperrors"
	"registrar/internal/domain"
	"registrar/internal/repository"
)

// recordOf returns the column state of e
func recordOf(e domain.Entity) repository.Record {
	rec := repository.Record{Type: e.EntityType(), ID: e.ID()}
	switch v := e.(type) {
	case *domain.Professor:
		rec.Name, rec.Email = v.Name, v.Email
	case *domain.Course:
		rec.Name, rec.Credits = v.Name, v.Credits
		rec.ProfessorID = v.Professor().ID()
	case *domain.Student:
		rec.Name, rec.Email = v.Name, v.Email
	}
	return rec
}

func courseIDs(courses []*domain.Course) []int64 {
	ids := make([]int64, 0, len(courses))
	for _, c := range courses {
		if c.ID() != 0 {
			ids = append(ids, c.ID())
		}
	}
	return ids
}

// isNil reports whether e is nil or a nil entity pointer
func isNil(e domain.Entity) bool {
	switch v := e.(type) {
	case nil:
		return true
	case *domain.Student:
		return v == nil
	case *domain.Course:
		return v == nil
	case *domain.Professor:
		return v == nil
	}
	return false
}

func describe(e domain.Entity) string {
	if isNil(e) {
		return "<nil>"
	}
	if e.ID() == 0 {
		return "transient " + string(e.EntityType())
	}
	return domain.KeyOf(e).String()
}

func sameProfessor(a, b *domain.Professor) bool {
	if a == b {
		return true
	}
	return a != nil && b != nil && a.ID() != 0 && a.ID() == b.ID()
}

func (s *Session) validateEntity(e domain.Entity) error {
	if err := s.validate.Struct(e); err != nil {
		return apperrors.NewValidationError(string(e.EntityType()), err)
	}
	return nil
}

// ============================================================================
// Relation Synchronization
// ============================================================================

// sync brings the derived sides of managed entities in line with the owning
// sides. Only pairs of managed entities are touched: a roster entry for an
// entity the session does not manage is left alone.
func (s *Session) sync() {
	var (
		students   []*domain.Student
		courses    []*domain.Course
		professors []*domain.Professor
	)
	for _, en := range s.managed {
		switch v := en.entity.(type) {
		case *domain.Student:
			students = append(students, v)
		case *domain.Course:
			courses = append(courses, v)
		case *domain.Professor:
			professors = append(professors, v)
		}
	}

	for _, c := range courses {
		for _, st := range students {
			want, has := st.IsEnrolled(c), c.HasStudent(st)
			switch {
			case want && !has:
				domain.AttachEnrollment(c, st)
			case !want && has:
				domain.DetachEnrollment(c, st)
			}
		}
		for _, p := range professors {
			want, has := sameProfessor(c.Professor(), p), p.Teaches(c)
			switch {
			case want && !has:
				domain.AttachTeaching(p, c)
			case !want && has:
				domain.DetachTeaching(p, c)
			}
		}
	}
}

// ============================================================================
// Flush
// ============================================================================

// change is one pending write found by the dirty check
type change struct {
	entry   *entry
	record  repository.Record
	dirty   bool
	enroll  []int64
	dropped []int64
}

// pending diffs every writable managed entity against its snapshot and
// checks that the result can be written. Nothing is written here, so errors
// leave the transaction usable.
func (s *Session) pending() ([]change, error) {
	var changes []change
	for _, k := range s.sortedKeys() {
		en := s.managed[k]
		if en.readOnly {
			continue
		}
		ch := change{entry: en, record: recordOf(en.entity)}
		ch.dirty = ch.record != en.snapshot

		switch v := en.entity.(type) {
		case *domain.Course:
			if ch.dirty && ch.record.ProfessorID == 0 {
				return nil, apperrors.NewInvalidStateError("professor of %s has no identity", describe(v))
			}
		case *domain.Student:
			stored := make(map[int64]bool, len(en.courses))
			for _, id := range en.courses {
				stored[id] = true
			}
			current := make(map[int64]bool)
			for _, c := range v.Courses() {
				if c.ID() == 0 {
					return nil, apperrors.NewInvalidStateError("%s is enrolled in a course without identity", describe(v))
				}
				current[c.ID()] = true
				if !stored[c.ID()] {
					ch.enroll = append(ch.enroll, c.ID())
				}
			}
			for _, id := range en.courses {
				if !current[id] {
					ch.dropped = append(ch.dropped, id)
				}
			}
		}

		if !ch.dirty && len(ch.enroll) == 0 && len(ch.dropped) == 0 {
			continue
		}
		if ch.dirty {
			if err := s.validateEntity(en.entity); err != nil {
				return nil, err
			}
		}
		changes = append(changes, ch)
	}
	return changes, nil
}

// flush writes pending changes: rows in foreign key order, then join rows
func (s *Session) flush(ctx context.Context) error {
	s.sync()
	changes, err := s.pending()
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	for _, ch := range changes {
		if !ch.dirty {
			continue
		}
		n, err := s.tx.Update(ctx, ch.record)
		if err != nil {
			return s.fail(err)
		}
		if n == 0 {
			return s.fail(fmt.Errorf("failed to flush %s: row no longer exists", ch.record.Key()))
		}
		ch.entry.snapshot = ch.record
	}

	for _, ch := range changes {
		sid := ch.record.ID
		for _, cid := range ch.dropped {
			if err := s.tx.Unenroll(ctx, repository.Enrollment{StudentID: sid, CourseID: cid}); err != nil {
				return s.fail(err)
			}
		}
		for _, cid := range ch.enroll {
			if err := s.tx.Enroll(ctx, repository.Enrollment{StudentID: sid, CourseID: cid}); err != nil {
				return s.fail(err)
			}
		}
		if len(ch.enroll) > 0 || len(ch.dropped) > 0 {
			ch.entry.courses = courseIDs(ch.entry.entity.(*domain.Student).Courses())
		}
	}

	s.log.Debug().Int("changes", len(changes)).Msg("flushed")
	return nil
}
