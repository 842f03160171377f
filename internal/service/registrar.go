package service

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"

	"registrar/internal/codec"
	"registrar/internal/domain"
	"registrar/internal/fixtures"
	"registrar/internal/query"
	"registrar/internal/session"
)

// RegistrarService provides the registrar use cases
type RegistrarService struct {
	factory  *session.Factory
	eventBus *EventBus
}

// NewRegistrarService creates a new registrar service
func NewRegistrarService(factory *session.Factory, eventBus *EventBus) *RegistrarService {
	return &RegistrarService{
		factory:  factory,
		eventBus: eventBus,
	}
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Professors int `json:"professors"`
	Courses    int `json:"courses"`
	Students   int `json:"students"`
}

// ImportSchool parses a school document and persists every entity in it
func (s *RegistrarService) ImportSchool(ctx context.Context, imp codec.Importer, r io.Reader) (*ImportResult, error) {
	school, err := imp.Parse(r)
	if err != nil {
		return nil, err
	}
	if err := fixtures.Seed(ctx, s.factory, school); err != nil {
		return nil, err
	}

	result := &ImportResult{
		Professors: len(school.Professors),
		Courses:    len(school.Courses),
		Students:   len(school.Students),
	}
	s.eventBus.Publish(Event{Type: EventSchoolImported, Payload: result})
	return result, nil
}

// ExportSchool writes every stored entity with its relations
func (s *RegistrarService) ExportSchool(ctx context.Context, exp codec.Exporter, w io.Writer) error {
	school, err := s.School(ctx)
	if err != nil {
		return err
	}
	return exp.Export(school, w)
}

// School reads the whole stored graph, ordered by identity
func (s *RegistrarService) School(ctx context.Context) (*domain.School, error) {
	sess := s.factory.Open()
	defer sess.Close()

	school := domain.NewSchool()
	var err error
	if school.Professors, err = session.List[*domain.Professor](ctx, sess, all(domain.TypeProfessor)); err != nil {
		return nil, fmt.Errorf("failed to read professors: %w", err)
	}
	if school.Courses, err = session.List[*domain.Course](ctx, sess, all(domain.TypeCourse)); err != nil {
		return nil, fmt.Errorf("failed to read courses: %w", err)
	}
	if school.Students, err = session.List[*domain.Student](ctx, sess, all(domain.TypeStudent)); err != nil {
		return nil, fmt.Errorf("failed to read students: %w", err)
	}
	return school, nil
}

func all(t domain.EntityType) query.Query {
	return query.From(t).OrderBy(query.Asc(query.FieldID)).AsReadOnly()
}

func byName(t domain.EntityType, name string) query.Query {
	return query.From(t).Where(query.Eq(query.FieldName, name))
}

// Roster returns the students enrolled in the named course, sorted by name
func (s *RegistrarService) Roster(ctx context.Context, course string) ([]*domain.Student, error) {
	sess := s.factory.Open()
	defer sess.Close()

	c, err := session.Single[*domain.Course](ctx, sess, byName(domain.TypeCourse, course))
	if err != nil {
		return nil, err
	}
	students, err := session.List[*domain.Student](ctx, sess,
		query.From(domain.TypeStudent).
			Joined(domain.TypeCourse, query.Eq(query.FieldID, c.ID())).
			OrderBy(query.Asc(query.FieldName)))
	if err != nil {
		return nil, err
	}
	return students, nil
}

// CoursesOf returns the courses taught by the named professor, sorted by name
func (s *RegistrarService) CoursesOf(ctx context.Context, professor string) ([]*domain.Course, error) {
	sess := s.factory.Open()
	defer sess.Close()

	p, err := session.Single[*domain.Professor](ctx, sess, byName(domain.TypeProfessor, professor))
	if err != nil {
		return nil, err
	}
	if err := sess.Initialize(ctx, p); err != nil {
		return nil, err
	}
	courses := p.Courses()
	slices.SortFunc(courses, func(a, b *domain.Course) int { return cmp.Compare(a.Name, b.Name) })
	return courses, nil
}

// EnrollmentChange describes one enrollment added or removed
type EnrollmentChange struct {
	Student string `json:"student"`
	Course  string `json:"course"`
}

// Enroll adds the named course to the named student's courses
func (s *RegistrarService) Enroll(ctx context.Context, student, course string) error {
	return s.changeEnrollment(ctx, student, course, true)
}

// Drop removes the named course from the named student's courses
func (s *RegistrarService) Drop(ctx context.Context, student, course string) error {
	return s.changeEnrollment(ctx, student, course, false)
}

func (s *RegistrarService) changeEnrollment(ctx context.Context, student, course string, enroll bool) error {
	changed := false
	err := s.factory.InTransaction(ctx, func(sess *session.Session) error {
		st, err := session.Single[*domain.Student](ctx, sess, byName(domain.TypeStudent, student))
		if err != nil {
			return fmt.Errorf("student %q: %w", student, err)
		}
		c, err := session.Single[*domain.Course](ctx, sess, byName(domain.TypeCourse, course))
		if err != nil {
			return fmt.Errorf("course %q: %w", course, err)
		}
		if enroll {
			changed = !st.IsEnrolled(c)
			st.Enroll(c)
		} else {
			changed = st.Drop(c)
		}
		return nil
	})
	if err != nil || !changed {
		return err
	}

	event := EventStudentEnrolled
	if !enroll {
		event = EventStudentDropped
	}
	s.eventBus.Publish(Event{Type: event, Payload: EnrollmentChange{Student: student, Course: course}})
	return nil
}

// CreditsUpdate is the result of a bulk credit change
type CreditsUpdate struct {
	Above   float64 `json:"above"`
	Credits float64 `json:"credits"`
	Rows    int64   `json:"rows"`
}

// CapCredits sets the credits of every course above the given value to
// credits in one statement and returns the number of courses changed
func (s *RegistrarService) CapCredits(ctx context.Context, above, credits float64) (int64, error) {
	var n int64
	err := s.factory.InTransaction(ctx, func(sess *session.Session) error {
		var err error
		n, err = sess.ExecuteUpdate(ctx, query.UpdateOf(domain.TypeCourse).
			Assign(query.FieldCredits, credits).
			Where(query.Gt(query.FieldCredits, above)))
		return err
	})
	if err != nil {
		return 0, err
	}

	s.eventBus.Publish(Event{Type: EventCreditsUpdated, Payload: CreditsUpdate{Above: above, Credits: credits, Rows: n}})
	return n, nil
}
