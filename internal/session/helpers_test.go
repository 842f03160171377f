package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"registrar/internal/domain"
	"registrar/internal/repository"
	"registrar/internal/repository/sqlstore"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestStore opens an on-disk SQLite store in a temp dir
func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registrar.db")
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{DSN: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func newTestFactory(t *testing.T) *Factory {
	t.Helper()
	return NewFactory(newTestStore(t))
}

// openSession opens a session that is closed when the test ends
func openSession(t *testing.T, f *Factory) *Session {
	t.Helper()
	s := f.Open()
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertErrorIs fails the test unless err matches target
func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

// school is the seeded dataset, detached after seeding
type school struct {
	professors []*domain.Professor
	courses    []*domain.Course
	students   []*domain.Student
}

// seedSchool persists 2 professors, 4 courses with 6/4/8/5 credits and 6
// students enrolled as e1{c1,c2} e2{c2,c3,c4} e3{c1} e4{c2,c4} e5{c1..c4}
// e6{c3,c4}
func seedSchool(t *testing.T, f *Factory) school {
	t.Helper()
	var sc school
	for i := 1; i <= 2; i++ {
		sc.professors = append(sc.professors,
			domain.NewProfessor(fmt.Sprintf("Profesor %d", i), fmt.Sprintf("p%d@escuela.com", i)))
	}
	courses := []struct {
		credits float64
		prof    int
	}{{6, 0}, {4, 0}, {8, 1}, {5, 1}}
	for i, c := range courses {
		course, err := domain.NewCourse(fmt.Sprintf("Curso %d", i+1), c.credits, sc.professors[c.prof])
		assertNoError(t, err)
		sc.courses = append(sc.courses, course)
	}
	matrix := [][]int{{0, 1}, {1, 2, 3}, {0}, {1, 3}, {0, 1, 2, 3}, {2, 3}}
	for i, enrolled := range matrix {
		st := domain.NewStudent(fmt.Sprintf("Estudiante %d", i+1), fmt.Sprintf("e%d@escuela.com", i+1))
		for _, ci := range enrolled {
			st.Enroll(sc.courses[ci])
		}
		sc.students = append(sc.students, st)
	}

	err := f.InTransaction(context.Background(), func(s *Session) error {
		for _, p := range sc.professors {
			if err := s.Persist(context.Background(), p); err != nil {
				return err
			}
		}
		for _, c := range sc.courses {
			if err := s.Persist(context.Background(), c); err != nil {
				return err
			}
		}
		for _, st := range sc.students {
			if err := s.Persist(context.Background(), st); err != nil {
				return err
			}
		}
		return nil
	})
	assertNoError(t, err)
	return sc
}

func studentNames(students []*domain.Student) []string {
	out := make([]string, len(students))
	for i, s := range students {
		out[i] = s.Name
	}
	slices.Sort(out)
	return out
}

func courseNames(courses []*domain.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.Name
	}
	slices.Sort(out)
	return out
}

// managedGraph returns every managed student and course
func managedGraph(s *Session) ([]*domain.Student, []*domain.Course) {
	var (
		students []*domain.Student
		courses  []*domain.Course
	)
	for _, en := range s.managed {
		switch v := en.entity.(type) {
		case *domain.Student:
			students = append(students, v)
		case *domain.Course:
			courses = append(courses, v)
		}
	}
	return students, courses
}

// assertSymmetric checks enrollment symmetry over the managed set
func assertSymmetric(t *testing.T, s *Session) {
	t.Helper()
	students, courses := managedGraph(s)
	if err := domain.CheckEnrollmentSymmetry(students, courses); err != nil {
		t.Fatal(err)
	}
}

// ============================================================================
// Failing Store
// ============================================================================

// flakyStore hands out transactions whose writes fail with err
type flakyStore struct {
	repository.Store
	err error
}

func (f *flakyStore) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := f.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &flakyTx{Tx: tx, err: f.err}, nil
}

type flakyTx struct {
	repository.Tx
	err error
}

func (f *flakyTx) Update(ctx context.Context, rec repository.Record) (int64, error) {
	return 0, f.err
}

func (f *flakyTx) Insert(ctx context.Context, rec repository.Record) (int64, error) {
	return 0, f.err
}
