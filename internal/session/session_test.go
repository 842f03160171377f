package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"registrar/internal/apperrors"
	"registrar/internal/domain"
	"registrar/internal/query"
	"registrar/internal/repository/sqlstore"
)

// ============================================================================
// Lifecycle Tests
// ============================================================================

func TestOpenHasNoSideEffects(t *testing.T) {
	f := newTestFactory(t)
	s := f.Open()

	if s.ID() == "" {
		t.Error("expected session id")
	}
	if s.InTransaction() {
		t.Error("new session should not be in a transaction")
	}
	if len(s.managed) != 0 {
		t.Errorf("expected empty identity map, got %d entries", len(s.managed))
	}
	assertNoError(t, s.Close())
}

func TestClosedSession(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	ctx := context.Background()

	s := f.Open()
	st, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)
	assertNoError(t, s.Close())

	if s.Contains(st) {
		t.Error("close should release managed entities")
	}

	assertErrorIs(t, s.Close(), apperrors.ErrClosedSession)
	assertErrorIs(t, s.Begin(ctx), apperrors.ErrClosedSession)
	assertErrorIs(t, s.Evict(st), apperrors.ErrClosedSession)
	assertErrorIs(t, s.Clear(), apperrors.ErrClosedSession)
	assertErrorIs(t, s.Rollback(), apperrors.ErrClosedSession)

	_, err = Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertErrorIs(t, err, apperrors.ErrClosedSession)

	_, err = List[*domain.Student](ctx, s, query.From(domain.TypeStudent))
	assertErrorIs(t, err, apperrors.ErrClosedSession)

	_, err = Load[*domain.Student](s, sc.students[0].ID()).Get(ctx)
	assertErrorIs(t, err, apperrors.ErrClosedSession)
}

func TestCloseRollsBackOpenTransaction(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	s := f.Open()
	assertNoError(t, s.Begin(ctx))
	p := domain.NewProfessor("Profesor 3", "p3@escuela.com")
	assertNoError(t, s.Persist(ctx, p))
	id := p.ID()
	assertNoError(t, s.Close())

	if p.ID() != 0 {
		t.Errorf("expected identity to be revoked, got %d", p.ID())
	}

	s2 := openSession(t, f)
	found, err := Find[*domain.Professor](ctx, s2, id)
	assertNoError(t, err)
	if found != nil {
		t.Errorf("expected uncommitted professor to be absent, got %v", found)
	}
}

func TestPersistThenFindReturnsSameInstance(t *testing.T) {
	f := newTestFactory(t)
	s := openSession(t, f)
	ctx := context.Background()

	assertNoError(t, s.Begin(ctx))
	p := domain.NewProfessor("Profesor 1", "p1@escuela.com")
	assertNoError(t, s.Persist(ctx, p))
	if p.ID() == 0 {
		t.Fatal("expected identity after persist")
	}

	found, err := Find[*domain.Professor](ctx, s, p.ID())
	assertNoError(t, err)
	if found != p {
		t.Fatal("expected find to return the persisted instance")
	}

	assertNoError(t, s.Commit(ctx))

	found, err = Find[*domain.Professor](ctx, s, p.ID())
	assertNoError(t, err)
	if found != p {
		t.Fatal("expected instance to stay managed after commit")
	}
}

func TestSaveReturnsIdentity(t *testing.T) {
	f := newTestFactory(t)
	s := openSession(t, f)
	ctx := context.Background()

	assertNoError(t, s.Begin(ctx))
	p := domain.NewProfessor("Profesor 1", "p1@escuela.com")
	id, err := s.Save(ctx, p)
	assertNoError(t, err)
	assertEqual(t, p.ID(), id)
	assertNoError(t, s.Commit(ctx))
}

func TestPersistRejects(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	t.Run("without transaction", func(t *testing.T) {
		s := openSession(t, f)
		err := s.Persist(ctx, domain.NewProfessor("Profesor 1", "p1@escuela.com"))
		assertErrorIs(t, err, apperrors.ErrInvalidState)
	})

	s := openSession(t, f)
	assertNoError(t, s.Begin(ctx))
	prof := domain.NewProfessor("Profesor 1", "p1@escuela.com")
	assertNoError(t, s.Persist(ctx, prof))

	negative, err := domain.NewCourse("Curso 9", -1, prof)
	assertNoError(t, err)
	orphanOf, err := domain.NewCourse("Curso 8", 3, domain.NewProfessor("Profesor 9", "p9@escuela.com"))
	assertNoError(t, err)

	tests := []struct {
		name   string
		entity domain.Entity
		want   error
	}{
		{"already identified", prof, apperrors.ErrInvalidState},
		{"nil", nil, apperrors.ErrInvalidState},
		{"invalid email", domain.NewStudent("Estudiante 7", "no-es-correo"), apperrors.ErrValidationFailed},
		{"missing name", domain.NewStudent("", "e7@escuela.com"), apperrors.ErrValidationFailed},
		{"negative credits", negative, apperrors.ErrValidationFailed},
		{"transient professor", orphanOf, apperrors.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertErrorIs(t, s.Persist(ctx, tt.entity), tt.want)
		})
	}

	// None of the rejections abort the transaction
	assertNoError(t, s.Persist(ctx, domain.NewStudent("Estudiante 7", "e7@escuela.com")))
	assertNoError(t, s.Commit(ctx))
}

func TestFindAbsent(t *testing.T) {
	f := newTestFactory(t)
	s := openSession(t, f)

	st, err := Find[*domain.Student](context.Background(), s, 9999)
	assertNoError(t, err)
	if st != nil {
		t.Fatalf("expected nil, got %v", st)
	}
}

func TestFindHydratesRelations(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	s := openSession(t, f)
	ctx := context.Background()

	e2, err := Find[*domain.Student](ctx, s, sc.students[1].ID())
	assertNoError(t, err)
	assertEqual(t, []string{"Curso 2", "Curso 3", "Curso 4"}, courseNames(e2.Courses()))

	for _, c := range e2.Courses() {
		if !s.Contains(c) {
			t.Errorf("expected %s to be managed", c)
		}
		if !c.HasStudent(e2) {
			t.Errorf("expected %s roster to contain %s", c, e2)
		}
		if !s.Contains(c.Professor()) {
			t.Errorf("expected professor of %s to be managed", c)
		}
	}

	c3, err := Find[*domain.Course](ctx, s, sc.courses[2].ID())
	assertNoError(t, err)
	shared := false
	for _, c := range e2.Courses() {
		shared = shared || c == c3
	}
	if !shared {
		t.Error("expected course instance to be shared through the identity map")
	}
	assertSymmetric(t, s)
}

func TestFindLoadsOnlyReferences(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	ctx := context.Background()

	t.Run("professor", func(t *testing.T) {
		s := openSession(t, f)
		p1, err := Find[*domain.Professor](ctx, s, sc.professors[0].ID())
		assertNoError(t, err)
		assertEqual(t, 1, len(s.managed))
		assertEqual(t, 0, len(p1.Courses()))
		if s.IsInitialized(p1) {
			t.Error("expected courses of a loaded professor to wait for Initialize")
		}
	})

	t.Run("course", func(t *testing.T) {
		s := openSession(t, f)
		c3, err := Find[*domain.Course](ctx, s, sc.courses[2].ID())
		assertNoError(t, err)
		if !s.Contains(c3.Professor()) {
			t.Error("expected the professor to be loaded with the course")
		}
		assertEqual(t, 2, len(s.managed))
		assertEqual(t, 0, len(c3.Students()))
	})

	t.Run("student", func(t *testing.T) {
		s := openSession(t, f)
		_, err := Find[*domain.Student](ctx, s, sc.students[1].ID())
		assertNoError(t, err)
		// Estudiante 2, Curso 2..4 and both professors
		assertEqual(t, 6, len(s.managed))
		students, _ := managedGraph(s)
		assertEqual(t, 1, len(students))
	})
}

func TestInitialize(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	ctx := context.Background()

	s := openSession(t, f)
	e2, err := Find[*domain.Student](ctx, s, sc.students[1].ID())
	assertNoError(t, err)
	var c3 *domain.Course
	for _, c := range e2.Courses() {
		if c.ID() == sc.courses[2].ID() {
			c3 = c
		}
	}
	if c3 == nil {
		t.Fatal("expected Estudiante 2 to take Curso 3")
	}
	assertEqual(t, []string{"Estudiante 2"}, studentNames(c3.Students()))

	assertNoError(t, s.Initialize(ctx, c3, c3.Professor(), e2))
	if !s.IsInitialized(c3) || !s.IsInitialized(c3.Professor()) {
		t.Error("expected both collections to be marked initialized")
	}
	assertEqual(t, []string{"Estudiante 2", "Estudiante 5", "Estudiante 6"}, studentNames(c3.Students()))
	assertEqual(t, []string{"Curso 3", "Curso 4"}, courseNames(c3.Professor().Courses()))
	for _, st := range c3.Students() {
		if !s.Contains(st) {
			t.Errorf("expected %s to be managed", st)
		}
	}
	assertSymmetric(t, s)

	// A second call reads nothing
	before := len(s.managed)
	assertNoError(t, s.Initialize(ctx, c3))
	assertEqual(t, before, len(s.managed))

	assertErrorIs(t, s.Initialize(ctx, sc.courses[0]), apperrors.ErrInvalidState)

	assertNoError(t, s.Begin(ctx))
	p := domain.NewProfessor("Profesor 3", "p3@escuela.com")
	assertNoError(t, s.Persist(ctx, p))
	if !s.IsInitialized(p) {
		t.Error("expected a persisted entity to start out initialized")
	}
	assertNoError(t, s.Rollback())

	assertNoError(t, s.Close())
	assertErrorIs(t, s.Initialize(ctx), apperrors.ErrClosedSession)
}

func TestLoad(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	s := openSession(t, f)
	ctx := context.Background()

	t.Run("absent fails on access", func(t *testing.T) {
		ref := Load[*domain.Student](s, 9999)
		if ref.Loaded() {
			t.Fatal("expected lazy reference")
		}
		assertEqual(t, int64(9999), ref.ID())
		_, err := ref.Get(ctx)
		assertErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("materializes on first access", func(t *testing.T) {
		id := sc.students[0].ID()
		ref := Load[*domain.Student](s, id)
		if ref.Loaded() {
			t.Fatal("expected lazy reference")
		}
		st, err := ref.Get(ctx)
		assertNoError(t, err)
		assertEqual(t, "Estudiante 1", st.Name)
		if !ref.Loaded() {
			t.Error("expected reference to be loaded after Get")
		}

		found, err := Find[*domain.Student](ctx, s, id)
		assertNoError(t, err)
		if found != st {
			t.Error("expected Load and Find to share the managed instance")
		}

		eager := Load[*domain.Student](s, id)
		if !eager.Loaded() {
			t.Error("expected managed entity to be returned materialized")
		}
	})
}

func TestEvictAndClear(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	s := openSession(t, f)
	ctx := context.Background()

	a, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)
	assertNoError(t, s.Evict(a))
	if s.Contains(a) {
		t.Fatal("expected evicted entity to be detached")
	}

	b, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)
	if a == b {
		t.Fatal("expected a new instance after evict")
	}

	// Changes to an evicted entity are never written
	a.Name = "Fantasma"
	assertNoError(t, s.Begin(ctx))
	assertNoError(t, s.Commit(ctx))

	assertNoError(t, s.Clear())
	if s.Contains(b) {
		t.Fatal("expected clear to detach every entity")
	}

	c, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)
	assertEqual(t, "Estudiante 1", c.Name)
}

func TestRefresh(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	s := openSession(t, f)
	ctx := context.Background()

	c2, err := Find[*domain.Course](ctx, s, sc.courses[1].ID())
	assertNoError(t, err)
	c2.Name = "Otro"
	c2.Credits = 99
	assertNoError(t, s.Refresh(ctx, c2))
	assertEqual(t, "Curso 2", c2.Name)
	assertEqual(t, 4.0, c2.Credits)

	e1, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)
	e1.Drop(c2)
	e1.Email = "otro@escuela.com"
	assertNoError(t, s.Refresh(ctx, e1))
	if !e1.IsEnrolled(c2) {
		t.Error("expected refresh to restore enrollment")
	}
	assertEqual(t, "e1@escuela.com", e1.Email)
	assertSymmetric(t, s)

	err = s.Refresh(ctx, domain.NewStudent("Estudiante 9", "e9@escuela.com"))
	assertErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestDirtyCheckingWritesOnCommit(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	ctx := context.Background()

	s := openSession(t, f)
	e2, err := Find[*domain.Student](ctx, s, sc.students[1].ID())
	assertNoError(t, err)

	// Changes made before Begin are pending until a commit
	e2.Name = "Estudiante Dos"
	assertNoError(t, s.Begin(ctx))
	assertNoError(t, s.Commit(ctx))

	s2 := openSession(t, f)
	found, err := Find[*domain.Student](ctx, s2, sc.students[1].ID())
	assertNoError(t, err)
	assertEqual(t, "Estudiante Dos", found.Name)
}

func TestFlushValidation(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	s := openSession(t, f)
	ctx := context.Background()

	assertErrorIs(t, s.Flush(ctx), apperrors.ErrInvalidState)

	assertNoError(t, s.Begin(ctx))
	e1, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)

	e1.Email = "sin-arroba"
	assertErrorIs(t, s.Commit(ctx), apperrors.ErrValidationFailed)

	// The transaction is still usable
	e1.Email = "uno@escuela.com"
	transient, err := domain.NewCourse("Curso 9", 2, e1.Courses()[0].Professor())
	assertNoError(t, err)
	e1.Enroll(transient)
	assertErrorIs(t, s.Flush(ctx), apperrors.ErrInvalidState)

	e1.Drop(transient)
	assertNoError(t, s.Commit(ctx))
}

func TestReadOnly(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	ctx := context.Background()

	s := openSession(t, f)
	students, err := List[*domain.Student](ctx, s, query.From(domain.TypeStudent).AsReadOnly())
	assertNoError(t, err)
	assertEqual(t, 6, len(students))

	assertNoError(t, s.Begin(ctx))
	for _, st := range students {
		if !s.IsReadOnly(st) {
			t.Fatalf("expected %s to be read-only", st)
		}
		st.Name = "Sin nombre"
	}
	assertNoError(t, s.Commit(ctx))

	s2 := openSession(t, f)
	unchanged, err := List[*domain.Student](ctx, s2, query.From(domain.TypeStudent).Where(query.Eq(query.FieldName, "Sin nombre")))
	assertNoError(t, err)
	assertEqual(t, 0, len(unchanged))

	t.Run("set read-only", func(t *testing.T) {
		s3 := openSession(t, f)
		assertNoError(t, s3.Begin(ctx))
		p1, err := Find[*domain.Professor](ctx, s3, sc.professors[0].ID())
		assertNoError(t, err)
		assertNoError(t, s3.SetReadOnly(p1, true))
		p1.Email = "ignorado@escuela.com"
		assertNoError(t, s3.Commit(ctx))

		s4 := openSession(t, f)
		found, err := Find[*domain.Professor](ctx, s4, sc.professors[0].ID())
		assertNoError(t, err)
		assertEqual(t, "p1@escuela.com", found.Email)

		err = s4.SetReadOnly(domain.NewProfessor("Profesor 9", "p9@escuela.com"), true)
		assertErrorIs(t, err, apperrors.ErrInvalidState)
	})
}

// ============================================================================
// Transaction Tests
// ============================================================================

func TestTransactionState(t *testing.T) {
	f := newTestFactory(t)
	s := openSession(t, f)
	ctx := context.Background()

	assertErrorIs(t, s.Commit(ctx), apperrors.ErrInvalidState)
	assertErrorIs(t, s.Rollback(), apperrors.ErrInvalidState)

	assertNoError(t, s.Begin(ctx))
	if !s.InTransaction() {
		t.Fatal("expected open transaction")
	}
	assertErrorIs(t, s.Begin(ctx), apperrors.ErrInvalidState)
	assertNoError(t, s.Rollback())
	if s.InTransaction() {
		t.Fatal("expected no transaction after rollback")
	}
}

func TestRollbackRestoresStorage(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	ctx := context.Background()

	s := openSession(t, f)
	assertNoError(t, s.Begin(ctx))
	e1, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)
	e1.Name = "Cambiado"

	st := domain.NewStudent("Estudiante 7", "e7@escuela.com")
	st.Enroll(e1.Courses()[0])
	assertNoError(t, s.Persist(ctx, st))
	id := st.ID()
	assertNoError(t, s.Flush(ctx))

	assertNoError(t, s.Rollback())
	if st.ID() != 0 {
		t.Errorf("expected identity of rolled back insert to be revoked, got %d", st.ID())
	}
	if s.Contains(e1) {
		t.Error("expected rollback to detach managed entities")
	}

	s2 := openSession(t, f)
	found, err := Find[*domain.Student](ctx, s2, sc.students[0].ID())
	assertNoError(t, err)
	assertEqual(t, "Estudiante 1", found.Name)

	gone, err := Find[*domain.Student](ctx, s2, id)
	assertNoError(t, err)
	if gone != nil {
		t.Errorf("expected rolled back student to be absent, got %v", gone)
	}
}

func TestConcurrentSessionsOnMemoryStore(t *testing.T) {
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{}, zerolog.Nop())
	assertNoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	f := NewFactory(store)
	sc := seedSchool(t, f)
	ctx := context.Background()

	a := openSession(t, f)
	assertNoError(t, a.Begin(ctx))
	inTx, err := Find[*domain.Student](ctx, a, sc.students[0].ID())
	assertNoError(t, err)
	assertEqual(t, "Estudiante 1", inTx.Name)

	b := openSession(t, f)
	bctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	other, err := Find[*domain.Student](bctx, b, sc.students[0].ID())
	assertNoError(t, err)
	assertEqual(t, "Estudiante 1", other.Name)
	if other == inTx {
		t.Error("expected each session to hold its own instance")
	}

	assertNoError(t, a.Commit(ctx))
}

func TestReadYourWrites(t *testing.T) {
	f := newTestFactory(t)
	sc := seedSchool(t, f)
	ctx := context.Background()

	a := openSession(t, f)
	b := openSession(t, f)
	assertNoError(t, a.Begin(ctx))

	st := domain.NewStudent("Estudiante 7", "e7@escuela.com")
	assertNoError(t, a.Persist(ctx, st))

	byName := query.From(domain.TypeStudent).Where(query.Eq(query.FieldName, "Estudiante 7"))
	mine, err := List[*domain.Student](ctx, a, byName)
	assertNoError(t, err)
	if len(mine) != 1 || mine[0] != st {
		t.Fatalf("expected the pending insert to be visible as the same instance, got %v", mine)
	}

	theirs, err := List[*domain.Student](ctx, b, byName)
	assertNoError(t, err)
	assertEqual(t, 0, len(theirs))

	e1, err := Find[*domain.Student](ctx, a, sc.students[0].ID())
	assertNoError(t, err)
	e1.Email = "nuevo@escuela.com"

	byEmail := query.From(domain.TypeStudent).Where(query.Eq(query.FieldEmail, "nuevo@escuela.com"))
	mine, err = List[*domain.Student](ctx, a, byEmail)
	assertNoError(t, err)
	if len(mine) != 1 || mine[0] != e1 {
		t.Fatalf("expected pending change to be flushed before the query, got %v", mine)
	}

	theirs, err = List[*domain.Student](ctx, b, byEmail)
	assertNoError(t, err)
	assertEqual(t, 0, len(theirs))

	assertNoError(t, a.Commit(ctx))

	theirs, err = List[*domain.Student](ctx, b, byEmail)
	assertNoError(t, err)
	assertEqual(t, 1, len(theirs))
}

func TestStorageFailureAbortsTransaction(t *testing.T) {
	store := newTestStore(t)
	sc := seedSchool(t, NewFactory(store))
	ctx := context.Background()

	reset := errors.New("connection reset")
	f := NewFactory(&flakyStore{Store: store, err: reset})
	s := openSession(t, f)

	assertNoError(t, s.Begin(ctx))
	e1, err := Find[*domain.Student](ctx, s, sc.students[0].ID())
	assertNoError(t, err)
	e1.Name = "Cambiado"

	assertErrorIs(t, s.Commit(ctx), reset)

	_, err = Find[*domain.Student](ctx, s, sc.students[1].ID())
	assertErrorIs(t, err, apperrors.ErrInvalidState)
	assertErrorIs(t, s.Commit(ctx), apperrors.ErrInvalidState)
	assertErrorIs(t, s.Persist(ctx, domain.NewProfessor("Profesor 3", "p3@escuela.com")), apperrors.ErrInvalidState)

	assertNoError(t, s.Rollback())
	assertNoError(t, s.Begin(ctx))
	assertErrorIs(t, s.Persist(ctx, domain.NewProfessor("Profesor 3", "p3@escuela.com")), reset)
	assertNoError(t, s.Rollback())

	s2 := openSession(t, NewFactory(store))
	found, err := Find[*domain.Student](ctx, s2, sc.students[0].ID())
	assertNoError(t, err)
	assertEqual(t, "Estudiante 1", found.Name)
}

func TestInTransaction(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()
	byName := query.From(domain.TypeProfessor).Where(query.Eq(query.FieldName, "Profesor 3"))

	t.Run("error rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		var p *domain.Professor
		err := f.InTransaction(ctx, func(s *Session) error {
			p = domain.NewProfessor("Profesor 3", "p3@escuela.com")
			if err := s.Persist(ctx, p); err != nil {
				return err
			}
			return boom
		})
		assertErrorIs(t, err, boom)
		assertEqual(t, int64(0), p.ID())
	})

	t.Run("panic rolls back", func(t *testing.T) {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic to propagate")
				}
			}()
			f.InTransaction(ctx, func(s *Session) error {
				if err := s.Persist(ctx, domain.NewProfessor("Profesor 3", "p3@escuela.com")); err != nil {
					return err
				}
				panic("boom")
			})
		}()
	})

	s := openSession(t, f)
	found, err := List[*domain.Professor](ctx, s, byName)
	assertNoError(t, err)
	assertEqual(t, 0, len(found))

	t.Run("success commits", func(t *testing.T) {
		err := f.InTransaction(ctx, func(s *Session) error {
			return s.Persist(ctx, domain.NewProfessor("Profesor 3", "p3@escuela.com"))
		})
		assertNoError(t, err)
	})

	found, err = List[*domain.Professor](ctx, s, byName)
	assertNoError(t, err)
	assertEqual(t, 1, len(found))
}
