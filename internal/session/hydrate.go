package session

import (
	"context"
	"fmt"
	"slices"

	"registrar/internal/apperrors"
	"registrar/internal/domain"
	"registrar/internal/repository"
)

// graph collects the rows a set of roots references before any entity is
// built, so that every entity can be linked to managed instances only.
// References are followed one way: a student's courses, then a course's
// professor. Rosters and a professor's courses are left for Initialize.
type graph struct {
	s           *Session
	records     map[domain.Key]repository.Record
	pending     map[domain.EntityType][]int64
	enrollments map[int64][]int64
}

func newGraph(s *Session) *graph {
	return &graph{
		s:           s,
		records:     make(map[domain.Key]repository.Record),
		pending:     make(map[domain.EntityType][]int64),
		enrollments: make(map[int64][]int64),
	}
}

func (g *graph) known(k domain.Key) bool {
	if _, ok := g.s.managed[k]; ok {
		return true
	}
	_, ok := g.records[k]
	return ok
}

func (g *graph) add(rec repository.Record) {
	k := rec.Key()
	if g.known(k) {
		return
	}
	g.records[k] = rec
	g.pending[rec.Type] = append(g.pending[rec.Type], rec.ID)
}

// fetchMissing loads the rows of type t among ids that are neither managed
// nor already collected
func (g *graph) fetchMissing(ctx context.Context, r repository.Reader, t domain.EntityType, ids []int64) error {
	var missing []int64
	seen := make(map[int64]bool)
	for _, id := range ids {
		if seen[id] || g.known(domain.Key{Type: t, ID: id}) {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}
	recs, err := r.Fetch(ctx, t, missing)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		g.add(rec)
	}
	return nil
}

// expand follows the references of pending rows. Students pull in their
// courses and courses their professor, so it runs at most three rounds, each
// issuing at most one batched query per relation.
func (g *graph) expand(ctx context.Context, r repository.Reader) error {
	for len(g.pending) > 0 {
		batch := g.pending
		g.pending = make(map[domain.EntityType][]int64)

		if ids := batch[domain.TypeStudent]; len(ids) > 0 {
			ens, err := r.EnrollmentsByStudent(ctx, ids)
			if err != nil {
				return err
			}
			var courses []int64
			for _, en := range ens {
				g.enrollments[en.StudentID] = append(g.enrollments[en.StudentID], en.CourseID)
				courses = append(courses, en.CourseID)
			}
			if err := g.fetchMissing(ctx, r, domain.TypeCourse, courses); err != nil {
				return err
			}
		}

		if ids := batch[domain.TypeCourse]; len(ids) > 0 {
			var professors []int64
			for _, id := range ids {
				professors = append(professors, g.records[domain.Key{Type: domain.TypeCourse, ID: id}].ProfessorID)
			}
			if err := g.fetchMissing(ctx, r, domain.TypeProfessor, professors); err != nil {
				return err
			}
		}
	}
	return nil
}

// materialize builds and registers the collected entities in foreign key
// order so every reference resolves to a managed instance
func (g *graph) materialize() error {
	keys := make([]domain.Key, 0, len(g.records))
	for k := range g.records {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	for _, k := range keys {
		rec := g.records[k]
		var (
			e       domain.Entity
			courses []int64
		)
		switch rec.Type {
		case domain.TypeProfessor:
			e = domain.NewProfessor(rec.Name, rec.Email)
		case domain.TypeCourse:
			p, ok := g.s.lookup(domain.Key{Type: domain.TypeProfessor, ID: rec.ProfessorID})
			if !ok {
				return fmt.Errorf("course %d references missing professor %d", rec.ID, rec.ProfessorID)
			}
			c, err := domain.NewCourse(rec.Name, rec.Credits, p.(*domain.Professor))
			if err != nil {
				return err
			}
			e = c
		case domain.TypeStudent:
			st := domain.NewStudent(rec.Name, rec.Email)
			courses = g.enrollments[rec.ID]
			for _, cid := range courses {
				c, ok := g.s.lookup(domain.Key{Type: domain.TypeCourse, ID: cid})
				if !ok {
					return fmt.Errorf("student %d references missing course %d", rec.ID, cid)
				}
				st.Enroll(c.(*domain.Course))
			}
			e = st
		default:
			return fmt.Errorf("unknown entity type %q", rec.Type)
		}
		if err := domain.AssignIdentity(e, rec.ID); err != nil {
			return err
		}
		g.s.register(e, rec, courses)
	}
	return nil
}

// hydrate returns the managed instance for each record, materializing the
// records and their related entities that are not managed yet. Already
// managed instances keep their in-memory state.
func (s *Session) hydrate(ctx context.Context, r repository.Reader, recs []repository.Record) ([]domain.Entity, error) {
	g := newGraph(s)
	for _, rec := range recs {
		g.add(rec)
	}

	if err := g.expand(ctx, r); err != nil {
		return nil, s.fail(err)
	}
	if err := g.materialize(); err != nil {
		return nil, s.fail(err)
	}
	s.sync()

	out := make([]domain.Entity, len(recs))
	for i, rec := range recs {
		out[i] = s.managed[rec.Key()].entity
	}
	if len(g.records) > 0 {
		s.log.Debug().Int("roots", len(recs)).Int("materialized", len(g.records)).Msg("hydrated")
	}
	return out, nil
}

// ensure makes the entities of type t with the given identities managed,
// reading missing ones from r. Identities absent from storage stay unmanaged.
func (s *Session) ensure(ctx context.Context, r repository.Reader, t domain.EntityType, ids []int64) error {
	var missing []int64
	for _, id := range ids {
		if _, ok := s.lookup(domain.Key{Type: t, ID: id}); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	recs, err := r.Fetch(ctx, t, missing)
	if err != nil {
		return s.fail(err)
	}
	_, err = s.hydrate(ctx, r, recs)
	return err
}

// ============================================================================
// Collection Initialization
// ============================================================================

// Initialize loads the derived collections of managed courses and professors:
// every student enrolled in a course and every course a professor teaches.
// Members not managed yet are materialized. Reading an entity loads only
// what it references, so until a course or professor is initialized its
// collection holds just the members the session already manages. Students
// always carry their full course set, and entities persisted in this session
// start out initialized.
func (s *Session) Initialize(ctx context.Context, entities ...domain.Entity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	var (
		entries    []*entry
		courses    []int64
		professors []int64
	)
	for _, e := range entities {
		en, ok := s.entryOf(e)
		if !ok {
			return apperrors.NewInvalidStateError("%s is not managed by this session", describe(e))
		}
		if en.initialized {
			continue
		}
		switch e.EntityType() {
		case domain.TypeCourse:
			courses = append(courses, e.ID())
		case domain.TypeProfessor:
			professors = append(professors, e.ID())
		}
		entries = append(entries, en)
	}
	if len(entries) == 0 {
		return nil
	}

	r, err := s.read(ctx)
	if err != nil {
		return err
	}
	if len(courses) > 0 {
		ens, err := r.EnrollmentsByCourse(ctx, courses)
		if err != nil {
			return s.fail(err)
		}
		students := make([]int64, 0, len(ens))
		for _, en := range ens {
			students = append(students, en.StudentID)
		}
		if err := s.ensure(ctx, r, domain.TypeStudent, students); err != nil {
			return err
		}
	}
	if len(professors) > 0 {
		recs, err := r.CoursesByProfessor(ctx, professors)
		if err != nil {
			return s.fail(err)
		}
		if _, err := s.hydrate(ctx, r, recs); err != nil {
			return err
		}
	}

	for _, en := range entries {
		en.initialized = true
	}
	s.sync()
	s.log.Debug().Int("courses", len(courses)).Int("professors", len(professors)).Msg("collections initialized")
	return nil
}

// IsInitialized reports whether e is managed and its collections are loaded
func (s *Session) IsInitialized(e domain.Entity) bool {
	en, ok := s.entryOf(e)
	return ok && en.initialized
}
