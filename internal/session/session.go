package session

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"registrar/internal/apperrors"
	"registrar/internal/domain"
	"registrar/internal/repository"
)

// entry is the identity map slot of one managed entity
type entry struct {
	entity domain.Entity
	// snapshot is the column state storage holds as of the last read or write
	snapshot repository.Record
	// courses is, for students, the enrollment set storage holds
	courses []int64
	// initialized is set once the derived collection of a course or
	// professor has been read; students are always initialized
	initialized bool
	readOnly    bool
}

// Session is a unit of work. See the package documentation.
type Session struct {
	id       string
	store    repository.Store
	tx       repository.Tx
	managed  map[domain.Key]*entry
	inserted []domain.Entity
	aborted  bool
	closed   bool
	log      zerolog.Logger
	validate *validator.Validate
}

// ID returns the session correlation id used in logs
func (s *Session) ID() string {
	return s.id
}

// InTransaction reports whether a transaction is open
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

// ============================================================================
// State Checks
// ============================================================================

func (s *Session) checkOpen() error {
	if s.closed {
		return apperrors.ErrClosedSession
	}
	if s.aborted {
		return apperrors.NewInvalidStateError("transaction failed and must be rolled back")
	}
	return nil
}

func (s *Session) checkWritable() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.tx == nil {
		return apperrors.NewInvalidStateError("no transaction in progress")
	}
	return nil
}

// fail marks the open transaction rollback-only unless err is a lookup or
// request error, and returns err
func (s *Session) fail(err error) error {
	if err == nil || apperrors.IsLookup(err) || errors.Is(err, apperrors.ErrInvalidState) {
		return err
	}
	if s.tx != nil && !s.aborted {
		s.aborted = true
		s.log.Warn().Err(err).Msg("transaction marked rollback-only")
	}
	return err
}

// reader returns the transaction when one is open, the store otherwise
func (s *Session) reader() repository.Reader {
	if s.tx != nil {
		return s.tx
	}
	return s.store
}

// read flushes pending changes when a transaction is open so the following
// storage read sees them, and returns the reader to use
func (s *Session) read(ctx context.Context) (repository.Reader, error) {
	if s.tx != nil {
		if err := s.flush(ctx); err != nil {
			return nil, err
		}
	}
	return s.reader(), nil
}

// ============================================================================
// Identity Map
// ============================================================================

func (s *Session) lookup(k domain.Key) (domain.Entity, bool) {
	en, ok := s.managed[k]
	if !ok {
		return nil, false
	}
	return en.entity, true
}

func (s *Session) register(e domain.Entity, snapshot repository.Record, courses []int64) *entry {
	en := &entry{
		entity:      e,
		snapshot:    snapshot,
		courses:     courses,
		initialized: e.EntityType() == domain.TypeStudent,
	}
	s.managed[domain.KeyOf(e)] = en
	return en
}

// entryOf returns the entry of e when e itself is the managed instance
func (s *Session) entryOf(e domain.Entity) (*entry, bool) {
	if isNil(e) || e.ID() == 0 {
		return nil, false
	}
	en, ok := s.managed[domain.KeyOf(e)]
	if !ok || en.entity != e {
		return nil, false
	}
	return en, true
}

// sortedKeys returns managed keys in foreign key order, then by identity
func (s *Session) sortedKeys() []domain.Key {
	keys := make([]domain.Key, 0, len(s.managed))
	for k := range s.managed {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// compareKeys orders keys by foreign key rank, then by identity
func compareKeys(a, b domain.Key) int {
	if c := cmp.Compare(a.Type.Rank(), b.Type.Rank()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Contains reports whether e is the managed instance for its identity
func (s *Session) Contains(e domain.Entity) bool {
	_, ok := s.entryOf(e)
	return ok
}

// Evict stops tracking e without touching storage. Pending changes to e are
// discarded. Evicting an unmanaged entity does nothing.
func (s *Session) Evict(e domain.Entity) error {
	if s.closed {
		return apperrors.ErrClosedSession
	}
	if _, ok := s.entryOf(e); ok {
		delete(s.managed, domain.KeyOf(e))
	}
	return nil
}

// Clear stops tracking every entity without touching storage
func (s *Session) Clear() error {
	if s.closed {
		return apperrors.ErrClosedSession
	}
	s.clear()
	return nil
}

func (s *Session) clear() {
	s.managed = make(map[domain.Key]*entry)
}

// SetReadOnly switches change tracking for a managed entity. Changes made
// while read-only are not flushed. Switching tracking back on takes the
// current state of e as the stored state.
func (s *Session) SetReadOnly(e domain.Entity, readOnly bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	en, ok := s.entryOf(e)
	if !ok {
		return apperrors.NewInvalidStateError("%s is not managed by this session", describe(e))
	}
	if en.readOnly && !readOnly {
		en.snapshot = recordOf(e)
		if st, ok := e.(*domain.Student); ok {
			en.courses = courseIDs(st.Courses())
		}
	}
	en.readOnly = readOnly
	return nil
}

// IsReadOnly reports whether e is managed and read-only
func (s *Session) IsReadOnly(e domain.Entity) bool {
	en, ok := s.entryOf(e)
	return ok && en.readOnly
}

// ============================================================================
// Transactions
// ============================================================================

// Begin opens a transaction
func (s *Session) Begin(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.tx != nil {
		return apperrors.NewInvalidStateError("transaction already in progress")
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	s.tx = tx
	s.inserted = nil
	s.log.Debug().Msg("transaction started")
	return nil
}

// Flush writes pending changes of managed entities inside the open transaction
func (s *Session) Flush(ctx context.Context) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	return s.flush(ctx)
}

// Commit flushes pending changes and commits. A failed commit leaves no
// transaction open and the session in the same state as after Rollback.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if err := s.flush(ctx); err != nil {
		return err
	}
	if err := s.tx.Commit(); err != nil {
		s.discard()
		return err
	}
	s.tx = nil
	s.inserted = nil
	s.log.Debug().Int("managed", len(s.managed)).Msg("transaction committed")
	return nil
}

// Rollback aborts the open transaction. Storage is left as it was before
// Begin; every managed entity becomes detached and identities assigned in the
// transaction are revoked.
func (s *Session) Rollback() error {
	if s.closed {
		return apperrors.ErrClosedSession
	}
	if s.tx == nil {
		return apperrors.NewInvalidStateError("no transaction in progress")
	}
	err := s.tx.Rollback()
	s.discard()
	s.log.Debug().Msg("transaction rolled back")
	return err
}

// discard ends the transaction without committing and forgets its effects
func (s *Session) discard() {
	for _, e := range s.inserted {
		domain.RevokeIdentity(e)
	}
	s.inserted = nil
	s.tx = nil
	s.aborted = false
	s.clear()
}

// Close rolls back an open transaction and releases every managed entity.
// Any later call fails with ErrClosedSession.
func (s *Session) Close() error {
	if s.closed {
		return apperrors.ErrClosedSession
	}
	var err error
	if s.tx != nil {
		err = s.tx.Rollback()
		s.discard()
	}
	s.clear()
	s.closed = true
	return err
}
