package session

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"registrar/internal/domain"
	"registrar/internal/repository"
)

// Factory opens sessions against one store
type Factory struct {
	store    repository.Store
	log      zerolog.Logger
	validate *validator.Validate
}

// Option configures a Factory
type Option func(*Factory)

// WithLogger sets the logger sessions derive from
func WithLogger(l zerolog.Logger) Option {
	return func(f *Factory) { f.log = l }
}

// WithValidator replaces the default entity validator
func WithValidator(v *validator.Validate) Option {
	return func(f *Factory) { f.validate = v }
}

// NewFactory creates a Factory. Sessions log nothing unless WithLogger is given.
func NewFactory(store repository.Store, opts ...Option) *Factory {
	f := &Factory{
		store:    store,
		log:      zerolog.Nop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open starts a session with an empty identity map. No storage is touched
// until the first call that needs it.
func (f *Factory) Open() *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		store:    f.store,
		managed:  make(map[domain.Key]*entry),
		log:      f.log.With().Str("session", id).Logger(),
		validate: f.validate,
	}
}

// InTransaction runs fn in a new session inside a transaction. The
// transaction commits when fn returns nil and rolls back otherwise, including
// when fn panics. The session is closed on return.
func (f *Factory) InTransaction(ctx context.Context, fn func(*Session) error) error {
	s := f.Open()
	defer s.Close()

	if err := s.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			s.Rollback()
			panic(r)
		}
	}()

	if err := fn(s); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return s.Commit(ctx)
}
