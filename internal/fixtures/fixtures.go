// Package fixtures provides the sample school dataset and loads school
// documents into storage.
package fixtures

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"registrar/internal/codec"
	"registrar/internal/domain"
	"registrar/internal/session"
)

//go:embed escuela.yaml
var escuela []byte

// Load parses the embedded sample school. Every call returns a new graph.
func Load() (*domain.School, error) {
	return codec.NewYAMLCodec().Parse(bytes.NewReader(escuela))
}

// Seed persists every entity of school in a single transaction, professors
// first, then courses, then students with their enrollments. On success the
// entities carry their new identities; on failure none is assigned.
func Seed(ctx context.Context, f *session.Factory, school *domain.School) error {
	if err := school.Validate(); err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}
	return f.InTransaction(ctx, func(s *session.Session) error {
		for _, p := range school.Professors {
			if err := s.Persist(ctx, p); err != nil {
				return fmt.Errorf("failed to seed professor %q: %w", p.Name, err)
			}
		}
		for _, c := range school.Courses {
			if err := s.Persist(ctx, c); err != nil {
				return fmt.Errorf("failed to seed course %q: %w", c.Name, err)
			}
		}
		for _, st := range school.Students {
			if err := s.Persist(ctx, st); err != nil {
				return fmt.Errorf("failed to seed student %q: %w", st.Name, err)
			}
		}
		return nil
	})
}
