package domain

import (
	"errors"
	"fmt"
)

// ErrProfessorRequired is returned when a course would be left without a professor
var ErrProfessorRequired = errors.New("course requires a professor")

// Course belongs to exactly one professor. Its student roster is the derived
// side of the enrollment relation and is read-only to callers.
type Course struct {
	id        int64
	Name      string  `json:"name" validate:"required"`
	Credits   float64 `json:"credits" validate:"gte=0"`
	professor *Professor
	students  []*Student
}

// NewCourse creates a detached course taught by p
func NewCourse(name string, credits float64, p *Professor) (*Course, error) {
	if p == nil {
		return nil, ErrProfessorRequired
	}
	return &Course{Name: name, Credits: credits, professor: p}, nil
}

// EntityType implements Entity
func (*Course) EntityType() EntityType { return TypeCourse }

// ID returns the storage identity, 0 while transient
func (c *Course) ID() int64 {
	if c == nil {
		return 0
	}
	return c.id
}

func (c *Course) setID(id int64) { c.id = id }

// Professor returns the owning professor
func (c *Course) Professor() *Professor {
	return c.professor
}

// SetProfessor reassigns the course. A nil professor is rejected.
func (c *Course) SetProfessor(p *Professor) error {
	if p == nil {
		return ErrProfessorRequired
	}
	c.professor = p
	return nil
}

// Students returns a copy of the derived roster. A session fills it on
// Initialize; before that it holds only the students the session manages.
func (c *Course) Students() []*Student {
	return cloneMembers(c.students)
}

// HasStudent reports whether s is on the derived roster
func (c *Course) HasStudent(s *Student) bool {
	return s != nil && indexOf(c.students, s) >= 0
}

func (c *Course) String() string {
	prof := "<none>"
	if c.professor != nil {
		prof = c.professor.Name
	}
	return fmt.Sprintf("Course{id=%d, name=%q, credits=%g, professor=%q}", c.id, c.Name, c.Credits, prof)
}
