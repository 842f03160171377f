package domain

import (
	"errors"
	"fmt"
)

// School is a detached object graph of professors, courses and students,
// as read from a fixture document or exported from a session
type School struct {
	Professors []*Professor
	Courses    []*Course
	Students   []*Student
}

// NewSchool creates an empty school graph
func NewSchool() *School {
	return &School{
		Professors: make([]*Professor, 0),
		Courses:    make([]*Course, 0),
		Students:   make([]*Student, 0),
	}
}

// ProfessorByName returns the first professor with the given name
func (s *School) ProfessorByName(name string) *Professor {
	for _, p := range s.Professors {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// CourseByName returns the first course with the given name
func (s *School) CourseByName(name string) *Course {
	for _, c := range s.Courses {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// StudentByName returns the first student with the given name
func (s *School) StudentByName(name string) *Student {
	for _, st := range s.Students {
		if st.Name == name {
			return st
		}
	}
	return nil
}

// Validate checks that the graph is closed: every course's professor and
// every enrolled course belong to the school
func (s *School) Validate() error {
	var errs []error
	for _, c := range s.Courses {
		if c.Professor() == nil {
			errs = append(errs, fmt.Errorf("course %q: %w", c.Name, ErrProfessorRequired))
			continue
		}
		if indexOf(s.Professors, c.Professor()) < 0 {
			errs = append(errs, fmt.Errorf("course %q: professor %q is not part of the school", c.Name, c.Professor().Name))
		}
	}
	for _, st := range s.Students {
		for _, c := range st.Courses() {
			if indexOf(s.Courses, c) < 0 {
				errs = append(errs, fmt.Errorf("student %q: course %q is not part of the school", st.Name, c.Name))
			}
		}
	}
	return errors.Join(errs...)
}
