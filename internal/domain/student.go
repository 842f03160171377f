package domain

import "fmt"

// Student owns its course set; the join table is written from this side
type Student struct {
	id      int64
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	courses []*Course
}

// NewStudent creates a detached student without identity
func NewStudent(name, email string) *Student {
	return &Student{Name: name, Email: email}
}

// EntityType implements Entity
func (*Student) EntityType() EntityType { return TypeStudent }

// ID returns the storage identity, 0 while transient
func (s *Student) ID() int64 {
	if s == nil {
		return 0
	}
	return s.id
}

func (s *Student) setID(id int64) { s.id = id }

// Courses returns a copy of the owned course set
func (s *Student) Courses() []*Course {
	return cloneMembers(s.courses)
}

// Enroll adds c to the owned course set. The course's derived roster is
// updated by the session that manages s.
func (s *Student) Enroll(c *Course) {
	if c == nil {
		return
	}
	if indexOf(s.courses, c) >= 0 {
		return
	}
	s.courses = append(s.courses, c)
}

// Drop removes c from the owned course set
func (s *Student) Drop(c *Course) bool {
	if c == nil {
		return false
	}
	var ok bool
	s.courses, ok = removeMember(s.courses, c)
	return ok
}

// SetCourses replaces the owned course set
func (s *Student) SetCourses(courses []*Course) {
	s.courses = nil
	for _, c := range courses {
		s.Enroll(c)
	}
}

// IsEnrolled reports whether c is in the owned course set
func (s *Student) IsEnrolled(c *Course) bool {
	return c != nil && indexOf(s.courses, c) >= 0
}

func (s *Student) String() string {
	return fmt.Sprintf("Student{id=%d, name=%q, email=%q}", s.id, s.Name, s.Email)
}
