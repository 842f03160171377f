package domain

import "fmt"

// Professor teaches a derived, read-only set of courses
type Professor struct {
	id      int64
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	courses []*Course
}

// NewProfessor creates a detached professor without identity
func NewProfessor(name, email string) *Professor {
	return &Professor{Name: name, Email: email}
}

// EntityType implements Entity
func (*Professor) EntityType() EntityType { return TypeProfessor }

// ID returns the storage identity, 0 while transient
func (p *Professor) ID() int64 {
	if p == nil {
		return 0
	}
	return p.id
}

func (p *Professor) setID(id int64) { p.id = id }

// Courses returns a copy of the derived course set, complete once the
// managing session has initialized p
func (p *Professor) Courses() []*Course {
	return cloneMembers(p.courses)
}

// Teaches reports whether c is in the derived course set
func (p *Professor) Teaches(c *Course) bool {
	return c != nil && indexOf(p.courses, c) >= 0
}

func (p *Professor) String() string {
	return fmt.Sprintf("Professor{id=%d, name=%q, email=%q}", p.id, p.Name, p.Email)
}
