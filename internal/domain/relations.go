package domain

import "fmt"

// The functions in this file maintain the derived sides of both relations.
// Only the session layer calls them; callers change membership through
// Student.Enroll/Drop and Course.SetProfessor.

// AttachEnrollment puts s on c's roster, replacing a stale instance with the same identity
func AttachEnrollment(c *Course, s *Student) {
	c.students = addMember(c.students, s)
}

// DetachEnrollment takes s off c's roster
func DetachEnrollment(c *Course, s *Student) {
	c.students, _ = removeMember(c.students, s)
}

// AttachTeaching puts c in p's course set
func AttachTeaching(p *Professor, c *Course) {
	p.courses = addMember(p.courses, c)
}

// DetachTeaching takes c out of p's course set
func DetachTeaching(p *Professor, c *Course) {
	p.courses, _ = removeMember(p.courses, c)
}

// CheckEnrollmentSymmetry verifies that, restricted to the given entities,
// c is in s.Courses() exactly when s is in c.Students()
func CheckEnrollmentSymmetry(students []*Student, courses []*Course) error {
	for _, s := range students {
		for _, c := range courses {
			owned := s.IsEnrolled(c)
			derived := c.HasStudent(s)
			if owned != derived {
				return fmt.Errorf("asymmetric enrollment %s / %s: owned=%v derived=%v", s, c, owned, derived)
			}
		}
	}
	return nil
}
